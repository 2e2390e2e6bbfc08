package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	DatabaseURL  string
	StoreBackend string // "memory" or "mysql"
	JWTSecret    string

	CleanupInterval time.Duration

	// Email configuration
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

func Load() *Config {
	// Missing .env is fine; the process environment wins either way
	_ = godotenv.Load()

	smtpPort, _ := strconv.Atoi(getEnv("SMTP_PORT", "2525"))
	cleanupSeconds, _ := strconv.Atoi(getEnv("CLEANUP_INTERVAL_SECONDS", "10"))

	return &Config{
		Port:         getEnv("PORT", "8080"),
		DatabaseURL:  getEnv("DATABASE_URL", "user:password@tcp(localhost:3306)/sprintarena?charset=utf8mb4&parseTime=True&loc=Local"),
		StoreBackend: getEnv("STORE_BACKEND", "memory"),
		JWTSecret:    getEnv("JWT_SECRET", "your-secret-key"),

		CleanupInterval: time.Duration(cleanupSeconds) * time.Second,

		SMTPHost:     getEnv("SMTP_HOST", "sandbox.smtp.mailtrap.io"),
		SMTPPort:     smtpPort,
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		FromEmail:    getEnv("FROM_EMAIL", "noreply@sprintarena.app"),
		FromName:     getEnv("FROM_NAME", "SprintArena"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

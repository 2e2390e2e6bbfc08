package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"sprintarena-api/config"
	"sprintarena-api/database"
	"sprintarena-api/jobs"
	"sprintarena-api/middleware"
	"sprintarena-api/repositories"
	"sprintarena-api/routes"
	"sprintarena-api/services"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	var db *gorm.DB
	var roomRepo repositories.RoomRepository

	switch cfg.StoreBackend {
	case "mysql":
		var err error
		db, err = database.Initialize(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		if err := database.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		roomRepo = repositories.NewGormRoomRepository(db)
	default:
		roomRepo = repositories.NewMemoryRoomRepository()
	}

	clock := clockwork.NewRealClock()
	codeService := services.NewCodeService(roomRepo)
	roomService := services.NewRoomService(roomRepo, codeService, clock)

	cleanupJob := jobs.NewRoomCleanupJob(roomRepo, clock, cfg.CleanupInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RequestLogger())

	routes.SetupRoutes(r, db, cfg, roomService, codeService)

	log.Info().Str("port", cfg.Port).Str("store", cfg.StoreBackend).Msg("Starting server")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}

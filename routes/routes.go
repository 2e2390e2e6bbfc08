package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"sprintarena-api/config"
	"sprintarena-api/controllers"
	"sprintarena-api/middleware"
	"sprintarena-api/services"
)

// SetupRoutes wires the HTTP surface. db may be nil when the room store runs
// in memory and no account endpoints are wanted.
func SetupRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, rooms *services.RoomService, codes *services.CodeService) {
	roomController := controllers.NewRoomController(rooms, codes)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(300, 30))

	// Room coordination (no account required)
	roomRoutes := v1.Group("/rooms")
	{
		roomRoutes.POST("", roomController.CreateRoom)
		roomRoutes.POST("/find", roomController.FindRooms)
		roomRoutes.GET("/code/:code", roomController.GetRoomByCode)
		roomRoutes.GET("/:roomId", roomController.GetRoom)
		roomRoutes.POST("/:roomId", roomController.RoomAction)
	}

	userController := controllers.NewUserController(db)

	// Anonymous racers bootstrap their player id here; no account needed.
	v1.GET("/ip", userController.GetPlayerID)

	if db == nil {
		return
	}

	emailService := services.NewEmailService(cfg)
	authController := controllers.NewAuthController(db, cfg.JWTSecret, emailService)

	auth := v1.Group("/auth")
	{
		auth.POST("/signup", authController.Signup)
		auth.POST("/login", authController.Login)
		auth.POST("/logout", authController.Logout)
		auth.GET("/session", middleware.AuthOptional(cfg.JWTSecret), authController.Session)
	}

	users := v1.Group("/users")
	users.Use(middleware.AuthRequired(cfg.JWTSecret))
	{
		users.GET("/profile", userController.GetProfile)
		users.PUT("/profile", userController.UpdateProfile)
		users.POST("/race-history", userController.AddRaceResult)
	}
}

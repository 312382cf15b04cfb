package main

import (
	"log"

	"lms/backend/config"
	"lms/backend/jobs"
	"lms/backend/middleware"
	"lms/backend/routes"
	"lms/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	if err := utils.Migrate(db); err != nil {
		log.Fatalf("Error migrating database: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger()

	// Create Fiber app
	app := fiber.New()

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Generated certificates are served from the upload directory
	app.Static("/uploads", cfg.UploadDir)

	// Setup routes
	routes.SetupRoutes(app, db, cfg, logger)

	// Nightly sweep of courses past their end date
	scheduler := jobs.StartScheduler(db, logger)
	defer scheduler.Stop()

	// Start server
	log.Fatal(app.Listen(":" + cfg.ServerPort))
}

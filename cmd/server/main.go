package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/cableworks/backend/internal/api"
	"github.com/cableworks/backend/internal/config"
	"github.com/cableworks/backend/internal/database"
	"github.com/cableworks/backend/internal/middleware"
	"github.com/cableworks/backend/internal/migrations"
	"github.com/cableworks/backend/internal/redis"
	"github.com/cableworks/backend/internal/sim"
	"github.com/cableworks/backend/internal/store"
	"github.com/cableworks/backend/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Database is optional: without it the server runs with in-memory
	// simulations only and the preset endpoints return 503.
	var presets *store.PresetStore
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		// Run migrations on start if requested
		if os.Getenv("MIGRATE_ON_START") == "true" {
			log.Println("↗ Running DB migrations on startup...")
			if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}

		presets = store.NewPresetStore(db)
		log.Println("[DB] preset store initialized")
	} else {
		log.Println("[DB] DATABASE_URL not set; presets disabled")
	}

	// Redis is optional too: without it events stay in-process.
	rdb, err := redis.ConnectOptional(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// Initialize the simulation manager and wire frames/events to the
	// WebSocket hub.
	mgr := sim.NewManager(cfg, rdb)
	mgr.SetPublisher(ws.RopeHub)
	ws.SetManager(mgr)
	if rdb != nil {
		ws.SetRedisClient(rdb)
		ws.StartEventSubscriber(context.Background())
	}

	// Start the fixed-rate step worker
	mgr.StartStepWorker(context.Background())

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.WebSocketCORSCheck(cfg))

	// Initialize API handlers
	api.SetupRoutes(router, mgr, presets, cfg)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting Cableworks server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

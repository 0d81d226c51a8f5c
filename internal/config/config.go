package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Simulation settings
	TickHz      int // fixed-timestep rate for the step worker
	FrameEvery  int // publish every Nth frame to viewers
	MaxRopes    int // cap on live rope instances
	MaxSegments int // cap on segments per rope

	// Security
	APIKey        string
	JWTSecret     string
	JWTTTLMinutes int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database (optional; presets fall back to memory when empty)
		DatabaseURL: getEnv("DATABASE_URL", ""),

		// Redis (optional; enables frame mirroring and event fanout)
		RedisURL: getEnv("REDIS_URL", ""),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Simulation settings
		TickHz:      getEnvInt("SIM_TICK_HZ", 60),
		FrameEvery:  getEnvInt("SIM_FRAME_EVERY", 2),
		MaxRopes:    getEnvInt("SIM_MAX_ROPES", 64),
		MaxSegments: getEnvInt("SIM_MAX_SEGMENTS", 256),

		// Security
		APIKey:        getEnv("API_KEY", ""),
		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		JWTTTLMinutes: getEnvInt("JWT_TTL_MINUTES", 30),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

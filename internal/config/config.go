package config

import (
	"os"
	"strconv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort    int
	DatabasePath  string
	UploadPath    string // Base path for uploaded cover images
	JWTSecret     string
	AllowedOrigin string
	SweepSchedule string // Cron expression for the upload sweeper
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort:    port,
		DatabasePath:  getEnv("DATABASE_PATH", "./scribe.db"),
		UploadPath:    getEnv("UPLOAD_PATH", "./uploads"),
		JWTSecret:     getEnv("JWT_SECRET", "supersecret"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "*"),
		SweepSchedule: getEnv("UPLOAD_SWEEP_SCHEDULE", "@hourly"),
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

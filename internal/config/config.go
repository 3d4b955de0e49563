package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the application configuration. It is built once at startup
// and passed to the components that need it.
type Config struct {
	// Server configuration
	Port        string
	Mode        string
	Environment string

	// Facebook app configuration
	AppID         string
	AppAPIKey     string
	AppSecret     string
	AppCanvasName string

	// Session configuration
	SessionSecret string

	// Database configuration
	DatabaseURL string
}

// Load reads configuration from the environment, honoring a local .env file.
func Load() (*Config, error) {
	// Ignore error if .env file doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Mode:          getEnv("GIN_MODE", "debug"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		AppID:         getEnv("APP_ID", ""),
		AppAPIKey:     getEnv("APP_API_KEY", ""),
		AppSecret:     getEnv("APP_SECRET", ""),
		AppCanvasName: getEnv("APP_CANVAS_NAME", ""),
		SessionSecret: getEnv("SESSION_SECRET", "cmfbsub-dev-secret"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
	}

	if cfg.Environment == "production" {
		if cfg.AppID == "" || cfg.AppSecret == "" {
			return nil, fmt.Errorf("APP_ID and APP_SECRET must be set in production")
		}
	}

	return cfg, nil
}

// CanvasURL returns the canonical URL of the app inside Facebook.
func (c *Config) CanvasURL() string {
	return "https://apps.facebook.com/" + c.AppCanvasName
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/voxlate/voxlate/domain/repositories"
)

// Config holds everything the server needs to start.
type Config struct {
	// APIKey authenticates against the remote translation service.
	APIKey string
	// Port is the HTTP listen port.
	Port string
	// DataDir is where conversation history is persisted.
	DataDir string
	// Model overrides the default live session model when set.
	Model string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	// Missing .env is the normal case in production.
	_ = godotenv.Load()

	cfg := &Config{
		APIKey:  os.Getenv("GEMINI_API_KEY"),
		Port:    getEnv("PORT", "8080"),
		DataDir: getEnv("DATA_DIR", "./data"),
		Model:   os.Getenv("LIVE_MODEL"),
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set: %w", repositories.ErrCredentialMissing)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package config

import (
	"fmt"
	"os"
	"scrimhub/internal/constants"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	DBPath         string
	ServerPort     string
	LogLevel       string
	TrackerAPIURL  string
	TrackerAPIKey  string
	AdminAccountID string
	SweepInterval  time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:         getEnv("DB_PATH", "scrimhub.db"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		TrackerAPIURL:  getEnv("TRACKER_API_URL", ""),
		TrackerAPIKey:  getEnv("TRACKER_API_KEY", ""),
		AdminAccountID: getEnv("ADMIN_ACCOUNT_ID", ""),
		SweepInterval:  constants.SweepInterval,
	}

	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SWEEP_INTERVAL: %w", err)
		}
		cfg.SweepInterval = d
	}

	if cfg.TrackerAPIURL == "" {
		return nil, fmt.Errorf("TRACKER_API_URL is required")
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("tracker_api_url", cfg.TrackerAPIURL).
		Dur("sweep_interval", cfg.SweepInterval).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Package config
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Address  string `validate:"required"`
	APIToken string `validate:"required"`

	// Interface is the NIC to monitor; empty means autodetect.
	Interface string

	SampleInterval  time.Duration `validate:"gt=0"`
	AvgPeriod       time.Duration `validate:"gtefield=SampleInterval"`
	PersistInterval time.Duration `validate:"gt=0"`

	DBPath         string `validate:"required"`
	AllowedOrigins []string

	LogLevel  string
	LogFormat string
}

var validate = validator.New()

func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Address:         envOr("HTTP_ADDR", ":8000"),
		APIToken:        os.Getenv("API_TOKEN"),
		Interface:       os.Getenv("NET_INTERFACE"),
		SampleInterval:  envDuration("SAMPLE_INTERVAL", 5*time.Second),
		AvgPeriod:       envDuration("AVG_PERIOD", 12*time.Hour),
		PersistInterval: envDuration("PERSIST_INTERVAL", time.Minute),
		DBPath:          envOr("DB_PATH", "bandmon.db"),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		LogFormat:       envOr("LOG_FORMAT", "text"),
	}

	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MaxSamples is the window bound: averaging period divided by the sample
// interval.
func (c *Config) MaxSamples() int {
	return int(c.AvgPeriod / c.SampleInterval)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

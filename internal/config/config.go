package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration. Values come from an optional
// YAML file, overridden by environment variables, with sensible defaults.
type Config struct {
	// Server settings
	ServerPort  string `yaml:"server_port"`
	Environment string `yaml:"environment"`

	// OpenTelemetry settings
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`

	// Storage: Postgres when set, in-memory otherwise.
	DatabaseURL string `yaml:"database_url"`

	// Messaging: NATS event publishing when set.
	NATSURL string `yaml:"nats_url"`

	// Scheduling behavior
	CheckRecurringConflicts bool   `yaml:"check_recurring_conflicts"`
	ReminderSweep           string `yaml:"reminder_sweep"`
}

// Load reads configuration from path (missing file is fine) and applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		ServerPort:    "8080",
		Environment:   "development",
		OTLPEndpoint:  "localhost:4317",
		ServiceName:   "agenda",
		ReminderSweep: "@every 1m",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// No file: defaults plus env.
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.ServiceName = getEnv("OTEL_SERVICE_NAME", cfg.ServiceName)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)
	if v := os.Getenv("CHECK_RECURRING_CONFLICTS"); v != "" {
		cfg.CheckRecurringConflicts = v == "true" || v == "1"
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

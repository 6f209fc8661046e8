package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds process settings read from the environment (and .env, if present).
type Config struct {
	DatabaseURL    string `mapstructure:"database_url"`
	ServerPort     string `mapstructure:"server_port"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	OrderPrefix    string `mapstructure:"order_prefix"`
	MaxBodyBytes   int64  `mapstructure:"max_body_bytes"`
}

// Load reads .env (optional) and then the process environment.
// Keys are upper-cased env names, e.g. DATABASE_URL, SERVER_PORT.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("server_port", "8080")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("order_prefix", "PRJ")
	v.SetDefault("max_body_bytes", 1<<20)
	v.SetDefault("allowed_origins", "")
	v.SetDefault("database_url", "")
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("failed to read configuration: %w", err)
	}
	return c, nil
}

// RequireDatabase returns an error when no database URL is configured.
func (c Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	return nil
}

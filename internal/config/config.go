// Package config loads server configuration from the environment.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the server configuration.
type Config struct {
	Port          string        `envconfig:"PORT" default:"8080"`
	DBPath        string        `envconfig:"DB_PATH" default:"data/cosycoding.db"`
	UploadDir     string        `envconfig:"UPLOAD_DIR" default:"data/uploads"`
	MaxUploadSize int64         `envconfig:"MAX_UPLOAD_SIZE" default:"41943040"`
	ProjectTTL    time.Duration `envconfig:"PROJECT_TTL" default:"120h"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"1h"`
	UploadLimit   int           `envconfig:"UPLOAD_LIMIT" default:"5"`
	UploadWindow  time.Duration `envconfig:"UPLOAD_WINDOW" default:"15m"`
}

// Load reads the configuration from environment variables, applying defaults
// for anything unset.
func Load() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}

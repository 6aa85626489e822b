// Package config loads runtime configuration from the environment.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	// Addr is the listen address of the HTTP server.
	Addr string `env:"NESTKEEP_ADDR, default=:8080"`

	// DBPath is the SQLite database file, ":memory:" for ephemeral runs.
	DBPath string `env:"NESTKEEP_DB_PATH, default=nestkeep.db"`

	LogLevel  string `env:"NESTKEEP_LOG_LEVEL, default=info"`
	LogFormat string `env:"NESTKEEP_LOG_FORMAT, default=text"`

	// ShutdownTimeout bounds graceful drain on SIGINT/SIGTERM.
	ShutdownTimeout time.Duration `env:"NESTKEEP_SHUTDOWN_TIMEOUT, default=5s"`

	// AcceptRateLimit caps invite validation and acceptance attempts per
	// client IP per minute; codes are only six digits.
	AcceptRateLimit int `env:"NESTKEEP_ACCEPT_RATE_LIMIT, default=10"`

	// InviteTTL is the invite validity window, an operational override.
	InviteTTL time.Duration `env:"NESTKEEP_INVITE_TTL, default=48h"`
}

func Load(ctx context.Context) (*Config, error) {
	var c Config
	if err := envconfig.Process(ctx, &c); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &c, nil
}

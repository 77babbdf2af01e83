package app

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	pg "github.com/code-payments/payments-server/pkg/database/postgres"
	grpc_app "github.com/code-payments/payments-server/pkg/grpc/app"
)

const (
	MemoryStore   = "memory"
	PostgresStore = "postgres"
)

// Config is decoded from the app section of the process configuration
type Config struct {
	// Store selects the payment store backend: memory or postgres
	Store string `mapstructure:"store"`

	Postgres *pg.Config `mapstructure:"postgres"`

	// RateLimitPerSecond is the sustained request rate allowed per client IP.
	// Zero disables rate limiting.
	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second"`
}

var defaultConfig = Config{
	Store:              MemoryStore,
	RateLimitPerSecond: 50,
}

func parseConfig(raw grpc_app.Config) (*Config, error) {
	config := defaultConfig
	if err := mapstructure.WeakDecode(map[string]interface{}(raw), &config); err != nil {
		return nil, errors.Wrap(err, "error decoding app config")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Store {
	case MemoryStore:
	case PostgresStore:
		if c.Postgres == nil {
			return errors.New("postgres config is required for the postgres store")
		}
		if err := c.Postgres.Validate(); err != nil {
			return errors.Wrap(err, "invalid postgres config")
		}
	default:
		return errors.Errorf("unknown store %q", c.Store)
	}

	if c.RateLimitPerSecond < 0 {
		return errors.New("rate limit cannot be negative")
	}
	return nil
}

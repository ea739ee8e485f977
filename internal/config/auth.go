package config

import (
	"errors"
	"time"
)

type AuthConfig struct {
	MaxIntentTTL time.Duration `mapstructure:"max-intent-ttl"`
	// AdminToken guards account crediting. Empty disables the endpoint.
	AdminToken string `mapstructure:"admin-token"`
}

func (cfg *AuthConfig) Validate() error {
	if cfg.MaxIntentTTL <= 0 {
		return errors.New("max-intent-ttl must be positive")
	}
	return nil
}

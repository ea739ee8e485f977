package config

import (
	"errors"
	"time"
)

type EventsConfig struct {
	PingInterval time.Duration `mapstructure:"ping-interval"`
	SendBuffer   int           `mapstructure:"send-buffer"`
}

func (cfg *EventsConfig) Validate() error {
	if cfg.PingInterval <= 0 {
		return errors.New("ping-interval must be positive")
	}
	if cfg.SendBuffer <= 0 {
		return errors.New("send-buffer must be positive")
	}
	return nil
}

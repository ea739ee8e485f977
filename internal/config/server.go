package config

import (
	"errors"
	"time"
)

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout"`
	WriteTimeout    time.Duration `mapstructure:"write-timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

func (cfg *ServerConfig) Validate() error {
	if cfg.Addr == "" {
		return errors.New("addr is required")
	}
	if cfg.ReadTimeout <= 0 {
		return errors.New("read-timeout must be positive")
	}
	if cfg.WriteTimeout <= 0 {
		return errors.New("write-timeout must be positive")
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.New("shutdown-timeout must be positive")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"time"
)

// Clock sources.
const (
	ClockSystem  = "system"
	ClockCluster = "cluster"
)

type ClockConfig struct {
	Source string `mapstructure:"source"`
	// RPCEndpoint is the Solana JSON-RPC URL used by the cluster source.
	RPCEndpoint string        `mapstructure:"rpc-endpoint"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max-retries"`
}

func (cfg *ClockConfig) Validate() error {
	switch cfg.Source {
	case ClockSystem:
		return nil
	case ClockCluster:
	default:
		return fmt.Errorf("unknown source %q", cfg.Source)
	}

	if cfg.RPCEndpoint == "" {
		return errors.New("rpc-endpoint is required for the cluster source")
	}
	if cfg.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if cfg.MaxRetries < 0 {
		return errors.New("max-retries must not be negative")
	}
	return nil
}

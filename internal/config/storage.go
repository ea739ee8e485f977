package config

import (
	"errors"
	"fmt"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type StorageConfig struct {
	Driver      string `mapstructure:"driver"`
	PostgresDSN string `mapstructure:"postgres-dsn"`
	// ClickhouseDSN enables the event analytics store. Optional.
	ClickhouseDSN string `mapstructure:"clickhouse-dsn"`
	TxAttempts    uint   `mapstructure:"tx-attempts"`
}

func (cfg *StorageConfig) Validate() error {
	switch cfg.Driver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.PostgresDSN == "" {
			return errors.New("postgres-dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown driver %q", cfg.Driver)
	}
	if cfg.TxAttempts == 0 {
		return errors.New("tx-attempts must be positive")
	}
	return nil
}

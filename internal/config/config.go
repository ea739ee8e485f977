package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"solana-staking-ledger/internal/address"
)

// EnvPrefix prefixes every environment override, e.g. STAKING_STORAGE_DRIVER.
const EnvPrefix = "STAKING"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Storage StorageConfig `mapstructure:"storage"`
	Clock   ClockConfig   `mapstructure:"clock"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Events  EventsConfig  `mapstructure:"events"`
	Log     LogConfig     `mapstructure:"log"`
}

// New loads the config file at path, applies STAKING_ environment overrides
// and validates the result. An empty path uses defaults and the environment only.
func New(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if err := cfg.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := cfg.Ledger.Validate(); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	if err := cfg.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := cfg.Clock.Validate(); err != nil {
		return fmt.Errorf("clock: %w", err)
	}
	if err := cfg.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := cfg.Events.Validate(); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	if err := cfg.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read-timeout", 15*time.Second)
	v.SetDefault("server.write-timeout", 15*time.Second)
	v.SetDefault("server.shutdown-timeout", 10*time.Second)

	v.SetDefault("ledger.program-id", address.DefaultProgramID)

	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("storage.postgres-dsn", "")
	v.SetDefault("storage.clickhouse-dsn", "")
	v.SetDefault("storage.tx-attempts", 5)

	v.SetDefault("clock.source", ClockSystem)
	v.SetDefault("clock.rpc-endpoint", "")
	v.SetDefault("clock.timeout", 10*time.Second)
	v.SetDefault("clock.max-retries", 3)

	v.SetDefault("auth.max-intent-ttl", 5*time.Minute)
	v.SetDefault("auth.admin-token", "")

	v.SetDefault("events.ping-interval", 30*time.Second)
	v.SetDefault("events.send-buffer", 256)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

package config

import (
	"fmt"

	"solana-staking-ledger/internal/address"
)

type LedgerConfig struct {
	// ProgramID is the base58 program every record address is derived under.
	ProgramID string `mapstructure:"program-id"`
}

func (cfg *LedgerConfig) Validate() error {
	if !address.Valid(cfg.ProgramID) {
		return fmt.Errorf("program-id %q is not a valid address", cfg.ProgramID)
	}
	return nil
}

package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"solana-staking-ledger/cmd/staking-ledger/cli"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("failed to load .env file")
	}
}

func main() {
	if err := cli.Setup(); err != nil {
		os.Exit(1)
	}
}

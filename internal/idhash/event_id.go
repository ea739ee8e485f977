package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"solana-staking-ledger/internal/domain"
)

// ComputeEventID computes a deterministic event_id using SHA256.
// Formula: SHA256(pool|sequence|kind|owner|amount|timestamp)
// Returns hex-encoded hash (64 characters).
func ComputeEventID(
	pool string,
	sequence uint64,
	kind domain.EventKind,
	owner string,
	amount uint64,
	timestamp int64,
) string {
	data := fmt.Sprintf("%s|%d|%s|%s|%d|%d",
		pool,
		sequence,
		string(kind),
		owner,
		amount,
		timestamp,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

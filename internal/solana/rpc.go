package solana

import "context"

// ClusterClient is the subset of the Solana JSON-RPC API the ledger relies on.
type ClusterClient interface {
	// GetSlot returns the slot the node has most recently processed.
	GetSlot(ctx context.Context) (int64, error)

	// GetBlockTime returns the estimated production time of a slot.
	// Returns nil when the node has no timestamp for the slot.
	GetBlockTime(ctx context.Context, slot int64) (*int64, error)

	// GetHealth reports whether the node considers itself healthy.
	GetHealth(ctx context.Context) error
}

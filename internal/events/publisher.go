package events

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"solana-staking-ledger/internal/domain"
	"solana-staking-ledger/internal/observability"
	"solana-staking-ledger/internal/storage"
)

// DefaultDeliveryTimeout bounds one delivery to one sink.
const DefaultDeliveryTimeout = 5 * time.Second

// Sink is a destination for committed ledger events.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, events []*domain.LedgerEvent) error
}

// Fanout delivers every published batch to each sink in order.
// A failing sink is logged and skipped; it never affects the ledger or other sinks.
type Fanout struct {
	sinks   []Sink
	timeout time.Duration
}

// NewFanout creates a Fanout over sinks.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{
		sinks:   sinks,
		timeout: DefaultDeliveryTimeout,
	}
}

// Publish implements ledger.Publisher.
func (f *Fanout) Publish(ctx context.Context, events []*domain.LedgerEvent) {
	if len(events) == 0 {
		return
	}

	// delivery outlives a cancelled request
	base := context.WithoutCancel(ctx)

	for _, sink := range f.sinks {
		dctx, cancel := context.WithTimeout(base, f.timeout)
		err := sink.Deliver(dctx, events)
		cancel()

		observability.RecordEventsPublished(sink.Name(), len(events), err)
		if err != nil {
			log.Ctx(ctx).Warn().
				Err(err).
				Str("sink", sink.Name()).
				Int("events", len(events)).
				Str("pool", events[0].Pool).
				Msg("failed to deliver ledger events")
		}
	}
}

// StoreSink writes events to an analytics EventStore.
type StoreSink struct {
	store storage.EventStore
}

// NewStoreSink creates a sink over store.
func NewStoreSink(store storage.EventStore) *StoreSink {
	return &StoreSink{store: store}
}

// Name implements Sink.
func (s *StoreSink) Name() string { return "event_store" }

// Deliver implements Sink.
func (s *StoreSink) Deliver(ctx context.Context, events []*domain.LedgerEvent) error {
	return s.store.InsertBulk(ctx, events)
}

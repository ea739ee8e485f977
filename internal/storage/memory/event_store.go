package memory

import (
	"context"
	"sort"
	"sync"

	"solana-staking-ledger/internal/domain"
	"solana-staking-ledger/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.LedgerEvent // keyed by event_id
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make(map[string]*domain.LedgerEvent),
	}
}

// InsertBulk adds multiple events, skipping ones already stored.
func (s *EventStore) InsertBulk(_ context.Context, events []*domain.LedgerEvent) error {
	for _, e := range events {
		if e == nil || e.EventID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if _, exists := s.data[e.EventID]; exists {
			continue
		}
		eventCopy := *e
		s.data[e.EventID] = &eventCopy
	}
	return nil
}

// GetByPool retrieves all events for a pool, ordered by sequence ASC.
func (s *EventStore) GetByPool(_ context.Context, pool string) ([]*domain.LedgerEvent, error) {
	return s.filter(func(e *domain.LedgerEvent) bool {
		return e.Pool == pool
	}), nil
}

// GetByTimeRange retrieves events for a pool within [start, end] (inclusive).
func (s *EventStore) GetByTimeRange(_ context.Context, pool string, start, end int64) ([]*domain.LedgerEvent, error) {
	return s.filter(func(e *domain.LedgerEvent) bool {
		return e.Pool == pool && e.Timestamp >= start && e.Timestamp <= end
	}), nil
}

// TotalsByKind sums event amounts per kind for a pool.
func (s *EventStore) TotalsByKind(_ context.Context, pool string) (map[domain.EventKind]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[domain.EventKind]uint64)
	for _, e := range s.data {
		if e.Pool == pool {
			totals[e.Kind] += e.Amount
		}
	}
	return totals, nil
}

func (s *EventStore) filter(keep func(*domain.LedgerEvent) bool) []*domain.LedgerEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LedgerEvent
	for _, e := range s.data {
		if keep(e) {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	// Sort by sequence ASC
	sort.Slice(result, func(i, j int) bool {
		return result[i].Sequence < result[j].Sequence
	})
	return result
}

// Verify interface compliance at compile time.
var _ storage.EventStore = (*EventStore)(nil)

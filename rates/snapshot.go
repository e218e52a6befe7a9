package rates

import (
	"context"
	"fmt"
	"go-currency-converter-e2e/domain"
	"sync"
)

// snapshotService decorates a rates.Service so that every call returns the same rate table.
// The first successful fetch is pinned, failed fetches are not. It is meant to live for a
// single scenario, so that both directions of a conversion are judged against one snapshot.
type snapshotService struct {
	// next the service being decorated
	next Service

	// rates the pinned table, nil until the first successful fetch
	rates domain.Rates

	// lock synchronizes access to rates
	lock sync.Mutex
}

// NewSnapshotService returns a new snapshot Service
func NewSnapshotService(s Service) Service {
	return &snapshotService{
		next: s,
	}
}

// Rates returns the pinned snapshot, fetching it on first use
func (s *snapshotService) Rates(ctx context.Context) (domain.Rates, error) {
	// Held across the fetch: concurrent first callers must not pin two different snapshots.
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.rates != nil {
		return s.rates, nil
	}
	rates, err := s.next.Rates(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	s.rates = rates
	return rates, nil
}

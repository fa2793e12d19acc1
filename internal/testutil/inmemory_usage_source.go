package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/heliobill/heliobill/internal/domain/pricing"
	ierr "github.com/heliobill/heliobill/internal/errors"
)

// InMemoryUsageSource is an in-memory implementation of the
// service.UsageSource interface
type InMemoryUsageSource struct {
	mu        sync.Mutex
	snapshots map[string]*pricing.CapabilitySnapshot
	err       error
}

// NewInMemoryUsageSource creates a new instance of InMemoryUsageSource
func NewInMemoryUsageSource() *InMemoryUsageSource {
	return &InMemoryUsageSource{
		snapshots: make(map[string]*pricing.CapabilitySnapshot),
	}
}

// SetSnapshot registers the snapshot returned for a contract
func (s *InMemoryUsageSource) SetSnapshot(contractID string, snapshot *pricing.CapabilitySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[contractID] = snapshot
}

// SetError makes every subsequent GetSnapshot call fail with err
func (s *InMemoryUsageSource) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = err
}

// GetSnapshot returns the registered snapshot for the contract
func (s *InMemoryUsageSource) GetSnapshot(ctx context.Context, contractID string, periodEnd time.Time) (*pricing.CapabilitySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	snapshot, exists := s.snapshots[contractID]
	if !exists {
		return nil, ierr.NewError("capability snapshot not found").
			WithHint("No capability snapshot registered for this contract").
			WithReportableDetails(map[string]interface{}{
				"contract_id": contractID,
			}).
			Mark(ierr.ErrNotFound)
	}

	return snapshot, nil
}

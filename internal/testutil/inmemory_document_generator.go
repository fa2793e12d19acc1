package testutil

import (
	"context"
	"sync"

	"github.com/heliobill/heliobill/internal/domain/pricing"
)

// InMemoryDocumentGenerator is an in-memory implementation of the
// service.DocumentGenerator interface
type InMemoryDocumentGenerator struct {
	mu         sync.Mutex
	breakdowns map[string]*pricing.CalculationResult
	err        error
}

// NewInMemoryDocumentGenerator creates a new instance of InMemoryDocumentGenerator
func NewInMemoryDocumentGenerator() *InMemoryDocumentGenerator {
	return &InMemoryDocumentGenerator{
		breakdowns: make(map[string]*pricing.CalculationResult),
	}
}

// SetError makes every subsequent BuildBreakdown call fail with err
func (g *InMemoryDocumentGenerator) SetError(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.err = err
}

// BuildBreakdown records the calculation result keyed by contract
func (g *InMemoryDocumentGenerator) BuildBreakdown(ctx context.Context, contractID string, result *pricing.CalculationResult) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return g.err
	}

	g.breakdowns[contractID] = result
	return nil
}

// Breakdown returns the recorded calculation for a contract
func (g *InMemoryDocumentGenerator) Breakdown(contractID string) (*pricing.CalculationResult, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	result, exists := g.breakdowns[contractID]
	return result, exists
}

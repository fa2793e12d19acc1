package service

import (
	"context"
	"time"

	"github.com/heliobill/heliobill/internal/api/dto"
	"github.com/heliobill/heliobill/internal/domain/pricing"
)

// UsageSource supplies the capability snapshot for an invoice period,
// already resolved: total capacity, per-asset breakdown and aggregate
// flags. The engine never fetches or refreshes this itself.
type UsageSource interface {
	GetSnapshot(ctx context.Context, contractID string, periodEnd time.Time) (*pricing.CapabilitySnapshot, error)
}

// InvoiceSink accepts a finished invoice request and owns any external
// accounting-system submission and persistence.
type InvoiceSink interface {
	Submit(ctx context.Context, req *dto.CreateInvoiceRequest) error
}

// DocumentGenerator consumes a calculation result to build a
// human-readable support breakdown. Purely a downstream reader.
type DocumentGenerator interface {
	BuildBreakdown(ctx context.Context, contractID string, result *pricing.CalculationResult) error
}

package testutil

import (
	"context"
	"sync"

	"github.com/heliobill/heliobill/internal/api/dto"
	ierr "github.com/heliobill/heliobill/internal/errors"
)

// InMemoryInvoiceSink is an in-memory implementation of the
// service.InvoiceSink interface
type InMemoryInvoiceSink struct {
	mu       sync.Mutex
	invoices []*dto.CreateInvoiceRequest
	err      error
}

// NewInMemoryInvoiceSink creates a new instance of InMemoryInvoiceSink
func NewInMemoryInvoiceSink() *InMemoryInvoiceSink {
	return &InMemoryInvoiceSink{}
}

// SetError makes every subsequent Submit call fail with err
func (s *InMemoryInvoiceSink) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = err
}

// Submit records the invoice request
func (s *InMemoryInvoiceSink) Submit(ctx context.Context, req *dto.CreateInvoiceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	for _, existing := range s.invoices {
		if existing.ID == req.ID {
			return ierr.NewError("invoice already submitted").
				WithReportableDetails(map[string]interface{}{
					"invoice_id": req.ID,
				}).
				Mark(ierr.ErrValidation)
		}
	}

	s.invoices = append(s.invoices, req)
	return nil
}

// Invoices returns all submitted invoice requests
func (s *InMemoryInvoiceSink) Invoices() []*dto.CreateInvoiceRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*dto.CreateInvoiceRequest, len(s.invoices))
	copy(out, s.invoices)
	return out
}

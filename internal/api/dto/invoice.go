package dto

import (
	"time"

	ierr "github.com/heliobill/heliobill/internal/errors"
	"github.com/heliobill/heliobill/internal/types"
	"github.com/heliobill/heliobill/internal/validator"
	"github.com/shopspring/decimal"
)

// CreateInvoiceLineItemRequest is one line of an invoice submission to the
// invoice sink. Amounts are raw decimals in the invoice currency; the sink
// owns account codes, due dates and any provider-side formatting.
type CreateInvoiceLineItemRequest struct {
	ID          string            `json:"id" validate:"required"`
	DisplayName string            `json:"display_name" validate:"required"`
	Amount      decimal.Decimal   `json:"amount"`
	Quantity    decimal.Decimal   `json:"quantity"`
	ChargeClass types.ChargeClass `json:"charge_class" validate:"required"`
	PeriodStart *time.Time        `json:"period_start,omitempty"`
	PeriodEnd   *time.Time        `json:"period_end,omitempty"`
	Metadata    types.Metadata    `json:"metadata,omitempty"`
}

func (r *CreateInvoiceLineItemRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if r.Amount.IsNegative() {
		return ierr.NewError("negative line item amount").
			WithHint("Invoice line items cannot carry negative amounts").
			WithReportableDetails(map[string]any{
				"display_name": r.DisplayName,
				"amount":       r.Amount,
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}

// CreateInvoiceRequest is the complete invoice submission for one contract
// period, built from a CalculationResult snapshot.
type CreateInvoiceRequest struct {
	ID            string          `json:"id" validate:"required"`
	ContractID    string          `json:"contract_id" validate:"required"`
	CustomerID    string          `json:"customer_id" validate:"required"`
	Currency      string          `json:"currency" validate:"required,len=3"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	InvoiceDate   time.Time       `json:"invoice_date" validate:"required"`
	PeriodStart   time.Time       `json:"period_start"`
	PeriodEnd     time.Time       `json:"period_end"`
	PeriodDisplay string          `json:"period_display,omitempty"`

	LineItems []CreateInvoiceLineItemRequest `json:"line_items" validate:"required,min=1,dive"`
	Metadata  types.Metadata                 `json:"metadata,omitempty"`
}

func (r *CreateInvoiceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	total := decimal.Zero
	for i := range r.LineItems {
		if err := r.LineItems[i].Validate(); err != nil {
			return err
		}
		total = total.Add(r.LineItems[i].Amount)
	}

	if !total.Equal(r.AmountDue) {
		return ierr.NewError("line items do not sum to amount due").
			WithReportableDetails(map[string]any{
				"contract_id":   r.ContractID,
				"amount_due":    r.AmountDue,
				"line_item_sum": total,
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}

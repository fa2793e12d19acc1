package types

import (
	ierr "github.com/heliobill/heliobill/internal/errors"
	"github.com/samber/lo"
)

// AddonPricingMode is how an add-on's cost is resolved
type AddonPricingMode string

const (
	// AddonPricingFlat is a flat unit price multiplied by quantity
	AddonPricingFlat AddonPricingMode = "flat"

	// AddonPricingComplexity selects a low/medium/high rate
	AddonPricingComplexity AddonPricingMode = "complexity"

	// AddonPricingTiered resolves a per-unit price from a tier table
	AddonPricingTiered AddonPricingMode = "tiered"
)

func (m AddonPricingMode) Validate() error {
	allowedValues := []AddonPricingMode{
		AddonPricingFlat,
		AddonPricingComplexity,
		AddonPricingTiered,
	}

	if !lo.Contains(allowedValues, m) {
		return ierr.NewError("invalid addon pricing mode").
			WithHint("Addon pricing mode must be flat, complexity or tiered").
			WithReportableDetails(map[string]any{
				"allowed_values": allowedValues,
				"provided_value": m,
			}).
			Mark(ierr.ErrConfiguration)
	}

	return nil
}

// AddonComplexity is the complexity band for complexity-priced add-ons
type AddonComplexity string

const (
	AddonComplexityLow    AddonComplexity = "low"
	AddonComplexityMedium AddonComplexity = "medium"
	AddonComplexityHigh   AddonComplexity = "high"
)

func (c AddonComplexity) Validate() error {
	allowedValues := []AddonComplexity{
		AddonComplexityLow,
		AddonComplexityMedium,
		AddonComplexityHigh,
	}

	if !lo.Contains(allowedValues, c) {
		return ierr.NewError("invalid addon complexity").
			WithHint("Addon complexity must be low, medium or high").
			WithReportableDetails(map[string]any{
				"allowed_values": allowedValues,
				"provided_value": c,
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}

// BillingCadence distinguishes recurring charges from one-off charges
type BillingCadence string

const (
	BillingCadenceRecurring BillingCadence = "recurring"
	BillingCadenceOnetime   BillingCadence = "onetime"
)

// ChargeClass classifies an invoice line by recurrence expectation for
// ARR/NRR reporting. The split is informational metadata and never alters
// the invoice total.
type ChargeClass string

const (
	// ChargeClassARR is annual recurring revenue: capacity, site, retainer
	// and recurring add-on driven charges
	ChargeClassARR ChargeClass = "arr"

	// ChargeClassNRR is non-recurring revenue: one-off charges
	ChargeClassNRR ChargeClass = "nrr"
)

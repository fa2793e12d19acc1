package types

import (
	ierr "github.com/heliobill/heliobill/internal/errors"
	"github.com/samber/lo"
)

// BillingFrequency is how often a contract is invoiced
type BillingFrequency string

const (
	BillingFrequencyMonthly   BillingFrequency = "monthly"
	BillingFrequencyQuarterly BillingFrequency = "quarterly"
	BillingFrequencyBiannual  BillingFrequency = "biannual"
	BillingFrequencyAnnual    BillingFrequency = "annual"
)

func (f BillingFrequency) String() string {
	return string(f)
}

func (f BillingFrequency) Validate() error {
	allowedValues := []BillingFrequency{
		BillingFrequencyMonthly,
		BillingFrequencyQuarterly,
		BillingFrequencyBiannual,
		BillingFrequencyAnnual,
	}

	if !lo.Contains(allowedValues, f) {
		return ierr.NewError("invalid billing frequency").
			WithHint("Billing frequency must be monthly, quarterly, biannual or annual").
			WithReportableDetails(map[string]any{
				"allowed_values": allowedValues,
				"provided_value": f,
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}

// SiteChargeFrequency is how often per-site fees bill: once a year when
// the renewal falls due, or on every invoice scaled to the period.
type SiteChargeFrequency string

const (
	SiteChargeAnnual    SiteChargeFrequency = "annual"
	SiteChargePerPeriod SiteChargeFrequency = "per_period"
)

func (f SiteChargeFrequency) Validate() error {
	allowedValues := []SiteChargeFrequency{
		SiteChargeAnnual,
		SiteChargePerPeriod,
	}

	if !lo.Contains(allowedValues, f) {
		return ierr.NewError("invalid site charge frequency").
			WithHint("Site charge frequency must be annual or per_period").
			WithReportableDetails(map[string]any{
				"allowed_values": allowedValues,
				"provided_value": f,
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}

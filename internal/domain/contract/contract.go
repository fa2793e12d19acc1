// Package contract models a solar-asset-management contract's pricing
// configuration: the stable, negotiated inputs a pricing run combines
// with the period's metered usage.
package contract

import (
	"time"

	"github.com/heliobill/heliobill/internal/domain/pricing"
	"github.com/heliobill/heliobill/internal/domain/tier"
	ierr "github.com/heliobill/heliobill/internal/errors"
	"github.com/heliobill/heliobill/internal/types"
	"github.com/shopspring/decimal"
)

// Contract is one customer's pricing configuration
type Contract struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Currency   string `json:"currency"`

	PackageType      types.PackageType      `json:"package_type"`
	BillingFrequency types.BillingFrequency `json:"billing_frequency"`

	// SignedDate drives first-invoice proration when the signing date
	// falls mid-period
	SignedDate *time.Time `json:"signed_date,omitempty"`

	SelectedModuleIDs   []string                   `json:"selected_module_ids,omitempty"`
	SelectedAddons      []pricing.AddonSelection   `json:"selected_addons,omitempty"`
	ModuleRateOverrides map[string]decimal.Decimal `json:"module_rate_overrides,omitempty"`

	MinimumAnnualValue decimal.Decimal `json:"minimum_annual_value"`
	BaseMonthlyPrice   decimal.Decimal `json:"base_monthly_price"`
	MinimumCharge      decimal.Decimal `json:"minimum_charge"`
	MinimumChargeTiers []tier.Tier     `json:"minimum_charge_tiers,omitempty"`
	PerAssetMinimums   bool            `json:"per_asset_minimums"`
	DiscountTiers      []tier.Tier     `json:"discount_tiers,omitempty"`

	OnGridRatePerMW decimal.Decimal `json:"on_grid_rate_per_mw"`
	HybridRatePerMW decimal.Decimal `json:"hybrid_rate_per_mw"`

	GraduatedTiers []tier.Tier `json:"graduated_tiers,omitempty"`

	ThresholdKWp            decimal.Decimal `json:"threshold_kwp"`
	BelowThresholdRatePerMW decimal.Decimal `json:"below_threshold_rate_per_mw"`
	AboveThresholdRatePerMW decimal.Decimal `json:"above_threshold_rate_per_mw"`
	PerSiteMinimum          decimal.Decimal `json:"per_site_minimum"`

	SiteFeeTiers []tier.Tier `json:"site_fee_tiers,omitempty"`

	OnboardingFee       decimal.Decimal           `json:"onboarding_fee"`
	AnnualSiteFee       decimal.Decimal           `json:"annual_site_fee"`
	SiteChargeFrequency types.SiteChargeFrequency `json:"site_charge_frequency,omitempty"`

	RetainerHours        decimal.Decimal `json:"retainer_hours"`
	RetainerHourlyRate   decimal.Decimal `json:"retainer_hourly_rate"`
	RetainerMinimumValue decimal.Decimal `json:"retainer_minimum_value"`
}

// Validate checks the configuration that is stable across invoices.
// Usage-dependent validation happens inside the pricing engine.
func (c *Contract) Validate() error {
	if c.ID == "" {
		return ierr.NewError("contract without id").
			Mark(ierr.ErrValidation)
	}

	if err := c.PackageType.Validate(); err != nil {
		return err
	}

	if err := c.BillingFrequency.Validate(); err != nil {
		return err
	}

	if c.SiteChargeFrequency != "" {
		if err := c.SiteChargeFrequency.Validate(); err != nil {
			return err
		}
	}

	return nil
}

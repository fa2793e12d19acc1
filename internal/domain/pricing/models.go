package pricing

import (
	"time"

	"github.com/heliobill/heliobill/internal/domain/tier"
	"github.com/heliobill/heliobill/internal/types"
	"github.com/shopspring/decimal"
)

// Asset is one site in the capability snapshot, already resolved for the
// invoice period by the usage source.
type Asset struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	CapacityMW decimal.Decimal `json:"capacity_mw"`

	// Hybrid marks sites with storage alongside generation
	Hybrid bool `json:"hybrid"`

	// SolcastEnabled marks sites consuming the satellite data feed
	SolcastEnabled bool `json:"solcast_enabled"`

	// Per-site billing flags for the per_site package
	NeedsOnboarding    bool       `json:"needs_onboarding"`
	NeedsAnnualRenewal bool       `json:"needs_annual_renewal"`
	AnnualRenewalDue   *time.Time `json:"annual_renewal_due,omitempty"`

	// Override marks the asset as individually priced. Overridden assets
	// are excluded from the standard per-MW calculation entirely.
	Override *AssetOverride `json:"override,omitempty"`
}

// AssetOverride is a negotiated per-asset price replacing standard
// per-MW pricing. Exactly one of RatePerMW or FixedAnnualFee applies.
type AssetOverride struct {
	RatePerMW      *decimal.Decimal `json:"rate_per_mw,omitempty"`
	FixedAnnualFee *decimal.Decimal `json:"fixed_annual_fee,omitempty"`
	Label          string           `json:"label,omitempty"`
}

// CapabilitySnapshot is the metered usage for the invoice period, supplied
// as an opaque snapshot by the usage source. The engine never fetches or
// refreshes it.
type CapabilitySnapshot struct {
	TotalMW          decimal.Decimal `json:"total_mw"`
	SiteCount        int             `json:"site_count"`
	OnGridMW         decimal.Decimal `json:"on_grid_mw"`
	HybridMW         decimal.Decimal `json:"hybrid_mw"`
	SolcastSiteCount int             `json:"solcast_site_count"`
	Assets           []Asset         `json:"assets,omitempty"`
}

// HasAssetBreakdown reports whether per-asset detail is available
func (s *CapabilitySnapshot) HasAssetBreakdown() bool {
	return s != nil && len(s.Assets) > 0
}

// AddonSelection is one selected add-on with its optional inputs
type AddonSelection struct {
	AddonID string `json:"addon_id"`

	// Quantity defaults to 1 when unspecified
	Quantity *decimal.Decimal `json:"quantity,omitempty"`

	// Complexity selects the rate band for complexity-priced add-ons
	Complexity types.AddonComplexity `json:"complexity,omitempty"`

	// CustomPrice is used verbatim as the line cost when set, the escape
	// hatch for negotiated deals
	CustomPrice *decimal.Decimal `json:"custom_price,omitempty"`

	// CustomTiers replace the catalog tier table for this selection
	CustomTiers []tier.Tier `json:"custom_tiers,omitempty"`
}

// CalculationParams is the complete, immutable input of one pricing run.
// It is constructed fresh per invoice attempt and discarded after use.
// The invoice date is a parameter, never a clock read, so re-running with
// identical inputs yields an identical result.
type CalculationParams struct {
	PackageType      types.PackageType      `json:"package_type"`
	Currency         string                 `json:"currency"`
	BillingFrequency types.BillingFrequency `json:"billing_frequency"`

	// FrequencyMultiplier is precomputed by the caller: the plain frequency
	// multiplier, or the first-invoice proration multiplier which replaces
	// it (the two are never stacked).
	FrequencyMultiplier decimal.Decimal `json:"frequency_multiplier"`

	// PeriodMonths scales monthly-rate recurring add-ons
	PeriodMonths int `json:"period_months"`

	InvoiceDate time.Time `json:"invoice_date"`

	// TotalMW is the total managed capacity
	TotalMW decimal.Decimal `json:"total_mw"`

	SelectedModuleIDs []string         `json:"selected_module_ids,omitempty"`
	SelectedAddons    []AddonSelection `json:"selected_addons,omitempty"`

	// ModuleRateOverrides replace catalog annual rates per module for the
	// custom package
	ModuleRateOverrides map[string]decimal.Decimal `json:"module_rate_overrides,omitempty"`

	// MinimumAnnualValue is the minimum contract value floor per year
	MinimumAnnualValue decimal.Decimal `json:"minimum_annual_value"`

	// BaseMonthlyPrice, when positive, replaces the annual-value-derived
	// starter price: the starter package bills it per month in the period
	BaseMonthlyPrice decimal.Decimal `json:"base_monthly_price"`

	// MinimumCharge is a flat per-site annual minimum; MinimumChargeTiers,
	// keyed on asset capacity, take precedence when present
	MinimumCharge      decimal.Decimal `json:"minimum_charge"`
	MinimumChargeTiers []tier.Tier     `json:"minimum_charge_tiers,omitempty"`

	// PerAssetMinimums enables the per-asset minimum floor path for
	// per-capacity packages
	PerAssetMinimums bool `json:"per_asset_minimums"`

	// DiscountTiers hold portfolio volume discount percentages keyed on
	// aggregate managed capacity
	DiscountTiers []tier.Tier `json:"discount_tiers,omitempty"`

	Snapshot *CapabilitySnapshot `json:"snapshot,omitempty"`

	// Hybrid tiered package rates
	OnGridRatePerMW decimal.Decimal `json:"on_grid_rate_per_mw"`
	HybridRatePerMW decimal.Decimal `json:"hybrid_rate_per_mw"`

	// Graduated MW package tiers
	GraduatedTiers []tier.Tier `json:"graduated_tiers,omitempty"`

	// Threshold two-rate package
	ThresholdKWp            decimal.Decimal `json:"threshold_kwp"`
	BelowThresholdRatePerMW decimal.Decimal `json:"below_threshold_rate_per_mw"`
	AboveThresholdRatePerMW decimal.Decimal `json:"above_threshold_rate_per_mw"`
	PerSiteMinimum          decimal.Decimal `json:"per_site_minimum"`

	// Per-site flat fee package, fee tiers keyed on total portfolio MW
	SiteFeeTiers []tier.Tier `json:"site_fee_tiers,omitempty"`

	// Per-site onboarding/renewal package fees
	OnboardingFee decimal.Decimal `json:"onboarding_fee"`
	AnnualSiteFee decimal.Decimal `json:"annual_site_fee"`

	// SiteChargeFrequency controls when the annual site fee bills; empty
	// defaults to annual (due-date driven)
	SiteChargeFrequency types.SiteChargeFrequency `json:"site_charge_frequency,omitempty"`

	// Retainer hours layer, additive for any package
	RetainerHours        decimal.Decimal `json:"retainer_hours"`
	RetainerHourlyRate   decimal.Decimal `json:"retainer_hourly_rate"`
	RetainerMinimumValue decimal.Decimal `json:"retainer_minimum_value"`
}

// ModuleCost is one module line item
type ModuleCost struct {
	ModuleID        string          `json:"module_id"`
	Name            string          `json:"name"`
	AnnualRatePerMW decimal.Decimal `json:"annual_rate_per_mw"`
	CapacityMW      decimal.Decimal `json:"capacity_mw"`
	Cost            decimal.Decimal `json:"cost"`
}

// AddonCost is one add-on line item
type AddonCost struct {
	AddonID          string               `json:"addon_id"`
	Name             string               `json:"name"`
	Quantity         decimal.Decimal      `json:"quantity"`
	UnitPrice        decimal.Decimal      `json:"unit_price"`
	AppliedTierLabel string               `json:"applied_tier_label,omitempty"`
	Cadence          types.BillingCadence `json:"cadence"`
	CustomPriced     bool                 `json:"custom_priced,omitempty"`
	Cost             decimal.Decimal      `json:"cost"`
}

// HybridBreakdown is the on-grid/hybrid split of the hybrid tiered package
type HybridBreakdown struct {
	OnGridMW        decimal.Decimal `json:"on_grid_mw"`
	OnGridRatePerMW decimal.Decimal `json:"on_grid_rate_per_mw"`
	OnGridCost      decimal.Decimal `json:"on_grid_cost"`
	HybridMW        decimal.Decimal `json:"hybrid_mw"`
	HybridRatePerMW decimal.Decimal `json:"hybrid_rate_per_mw"`
	HybridCost      decimal.Decimal `json:"hybrid_cost"`
}

// GraduatedTierCost is one slice of the graduated MW breakdown
type GraduatedTierCost struct {
	Label     string          `json:"label"`
	RatePerMW decimal.Decimal `json:"rate_per_mw"`
	MWInTier  decimal.Decimal `json:"mw_in_tier"`
	Cost      decimal.Decimal `json:"cost"`
}

// ThresholdBreakdown is the two-rate threshold package split. The three
// buckets are disjoint: a site billed at the per-site minimum appears only
// in the minimum bucket.
type ThresholdBreakdown struct {
	ThresholdKWp decimal.Decimal `json:"threshold_kwp"`

	BelowCount int             `json:"below_count"`
	BelowMW    decimal.Decimal `json:"below_mw"`
	BelowCost  decimal.Decimal `json:"below_cost"`

	AboveCount int             `json:"above_count"`
	AboveMW    decimal.Decimal `json:"above_mw"`
	AboveCost  decimal.Decimal `json:"above_cost"`

	MinimumCount int             `json:"minimum_count"`
	MinimumCost  decimal.Decimal `json:"minimum_cost"`
}

// SiteFeeBreakdown is the per-site flat fee package detail
type SiteFeeBreakdown struct {
	PerSiteFee decimal.Decimal `json:"per_site_fee"`
	TierLabel  string          `json:"tier_label,omitempty"`
	SiteCount  int             `json:"site_count"`
	Cost       decimal.Decimal `json:"cost"`
}

// SiteCharge is one site's onboarding/annual charges in the per_site package
type SiteCharge struct {
	AssetID    string          `json:"asset_id"`
	Name       string          `json:"name"`
	Onboarding bool            `json:"onboarding"`
	Annual     bool            `json:"annual"`
	Cost       decimal.Decimal `json:"cost"`
}

// PerSiteBreakdown is the onboarding/annual fee package detail
type PerSiteBreakdown struct {
	OnboardingCount    int             `json:"onboarding_count"`
	OnboardingSubtotal decimal.Decimal `json:"onboarding_subtotal"`
	AnnualCount        int             `json:"annual_count"`
	AnnualSubtotal     decimal.Decimal `json:"annual_subtotal"`
	Sites              []SiteCharge    `json:"sites,omitempty"`
}

// SiteMinimumCharge is one asset's cost under per-asset minimum pricing
type SiteMinimumCharge struct {
	AssetID        string          `json:"asset_id"`
	Name           string          `json:"name"`
	CapacityMW     decimal.Decimal `json:"capacity_mw"`
	ComputedCost   decimal.Decimal `json:"computed_cost"`
	MinimumCharge  decimal.Decimal `json:"minimum_charge"`
	MinimumApplied bool            `json:"minimum_applied"`
	BilledCost     decimal.Decimal `json:"billed_cost"`
}

// MinimumChargeBreakdown splits sites billed on their computed cost from
// sites lifted to their minimum. The two buckets are disjoint and cover
// every standard-priced asset.
type MinimumChargeBreakdown struct {
	SitesAboveMinimum    int                 `json:"sites_above_minimum"`
	AboveMinimumSubtotal decimal.Decimal     `json:"above_minimum_subtotal"`
	SitesOnMinimum       int                 `json:"sites_on_minimum"`
	OnMinimumSubtotal    decimal.Decimal     `json:"on_minimum_subtotal"`
	Sites                []SiteMinimumCharge `json:"sites,omitempty"`
}

// DiscountedAssetCost is one individually priced asset
type DiscountedAssetCost struct {
	AssetID    string           `json:"asset_id"`
	Name       string           `json:"name"`
	CapacityMW decimal.Decimal  `json:"capacity_mw"`
	RatePerMW  *decimal.Decimal `json:"rate_per_mw,omitempty"`
	FixedFee   *decimal.Decimal `json:"fixed_fee,omitempty"`
	Label      string           `json:"label,omitempty"`
	Cost       decimal.Decimal  `json:"cost"`
}

// CalculationResult is the fully itemized monetary breakdown of one
// pricing run. All figures are raw decimals in the result currency;
// formatting is a presentation concern.
type CalculationResult struct {
	PackageType   types.PackageType `json:"package_type"`
	Currency      string            `json:"currency"`
	InvoicePeriod string            `json:"invoice_period"`

	ModuleCosts []ModuleCost `json:"module_costs,omitempty"`
	AddonCosts  []AddonCost  `json:"addon_costs,omitempty"`

	StarterPackageCost decimal.Decimal `json:"starter_package_cost"`

	// TotalMWCost is the capacity-driven package base: module costs,
	// hybrid split, graduated tiers or threshold buckets, after any
	// portfolio discount and per-asset minimums
	TotalMWCost decimal.Decimal `json:"total_mw_cost"`

	HybridBreakdown    *HybridBreakdown        `json:"hybrid_breakdown,omitempty"`
	GraduatedTiers     []GraduatedTierCost     `json:"graduated_tiers,omitempty"`
	ThresholdBreakdown *ThresholdBreakdown     `json:"threshold_breakdown,omitempty"`
	SiteFeeBreakdown   *SiteFeeBreakdown       `json:"site_fee_breakdown,omitempty"`
	PerSiteBreakdown   *PerSiteBreakdown       `json:"per_site_breakdown,omitempty"`
	MinimumCharges     *MinimumChargeBreakdown `json:"minimum_charges,omitempty"`

	DiscountedAssets     []DiscountedAssetCost `json:"discounted_assets,omitempty"`
	DiscountedAssetTotal decimal.Decimal       `json:"discounted_asset_total"`

	PortfolioDiscountPercent decimal.Decimal `json:"portfolio_discount_percent"`
	PortfolioDiscountAmount  decimal.Decimal `json:"portfolio_discount_amount"`

	RetainerCost           decimal.Decimal `json:"retainer_cost"`
	RetainerMinimumApplied bool            `json:"retainer_minimum_applied"`

	AddonTotal          decimal.Decimal `json:"addon_total"`
	RecurringAddonTotal decimal.Decimal `json:"recurring_addon_total"`
	OneOffAddonTotal    decimal.Decimal `json:"one_off_addon_total"`

	// MinimumContractAdjustment is the shortfall added when the computed
	// package base undercuts the annual floor. Only ever added, never
	// subtracted; the computed base stays inspectable alongside it.
	MinimumContractAdjustment decimal.Decimal `json:"minimum_contract_adjustment"`

	TotalPrice decimal.Decimal `json:"total_price"`

	// ARRAmount/NRRAmount split TotalPrice by recurrence expectation for
	// reporting. Informational metadata only.
	ARRAmount decimal.Decimal `json:"arr_amount"`
	NRRAmount decimal.Decimal `json:"nrr_amount"`

	// Warnings records data-gap fallbacks taken during the calculation
	Warnings []string `json:"warnings,omitempty"`
}

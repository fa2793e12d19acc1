// Package pricing implements the invoice pricing engine: a pure function
// from a contract's pricing configuration plus a period's metered usage to
// a fully itemized monetary breakdown.
package pricing

import (
	"context"
	"fmt"

	"github.com/heliobill/heliobill/internal/domain/catalog"
	"github.com/heliobill/heliobill/internal/domain/schedule"
	"github.com/heliobill/heliobill/internal/domain/tier"
	ierr "github.com/heliobill/heliobill/internal/errors"
	"github.com/heliobill/heliobill/internal/logger"
	"github.com/heliobill/heliobill/internal/types"
	"github.com/shopspring/decimal"
)

// Calculator computes an itemized CalculationResult from immutable inputs.
// It is a pure synchronous computation with no I/O and no hidden clock
// reads, safe to invoke concurrently with zero coordination.
type Calculator interface {
	Calculate(ctx context.Context, cat *catalog.Catalog, params CalculationParams) (*CalculationResult, error)
}

type calculator struct {
	logger *logger.Logger
}

func NewCalculator(logger *logger.Logger) Calculator {
	return &calculator{logger: logger}
}

func (c *calculator) Calculate(ctx context.Context, cat *catalog.Catalog, params CalculationParams) (*CalculationResult, error) {
	if err := c.validateParams(cat, &params); err != nil {
		return nil, err
	}

	// Per-customer rate overrides merge into a copy of the catalog, never
	// into the shared one.
	if params.PackageType == types.PackageCustom && len(params.ModuleRateOverrides) > 0 {
		merged, err := cat.WithModuleRates(params.ModuleRateOverrides)
		if err != nil {
			return nil, err
		}
		cat = merged
	}

	period, err := schedule.PeriodLabel(params.InvoiceDate, params.BillingFrequency)
	if err != nil {
		return nil, err
	}

	result := &CalculationResult{
		PackageType:   params.PackageType,
		Currency:      params.Currency,
		InvoicePeriod: period,
	}
	if result.Currency == "" {
		result.Currency = cat.Currency
	}

	// Exactly one top-level package strategy applies per calculation.
	switch params.PackageType {
	case types.PackageStarter:
		c.calculateStarter(&params, result)
	case types.PackagePro, types.PackageCustom:
		if err := c.calculatePerCapacity(ctx, cat, &params, result); err != nil {
			return nil, err
		}
	case types.PackageHybridTiered:
		if err := c.calculateHybridTiered(ctx, cat, &params, result); err != nil {
			return nil, err
		}
	case types.PackageGraduatedMW:
		if err := c.calculateGraduatedMW(&params, result); err != nil {
			return nil, err
		}
	case types.PackageThresholdTwoRate:
		if err := c.calculateThresholdTwoRate(ctx, &params, result); err != nil {
			return nil, err
		}
	case types.PackagePerSiteFlatFee:
		if err := c.calculatePerSiteFlatFee(ctx, &params, result); err != nil {
			return nil, err
		}
	case types.PackagePerSite:
		if err := c.calculatePerSite(ctx, &params, result); err != nil {
			return nil, err
		}
	default:
		// A zero invoice for a real contract is worse than a loud failure.
		return nil, ierr.NewError("unrecognized package type").
			WithHintf("no calculation strategy for package type %q", params.PackageType).
			WithReportableDetails(map[string]any{
				"package_type": params.PackageType,
			}).
			Mark(ierr.ErrConfiguration)
	}

	if err := c.applyPortfolioDiscount(&params, result); err != nil {
		return nil, err
	}

	c.applyRetainer(&params, result)

	if err := c.calculateAddons(ctx, cat, &params, result); err != nil {
		return nil, err
	}

	c.assemble(&params, result)

	c.logger.Debugw("calculation complete",
		"package_type", params.PackageType,
		"total_mw", params.TotalMW,
		"total_price", result.TotalPrice,
		"arr", result.ARRAmount,
		"nrr", result.NRRAmount)

	return result, nil
}

func (c *calculator) validateParams(cat *catalog.Catalog, params *CalculationParams) error {
	if cat == nil {
		return ierr.NewError("missing catalog").
			WithHint("A calculation requires an immutable catalog").
			Mark(ierr.ErrConfiguration)
	}

	if err := params.PackageType.Validate(); err != nil {
		return err
	}

	if err := params.BillingFrequency.Validate(); err != nil {
		return err
	}

	if params.TotalMW.IsNegative() {
		return ierr.NewError("negative total capacity").
			WithHint("Total managed capacity cannot be negative").
			WithReportableDetails(map[string]any{
				"package_type": params.PackageType,
				"total_mw":     params.TotalMW,
			}).
			Mark(ierr.ErrValidation)
	}

	if params.FrequencyMultiplier.IsNegative() {
		return ierr.NewError("negative frequency multiplier").
			WithReportableDetails(map[string]any{
				"package_type":         params.PackageType,
				"frequency_multiplier": params.FrequencyMultiplier,
			}).
			Mark(ierr.ErrValidation)
	}

	if params.PeriodMonths == 0 {
		months, err := schedule.PeriodMonths(params.BillingFrequency)
		if err != nil {
			return err
		}
		params.PeriodMonths = months
	}

	for _, id := range params.SelectedModuleIDs {
		if _, ok := cat.Module(id); !ok {
			return ierr.NewError("selected module not in catalog").
				WithHintf("module %q is not defined in the pricing catalog", id).
				WithReportableDetails(map[string]any{
					"package_type": params.PackageType,
					"module_id":    id,
				}).
				Mark(ierr.ErrValidation)
		}
	}

	return nil
}

// applyPortfolioDiscount reduces the capacity-driven package base by the
// volume discount percentage resolved from aggregate managed capacity.
func (c *calculator) applyPortfolioDiscount(params *CalculationParams, result *CalculationResult) error {
	if len(params.DiscountTiers) == 0 || result.TotalMWCost.IsZero() {
		return nil
	}

	percent, err := tier.ResolveDiscountPercent(params.TotalMW, params.DiscountTiers)
	if err != nil {
		return err
	}
	if percent.IsZero() {
		return nil
	}

	amount := result.TotalMWCost.Mul(percent).Div(decimal.NewFromInt(100))
	result.PortfolioDiscountPercent = percent
	result.PortfolioDiscountAmount = amount
	result.TotalMWCost = clampNonNegative(result.TotalMWCost.Sub(amount))
	return nil
}

// applyRetainer adds the retainer-hours layer, available to any package.
func (c *calculator) applyRetainer(params *CalculationParams, result *CalculationResult) {
	if params.RetainerHours.LessThanOrEqual(decimal.Zero) || params.RetainerHourlyRate.LessThanOrEqual(decimal.Zero) {
		return
	}

	cost := params.RetainerHours.Mul(params.RetainerHourlyRate)
	if params.RetainerMinimumValue.GreaterThan(decimal.Zero) && cost.LessThan(params.RetainerMinimumValue) {
		cost = params.RetainerMinimumValue
		result.RetainerMinimumApplied = true
	}
	result.RetainerCost = cost
}

// assemble merges every populated category into the final totals, applies
// the minimum-contract-value floor and computes the ARR/NRR split.
func (c *calculator) assemble(params *CalculationParams, result *CalculationResult) {
	perSiteOnboarding := decimal.Zero
	perSiteAnnual := decimal.Zero
	if result.PerSiteBreakdown != nil {
		perSiteOnboarding = result.PerSiteBreakdown.OnboardingSubtotal
		perSiteAnnual = result.PerSiteBreakdown.AnnualSubtotal
	}

	siteFeeCost := decimal.Zero
	if result.SiteFeeBreakdown != nil {
		siteFeeCost = result.SiteFeeBreakdown.Cost
	}

	// The floor compares against the computed package base, never against
	// add-ons or the retainer. It is only ever added.
	packageBase := result.StarterPackageCost.
		Add(result.TotalMWCost).
		Add(siteFeeCost).
		Add(perSiteAnnual).
		Add(perSiteOnboarding).
		Add(result.DiscountedAssetTotal)

	if params.PackageType != types.PackageStarter && params.MinimumAnnualValue.GreaterThan(decimal.Zero) {
		floor := params.MinimumAnnualValue.Mul(params.FrequencyMultiplier)
		if packageBase.LessThan(floor) {
			result.MinimumContractAdjustment = floor.Sub(packageBase)
		}
	}

	result.TotalPrice = packageBase.
		Add(result.MinimumContractAdjustment).
		Add(result.RetainerCost).
		Add(result.AddonTotal)

	// ARR: capacity, site-fee, annual-renewal, retainer, floor and
	// recurring add-on revenue. NRR: one-off add-ons and onboarding fees.
	result.ARRAmount = result.StarterPackageCost.
		Add(result.TotalMWCost).
		Add(siteFeeCost).
		Add(perSiteAnnual).
		Add(result.DiscountedAssetTotal).
		Add(result.MinimumContractAdjustment).
		Add(result.RetainerCost).
		Add(result.RecurringAddonTotal)
	result.NRRAmount = result.OneOffAddonTotal.Add(perSiteOnboarding)
}

// warn records a data-gap fallback on the result and in the logs with
// enough attribution to answer "which contract, which figure, why".
func (c *calculator) warn(ctx context.Context, result *CalculationResult, params *CalculationParams, field, msg string) {
	result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %s", field, msg))
	c.logger.Warnw("capability data gap, using fallback calculation",
		"package_type", params.PackageType,
		"field", field,
		"detail", msg)
}

func clampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

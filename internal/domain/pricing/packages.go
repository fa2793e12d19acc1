package pricing

import (
	"context"

	"github.com/heliobill/heliobill/internal/domain/catalog"
	"github.com/heliobill/heliobill/internal/domain/tier"
	ierr "github.com/heliobill/heliobill/internal/errors"
	"github.com/heliobill/heliobill/internal/types"
	"github.com/shopspring/decimal"
)

const kwpPerMW = 1000

// calculateStarter bills the flat annual minimum value scaled by the
// frequency multiplier, or the base monthly price per month in the period
// when one is configured. No module-based charge.
func (c *calculator) calculateStarter(params *CalculationParams, result *CalculationResult) {
	if params.BaseMonthlyPrice.GreaterThan(decimal.Zero) {
		result.StarterPackageCost = params.BaseMonthlyPrice.Mul(decimal.NewFromInt(int64(params.PeriodMonths)))
		return
	}
	result.StarterPackageCost = clampNonNegative(params.MinimumAnnualValue.Mul(params.FrequencyMultiplier))
}

// calculatePerCapacity handles the pro and custom packages: selected
// modules priced per MW, optionally with independent per-asset minimum
// floors, with overridden assets carved out and billed individually.
func (c *calculator) calculatePerCapacity(ctx context.Context, cat *catalog.Catalog, params *CalculationParams, result *CalculationResult) error {
	standardMW := c.extractDiscountedAssets(params, result)

	moduleRates := decimal.Zero
	for _, id := range params.SelectedModuleIDs {
		def, _ := cat.Module(id)
		cost := def.AnnualRatePerMW.Mul(standardMW).Mul(params.FrequencyMultiplier)
		result.ModuleCosts = append(result.ModuleCosts, ModuleCost{
			ModuleID:        def.ID,
			Name:            def.Name,
			AnnualRatePerMW: def.AnnualRatePerMW,
			CapacityMW:      standardMW,
			Cost:            cost,
		})
		moduleRates = moduleRates.Add(def.AnnualRatePerMW)
		result.TotalMWCost = result.TotalMWCost.Add(cost)
	}

	if !params.PerAssetMinimums {
		return nil
	}

	if !params.Snapshot.HasAssetBreakdown() {
		c.warn(ctx, result, params, "snapshot.assets",
			"per-asset minimum pricing requested but no asset breakdown is available, billed on aggregate capacity")
		return nil
	}

	// Each asset's minimum floor applies independently; the package base
	// becomes the sum of per-asset billed costs.
	breakdown := &MinimumChargeBreakdown{}
	perSiteTotal := decimal.Zero
	for _, asset := range params.Snapshot.Assets {
		if asset.Override != nil {
			continue
		}

		computed := moduleRates.Mul(asset.CapacityMW).Mul(params.FrequencyMultiplier)
		minimum, err := c.resolveSiteMinimum(asset.CapacityMW, params)
		if err != nil {
			return err
		}

		charge := SiteMinimumCharge{
			AssetID:       asset.ID,
			Name:          asset.Name,
			CapacityMW:    asset.CapacityMW,
			ComputedCost:  computed,
			MinimumCharge: minimum,
			BilledCost:    computed,
		}
		if computed.LessThan(minimum) {
			charge.MinimumApplied = true
			charge.BilledCost = minimum
			breakdown.SitesOnMinimum++
			breakdown.OnMinimumSubtotal = breakdown.OnMinimumSubtotal.Add(minimum)
		} else {
			breakdown.SitesAboveMinimum++
			breakdown.AboveMinimumSubtotal = breakdown.AboveMinimumSubtotal.Add(computed)
		}
		breakdown.Sites = append(breakdown.Sites, charge)
		perSiteTotal = perSiteTotal.Add(charge.BilledCost)
	}

	result.MinimumCharges = breakdown
	result.TotalMWCost = perSiteTotal
	return nil
}

// resolveSiteMinimum returns the period-scaled minimum charge for one
// asset: the minimum-charge tier keyed on the asset's capacity when tiers
// are configured, the flat minimum otherwise.
func (c *calculator) resolveSiteMinimum(capacityMW decimal.Decimal, params *CalculationParams) (decimal.Decimal, error) {
	annual := params.MinimumCharge
	if len(params.MinimumChargeTiers) > 0 {
		t, err := tier.Resolve(capacityMW, params.MinimumChargeTiers)
		if err != nil {
			return decimal.Zero, err
		}
		annual = t.Rate
	}
	return annual.Mul(params.FrequencyMultiplier), nil
}

// extractDiscountedAssets removes individually priced assets from the
// standard per-MW base and bills them at their override. Returns the
// remaining standard capacity. Overridden MW and cost are reported
// separately and never double-counted against the module totals.
func (c *calculator) extractDiscountedAssets(params *CalculationParams, result *CalculationResult) decimal.Decimal {
	standardMW := params.TotalMW
	if !params.Snapshot.HasAssetBreakdown() {
		return standardMW
	}

	for _, asset := range params.Snapshot.Assets {
		if asset.Override == nil {
			continue
		}

		cost := decimal.Zero
		switch {
		case asset.Override.RatePerMW != nil:
			cost = asset.Override.RatePerMW.Mul(asset.CapacityMW).Mul(params.FrequencyMultiplier)
		case asset.Override.FixedAnnualFee != nil:
			cost = asset.Override.FixedAnnualFee.Mul(params.FrequencyMultiplier)
		}
		cost = clampNonNegative(cost)

		result.DiscountedAssets = append(result.DiscountedAssets, DiscountedAssetCost{
			AssetID:    asset.ID,
			Name:       asset.Name,
			CapacityMW: asset.CapacityMW,
			RatePerMW:  asset.Override.RatePerMW,
			FixedFee:   asset.Override.FixedAnnualFee,
			Label:      asset.Override.Label,
			Cost:       cost,
		})
		result.DiscountedAssetTotal = result.DiscountedAssetTotal.Add(cost)
		standardMW = standardMW.Sub(asset.CapacityMW)
	}

	return clampNonNegative(standardMW)
}

// calculateHybridTiered splits capacity into on-grid and hybrid buckets,
// each priced at its own flat per-MW rate. Technical Monitoring is
// embedded in the two rates and excluded from per-module charging; other
// selected modules still charge normally.
func (c *calculator) calculateHybridTiered(ctx context.Context, cat *catalog.Catalog, params *CalculationParams, result *CalculationResult) error {
	standardMW := c.extractDiscountedAssets(params, result)

	onGridMW := decimal.Zero
	hybridMW := decimal.Zero
	switch {
	case params.Snapshot.HasAssetBreakdown():
		for _, asset := range params.Snapshot.Assets {
			if asset.Override != nil {
				continue
			}
			if asset.Hybrid {
				hybridMW = hybridMW.Add(asset.CapacityMW)
			} else {
				onGridMW = onGridMW.Add(asset.CapacityMW)
			}
		}
	case params.Snapshot != nil && params.Snapshot.HybridMW.GreaterThan(decimal.Zero):
		hybridMW = params.Snapshot.HybridMW
		onGridMW = clampNonNegative(standardMW.Sub(hybridMW))
	default:
		c.warn(ctx, result, params, "snapshot.hybrid_mw",
			"no hybrid capacity data available, billing all capacity at the on-grid rate")
		onGridMW = standardMW
	}

	breakdown := &HybridBreakdown{
		OnGridMW:        onGridMW,
		OnGridRatePerMW: params.OnGridRatePerMW,
		OnGridCost:      clampNonNegative(params.OnGridRatePerMW.Mul(onGridMW).Mul(params.FrequencyMultiplier)),
		HybridMW:        hybridMW,
		HybridRatePerMW: params.HybridRatePerMW,
		HybridCost:      clampNonNegative(params.HybridRatePerMW.Mul(hybridMW).Mul(params.FrequencyMultiplier)),
	}
	result.HybridBreakdown = breakdown
	result.TotalMWCost = breakdown.OnGridCost.Add(breakdown.HybridCost)

	for _, id := range params.SelectedModuleIDs {
		if id == catalog.ModuleTechnicalMonitoring {
			continue
		}
		def, _ := cat.Module(id)
		cost := def.AnnualRatePerMW.Mul(standardMW).Mul(params.FrequencyMultiplier)
		result.ModuleCosts = append(result.ModuleCosts, ModuleCost{
			ModuleID:        def.ID,
			Name:            def.Name,
			AnnualRatePerMW: def.AnnualRatePerMW,
			CapacityMW:      standardMW,
			Cost:            cost,
		})
		result.TotalMWCost = result.TotalMWCost.Add(cost)
	}

	return nil
}

// calculateGraduatedMW applies cumulative graduated tiers to total managed
// capacity: the capacity is split across tier boundaries and each slice is
// billed at its own tier rate.
func (c *calculator) calculateGraduatedMW(params *CalculationParams, result *CalculationResult) error {
	if len(params.GraduatedTiers) == 0 {
		return ierr.NewError("graduated package without tiers").
			WithHint("The graduated MW package requires a tier table").
			WithReportableDetails(map[string]any{
				"package_type": params.PackageType,
				"field":        "graduated_tiers",
			}).
			Mark(ierr.ErrConfiguration)
	}

	slices, _, err := tier.Graduated(params.TotalMW, params.GraduatedTiers)
	if err != nil {
		return err
	}

	total := decimal.Zero
	for _, s := range slices {
		cost := s.Cost.Mul(params.FrequencyMultiplier)
		result.GraduatedTiers = append(result.GraduatedTiers, GraduatedTierCost{
			Label:     s.Tier.Label,
			RatePerMW: s.Tier.Rate,
			MWInTier:  s.Quantity,
			Cost:      cost,
		})
		total = total.Add(cost)
	}
	result.TotalMWCost = total
	return nil
}

// calculateThresholdTwoRate partitions assets at a kWp threshold into two
// per-MW rates; any asset whose computed cost falls below the flat
// per-site minimum moves into the minimum bucket instead. The buckets are
// disjoint.
func (c *calculator) calculateThresholdTwoRate(ctx context.Context, params *CalculationParams, result *CalculationResult) error {
	breakdown := &ThresholdBreakdown{ThresholdKWp: params.ThresholdKWp}
	result.ThresholdBreakdown = breakdown

	if !params.Snapshot.HasAssetBreakdown() {
		c.warn(ctx, result, params, "snapshot.assets",
			"threshold pricing requested but no asset breakdown is available, billing aggregate capacity at the above-threshold rate")
		breakdown.AboveMW = params.TotalMW
		breakdown.AboveCost = clampNonNegative(params.AboveThresholdRatePerMW.Mul(params.TotalMW).Mul(params.FrequencyMultiplier))
		result.TotalMWCost = breakdown.AboveCost
		return nil
	}

	siteMinimum := clampNonNegative(params.PerSiteMinimum.Mul(params.FrequencyMultiplier))
	total := decimal.Zero
	for _, asset := range params.Snapshot.Assets {
		capacityKWp := asset.CapacityMW.Mul(decimal.NewFromInt(kwpPerMW))
		below := capacityKWp.LessThan(params.ThresholdKWp)

		rate := params.AboveThresholdRatePerMW
		if below {
			rate = params.BelowThresholdRatePerMW
		}
		cost := clampNonNegative(rate.Mul(asset.CapacityMW).Mul(params.FrequencyMultiplier))

		if cost.LessThan(siteMinimum) {
			breakdown.MinimumCount++
			breakdown.MinimumCost = breakdown.MinimumCost.Add(siteMinimum)
			total = total.Add(siteMinimum)
			continue
		}

		if below {
			breakdown.BelowCount++
			breakdown.BelowMW = breakdown.BelowMW.Add(asset.CapacityMW)
			breakdown.BelowCost = breakdown.BelowCost.Add(cost)
		} else {
			breakdown.AboveCount++
			breakdown.AboveMW = breakdown.AboveMW.Add(asset.CapacityMW)
			breakdown.AboveCost = breakdown.AboveCost.Add(cost)
		}
		total = total.Add(cost)
	}

	result.TotalMWCost = total
	return nil
}

// calculatePerSiteFlatFee resolves a single per-site flat fee from a tier
// table keyed on total portfolio MW, then charges it per site.
func (c *calculator) calculatePerSiteFlatFee(ctx context.Context, params *CalculationParams, result *CalculationResult) error {
	if len(params.SiteFeeTiers) == 0 {
		return ierr.NewError("per-site fee package without tiers").
			WithHint("The per-site flat fee package requires a tier table keyed on portfolio MW").
			WithReportableDetails(map[string]any{
				"package_type": params.PackageType,
				"field":        "site_fee_tiers",
			}).
			Mark(ierr.ErrConfiguration)
	}

	t, err := tier.Resolve(params.TotalMW, params.SiteFeeTiers)
	if err != nil {
		return err
	}

	siteCount := 0
	switch {
	case params.Snapshot != nil && params.Snapshot.SiteCount > 0:
		siteCount = params.Snapshot.SiteCount
	case params.Snapshot.HasAssetBreakdown():
		siteCount = len(params.Snapshot.Assets)
	default:
		c.warn(ctx, result, params, "snapshot.site_count",
			"no site count available for per-site fee pricing")
	}

	fee := t.Rate
	result.SiteFeeBreakdown = &SiteFeeBreakdown{
		PerSiteFee: fee,
		TierLabel:  t.Label,
		SiteCount:  siteCount,
		Cost:       clampNonNegative(fee.Mul(decimal.NewFromInt(int64(siteCount))).Mul(params.FrequencyMultiplier)),
	}
	return nil
}

// calculatePerSite charges the onboarding fee for each site flagged as
// needing onboarding and the annual fee for each site due for renewal.
// First-year annual renewal is bundled with onboarding: an onboarded site
// produces both line items on the same invoice. With per-period site
// charges the annual fee is instead spread over every invoice, scaled by
// the frequency multiplier.
func (c *calculator) calculatePerSite(ctx context.Context, params *CalculationParams, result *CalculationResult) error {
	breakdown := &PerSiteBreakdown{}
	result.PerSiteBreakdown = breakdown

	if params.SiteChargeFrequency != "" {
		if err := params.SiteChargeFrequency.Validate(); err != nil {
			return err
		}
	}
	perPeriod := params.SiteChargeFrequency == types.SiteChargePerPeriod

	if !params.Snapshot.HasAssetBreakdown() {
		c.warn(ctx, result, params, "snapshot.assets",
			"per-site billing requested but no asset breakdown is available")
		return nil
	}

	onboardingFee := clampNonNegative(params.OnboardingFee)
	annualFee := clampNonNegative(params.AnnualSiteFee)
	if perPeriod {
		annualFee = annualFee.Mul(params.FrequencyMultiplier)
	}

	for _, asset := range params.Snapshot.Assets {
		annualDue := perPeriod ||
			asset.NeedsAnnualRenewal ||
			asset.NeedsOnboarding ||
			(asset.AnnualRenewalDue != nil && !asset.AnnualRenewalDue.After(params.InvoiceDate))

		if !asset.NeedsOnboarding && !annualDue {
			continue
		}

		charge := SiteCharge{
			AssetID:    asset.ID,
			Name:       asset.Name,
			Onboarding: asset.NeedsOnboarding,
			Annual:     annualDue,
		}
		if asset.NeedsOnboarding {
			breakdown.OnboardingCount++
			breakdown.OnboardingSubtotal = breakdown.OnboardingSubtotal.Add(onboardingFee)
			charge.Cost = charge.Cost.Add(onboardingFee)
		}
		if annualDue {
			breakdown.AnnualCount++
			breakdown.AnnualSubtotal = breakdown.AnnualSubtotal.Add(annualFee)
			charge.Cost = charge.Cost.Add(annualFee)
		}
		breakdown.Sites = append(breakdown.Sites, charge)
	}

	return nil
}

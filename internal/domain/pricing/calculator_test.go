package pricing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/heliobill/heliobill/internal/domain/catalog"
	"github.com/heliobill/heliobill/internal/domain/tier"
	ierr "github.com/heliobill/heliobill/internal/errors"
	"github.com/heliobill/heliobill/internal/logger"
	"github.com/heliobill/heliobill/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testInvoiceDate = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func newTestCalculator() Calculator {
	return NewCalculator(logger.NewNopLogger())
}

func annualParams(pkg types.PackageType) CalculationParams {
	return CalculationParams{
		PackageType:         pkg,
		BillingFrequency:    types.BillingFrequencyAnnual,
		FrequencyMultiplier: decimal.NewFromInt(1),
		InvoiceDate:         testInvoiceDate,
	}
}

func assertDecimal(t *testing.T, expected, actual decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, expected.Equal(actual),
		"expected %s, got %s %v", expected, actual, msgAndArgs)
}

func assertTotalSplit(t *testing.T, result *CalculationResult) {
	t.Helper()
	assertDecimal(t, result.TotalPrice, result.ARRAmount.Add(result.NRRAmount),
		"ARR and NRR must sum to the total price")
}

func TestStarterPackage(t *testing.T) {
	params := annualParams(types.PackageStarter)
	params.MinimumAnnualValue = decimal.NewFromInt(3000)

	result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
	require.NoError(t, err)

	assertDecimal(t, decimal.NewFromInt(3000), result.StarterPackageCost)
	assertDecimal(t, decimal.NewFromInt(3000), result.TotalPrice)
	assert.True(t, result.TotalMWCost.IsZero())
	assert.Empty(t, result.ModuleCosts)
	assertTotalSplit(t, result)
}

func TestStarterQuarterly(t *testing.T) {
	params := annualParams(types.PackageStarter)
	params.BillingFrequency = types.BillingFrequencyQuarterly
	params.FrequencyMultiplier = decimal.NewFromFloat(0.25)
	params.MinimumAnnualValue = decimal.NewFromInt(3000)

	result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
	require.NoError(t, err)

	assertDecimal(t, decimal.NewFromInt(750), result.TotalPrice)
}

func TestStarterBaseMonthlyPrice(t *testing.T) {
	t.Run("bills_per_month_in_period", func(t *testing.T) {
		params := annualParams(types.PackageStarter)
		params.MinimumAnnualValue = decimal.NewFromInt(3000)
		params.BaseMonthlyPrice = decimal.NewFromInt(400)

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		// Monthly price wins over the annual-value floor: 400 over 12 months.
		assertDecimal(t, decimal.NewFromInt(4800), result.StarterPackageCost)
		assertDecimal(t, decimal.NewFromInt(4800), result.TotalPrice)
		assertTotalSplit(t, result)
	})

	t.Run("quarterly_bills_three_months", func(t *testing.T) {
		params := annualParams(types.PackageStarter)
		params.BillingFrequency = types.BillingFrequencyQuarterly
		params.FrequencyMultiplier = decimal.NewFromFloat(0.25)
		params.BaseMonthlyPrice = decimal.NewFromInt(400)

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		assertDecimal(t, decimal.NewFromInt(1200), result.TotalPrice)
	})
}

func TestProPackage(t *testing.T) {
	t.Run("module_costs_scale_with_capacity", func(t *testing.T) {
		params := annualParams(types.PackagePro)
		params.TotalMW = decimal.NewFromFloat(2.5)
		params.SelectedModuleIDs = []string{catalog.ModuleTechnicalMonitoring, "performance_analytics"}

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		// (500 + 300) per MW per year over 2.5 MW
		require.Len(t, result.ModuleCosts, 2)
		assertDecimal(t, decimal.NewFromInt(1250), result.ModuleCosts[0].Cost)
		assertDecimal(t, decimal.NewFromInt(750), result.ModuleCosts[1].Cost)
		assertDecimal(t, decimal.NewFromInt(2000), result.TotalMWCost)
		assertDecimal(t, decimal.NewFromInt(2000), result.TotalPrice)
		assertTotalSplit(t, result)
	})

	t.Run("minimum_contract_value_floor", func(t *testing.T) {
		params := annualParams(types.PackagePro)
		params.TotalMW = decimal.NewFromFloat(2.5)
		params.SelectedModuleIDs = []string{catalog.ModuleTechnicalMonitoring, "performance_analytics"}
		params.MinimumAnnualValue = decimal.NewFromInt(5000)

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		// Computed base 2000 stays inspectable; the shortfall is additive.
		assertDecimal(t, decimal.NewFromInt(2000), result.TotalMWCost)
		assertDecimal(t, decimal.NewFromInt(3000), result.MinimumContractAdjustment)
		assertDecimal(t, decimal.NewFromInt(5000), result.TotalPrice)
		assertTotalSplit(t, result)
	})

	t.Run("floor_scales_with_frequency", func(t *testing.T) {
		params := annualParams(types.PackagePro)
		params.BillingFrequency = types.BillingFrequencyQuarterly
		params.FrequencyMultiplier = decimal.NewFromFloat(0.25)
		params.TotalMW = decimal.NewFromFloat(2.5)
		params.SelectedModuleIDs = []string{catalog.ModuleTechnicalMonitoring, "performance_analytics"}
		params.MinimumAnnualValue = decimal.NewFromInt(5000)

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		// Quarter of everything: base 500 against a floor of 1250.
		assertDecimal(t, decimal.NewFromInt(500), result.TotalMWCost)
		assertDecimal(t, decimal.NewFromInt(750), result.MinimumContractAdjustment)
		assertDecimal(t, decimal.NewFromInt(1250), result.TotalPrice)
	})

	t.Run("floor_not_applied_when_base_exceeds_it", func(t *testing.T) {
		params := annualParams(types.PackagePro)
		params.TotalMW = decimal.NewFromInt(100)
		params.SelectedModuleIDs = []string{catalog.ModuleTechnicalMonitoring}
		params.MinimumAnnualValue = decimal.NewFromInt(5000)

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		assert.True(t, result.MinimumContractAdjustment.IsZero())
		assertDecimal(t, decimal.NewFromInt(50000), result.TotalPrice)
	})

	t.Run("unknown_module_rejected", func(t *testing.T) {
		params := annualParams(types.PackagePro)
		params.TotalMW = decimal.NewFromInt(10)
		params.SelectedModuleIDs = []string{"no_such_module"}

		_, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.Error(t, err)
		assert.True(t, ierr.IsValidation(err))
	})
}

func TestCustomPackageRateOverrides(t *testing.T) {
	params := annualParams(types.PackageCustom)
	params.TotalMW = decimal.NewFromInt(10)
	params.SelectedModuleIDs = []string{catalog.ModuleTechnicalMonitoring}
	params.ModuleRateOverrides = map[string]decimal.Decimal{
		catalog.ModuleTechnicalMonitoring: decimal.NewFromInt(420),
	}

	cat := catalog.Default()
	result, err := newTestCalculator().Calculate(context.Background(), cat, params)
	require.NoError(t, err)

	assertDecimal(t, decimal.NewFromInt(4200), result.TotalMWCost)

	// The shared catalog is never mutated by a calculation.
	module, _ := cat.Module(catalog.ModuleTechnicalMonitoring)
	assertDecimal(t, decimal.NewFromInt(500), module.AnnualRatePerMW)
}

func TestPerAssetMinimums(t *testing.T) {
	t.Run("disjoint_buckets", func(t *testing.T) {
		params := annualParams(types.PackagePro)
		params.SelectedModuleIDs = []string{catalog.ModuleTechnicalMonitoring, "performance_analytics"}
		params.PerAssetMinimums = true
		params.MinimumCharge = decimal.NewFromInt(1000)
		params.Snapshot = &CapabilitySnapshot{
			TotalMW: decimal.NewFromFloat(2.5),
			Assets: []Asset{
				{ID: "a1", Name: "Large Plant", CapacityMW: decimal.NewFromInt(2)},
				{ID: "a2", Name: "Small Plant", CapacityMW: decimal.NewFromFloat(0.5)},
			},
		}
		params.TotalMW = params.Snapshot.TotalMW

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		breakdown := result.MinimumCharges
		require.NotNil(t, breakdown)
		assert.Equal(t, 1, breakdown.SitesAboveMinimum)
		assert.Equal(t, 1, breakdown.SitesOnMinimum)

		// 2 MW computes 1600, stays; 0.5 MW computes 400, lifted to 1000.
		assertDecimal(t, decimal.NewFromInt(1600), breakdown.AboveMinimumSubtotal)
		assertDecimal(t, decimal.NewFromInt(1000), breakdown.OnMinimumSubtotal)
		assertDecimal(t, decimal.NewFromInt(2600), result.TotalMWCost)
		assert.Empty(t, result.Warnings)
	})

	t.Run("minimum_tiers_keyed_on_asset_capacity", func(t *testing.T) {
		params := annualParams(types.PackagePro)
		params.SelectedModuleIDs = []string{catalog.ModuleTechnicalMonitoring}
		params.PerAssetMinimums = true
		params.MinimumChargeTiers = []tier.Tier{
			{MinQuantity: decimal.Zero, MaxQuantity: lo.ToPtr(decimal.NewFromInt(1)), Rate: decimal.NewFromInt(800)},
			{MinQuantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(2000)},
		}
		params.Snapshot = &CapabilitySnapshot{
			Assets: []Asset{
				{ID: "a1", CapacityMW: decimal.NewFromFloat(0.5)},
				{ID: "a2", CapacityMW: decimal.NewFromInt(3)},
			},
		}
		params.TotalMW = decimal.NewFromFloat(3.5)

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		// 0.5 MW computes 250, lifted to its 800 tier minimum;
		// 3 MW computes 1500, lifted to its 2000 tier minimum.
		assertDecimal(t, decimal.NewFromInt(2800), result.TotalMWCost)
		assert.Equal(t, 2, result.MinimumCharges.SitesOnMinimum)
	})

	t.Run("missing_breakdown_falls_back_with_warning", func(t *testing.T) {
		params := annualParams(types.PackagePro)
		params.SelectedModuleIDs = []string{catalog.ModuleTechnicalMonitoring}
		params.PerAssetMinimums = true
		params.MinimumCharge = decimal.NewFromInt(1000)
		params.TotalMW = decimal.NewFromInt(4)

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		// Aggregate fallback, never a silent zero.
		assertDecimal(t, decimal.NewFromInt(2000), result.TotalMWCost)
		assert.Nil(t, result.MinimumCharges)
		require.NotEmpty(t, result.Warnings)
	})
}

func TestDiscountedAssets(t *testing.T) {
	params := annualParams(types.PackagePro)
	params.SelectedModuleIDs = []string{catalog.ModuleTechnicalMonitoring}
	params.Snapshot = &CapabilitySnapshot{
		Assets: []Asset{
			{ID: "a1", Name: "Standard", CapacityMW: decimal.NewFromInt(3)},
			{
				ID: "a2", Name: "Negotiated", CapacityMW: decimal.NewFromInt(2),
				Override: &AssetOverride{RatePerMW: lo.ToPtr(decimal.NewFromInt(400)), Label: "Legacy deal"},
			},
			{
				ID: "a3", Name: "Fixed Fee", CapacityMW: decimal.NewFromInt(1),
				Override: &AssetOverride{FixedAnnualFee: lo.ToPtr(decimal.NewFromInt(650))},
			},
		},
	}
	params.TotalMW = decimal.NewFromInt(6)

	result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
	require.NoError(t, err)

	// Overridden capacity is carved out: standard base is 3 MW at 500.
	assertDecimal(t, decimal.NewFromInt(1500), result.TotalMWCost)

	require.Len(t, result.DiscountedAssets, 2)
	assertDecimal(t, decimal.NewFromInt(800), result.DiscountedAssets[0].Cost)
	assertDecimal(t, decimal.NewFromInt(650), result.DiscountedAssets[1].Cost)
	assertDecimal(t, decimal.NewFromInt(1450), result.DiscountedAssetTotal)

	assertDecimal(t, decimal.NewFromInt(2950), result.TotalPrice)
	assertTotalSplit(t, result)
}

func TestPortfolioDiscount(t *testing.T) {
	discountTiers := []tier.Tier{
		{MinQuantity: decimal.Zero, MaxQuantity: lo.ToPtr(decimal.NewFromInt(100)), Rate: decimal.Zero},
		{MinQuantity: decimal.NewFromInt(100), Rate: decimal.NewFromInt(10)},
	}

	t.Run("discount_applied_above_threshold", func(t *testing.T) {
		params := annualParams(types.PackagePro)
		params.TotalMW = decimal.NewFromInt(120)
		params.SelectedModuleIDs = []string{catalog.ModuleTechnicalMonitoring}
		params.DiscountTiers = discountTiers

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		assertDecimal(t, decimal.NewFromInt(10), result.PortfolioDiscountPercent)
		assertDecimal(t, decimal.NewFromInt(6000), result.PortfolioDiscountAmount)
		assertDecimal(t, decimal.NewFromInt(54000), result.TotalMWCost)
	})

	t.Run("zero_percent_tier_leaves_base_unchanged", func(t *testing.T) {
		params := annualParams(types.PackagePro)
		params.TotalMW = decimal.NewFromInt(50)
		params.SelectedModuleIDs = []string{catalog.ModuleTechnicalMonitoring}
		params.DiscountTiers = discountTiers

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		assert.True(t, result.PortfolioDiscountAmount.IsZero())
		assertDecimal(t, decimal.NewFromInt(25000), result.TotalMWCost)
	})

	t.Run("site_fee_base_is_not_discounted", func(t *testing.T) {
		params := annualParams(types.PackagePerSiteFlatFee)
		params.TotalMW = decimal.NewFromInt(120)
		params.DiscountTiers = discountTiers
		params.SiteFeeTiers = []tier.Tier{
			{MinQuantity: decimal.Zero, Rate: decimal.NewFromInt(1000), Label: "flat"},
		}
		params.Snapshot = &CapabilitySnapshot{TotalMW: decimal.NewFromInt(120), SiteCount: 6}

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		// The volume discount targets per-MW module revenue only; per-site
		// fees bill at their full tier rate.
		assert.True(t, result.PortfolioDiscountAmount.IsZero())
		assertDecimal(t, decimal.NewFromInt(6000), result.SiteFeeBreakdown.Cost)
		assertDecimal(t, decimal.NewFromInt(6000), result.TotalPrice)
	})
}

func TestHybridTieredPackage(t *testing.T) {
	t.Run("split_from_asset_breakdown", func(t *testing.T) {
		params := annualParams(types.PackageHybridTiered)
		params.OnGridRatePerMW = decimal.NewFromInt(600)
		params.HybridRatePerMW = decimal.NewFromInt(900)
		params.Snapshot = &CapabilitySnapshot{
			Assets: []Asset{
				{ID: "a1", CapacityMW: decimal.NewFromInt(3)},
				{ID: "a2", CapacityMW: decimal.NewFromInt(2), Hybrid: true},
			},
		}
		params.TotalMW = decimal.NewFromInt(5)

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		breakdown := result.HybridBreakdown
		require.NotNil(t, breakdown)
		assertDecimal(t, decimal.NewFromInt(1800), breakdown.OnGridCost)
		assertDecimal(t, decimal.NewFromInt(1800), breakdown.HybridCost)
		assertDecimal(t, decimal.NewFromInt(3600), result.TotalMWCost)
		assert.Empty(t, result.Warnings)
	})

	t.Run("technical_monitoring_not_double_charged", func(t *testing.T) {
		params := annualParams(types.PackageHybridTiered)
		params.OnGridRatePerMW = decimal.NewFromInt(600)
		params.HybridRatePerMW = decimal.NewFromInt(900)
		params.SelectedModuleIDs = []string{catalog.ModuleTechnicalMonitoring, "reporting"}
		params.Snapshot = &CapabilitySnapshot{
			Assets: []Asset{{ID: "a1", CapacityMW: decimal.NewFromInt(4)}},
		}
		params.TotalMW = decimal.NewFromInt(4)

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		// Only reporting charges as a module line; monitoring is embedded
		// in the two capacity rates.
		require.Len(t, result.ModuleCosts, 1)
		assert.Equal(t, "reporting", result.ModuleCosts[0].ModuleID)
		assertDecimal(t, decimal.NewFromInt(3000), result.TotalMWCost)
	})

	t.Run("missing_hybrid_data_bills_on_grid_with_warning", func(t *testing.T) {
		params := annualParams(types.PackageHybridTiered)
		params.OnGridRatePerMW = decimal.NewFromInt(600)
		params.HybridRatePerMW = decimal.NewFromInt(900)
		params.TotalMW = decimal.NewFromInt(5)

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		assertDecimal(t, decimal.NewFromInt(3000), result.TotalMWCost)
		require.NotEmpty(t, result.Warnings)
	})
}

func TestGraduatedMWPackage(t *testing.T) {
	graduated := []tier.Tier{
		{MinQuantity: decimal.Zero, MaxQuantity: lo.ToPtr(decimal.NewFromInt(5)), Rate: decimal.NewFromInt(100), Label: "0-5 MW"},
		{MinQuantity: decimal.NewFromInt(5), MaxQuantity: lo.ToPtr(decimal.NewFromInt(20)), Rate: decimal.NewFromInt(80), Label: "5-20 MW"},
		{MinQuantity: decimal.NewFromInt(20), Rate: decimal.NewFromInt(60), Label: "20+ MW"},
	}

	t.Run("capacity_splits_across_tiers", func(t *testing.T) {
		params := annualParams(types.PackageGraduatedMW)
		params.GraduatedTiers = graduated
		params.TotalMW = decimal.NewFromInt(8)

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		// 5 MW at 100 + 3 MW at 80
		require.Len(t, result.GraduatedTiers, 2)
		assertDecimal(t, decimal.NewFromInt(500), result.GraduatedTiers[0].Cost)
		assertDecimal(t, decimal.NewFromInt(240), result.GraduatedTiers[1].Cost)
		assertDecimal(t, decimal.NewFromInt(740), result.TotalMWCost)
		assertTotalSplit(t, result)
	})

	t.Run("missing_tiers_is_a_configuration_error", func(t *testing.T) {
		params := annualParams(types.PackageGraduatedMW)
		params.TotalMW = decimal.NewFromInt(8)

		_, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.Error(t, err)
		assert.True(t, ierr.IsConfiguration(err))
	})

	t.Run("monotonic_in_capacity", func(t *testing.T) {
		previous := decimal.Zero
		for _, mw := range []int64{1, 5, 12, 20, 48, 300} {
			params := annualParams(types.PackageGraduatedMW)
			params.GraduatedTiers = graduated
			params.TotalMW = decimal.NewFromInt(mw)

			result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
			require.NoError(t, err)
			assert.True(t, result.TotalPrice.GreaterThanOrEqual(previous),
				"price must not decrease as capacity grows (mw=%d)", mw)
			previous = result.TotalPrice
		}
	})
}

func TestThresholdTwoRatePackage(t *testing.T) {
	t.Run("buckets_are_disjoint", func(t *testing.T) {
		params := annualParams(types.PackageThresholdTwoRate)
		params.ThresholdKWp = decimal.NewFromInt(1000)
		params.BelowThresholdRatePerMW = decimal.NewFromInt(1000)
		params.AboveThresholdRatePerMW = decimal.NewFromInt(800)
		params.PerSiteMinimum = decimal.NewFromInt(600)
		params.Snapshot = &CapabilitySnapshot{
			Assets: []Asset{
				{ID: "a1", Name: "Tiny", CapacityMW: decimal.NewFromFloat(0.5)},  // 500 kWp, costs 500, lifted to 600
				{ID: "a2", Name: "Large", CapacityMW: decimal.NewFromInt(2)},     // 2000 kWp above, 1600
				{ID: "a3", Name: "Small", CapacityMW: decimal.NewFromFloat(0.9)}, // 900 kWp below, 900
			},
		}
		params.TotalMW = decimal.NewFromFloat(3.4)

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		breakdown := result.ThresholdBreakdown
		require.NotNil(t, breakdown)
		assert.Equal(t, 1, breakdown.MinimumCount)
		assert.Equal(t, 1, breakdown.AboveCount)
		assert.Equal(t, 1, breakdown.BelowCount)

		assertDecimal(t, decimal.NewFromInt(600), breakdown.MinimumCost)
		assertDecimal(t, decimal.NewFromInt(1600), breakdown.AboveCost)
		assertDecimal(t, decimal.NewFromInt(900), breakdown.BelowCost)
		assertDecimal(t, decimal.NewFromInt(3100), result.TotalMWCost)

		// A site on the minimum appears in no per-MW bucket.
		assertDecimal(t, decimal.NewFromFloat(2.9), breakdown.AboveMW.Add(breakdown.BelowMW))
	})

	t.Run("no_assets_bills_aggregate_with_warning", func(t *testing.T) {
		params := annualParams(types.PackageThresholdTwoRate)
		params.ThresholdKWp = decimal.NewFromInt(1000)
		params.BelowThresholdRatePerMW = decimal.NewFromInt(1000)
		params.AboveThresholdRatePerMW = decimal.NewFromInt(800)
		params.TotalMW = decimal.NewFromInt(10)

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		assertDecimal(t, decimal.NewFromInt(8000), result.TotalMWCost)
		require.NotEmpty(t, result.Warnings)
	})
}

func TestPerSiteFlatFeePackage(t *testing.T) {
	feeTiers := []tier.Tier{
		{MinQuantity: decimal.Zero, MaxQuantity: lo.ToPtr(decimal.NewFromInt(10)), Rate: decimal.NewFromInt(1200), Label: "under 10 MW"},
		{MinQuantity: decimal.NewFromInt(10), Rate: decimal.NewFromInt(1000), Label: "10+ MW"},
	}

	t.Run("fee_resolved_from_portfolio_capacity", func(t *testing.T) {
		params := annualParams(types.PackagePerSiteFlatFee)
		params.SiteFeeTiers = feeTiers
		params.TotalMW = decimal.NewFromInt(15)
		params.Snapshot = &CapabilitySnapshot{TotalMW: decimal.NewFromInt(15), SiteCount: 4}

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		breakdown := result.SiteFeeBreakdown
		require.NotNil(t, breakdown)
		assertDecimal(t, decimal.NewFromInt(1000), breakdown.PerSiteFee)
		assert.Equal(t, 4, breakdown.SiteCount)
		assertDecimal(t, decimal.NewFromInt(4000), breakdown.Cost)
		assertDecimal(t, decimal.NewFromInt(4000), result.TotalPrice)
		assertTotalSplit(t, result)
	})

	t.Run("missing_tiers_is_a_configuration_error", func(t *testing.T) {
		params := annualParams(types.PackagePerSiteFlatFee)
		params.TotalMW = decimal.NewFromInt(15)

		_, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.Error(t, err)
		assert.True(t, ierr.IsConfiguration(err))
	})
}

func TestPerSitePackage(t *testing.T) {
	t.Run("onboarding_bundles_first_annual_fee", func(t *testing.T) {
		params := annualParams(types.PackagePerSite)
		params.OnboardingFee = decimal.NewFromInt(1000)
		params.AnnualSiteFee = decimal.NewFromInt(400)
		params.Snapshot = &CapabilitySnapshot{
			Assets: []Asset{
				{ID: "a1", Name: "New Site", CapacityMW: decimal.NewFromInt(1), NeedsOnboarding: true},
				{ID: "a2", Name: "Existing Site", CapacityMW: decimal.NewFromInt(2), NeedsAnnualRenewal: true},
				{ID: "a3", Name: "Quiet Site", CapacityMW: decimal.NewFromInt(1)},
			},
		}
		params.TotalMW = decimal.NewFromInt(4)

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		breakdown := result.PerSiteBreakdown
		require.NotNil(t, breakdown)
		assert.Equal(t, 1, breakdown.OnboardingCount)
		assert.Equal(t, 2, breakdown.AnnualCount)
		require.Len(t, breakdown.Sites, 2)

		// Onboarded site carries both fees on the same invoice.
		assertDecimal(t, decimal.NewFromInt(1400), breakdown.Sites[0].Cost)

		assertDecimal(t, decimal.NewFromInt(1800), result.TotalPrice)
		assertDecimal(t, decimal.NewFromInt(800), result.ARRAmount)
		assertDecimal(t, decimal.NewFromInt(1000), result.NRRAmount)
	})

	t.Run("renewal_due_date_triggers_annual_fee", func(t *testing.T) {
		params := annualParams(types.PackagePerSite)
		params.AnnualSiteFee = decimal.NewFromInt(400)
		params.Snapshot = &CapabilitySnapshot{
			Assets: []Asset{
				{ID: "a1", CapacityMW: decimal.NewFromInt(1), AnnualRenewalDue: lo.ToPtr(testInvoiceDate.AddDate(0, -1, 0))},
				{ID: "a2", CapacityMW: decimal.NewFromInt(1), AnnualRenewalDue: lo.ToPtr(testInvoiceDate.AddDate(0, 2, 0))},
			},
		}
		params.TotalMW = decimal.NewFromInt(2)

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		assert.Equal(t, 1, result.PerSiteBreakdown.AnnualCount)
		assertDecimal(t, decimal.NewFromInt(400), result.TotalPrice)
	})

	t.Run("fees_do_not_scale_with_frequency", func(t *testing.T) {
		params := annualParams(types.PackagePerSite)
		params.BillingFrequency = types.BillingFrequencyQuarterly
		params.FrequencyMultiplier = decimal.NewFromFloat(0.25)
		params.OnboardingFee = decimal.NewFromInt(1000)
		params.AnnualSiteFee = decimal.NewFromInt(400)
		params.Snapshot = &CapabilitySnapshot{
			Assets: []Asset{{ID: "a1", CapacityMW: decimal.NewFromInt(1), NeedsOnboarding: true}},
		}
		params.TotalMW = decimal.NewFromInt(1)

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		assertDecimal(t, decimal.NewFromInt(1400), result.TotalPrice)
	})

	t.Run("per_period_spreads_annual_fee", func(t *testing.T) {
		params := annualParams(types.PackagePerSite)
		params.BillingFrequency = types.BillingFrequencyQuarterly
		params.FrequencyMultiplier = decimal.NewFromFloat(0.25)
		params.AnnualSiteFee = decimal.NewFromInt(400)
		params.SiteChargeFrequency = types.SiteChargePerPeriod
		params.Snapshot = &CapabilitySnapshot{
			Assets: []Asset{
				{ID: "a1", CapacityMW: decimal.NewFromInt(1)},
				{ID: "a2", CapacityMW: decimal.NewFromInt(2)},
			},
		}
		params.TotalMW = decimal.NewFromInt(3)

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		// Every site bills a quarter of the annual fee on every invoice,
		// renewal dates notwithstanding.
		assert.Equal(t, 2, result.PerSiteBreakdown.AnnualCount)
		assertDecimal(t, decimal.NewFromInt(200), result.TotalPrice)
	})

	t.Run("unknown_site_charge_frequency", func(t *testing.T) {
		params := annualParams(types.PackagePerSite)
		params.AnnualSiteFee = decimal.NewFromInt(400)
		params.SiteChargeFrequency = types.SiteChargeFrequency("weekly")
		params.Snapshot = &CapabilitySnapshot{
			Assets: []Asset{{ID: "a1", CapacityMW: decimal.NewFromInt(1)}},
		}
		params.TotalMW = decimal.NewFromInt(1)

		_, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		assert.True(t, ierr.IsValidation(err))
	})
}

func TestRetainer(t *testing.T) {
	t.Run("hours_times_rate", func(t *testing.T) {
		params := annualParams(types.PackageStarter)
		params.MinimumAnnualValue = decimal.NewFromInt(3000)
		params.RetainerHours = decimal.NewFromInt(20)
		params.RetainerHourlyRate = decimal.NewFromInt(120)

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		assertDecimal(t, decimal.NewFromInt(2400), result.RetainerCost)
		assert.False(t, result.RetainerMinimumApplied)
		assertDecimal(t, decimal.NewFromInt(5400), result.TotalPrice)
	})

	t.Run("minimum_value_floor", func(t *testing.T) {
		params := annualParams(types.PackageStarter)
		params.MinimumAnnualValue = decimal.NewFromInt(3000)
		params.RetainerHours = decimal.NewFromInt(5)
		params.RetainerHourlyRate = decimal.NewFromInt(120)
		params.RetainerMinimumValue = decimal.NewFromInt(1000)

		result, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
		require.NoError(t, err)

		assertDecimal(t, decimal.NewFromInt(1000), result.RetainerCost)
		assert.True(t, result.RetainerMinimumApplied)
	})
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(params *CalculationParams)
	}{
		{
			name: "unknown_package_type",
			mutate: func(params *CalculationParams) {
				params.PackageType = types.PackageType("gold")
			},
		},
		{
			name: "unknown_billing_frequency",
			mutate: func(params *CalculationParams) {
				params.BillingFrequency = types.BillingFrequency("weekly")
			},
		},
		{
			name: "negative_capacity",
			mutate: func(params *CalculationParams) {
				params.TotalMW = decimal.NewFromInt(-1)
			},
		},
		{
			name: "negative_frequency_multiplier",
			mutate: func(params *CalculationParams) {
				params.FrequencyMultiplier = decimal.NewFromFloat(-0.25)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := annualParams(types.PackageStarter)
			params.MinimumAnnualValue = decimal.NewFromInt(3000)
			tt.mutate(&params)

			_, err := newTestCalculator().Calculate(context.Background(), catalog.Default(), params)
			require.Error(t, err)
		})
	}

	t.Run("nil_catalog", func(t *testing.T) {
		params := annualParams(types.PackageStarter)
		_, err := newTestCalculator().Calculate(context.Background(), nil, params)
		require.Error(t, err)
		assert.True(t, ierr.IsConfiguration(err))
	})
}

func TestCalculationIsDeterministic(t *testing.T) {
	params := annualParams(types.PackagePro)
	params.SelectedModuleIDs = []string{catalog.ModuleTechnicalMonitoring, "performance_analytics", "reporting"}
	params.SelectedAddons = []AddonSelection{
		{AddonID: "training"},
		{AddonID: "onboarding_support", Complexity: types.AddonComplexityMedium},
	}
	params.Snapshot = &CapabilitySnapshot{
		TotalMW:          decimal.NewFromInt(12),
		SolcastSiteCount: 5,
		Assets: []Asset{
			{ID: "a1", CapacityMW: decimal.NewFromInt(8), SolcastEnabled: true},
			{ID: "a2", CapacityMW: decimal.NewFromInt(4)},
		},
	}
	params.TotalMW = decimal.NewFromInt(12)

	calc := newTestCalculator()

	first, err := calc.Calculate(context.Background(), catalog.Default(), params)
	require.NoError(t, err)
	second, err := calc.Calculate(context.Background(), catalog.Default(), params)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON),
		"identical inputs must produce an identical breakdown")
}

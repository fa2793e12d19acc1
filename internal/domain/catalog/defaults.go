package catalog

import (
	"github.com/heliobill/heliobill/internal/domain/tier"
	"github.com/heliobill/heliobill/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Default builds the standard catalog in EUR. Deployments replace or
// extend it through configuration; per-customer deals go through explicit
// override maps on CalculationParams, never through catalog mutation.
func Default() *Catalog {
	modules := []Module{
		{
			ID:              ModuleTechnicalMonitoring,
			Name:            "Technical Monitoring",
			Description:     "Core plant monitoring, data acquisition and device health",
			AnnualRatePerMW: decimal.NewFromInt(500),
		},
		{
			ID:              "performance_analytics",
			Name:            "Performance Analytics",
			Description:     "PR, availability and yield analytics",
			AnnualRatePerMW: decimal.NewFromInt(300),
		},
		{
			ID:              "alarm_management",
			Name:            "Alarm Management",
			AnnualRatePerMW: decimal.NewFromInt(200),
		},
		{
			ID:              "maintenance",
			Name:            "Maintenance & Ticketing",
			AnnualRatePerMW: decimal.NewFromInt(250),
		},
		{
			ID:              "reporting",
			Name:            "Automated Reporting",
			AnnualRatePerMW: decimal.NewFromInt(150),
		},
	}

	addons := []Addon{
		{
			ID:            AddonSolcast,
			Name:          "Solcast Satellite Data",
			PricingMode:   types.AddonPricingTiered,
			Cadence:       types.BillingCadenceRecurring,
			AutoActivated: true,
			// Monthly rate per solcast-enabled site
			Tiers: []tier.Tier{
				{MinQuantity: decimal.Zero, MaxQuantity: lo.ToPtr(decimal.NewFromInt(10)), Rate: decimal.NewFromInt(15), Label: "1-9 sites"},
				{MinQuantity: decimal.NewFromInt(10), MaxQuantity: lo.ToPtr(decimal.NewFromInt(50)), Rate: decimal.NewFromInt(12), Label: "10-49 sites"},
				{MinQuantity: decimal.NewFromInt(50), Rate: decimal.NewFromInt(9), Label: "50+ sites"},
			},
		},
		{
			ID:          "onboarding_support",
			Name:        "Onboarding Support",
			PricingMode: types.AddonPricingComplexity,
			Cadence:     types.BillingCadenceOnetime,
			ComplexityPrices: map[types.AddonComplexity]decimal.Decimal{
				types.AddonComplexityLow:    decimal.NewFromInt(500),
				types.AddonComplexityMedium: decimal.NewFromInt(1200),
				types.AddonComplexityHigh:   decimal.NewFromInt(2500),
			},
		},
		{
			ID:          "training",
			Name:        "Operator Training Session",
			PricingMode: types.AddonPricingFlat,
			Cadence:     types.BillingCadenceOnetime,
			UnitPrice:   decimal.NewFromInt(800),
		},
		{
			ID:          "datalogger_config",
			Name:        "Datalogger Configuration",
			PricingMode: types.AddonPricingTiered,
			Cadence:     types.BillingCadenceOnetime,
			Tiers: []tier.Tier{
				{MinQuantity: decimal.NewFromInt(1), MaxQuantity: lo.ToPtr(decimal.NewFromInt(5)), Rate: decimal.NewFromInt(250), Label: "1-4 units"},
				{MinQuantity: decimal.NewFromInt(5), MaxQuantity: lo.ToPtr(decimal.NewFromInt(20)), Rate: decimal.NewFromInt(200), Label: "5-19 units"},
				{MinQuantity: decimal.NewFromInt(20), Rate: decimal.NewFromInt(160), Label: "20+ units"},
			},
		},
		{
			ID:          "custom_report",
			Name:        "Custom Report Development",
			PricingMode: types.AddonPricingComplexity,
			Cadence:     types.BillingCadenceOnetime,
			ComplexityPrices: map[types.AddonComplexity]decimal.Decimal{
				types.AddonComplexityLow:    decimal.NewFromInt(300),
				types.AddonComplexityMedium: decimal.NewFromInt(750),
				types.AddonComplexityHigh:   decimal.NewFromInt(1500),
			},
		},
	}

	c, err := New("eur", modules, addons)
	if err != nil {
		// The default catalog is defined in code and validated by tests;
		// a failure here is a programming error.
		panic(err)
	}
	return c
}

package pricing

import (
	"context"

	"github.com/heliobill/heliobill/internal/domain/catalog"
	"github.com/heliobill/heliobill/internal/domain/tier"
	ierr "github.com/heliobill/heliobill/internal/errors"
	"github.com/heliobill/heliobill/internal/types"
	"github.com/shopspring/decimal"
)

// calculateAddons resolves every selected add-on plus auto-activated
// add-ons metered from the capability snapshot. Add-on costing is
// independent of the package strategy and always additive.
func (c *calculator) calculateAddons(ctx context.Context, cat *catalog.Catalog, params *CalculationParams, result *CalculationResult) error {
	seen := make(map[string]bool, len(params.SelectedAddons))

	for _, selection := range params.SelectedAddons {
		def, ok := cat.Addon(selection.AddonID)
		if !ok {
			return ierr.NewError("selected addon not in catalog").
				WithHintf("addon %q is not defined in the pricing catalog", selection.AddonID).
				WithReportableDetails(map[string]any{
					"package_type": params.PackageType,
					"addon_id":     selection.AddonID,
				}).
				Mark(ierr.ErrValidation)
		}
		seen[def.ID] = true

		line, err := c.costAddon(def, selection, params)
		if err != nil {
			return err
		}
		if line != nil {
			c.appendAddon(result, *line)
		}
	}

	// Auto-activated add-ons bill from the metered quantity even when the
	// caller did not select them explicitly.
	for _, def := range cat.Addons() {
		if !def.AutoActivated || seen[def.ID] {
			continue
		}
		quantity := meteredQuantity(def, params.Snapshot)
		if quantity.LessThanOrEqual(decimal.Zero) {
			continue
		}
		line, err := c.costAddon(def, AddonSelection{AddonID: def.ID, Quantity: &quantity}, params)
		if err != nil {
			return err
		}
		if line != nil {
			c.appendAddon(result, *line)
		}
	}

	return nil
}

func (c *calculator) appendAddon(result *CalculationResult, line AddonCost) {
	result.AddonCosts = append(result.AddonCosts, line)
	result.AddonTotal = result.AddonTotal.Add(line.Cost)
	if line.Cadence == types.BillingCadenceRecurring {
		result.RecurringAddonTotal = result.RecurringAddonTotal.Add(line.Cost)
	} else {
		result.OneOffAddonTotal = result.OneOffAddonTotal.Add(line.Cost)
	}
}

// costAddon resolves one add-on line. Resolution order: custom price
// verbatim, tiered, complexity, flat. Recurring add-ons carry a monthly
// rate and scale by the months in the period, not by the annualized
// frequency multiplier. One-off add-ons bill once per invoice.
func (c *calculator) costAddon(def catalog.Addon, selection AddonSelection, params *CalculationParams) (*AddonCost, error) {
	quantity := decimal.NewFromInt(1)
	if def.AutoActivated {
		quantity = meteredQuantity(def, params.Snapshot)
		if quantity.LessThanOrEqual(decimal.Zero) {
			return nil, nil
		}
	} else if selection.Quantity != nil {
		quantity = *selection.Quantity
	}
	if quantity.IsNegative() {
		return nil, ierr.NewError("negative addon quantity").
			WithReportableDetails(map[string]any{
				"package_type": params.PackageType,
				"addon_id":     def.ID,
				"quantity":     quantity,
			}).
			Mark(ierr.ErrValidation)
	}

	line := AddonCost{
		AddonID:  def.ID,
		Name:     def.Name,
		Quantity: quantity,
		Cadence:  def.Cadence,
	}

	// Negotiated deals bypass every pricing mode and period scaling.
	if selection.CustomPrice != nil {
		line.CustomPriced = true
		line.Cost = clampNonNegative(*selection.CustomPrice)
		return &line, nil
	}

	tiers := def.Tiers
	if len(selection.CustomTiers) > 0 {
		tiers = selection.CustomTiers
	}

	unitPrice := decimal.Zero
	switch def.PricingMode {
	case types.AddonPricingTiered:
		if quantity.LessThan(tiers[0].MinQuantity) {
			return nil, ierr.NewError("addon quantity below tier table floor").
				WithHintf("addon %q requires a quantity of at least %s", def.ID, tiers[0].MinQuantity.String()).
				WithReportableDetails(map[string]any{
					"package_type": params.PackageType,
					"addon_id":     def.ID,
					"quantity":     quantity,
					"tier_floor":   tiers[0].MinQuantity,
				}).
				Mark(ierr.ErrValidation)
		}
		t, err := tier.Resolve(quantity, tiers)
		if err != nil {
			return nil, err
		}
		unitPrice = t.Rate
		line.AppliedTierLabel = t.Label

	case types.AddonPricingComplexity:
		if selection.Complexity == "" {
			return nil, ierr.NewError("missing addon complexity").
				WithHintf("addon %q is complexity priced and needs a complexity band", def.ID).
				WithReportableDetails(map[string]any{
					"package_type": params.PackageType,
					"addon_id":     def.ID,
					"field":        "complexity",
				}).
				Mark(ierr.ErrValidation)
		}
		if err := selection.Complexity.Validate(); err != nil {
			return nil, err
		}
		unitPrice = def.ComplexityPrices[selection.Complexity]

	case types.AddonPricingFlat:
		unitPrice = def.UnitPrice

	default:
		return nil, ierr.NewError("invalid addon pricing mode").
			WithReportableDetails(map[string]any{
				"addon_id":     def.ID,
				"pricing_mode": def.PricingMode,
			}).
			Mark(ierr.ErrConfiguration)
	}

	line.UnitPrice = unitPrice
	cost := unitPrice.Mul(quantity)
	if def.IsRecurring() {
		cost = cost.Mul(decimal.NewFromInt(int64(params.PeriodMonths)))
	}
	line.Cost = clampNonNegative(cost)
	return &line, nil
}

// meteredQuantity is the capability-snapshot quantity driving an
// auto-activated add-on, ex the count of solcast-enabled sites.
func meteredQuantity(def catalog.Addon, snapshot *CapabilitySnapshot) decimal.Decimal {
	if snapshot == nil {
		return decimal.Zero
	}
	if snapshot.SolcastSiteCount > 0 {
		return decimal.NewFromInt(int64(snapshot.SolcastSiteCount))
	}

	count := 0
	for _, asset := range snapshot.Assets {
		if asset.SolcastEnabled {
			count++
		}
	}
	return decimal.NewFromInt(int64(count))
}

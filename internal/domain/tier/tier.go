// Package tier implements quantity tier lookup for add-on pricing,
// per-site minimum charges, portfolio discounts and graduated MW pricing.
package tier

import (
	ierr "github.com/heliobill/heliobill/internal/errors"
	"github.com/shopspring/decimal"
)

// Tier is a [min, max) quantity interval with an associated rate.
// MaxQuantity is nil on the last tier to mean unbounded.
type Tier struct {
	// MinQuantity is the tier start, inclusive
	MinQuantity decimal.Decimal `json:"min_quantity" mapstructure:"min_quantity"`

	// MaxQuantity is the tier end, exclusive. Nil means unbounded.
	MaxQuantity *decimal.Decimal `json:"max_quantity,omitempty" mapstructure:"max_quantity"`

	// Rate is the per-unit rate (or percentage for discount tiers,
	// or flat per-site fee for site-fee tiers) for this tier
	Rate decimal.Decimal `json:"rate" mapstructure:"rate"`

	// Label is the display label for the tier ex "0-5 MW"
	Label string `json:"label,omitempty" mapstructure:"label"`
}

// Contains reports whether quantity falls inside the tier's [min, max) interval
func (t Tier) Contains(quantity decimal.Decimal) bool {
	if quantity.LessThan(t.MinQuantity) {
		return false
	}
	if t.MaxQuantity == nil {
		return true
	}
	return quantity.LessThan(*t.MaxQuantity)
}

// Validate checks a tier table for the invariants every resolver relies on:
// ascending, contiguous, non-overlapping intervals with at most one
// unbounded tier, which must be the last one.
func Validate(tiers []Tier) error {
	if len(tiers) == 0 {
		return ierr.NewError("empty tier table").
			WithHint("Tier table must contain at least one tier").
			Mark(ierr.ErrConfiguration)
	}

	for i, t := range tiers {
		if t.MaxQuantity == nil {
			if i != len(tiers)-1 {
				return ierr.NewError("unbounded tier is not the last tier").
					WithHint("Only the last tier may omit max_quantity").
					WithReportableDetails(map[string]any{
						"tier_index": i,
						"tier_label": t.Label,
					}).
					Mark(ierr.ErrConfiguration)
			}
			continue
		}

		if !t.MaxQuantity.GreaterThan(t.MinQuantity) {
			return ierr.NewError("tier upper bound not above lower bound").
				WithReportableDetails(map[string]any{
					"tier_index":   i,
					"min_quantity": t.MinQuantity,
					"max_quantity": t.MaxQuantity,
				}).
				Mark(ierr.ErrConfiguration)
		}

		if i < len(tiers)-1 && !tiers[i+1].MinQuantity.Equal(*t.MaxQuantity) {
			return ierr.NewError("non-contiguous tier boundaries").
				WithHint("Each tier must start where the previous one ends").
				WithReportableDetails(map[string]any{
					"tier_index":   i,
					"max_quantity": t.MaxQuantity,
					"next_minimum": tiers[i+1].MinQuantity,
				}).
				Mark(ierr.ErrConfiguration)
		}
	}

	return nil
}

// Resolve returns the single tier whose [min, max) interval contains
// quantity. Quantities below the first tier's minimum clamp to the first
// tier; quantities above all finite maxima use the unbounded last tier.
func Resolve(quantity decimal.Decimal, tiers []Tier) (Tier, error) {
	if err := Validate(tiers); err != nil {
		return Tier{}, err
	}

	if quantity.LessThan(tiers[0].MinQuantity) {
		return tiers[0], nil
	}

	for _, t := range tiers {
		if t.Contains(quantity) {
			return t, nil
		}
	}

	// Bounded last tier and quantity beyond it: bill at the last tier.
	return tiers[len(tiers)-1], nil
}

// Slice is one graduated pricing slice: the portion of the quantity that
// fell into a tier and the cost of that portion.
type Slice struct {
	Tier     Tier            `json:"tier"`
	Quantity decimal.Decimal `json:"quantity"`
	Cost     decimal.Decimal `json:"cost"`
}

// Graduated splits quantity cumulatively across tier boundaries and bills
// each slice at its own tier rate. The returned slices partition the
// quantity exactly: no gaps, no overlaps, no double counting.
func Graduated(quantity decimal.Decimal, tiers []Tier) ([]Slice, decimal.Decimal, error) {
	if err := Validate(tiers); err != nil {
		return nil, decimal.Zero, err
	}

	slices := make([]Slice, 0, len(tiers))
	total := decimal.Zero
	remaining := quantity

	for _, t := range tiers {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}

		sliceQuantity := remaining
		if t.MaxQuantity != nil {
			width := t.MaxQuantity.Sub(t.MinQuantity)
			if remaining.GreaterThan(width) {
				sliceQuantity = width
			}
		}

		cost := sliceQuantity.Mul(t.Rate)
		slices = append(slices, Slice{Tier: t, Quantity: sliceQuantity, Cost: cost})
		total = total.Add(cost)
		remaining = remaining.Sub(sliceQuantity)
	}

	// A bounded last tier extends upward so the slices always partition
	// the full quantity.
	if remaining.GreaterThan(decimal.Zero) && len(slices) > 0 {
		last := &slices[len(slices)-1]
		overflowCost := remaining.Mul(last.Tier.Rate)
		last.Quantity = last.Quantity.Add(remaining)
		last.Cost = last.Cost.Add(overflowCost)
		total = total.Add(overflowCost)
	}

	return slices, total, nil
}

// ResolveDiscountPercent resolves a portfolio volume discount percentage
// keyed on aggregate managed capacity. An empty table means no discount.
func ResolveDiscountPercent(portfolioMW decimal.Decimal, tiers []Tier) (decimal.Decimal, error) {
	if len(tiers) == 0 {
		return decimal.Zero, nil
	}

	t, err := Resolve(portfolioMW, tiers)
	if err != nil {
		return decimal.Zero, err
	}
	return t.Rate, nil
}

package types

import (
	ierr "github.com/heliobill/heliobill/internal/errors"
	"github.com/samber/lo"
)

// PackageType selects the pricing strategy for a contract. Exactly one
// strategy applies per calculation; strategies are mutually exclusive and
// are never summed against each other.
type PackageType string

const (
	// PackageStarter is a flat annual minimum value with no module-based charge
	PackageStarter PackageType = "starter"

	// PackagePro charges selected modules per MW of managed capacity
	PackagePro PackageType = "pro"

	// PackageCustom is PackagePro with negotiated per-module price overrides
	PackageCustom PackageType = "custom"

	// PackageHybridTiered splits capacity into on-grid and hybrid buckets,
	// each priced at its own flat per-MW rate
	PackageHybridTiered PackageType = "hybrid_tiered"

	// PackageGraduatedMW applies cumulative graduated tiers to total capacity
	PackageGraduatedMW PackageType = "elum_internal"

	// PackageThresholdTwoRate partitions assets at a kWp threshold into two
	// differently priced groups with a per-site minimum
	PackageThresholdTwoRate PackageType = "elum_epm"

	// PackagePerSiteFlatFee charges a per-site flat fee resolved from a tier
	// table keyed on total portfolio MW
	PackagePerSiteFlatFee PackageType = "elum_jubaili"

	// PackagePerSite charges per-site onboarding and annual renewal fees
	PackagePerSite PackageType = "per_site"
)

func (p PackageType) String() string {
	return string(p)
}

func (p PackageType) Validate() error {
	allowedTypes := []PackageType{
		PackageStarter,
		PackagePro,
		PackageCustom,
		PackageHybridTiered,
		PackageGraduatedMW,
		PackageThresholdTwoRate,
		PackagePerSiteFlatFee,
		PackagePerSite,
	}

	if !lo.Contains(allowedTypes, p) {
		return ierr.NewError("invalid package type").
			WithHint("Unrecognized package type").
			WithReportableDetails(map[string]any{
				"allowed_values": allowedTypes,
				"provided_value": p,
			}).
			Mark(ierr.ErrConfiguration)
	}

	return nil
}

// IsPerCapacity reports whether the package charges selected modules per MW.
// Per-capacity packages participate in module costing, per-asset minimum
// charges and the discounted-asset override layer.
func (p PackageType) IsPerCapacity() bool {
	return p == PackagePro || p == PackageCustom || p == PackageHybridTiered
}

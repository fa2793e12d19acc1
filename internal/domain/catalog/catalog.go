// Package catalog holds the static pricing definitions: per-capacity
// monitoring modules and one-off or tiered add-on services. A Catalog is
// immutable for the duration of a calculation; per-customer overrides are
// explicit maps merged at call time, never mutation of shared objects.
package catalog

import (
	"sort"

	"github.com/heliobill/heliobill/internal/domain/tier"
	ierr "github.com/heliobill/heliobill/internal/errors"
	"github.com/heliobill/heliobill/internal/types"
	"github.com/shopspring/decimal"
)

// Well-known catalog entry IDs referenced by the calculators.
const (
	// ModuleTechnicalMonitoring is embedded in the on-grid/hybrid rates of
	// the hybrid tiered package and excluded from per-module charging there
	ModuleTechnicalMonitoring = "technical_monitoring"

	// AddonSolcast is the satellite irradiance data feed. It is activated
	// automatically when the capability snapshot flags solcast-enabled
	// assets and meters its tier quantity from the snapshot.
	AddonSolcast = "solcast"
)

// Module is a per-capacity monitoring feature priced in currency units
// per MW per year.
type Module struct {
	ID          string `json:"id" mapstructure:"id"`
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" mapstructure:"description"`

	// AnnualRatePerMW is the annualized rate per MW of managed capacity
	AnnualRatePerMW decimal.Decimal `json:"annual_rate_per_mw" mapstructure:"annual_rate_per_mw"`
}

// Addon is a one-off or recurring service with one of three pricing modes
type Addon struct {
	ID          string                 `json:"id" mapstructure:"id"`
	Name        string                 `json:"name" mapstructure:"name"`
	PricingMode types.AddonPricingMode `json:"pricing_mode" mapstructure:"pricing_mode"`

	// UnitPrice applies when PricingMode is flat
	UnitPrice decimal.Decimal `json:"unit_price,omitempty" mapstructure:"unit_price"`

	// ComplexityPrices applies when PricingMode is complexity
	ComplexityPrices map[types.AddonComplexity]decimal.Decimal `json:"complexity_prices,omitempty" mapstructure:"complexity_prices"`

	// Tiers applies when PricingMode is tiered
	Tiers []tier.Tier `json:"tiers,omitempty" mapstructure:"tiers"`

	// Cadence: recurring add-ons carry a monthly rate and scale by the
	// months in the billing period; onetime add-ons bill once per invoice
	Cadence types.BillingCadence `json:"cadence" mapstructure:"cadence"`

	// AutoActivated add-ons take their quantity from the capability
	// snapshot instead of the selection
	AutoActivated bool `json:"auto_activated,omitempty" mapstructure:"auto_activated"`
}

// IsRecurring reports whether the add-on bills a monthly rate every period
func (a Addon) IsRecurring() bool {
	return a.Cadence == types.BillingCadenceRecurring
}

// Catalog is the immutable set of modules and add-ons a calculation
// resolves against.
type Catalog struct {
	Currency string
	modules  map[string]Module
	addons   map[string]Addon
}

// New builds a catalog from definitions and validates every entry.
func New(currency string, modules []Module, addons []Addon) (*Catalog, error) {
	c := &Catalog{
		Currency: currency,
		modules:  make(map[string]Module, len(modules)),
		addons:   make(map[string]Addon, len(addons)),
	}

	for _, m := range modules {
		if m.ID == "" {
			return nil, ierr.NewError("module without id").
				WithHint("Every catalog module needs an id").
				Mark(ierr.ErrConfiguration)
		}
		if m.AnnualRatePerMW.IsNegative() {
			return nil, ierr.NewError("negative module rate").
				WithReportableDetails(map[string]any{
					"module_id": m.ID,
					"rate":      m.AnnualRatePerMW,
				}).
				Mark(ierr.ErrConfiguration)
		}
		c.modules[m.ID] = m
	}

	for _, a := range addons {
		if a.ID == "" {
			return nil, ierr.NewError("addon without id").
				WithHint("Every catalog addon needs an id").
				Mark(ierr.ErrConfiguration)
		}
		if err := a.PricingMode.Validate(); err != nil {
			return nil, err
		}
		if a.PricingMode == types.AddonPricingTiered {
			if err := tier.Validate(a.Tiers); err != nil {
				return nil, ierr.WithError(err).
					WithHintf("addon %s has a malformed tier table", a.ID).
					Mark(ierr.ErrConfiguration)
			}
		}
		if a.PricingMode == types.AddonPricingComplexity && len(a.ComplexityPrices) == 0 {
			return nil, ierr.NewError("complexity addon without complexity prices").
				WithReportableDetails(map[string]any{
					"addon_id": a.ID,
				}).
				Mark(ierr.ErrConfiguration)
		}
		c.addons[a.ID] = a
	}

	return c, nil
}

// Module looks up a module definition by ID
func (c *Catalog) Module(id string) (Module, bool) {
	m, ok := c.modules[id]
	return m, ok
}

// Addon looks up an addon definition by ID
func (c *Catalog) Addon(id string) (Addon, bool) {
	a, ok := c.addons[id]
	return a, ok
}

// Modules returns all module definitions ordered by ID so calculation
// output stays reproducible
func (c *Catalog) Modules() []Module {
	out := make([]Module, 0, len(c.modules))
	for _, m := range c.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Addons returns all addon definitions ordered by ID so calculation
// output stays reproducible
func (c *Catalog) Addons() []Addon {
	out := make([]Addon, 0, len(c.addons))
	for _, a := range c.addons {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// WithModuleRates returns a copy of the catalog with the given per-module
// annual rates replaced. The receiver is left untouched.
func (c *Catalog) WithModuleRates(overrides map[string]decimal.Decimal) (*Catalog, error) {
	if len(overrides) == 0 {
		return c, nil
	}

	next := &Catalog{
		Currency: c.Currency,
		modules:  make(map[string]Module, len(c.modules)),
		addons:   c.addons,
	}
	for id, m := range c.modules {
		next.modules[id] = m
	}

	for id, rate := range overrides {
		m, ok := next.modules[id]
		if !ok {
			return nil, ierr.NewError("price override for unknown module").
				WithHint("Module price overrides must reference catalog modules").
				WithReportableDetails(map[string]any{
					"module_id": id,
				}).
				Mark(ierr.ErrValidation)
		}
		if rate.IsNegative() {
			return nil, ierr.NewError("negative module rate override").
				WithReportableDetails(map[string]any{
					"module_id": id,
					"rate":      rate,
				}).
				Mark(ierr.ErrValidation)
		}
		m.AnnualRatePerMW = rate
		next.modules[id] = m
	}

	return next, nil
}

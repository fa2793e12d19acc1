package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/heliobill/heliobill/internal/domain/pricing"
	ierr "github.com/heliobill/heliobill/internal/errors"
	"github.com/heliobill/heliobill/internal/logger"
	"github.com/heliobill/heliobill/internal/types"
	"github.com/shopspring/decimal"
)

// textBreakdownGenerator renders a calculation into a plain-text support
// document, one file per contract. It is the default DocumentGenerator;
// deployments with their own document pipeline supply a replacement.
type textBreakdownGenerator struct {
	dir    string
	logger *logger.Logger
}

func NewTextBreakdownGenerator(dir string, logger *logger.Logger) DocumentGenerator {
	return &textBreakdownGenerator{dir: dir, logger: logger}
}

func (g *textBreakdownGenerator) BuildBreakdown(ctx context.Context, contractID string, result *pricing.CalculationResult) error {
	path := filepath.Join(g.dir, fmt.Sprintf("%s.txt", contractID))

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return ierr.WithError(err).
			WithHintf("failed to create breakdown directory %s", g.dir).
			Mark(ierr.ErrSystem)
	}

	if err := os.WriteFile(path, []byte(RenderBreakdown(result)), 0o644); err != nil {
		return ierr.WithError(err).
			WithHintf("failed to write breakdown for contract %s", contractID).
			Mark(ierr.ErrSystem)
	}

	g.logger.Debugw("breakdown document written",
		"contract_id", contractID,
		"path", path)
	return nil
}

// RenderBreakdown formats a calculation result as readable text, every
// populated category in invoice order.
func RenderBreakdown(result *pricing.CalculationResult) string {
	cfg := types.GetCurrencyConfig(result.Currency)
	money := func(amount decimal.Decimal) string {
		return fmt.Sprintf("%s%s", cfg.Symbol, amount.StringFixed(cfg.Precision))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Invoice period: %s\n", result.InvoicePeriod)
	fmt.Fprintf(&b, "Package: %s\n\n", result.PackageType)

	if result.StarterPackageCost.GreaterThan(decimal.Zero) {
		fmt.Fprintf(&b, "Starter package  %s\n", money(result.StarterPackageCost))
	}

	for _, m := range result.ModuleCosts {
		fmt.Fprintf(&b, "%s  %s MW  %s\n", m.Name, m.CapacityMW, money(m.Cost))
	}

	if h := result.HybridBreakdown; h != nil {
		fmt.Fprintf(&b, "On-grid capacity  %s MW at %s/MW  %s\n", h.OnGridMW, money(h.OnGridRatePerMW), money(h.OnGridCost))
		fmt.Fprintf(&b, "Hybrid capacity  %s MW at %s/MW  %s\n", h.HybridMW, money(h.HybridRatePerMW), money(h.HybridCost))
	}

	for _, g := range result.GraduatedTiers {
		fmt.Fprintf(&b, "%s  %s MW  %s\n", g.Label, g.MWInTier, money(g.Cost))
	}

	if t := result.ThresholdBreakdown; t != nil {
		fmt.Fprintf(&b, "Below threshold  %d sites, %s MW  %s\n", t.BelowCount, t.BelowMW, money(t.BelowCost))
		fmt.Fprintf(&b, "Above threshold  %d sites, %s MW  %s\n", t.AboveCount, t.AboveMW, money(t.AboveCost))
		if t.MinimumCount > 0 {
			fmt.Fprintf(&b, "At site minimum  %d sites  %s\n", t.MinimumCount, money(t.MinimumCost))
		}
	}

	if s := result.SiteFeeBreakdown; s != nil {
		fmt.Fprintf(&b, "Site fee  %d sites at %s  %s\n", s.SiteCount, money(s.PerSiteFee), money(s.Cost))
	}

	if p := result.PerSiteBreakdown; p != nil {
		if p.OnboardingCount > 0 {
			fmt.Fprintf(&b, "Site onboarding  %d sites  %s\n", p.OnboardingCount, money(p.OnboardingSubtotal))
		}
		if p.AnnualCount > 0 {
			fmt.Fprintf(&b, "Annual renewals  %d sites  %s\n", p.AnnualCount, money(p.AnnualSubtotal))
		}
	}

	if m := result.MinimumCharges; m != nil && m.SitesOnMinimum > 0 {
		fmt.Fprintf(&b, "Sites lifted to minimum charge  %d of %d\n",
			m.SitesOnMinimum, m.SitesOnMinimum+m.SitesAboveMinimum)
	}

	for _, d := range result.DiscountedAssets {
		fmt.Fprintf(&b, "%s (custom pricing)  %s\n", d.Name, money(d.Cost))
	}

	if result.PortfolioDiscountAmount.GreaterThan(decimal.Zero) {
		fmt.Fprintf(&b, "Portfolio discount  %s%%  -%s\n",
			result.PortfolioDiscountPercent, money(result.PortfolioDiscountAmount))
	}

	if result.MinimumContractAdjustment.GreaterThan(decimal.Zero) {
		fmt.Fprintf(&b, "Minimum contract adjustment  %s\n", money(result.MinimumContractAdjustment))
	}

	if result.RetainerCost.GreaterThan(decimal.Zero) {
		fmt.Fprintf(&b, "Retainer hours  %s\n", money(result.RetainerCost))
	}

	for _, a := range result.AddonCosts {
		fmt.Fprintf(&b, "%s  x%s  %s\n", a.Name, a.Quantity, money(a.Cost))
	}

	fmt.Fprintf(&b, "\nTotal  %s\n", money(result.TotalPrice))
	fmt.Fprintf(&b, "Recurring (ARR)  %s\n", money(result.ARRAmount))
	fmt.Fprintf(&b, "Non-recurring (NRR)  %s\n", money(result.NRRAmount))

	for _, w := range result.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}

	return b.String()
}

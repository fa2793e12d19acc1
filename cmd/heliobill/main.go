package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/heliobill/heliobill/internal/config"
	"github.com/heliobill/heliobill/internal/domain/catalog"
	"github.com/heliobill/heliobill/internal/domain/contract"
	"github.com/heliobill/heliobill/internal/domain/pricing"
	"github.com/heliobill/heliobill/internal/domain/schedule"
	"github.com/heliobill/heliobill/internal/logger"
	"github.com/heliobill/heliobill/internal/service"
	"github.com/heliobill/heliobill/internal/validator"
	"github.com/shopspring/decimal"
)

// previewInput is the JSON body of a pricing preview: a contract plus the
// snapshot and invoice date to price it against.
type previewInput struct {
	Contract     contract.Contract           `json:"contract"`
	Snapshot     *pricing.CapabilitySnapshot `json:"snapshot,omitempty"`
	InvoiceDate  time.Time                   `json:"invoice_date"`
	FirstInvoice bool                        `json:"first_invoice"`
}

func main() {
	contractPath := flag.String("contract", "", "path to the contract preview JSON file")
	catalogPath := flag.String("catalog", "", "path to a pricing catalog YAML file (optional)")
	asText := flag.Bool("text", false, "print a readable breakdown instead of JSON")
	flag.Parse()

	if err := run(*contractPath, *catalogPath, *asText); err != nil {
		fmt.Fprintf(os.Stderr, "heliobill: %v\n", err)
		os.Exit(1)
	}
}

func run(contractPath, catalogPath string, asText bool) error {
	if contractPath == "" {
		return fmt.Errorf("missing required -contract flag")
	}

	validator.NewValidator()

	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		return err
	}

	if catalogPath == "" {
		catalogPath = cfg.Catalog.Path
	}
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(contractPath)
	if err != nil {
		return err
	}

	var input previewInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("malformed preview input: %w", err)
	}
	if input.InvoiceDate.IsZero() {
		input.InvoiceDate = time.Now().UTC()
	}
	if input.Contract.Currency == "" {
		input.Contract.Currency = cfg.Billing.DefaultCurrency
	}
	if err := input.Contract.Validate(); err != nil {
		return err
	}

	result, err := preview(context.Background(), log, cat, input)
	if err != nil {
		return err
	}

	if asText {
		fmt.Print(service.RenderBreakdown(result))
		return nil
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func preview(ctx context.Context, log *logger.Logger, cat *catalog.Catalog, input previewInput) (*pricing.CalculationResult, error) {
	con := input.Contract

	multiplier, err := schedule.FrequencyMultiplier(con.BillingFrequency)
	if err != nil {
		return nil, err
	}
	if input.FirstInvoice && con.SignedDate != nil {
		multiplier, err = schedule.ProrationMultiplier(*con.SignedDate, input.InvoiceDate, con.BillingFrequency)
		if err != nil {
			return nil, err
		}
	}

	months, err := schedule.PeriodMonths(con.BillingFrequency)
	if err != nil {
		return nil, err
	}

	totalMW := decimal.Zero
	if input.Snapshot != nil {
		totalMW = input.Snapshot.TotalMW
	}

	params := pricing.CalculationParams{
		PackageType:             con.PackageType,
		Currency:                con.Currency,
		BillingFrequency:        con.BillingFrequency,
		FrequencyMultiplier:     multiplier,
		PeriodMonths:            months,
		InvoiceDate:             input.InvoiceDate,
		TotalMW:                 totalMW,
		SelectedModuleIDs:       con.SelectedModuleIDs,
		SelectedAddons:          con.SelectedAddons,
		ModuleRateOverrides:     con.ModuleRateOverrides,
		MinimumAnnualValue:      con.MinimumAnnualValue,
		BaseMonthlyPrice:        con.BaseMonthlyPrice,
		MinimumCharge:           con.MinimumCharge,
		MinimumChargeTiers:      con.MinimumChargeTiers,
		PerAssetMinimums:        con.PerAssetMinimums,
		DiscountTiers:           con.DiscountTiers,
		Snapshot:                input.Snapshot,
		OnGridRatePerMW:         con.OnGridRatePerMW,
		HybridRatePerMW:         con.HybridRatePerMW,
		GraduatedTiers:          con.GraduatedTiers,
		ThresholdKWp:            con.ThresholdKWp,
		BelowThresholdRatePerMW: con.BelowThresholdRatePerMW,
		AboveThresholdRatePerMW: con.AboveThresholdRatePerMW,
		PerSiteMinimum:          con.PerSiteMinimum,
		SiteFeeTiers:            con.SiteFeeTiers,
		OnboardingFee:           con.OnboardingFee,
		AnnualSiteFee:           con.AnnualSiteFee,
		SiteChargeFrequency:     con.SiteChargeFrequency,
		RetainerHours:           con.RetainerHours,
		RetainerHourlyRate:      con.RetainerHourlyRate,
		RetainerMinimumValue:    con.RetainerMinimumValue,
	}

	return pricing.NewCalculator(log).Calculate(ctx, cat, params)
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/heliobill/heliobill/internal/api/dto"
	"github.com/heliobill/heliobill/internal/domain/catalog"
	"github.com/heliobill/heliobill/internal/domain/contract"
	"github.com/heliobill/heliobill/internal/domain/pricing"
	"github.com/heliobill/heliobill/internal/domain/schedule"
	ierr "github.com/heliobill/heliobill/internal/errors"
	"github.com/heliobill/heliobill/internal/logger"
	"github.com/heliobill/heliobill/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ServiceParams holds the dependencies every billing service needs
type ServiceParams struct {
	Logger     *logger.Logger
	Catalog    *catalog.Catalog
	Calculator pricing.Calculator

	UsageSource UsageSource
	InvoiceSink InvoiceSink
	DocGen      DocumentGenerator
}

// BillingService turns a contract plus a period's metered usage into an
// itemized calculation and, on invoice creation, an invoice request for
// the sink.
type BillingService interface {
	// CalculateInvoice runs the pricing engine for one contract and
	// invoice date. Used for previews and as the first half of invoicing.
	CalculateInvoice(ctx context.Context, con *contract.Contract, invoiceDate time.Time, firstInvoice bool) (*pricing.CalculationResult, error)

	// PrepareInvoiceRequest converts a calculation into a complete invoice
	// request with classified line items.
	PrepareInvoiceRequest(ctx context.Context, con *contract.Contract, result *pricing.CalculationResult, invoiceDate time.Time) (*dto.CreateInvoiceRequest, error)

	// CreateInvoice calculates, prepares and submits an invoice, then
	// hands the snapshot to the document generator.
	CreateInvoice(ctx context.Context, con *contract.Contract, invoiceDate time.Time, firstInvoice bool) (*dto.CreateInvoiceRequest, error)
}

type billingService struct {
	ServiceParams
}

func NewBillingService(params ServiceParams) BillingService {
	return &billingService{ServiceParams: params}
}

func (s *billingService) CalculateInvoice(ctx context.Context, con *contract.Contract, invoiceDate time.Time, firstInvoice bool) (*pricing.CalculationResult, error) {
	if err := con.Validate(); err != nil {
		return nil, err
	}

	snapshot, err := s.UsageSource.GetSnapshot(ctx, con.ID, invoiceDate)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("failed to resolve capability snapshot for contract %s", con.ID).
			Mark(ierr.ErrDataGap)
	}

	multiplier, err := s.resolveMultiplier(con, invoiceDate, firstInvoice)
	if err != nil {
		return nil, err
	}

	months, err := schedule.PeriodMonths(con.BillingFrequency)
	if err != nil {
		return nil, err
	}

	totalMW := decimal.Zero
	if snapshot != nil {
		totalMW = snapshot.TotalMW
	}

	params := pricing.CalculationParams{
		PackageType:             con.PackageType,
		Currency:                con.Currency,
		BillingFrequency:        con.BillingFrequency,
		FrequencyMultiplier:     multiplier,
		PeriodMonths:            months,
		InvoiceDate:             invoiceDate,
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
		Snapshot:                snapshot,
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

	result, err := s.Calculator.Calculate(ctx, s.Catalog, params)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("invoice calculated",
		"contract_id", con.ID,
		"package_type", con.PackageType,
		"invoice_date", invoiceDate,
		"total_price", result.TotalPrice,
		"warnings", len(result.Warnings))

	return result, nil
}

// resolveMultiplier picks the effective period multiplier: the
// first-invoice proration multiplier when the signing date falls
// mid-period, the plain frequency multiplier otherwise. The two are never
// stacked.
func (s *billingService) resolveMultiplier(con *contract.Contract, invoiceDate time.Time, firstInvoice bool) (decimal.Decimal, error) {
	if firstInvoice && con.SignedDate != nil {
		return schedule.ProrationMultiplier(*con.SignedDate, invoiceDate, con.BillingFrequency)
	}
	return schedule.FrequencyMultiplier(con.BillingFrequency)
}

func (s *billingService) PrepareInvoiceRequest(ctx context.Context, con *contract.Contract, result *pricing.CalculationResult, invoiceDate time.Time) (*dto.CreateInvoiceRequest, error) {
	periodStart, periodEnd, err := schedule.PeriodBounds(invoiceDate, con.BillingFrequency)
	if err != nil {
		return nil, err
	}

	req := &dto.CreateInvoiceRequest{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		ContractID:    con.ID,
		CustomerID:    con.CustomerID,
		Currency:      result.Currency,
		AmountDue:     result.TotalPrice,
		InvoiceDate:   invoiceDate,
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		PeriodDisplay: result.InvoicePeriod,
		LineItems:     s.buildLineItems(result, periodStart, periodEnd),
		Metadata: types.Metadata{
			"package_type":   con.PackageType.String(),
			"calculation_id": types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CALCULATION),
		},
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// buildLineItems flattens the calculation categories into sink line items.
// Every line carries its ARR/NRR class; the sum of all lines equals the
// calculation's total price.
func (s *billingService) buildLineItems(result *pricing.CalculationResult, periodStart, periodEnd time.Time) []dto.CreateInvoiceLineItemRequest {
	items := make([]dto.CreateInvoiceLineItemRequest, 0)
	add := func(name string, amount, quantity decimal.Decimal, class types.ChargeClass, meta types.Metadata) {
		if amount.IsZero() {
			return
		}
		items = append(items, dto.CreateInvoiceLineItemRequest{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
			DisplayName: name,
			Amount:      amount,
			Quantity:    quantity,
			ChargeClass: class,
			PeriodStart: lo.ToPtr(periodStart),
			PeriodEnd:   lo.ToPtr(periodEnd),
			Metadata:    meta,
		})
	}

	one := decimal.NewFromInt(1)

	add("Starter Package", result.StarterPackageCost, one, types.ChargeClassARR, nil)

	// Per-asset minimum, hybrid, graduated, threshold and discounted
	// capacity bases bill as one consolidated line whose amount already
	// reflects minimums and discounts; module lines only itemize when they
	// sum to the base exactly.
	consolidated := result.MinimumCharges != nil ||
		result.HybridBreakdown != nil ||
		len(result.GraduatedTiers) > 0 ||
		result.ThresholdBreakdown != nil ||
		result.PortfolioDiscountAmount.GreaterThan(decimal.Zero)

	if consolidated {
		meta := types.Metadata{}
		if result.PortfolioDiscountAmount.GreaterThan(decimal.Zero) {
			meta["portfolio_discount_percent"] = result.PortfolioDiscountPercent.String()
		}
		add("Managed Capacity", result.TotalMWCost, one, types.ChargeClassARR, meta)
	} else {
		for _, m := range result.ModuleCosts {
			add(m.Name, m.Cost, m.CapacityMW, types.ChargeClassARR, types.Metadata{
				"module_id": m.ModuleID,
			})
		}
	}

	if result.SiteFeeBreakdown != nil {
		add("Per-Site Fee", result.SiteFeeBreakdown.Cost,
			decimal.NewFromInt(int64(result.SiteFeeBreakdown.SiteCount)), types.ChargeClassARR, types.Metadata{
				"per_site_fee": result.SiteFeeBreakdown.PerSiteFee.String(),
			})
	}

	if result.PerSiteBreakdown != nil {
		add("Site Onboarding", result.PerSiteBreakdown.OnboardingSubtotal,
			decimal.NewFromInt(int64(result.PerSiteBreakdown.OnboardingCount)), types.ChargeClassNRR, nil)
		add("Annual Site Renewal", result.PerSiteBreakdown.AnnualSubtotal,
			decimal.NewFromInt(int64(result.PerSiteBreakdown.AnnualCount)), types.ChargeClassARR, nil)
	}

	for _, d := range result.DiscountedAssets {
		add(fmt.Sprintf("Custom Pricing: %s", d.Name), d.Cost, d.CapacityMW, types.ChargeClassARR, types.Metadata{
			"asset_id": d.AssetID,
		})
	}

	add("Minimum Contract Adjustment", result.MinimumContractAdjustment, one, types.ChargeClassARR, nil)
	add("Retainer Hours", result.RetainerCost, one, types.ChargeClassARR, nil)

	for _, a := range result.AddonCosts {
		class := types.ChargeClassNRR
		if a.Cadence == types.BillingCadenceRecurring {
			class = types.ChargeClassARR
		}
		add(a.Name, a.Cost, a.Quantity, class, types.Metadata{
			"addon_id": a.AddonID,
		})
	}

	return items
}

func (s *billingService) CreateInvoice(ctx context.Context, con *contract.Contract, invoiceDate time.Time, firstInvoice bool) (*dto.CreateInvoiceRequest, error) {
	result, err := s.CalculateInvoice(ctx, con, invoiceDate, firstInvoice)
	if err != nil {
		return nil, err
	}

	req, err := s.PrepareInvoiceRequest(ctx, con, result, invoiceDate)
	if err != nil {
		return nil, err
	}

	if err := s.InvoiceSink.Submit(ctx, req); err != nil {
		return nil, ierr.WithError(err).
			WithHintf("invoice submission failed for contract %s", con.ID).
			Mark(ierr.ErrSystem)
	}

	if s.DocGen != nil {
		if err := s.DocGen.BuildBreakdown(ctx, con.ID, result); err != nil {
			// The breakdown document is best effort and never blocks the
			// invoice itself.
			s.Logger.Warnw("breakdown document generation failed",
				"contract_id", con.ID,
				"error", err)
		}
	}

	return req, nil
}

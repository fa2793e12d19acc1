// Package schedule converts billing frequencies and contract dates into
// the multipliers applied to annualized rates.
package schedule

import (
	"fmt"
	"time"

	ierr "github.com/heliobill/heliobill/internal/errors"
	"github.com/heliobill/heliobill/internal/types"
	"github.com/shopspring/decimal"
)

var (
	twelve = decimal.NewFromInt(12)
	one    = decimal.NewFromInt(1)
)

// FrequencyMultiplier maps a billing frequency to the fraction of the
// annualized rate billed per period: monthly 1/12, quarterly 1/4,
// biannual 1/2, annual 1.
func FrequencyMultiplier(frequency types.BillingFrequency) (decimal.Decimal, error) {
	months, err := PeriodMonths(frequency)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(int64(months)).Div(twelve), nil
}

// PeriodMonths is the integer month count of one billing period,
// used for display and for monthly-rate add-on scaling.
func PeriodMonths(frequency types.BillingFrequency) (int, error) {
	switch frequency {
	case types.BillingFrequencyMonthly:
		return 1, nil
	case types.BillingFrequencyQuarterly:
		return 3, nil
	case types.BillingFrequencyBiannual:
		return 6, nil
	case types.BillingFrequencyAnnual:
		return 12, nil
	default:
		return 0, ierr.NewError("invalid billing frequency").
			WithHint("Billing frequency must be monthly, quarterly, biannual or annual").
			WithReportableDetails(map[string]any{
				"provided_value": frequency,
			}).
			Mark(ierr.ErrValidation)
	}
}

// periodDays is the standard day count of one billing period, used as the
// proration denominator.
func periodDays(frequency types.BillingFrequency) (int, error) {
	switch frequency {
	case types.BillingFrequencyMonthly:
		return 30, nil
	case types.BillingFrequencyQuarterly:
		return 91, nil
	case types.BillingFrequencyBiannual:
		return 182, nil
	case types.BillingFrequencyAnnual:
		return 365, nil
	default:
		return 0, ierr.NewError("invalid billing frequency").
			WithReportableDetails(map[string]any{
				"provided_value": frequency,
			}).
			Mark(ierr.ErrValidation)
	}
}

// ProrationMultiplier computes the multiplier for a contract's very first
// invoice when the signing date falls mid-period:
//
//	min(1, daysBetween(signedDate, firstInvoiceDate) / daysInStandardPeriod)
//
// It replaces the plain frequency multiplier for that invoice, never
// stacks with it. If firstInvoiceDate <= signedDate the result is zero.
func ProrationMultiplier(signedDate, firstInvoiceDate time.Time, frequency types.BillingFrequency) (decimal.Decimal, error) {
	days, err := periodDays(frequency)
	if err != nil {
		return decimal.Zero, err
	}

	if !firstInvoiceDate.After(signedDate) {
		return decimal.Zero, nil
	}

	elapsed := daysBetween(signedDate, firstInvoiceDate)
	multiplier := decimal.NewFromInt(int64(elapsed)).Div(decimal.NewFromInt(int64(days)))
	return decimal.Min(one, multiplier), nil
}

// daysBetween counts calendar days from start (inclusive) to end
// (exclusive), normalizing both to midnight UTC.
func daysBetween(start, end time.Time) int {
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(endDay.Sub(startDay).Hours() / 24)
}

// PeriodLabel renders the invoice period as display text,
// ex "01 Mar 2026 - 31 May 2026" for a quarterly invoice.
func PeriodLabel(invoiceDate time.Time, frequency types.BillingFrequency) (string, error) {
	months, err := PeriodMonths(frequency)
	if err != nil {
		return "", err
	}

	end := invoiceDate.AddDate(0, months, 0).AddDate(0, 0, -1)
	return fmt.Sprintf("%s - %s",
		invoiceDate.Format("02 Jan 2006"),
		end.Format("02 Jan 2006"),
	), nil
}

// PeriodBounds returns the [start, end) bounds of the invoice period
// beginning at invoiceDate.
func PeriodBounds(invoiceDate time.Time, frequency types.BillingFrequency) (time.Time, time.Time, error) {
	months, err := PeriodMonths(frequency)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return invoiceDate, invoiceDate.AddDate(0, months, 0), nil
}

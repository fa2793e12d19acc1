package types

import "strings"

// CurrencyConfig holds the display configuration for a currency
type CurrencyConfig struct {
	Symbol    string
	Precision int32
}

// DEFAULT_FLOATING_PRECISION is the fallback precision for unknown currencies
const DEFAULT_FLOATING_PRECISION = 2

// currencyConfigs maps 3 digit ISO currency codes (lowercase) to their config
var currencyConfigs = map[string]CurrencyConfig{
	"eur": {Symbol: "€", Precision: 2},
	"usd": {Symbol: "$", Precision: 2},
	"gbp": {Symbol: "£", Precision: 2},
	"aud": {Symbol: "AU$", Precision: 2},
	"chf": {Symbol: "CHF", Precision: 2},
	"sek": {Symbol: "kr", Precision: 2},
	"zar": {Symbol: "R", Precision: 2},
	"aed": {Symbol: "AED", Precision: 2},
	"inr": {Symbol: "₹", Precision: 2},
	"jpy": {Symbol: "¥", Precision: 0},
}

// GetCurrencyConfig returns the config for a given currency code,
// falling back to the code itself as symbol for unknown currencies
func GetCurrencyConfig(code string) CurrencyConfig {
	if config, ok := currencyConfigs[strings.ToLower(code)]; ok {
		return config
	}
	return CurrencyConfig{Symbol: code, Precision: DEFAULT_FLOATING_PRECISION}
}

// GetCurrencySymbol returns the symbol for a given currency code
func GetCurrencySymbol(code string) string {
	return GetCurrencyConfig(code).Symbol
}

// GetCurrencyPrecision returns the display precision for a given currency code
func GetCurrencyPrecision(code string) int32 {
	return GetCurrencyConfig(code).Precision
}

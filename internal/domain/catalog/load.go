package catalog

import (
	"reflect"

	ierr "github.com/heliobill/heliobill/internal/errors"
	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// catalogFile mirrors the on-disk catalog layout
type catalogFile struct {
	Currency string   `mapstructure:"currency"`
	Modules  []Module `mapstructure:"modules"`
	Addons   []Addon  `mapstructure:"addons"`
}

// Load reads a catalog definition from a YAML file and validates it. An
// empty path returns the built-in default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, ierr.WithError(err).
			WithHintf("failed to read pricing catalog from %s", path).
			Mark(ierr.ErrConfiguration)
	}

	var file catalogFile
	if err := v.Unmarshal(&file, viper.DecodeHook(decimalDecodeHook())); err != nil {
		return nil, ierr.WithError(err).
			WithHintf("malformed pricing catalog in %s", path).
			Mark(ierr.ErrConfiguration)
	}

	if file.Currency == "" {
		file.Currency = "EUR"
	}

	return New(file.Currency, file.Modules, file.Addons)
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// decimalDecodeHook parses numbers and numeric strings into
// decimal.Decimal during unmarshalling.
func decimalDecodeHook() mapstructure.DecodeHookFuncType {
	return func(_, to reflect.Type, data interface{}) (interface{}, error) {
		if to != decimalType {
			return data, nil
		}
		switch value := data.(type) {
		case string:
			return decimal.NewFromString(value)
		case float64:
			return decimal.NewFromFloat(value), nil
		case int:
			return decimal.NewFromInt(int64(value)), nil
		case int64:
			return decimal.NewFromInt(value), nil
		default:
			return data, nil
		}
	}
}

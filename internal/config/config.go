package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Configuration struct {
	Logging LoggingConfig `validate:"required"`
	Catalog CatalogConfig
	Billing BillingConfig
}

type LoggingConfig struct {
	Level string `validate:"required"`
}

// CatalogConfig points at the pricing catalog file. When Path is empty the
// built-in default catalog is used.
type CatalogConfig struct {
	Path string
}

type BillingConfig struct {
	// DefaultCurrency applies to contracts that carry no currency of
	// their own
	DefaultCurrency string `validate:"omitempty,len=3"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/heliobill")

	v.SetEnvPrefix("HELIOBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	v.SetDefault("logging.level", "info")
	v.SetDefault("billing.defaultcurrency", "EUR")

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a configuration for local development and
// scripts that skip file loading entirely.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Logging: LoggingConfig{Level: "debug"},
		Billing: BillingConfig{DefaultCurrency: "EUR"},
	}
}

package config

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/service"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

type commissionFile struct {
	DefaultRate string            `mapstructure:"default_rate"`
	Rates       map[string]string `mapstructure:"rates"`
}

// LoadCommissionRates reads per-type commission percentages from a YAML file:
//
//	default_rate: "10"
//	rates:
//	  reservation_payment: "8.5"
//
// An empty path yields the platform default for every type.
func LoadCommissionRates(path string) (service.StaticRates, error) {
	rates := service.StaticRates{Default: service.DefaultCommissionRate, ByType: map[string]decimal.Decimal{}}
	if path == "" {
		return rates, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return rates, fmt.Errorf("read commission config: %w", err)
	}
	var file commissionFile
	if err := v.Unmarshal(&file); err != nil {
		return rates, fmt.Errorf("decode commission config: %w", err)
	}

	if file.DefaultRate != "" {
		d, err := parseRate(file.DefaultRate)
		if err != nil {
			return rates, fmt.Errorf("default_rate: %w", err)
		}
		rates.Default = d
	}
	for name, raw := range file.Rates {
		typ, err := valueobject.NewTransactionType(name)
		if err != nil {
			return rates, fmt.Errorf("rates: %w", err)
		}
		d, err := parseRate(raw)
		if err != nil {
			return rates, fmt.Errorf("rates.%s: %w", name, err)
		}
		rates.ByType[typ.String()] = d
	}
	return rates, nil
}

func parseRate(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, fmt.Errorf("rate %s outside 0..100", raw)
	}
	return d, nil
}

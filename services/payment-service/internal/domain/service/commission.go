package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/money"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

// DefaultCommissionRate is the platform commission in percent.
var DefaultCommissionRate = decimal.NewFromInt(10)

var hundred = decimal.NewFromInt(100)

// RatePolicy resolves the commission rate for a transaction type.
type RatePolicy interface {
	RateFor(typ valueobject.TransactionType) decimal.Decimal
}

// StaticRates is a RatePolicy backed by a fixed table.
type StaticRates struct {
	Default decimal.Decimal
	ByType  map[string]decimal.Decimal
}

// RateFor returns the per-type override, else the default, else DefaultCommissionRate.
func (r StaticRates) RateFor(typ valueobject.TransactionType) decimal.Decimal {
	if rate, ok := r.ByType[typ.String()]; ok {
		return rate
	}
	if !r.Default.IsZero() {
		return r.Default
	}
	return DefaultCommissionRate
}

// CommissionCalculator splits a payment between the platform and the seller.
type CommissionCalculator struct {
	rates RatePolicy
}

func NewCommissionCalculator(rates RatePolicy) *CommissionCalculator {
	if rates == nil {
		rates = StaticRates{Default: DefaultCommissionRate}
	}
	return &CommissionCalculator{rates: rates}
}

// SplitFor computes the split of amount at the rate configured for typ.
func (c *CommissionCalculator) SplitFor(typ valueobject.TransactionType, amount money.Money) (valueobject.CommissionSplit, error) {
	return c.Split(amount, c.rates.RateFor(typ))
}

// Split computes the commission at rate percent, rounded half away from zero
// to the currency's minor unit. The seller share is derived by subtraction so
// the two parts always add up to amount exactly.
func (c *CommissionCalculator) Split(amount money.Money, rate decimal.Decimal) (valueobject.CommissionSplit, error) {
	if amount.IsNegative() {
		return valueobject.CommissionSplit{}, fmt.Errorf("amount must not be negative, got: %s", amount)
	}
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return valueobject.CommissionSplit{}, fmt.Errorf("commission rate must be within [0, 100], got: %s", rate)
	}

	commission := amount.Percent(rate)
	seller, err := amount.Subtract(commission)
	if err != nil {
		return valueobject.CommissionSplit{}, fmt.Errorf("failed to derive seller share: %w", err)
	}
	return valueobject.CommissionSplit{
		Rate:           rate,
		Commission:     commission.Amount(),
		SellerReceives: seller.Amount(),
	}, nil
}

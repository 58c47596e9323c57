package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CommissionSplit is the platform/seller division of a payment amount.
// Commission+SellerReceives always equals the amount it was computed from.
type CommissionSplit struct {
	Rate           decimal.Decimal // percentage, 0..100
	Commission     decimal.Decimal
	SellerReceives decimal.Decimal
}

// Total is the amount the split was computed from.
func (c CommissionSplit) Total() decimal.Decimal {
	return c.Commission.Add(c.SellerReceives)
}

func (c CommissionSplit) String() string {
	return fmt.Sprintf("rate=%s%% commission=%s seller=%s", c.Rate, c.Commission.StringFixed(2), c.SellerReceives.StringFixed(2))
}

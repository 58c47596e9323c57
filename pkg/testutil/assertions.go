package testutil

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// AssertDecimal compares a decimal against its string form, ignoring trailing zeros.
func AssertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) bool {
	t.Helper()
	return assert.Truef(t, decimal.RequireFromString(want).Equal(got),
		"expected %s, got %s %v", want, got.String(), msgAndArgs)
}

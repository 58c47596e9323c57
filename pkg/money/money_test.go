package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewCurrency(t *testing.T) {
	for _, code := range []string{"TRY", "USD", "EUR", "JPY"} {
		c, err := NewCurrency(code)
		if err != nil {
			t.Errorf("NewCurrency(%q) unexpected error: %v", code, err)
		}
		if c.Code() != code {
			t.Errorf("NewCurrency(%q).Code() = %q", code, c.Code())
		}
	}

	for _, code := range []string{"", "try", "Try", "TR", "TRYY", "TR1"} {
		if _, err := NewCurrency(code); err == nil {
			t.Errorf("NewCurrency(%q) expected error", code)
		}
	}
}

func TestMustCurrency_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustCurrency(\"bad\") did not panic")
		}
	}()
	MustCurrency("bad")
}

func TestMinorUnits(t *testing.T) {
	tests := map[string]int32{"TRY": 2, "USD": 2, "JPY": 0, "KWD": 3}
	for code, want := range tests {
		if got := MustCurrency(code).MinorUnits(); got != want {
			t.Errorf("%s minor units = %d, want %d", code, got, want)
		}
	}
}

func TestPercentRoundsHalfUp(t *testing.T) {
	tests := []struct {
		amount string
		pct    string
		want   string
	}{
		{"300.00", "10", "30"},
		{"0.05", "10", "0.01"},  // 0.005 -> 0.01
		{"0.04", "10", "0"},     // 0.004 -> 0.00
		{"10.05", "15", "1.51"}, // 1.5075 -> 1.51
		{"99.99", "12.5", "12.5"},
		{"100", "0", "0"},
		{"100", "100", "100"},
	}
	for _, tt := range tests {
		t.Run(tt.amount+"@"+tt.pct, func(t *testing.T) {
			m, err := NewFromString(tt.amount, "TRY")
			if err != nil {
				t.Fatal(err)
			}
			got := m.Percent(decimal.RequireFromString(tt.pct))
			if !got.Amount().Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Percent = %s, want %s", got.Amount(), tt.want)
			}
		})
	}
}

func TestAddSubtractCurrencyMismatch(t *testing.T) {
	a := New(decimal.NewFromInt(10), TRY)
	b := New(decimal.NewFromInt(5), USD)

	if _, err := a.Add(b); err == nil {
		t.Error("expected mismatch error from Add")
	}
	if _, err := a.Subtract(b); err == nil {
		t.Error("expected mismatch error from Subtract")
	}
	if _, err := a.Cmp(b); err == nil {
		t.Error("expected mismatch error from Cmp")
	}

	diff, err := a.Subtract(New(decimal.NewFromInt(3), TRY))
	if err != nil {
		t.Fatal(err)
	}
	if !diff.Equal(New(decimal.NewFromInt(7), TRY)) {
		t.Errorf("10 - 3 = %s", diff)
	}
}

func TestString(t *testing.T) {
	if got := New(decimal.RequireFromString("300"), TRY).String(); got != "300.00 TRY" {
		t.Errorf("String() = %q", got)
	}
	if got := New(decimal.RequireFromString("1500"), MustCurrency("JPY")).String(); got != "1500 JPY" {
		t.Errorf("String() = %q", got)
	}
}

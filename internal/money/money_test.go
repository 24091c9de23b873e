package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFromStringRoundsToTwoPlaces(t *testing.T) {
	m, err := FromString("10.005")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := m.String(); got != "10.01" {
		t.Fatalf("expected 10.01, got %s", got)
	}
}

func TestFromStringRejectsGarbage(t *testing.T) {
	if _, err := FromString("ten dollars"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestArithmetic(t *testing.T) {
	a := MustFromString("100.00")
	b := MustFromString("60.00")

	if got := a.Sub(b).String(); got != "40.00" {
		t.Fatalf("sub: expected 40.00, got %s", got)
	}
	if got := a.Add(b.Neg()).String(); got != "40.00" {
		t.Fatalf("add neg: expected 40.00, got %s", got)
	}
	if got := b.Neg().Abs().String(); got != "60.00" {
		t.Fatalf("abs: expected 60.00, got %s", got)
	}
}

func TestMulRateRoundsHalfUp(t *testing.T) {
	// 33.33 * 0.25 = 8.3325 -> 8.33, and 10.01 * 0.25 = 2.5025 -> 2.50
	cases := []struct {
		amount string
		rate   string
		want   string
	}{
		{"33.33", "0.25", "8.33"},
		{"100.00", "0.25", "25.00"},
		{"0.10", "0.25", "0.03"}, // 0.025 rounds up
		{"1000.00", "0.0000", "0.00"},
	}
	for _, tc := range cases {
		rate, err := decimal.NewFromString(tc.rate)
		if err != nil {
			t.Fatalf("rate %s: %v", tc.rate, err)
		}
		got := MustFromString(tc.amount).MulRate(rate).String()
		if got != tc.want {
			t.Fatalf("%s * %s: expected %s, got %s", tc.amount, tc.rate, tc.want, got)
		}
	}
}

func TestFromCents(t *testing.T) {
	if got := FromCents(12_345).String(); got != "123.45" {
		t.Fatalf("expected 123.45, got %s", got)
	}
}

func TestComparisons(t *testing.T) {
	a := MustFromString("99.99")
	b := MustFromString("100.00")

	if !a.LessThan(b) || !b.GreaterThan(a) {
		t.Fatal("ordering broken")
	}
	if !b.GreaterThanOrEqual(MustFromString("100.00")) {
		t.Fatal("expected equality to satisfy >=")
	}
	if Zero().IsPositive() || Zero().IsNegative() || !Zero().IsZero() {
		t.Fatal("zero predicates broken")
	}
	if !a.Neg().IsNegative() {
		t.Fatal("expected negative amount")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	out, err := json.Marshal(MustFromString("29.75"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"29.75"` {
		t.Fatalf("expected quoted string, got %s", out)
	}

	var back Money
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(MustFromString("29.75")) {
		t.Fatalf("round trip mismatch: %s", back)
	}

	// Bare numbers are accepted for lenient clients.
	if err := json.Unmarshal([]byte(`15.5`), &back); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if back.String() != "15.50" {
		t.Fatalf("expected 15.50, got %s", back)
	}
}

func TestScan(t *testing.T) {
	var m Money
	if err := m.Scan("42.10"); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if m.String() != "42.10" {
		t.Fatalf("expected 42.10, got %s", m)
	}
	if err := m.Scan([]byte("0.05")); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if m.String() != "0.05" {
		t.Fatalf("expected 0.05, got %s", m)
	}
	if err := m.Scan(struct{}{}); err == nil {
		t.Fatal("expected scan type error")
	}
}

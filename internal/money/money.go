package money

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a fixed-point currency amount with two decimal places. Every
// balance-affecting API in the platform accepts and returns Money; float64
// never crosses a financial boundary.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
func Zero() Money {
	return Money{d: decimal.Zero}
}

// FromString parses a decimal string such as "123.45". The value is rounded
// half-up to two decimal places.
func FromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Money{d: d.Round(2)}, nil
}

// MustFromString is FromString for literals in tests and seeds; it panics on
// malformed input.
func MustFromString(s string) Money {
	m, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromCents builds an amount from an integer number of cents.
func FromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -2)}
}

// FromDecimal rounds an arbitrary decimal to a two-place amount.
func FromDecimal(d decimal.Decimal) Money {
	return Money{d: d.Round(2)}
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{d: m.d.Add(other.d)}
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return Money{d: m.d.Sub(other.d)}
}

// Neg returns -m.
func (m Money) Neg() Money {
	return Money{d: m.d.Neg()}
}

// Abs returns the absolute value of m.
func (m Money) Abs() Money {
	return Money{d: m.d.Abs()}
}

// MulRate multiplies the amount by a rate (e.g. a 0.25 revenue share) and
// rounds half-up to two decimal places.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money{d: m.d.Mul(rate).Round(2)}
}

// Cmp compares two amounts: -1 if m < other, 0 if equal, +1 if m > other.
func (m Money) Cmp(other Money) int {
	return m.d.Cmp(other.d)
}

// Equal reports whether the two amounts are numerically equal.
func (m Money) Equal(other Money) bool {
	return m.d.Equal(other.d)
}

// GreaterThan reports m > other.
func (m Money) GreaterThan(other Money) bool {
	return m.d.GreaterThan(other.d)
}

// GreaterThanOrEqual reports m >= other.
func (m Money) GreaterThanOrEqual(other Money) bool {
	return m.d.GreaterThanOrEqual(other.d)
}

// LessThan reports m < other.
func (m Money) LessThan(other Money) bool {
	return m.d.LessThan(other.d)
}

// IsPositive reports m > 0.
func (m Money) IsPositive() bool {
	return m.d.IsPositive()
}

// IsNegative reports m < 0.
func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

// IsZero reports m == 0.
func (m Money) IsZero() bool {
	return m.d.IsZero()
}

// Decimal exposes the underlying decimal for aggregation math.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// String renders the amount with exactly two decimal places, e.g. "40.00".
func (m Money) String() string {
	return m.d.StringFixed(2)
}

// MarshalJSON encodes the amount as a JSON string, preserving exact value.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either a JSON string ("12.34") or a bare number.
func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var d decimal.Decimal
		if err := json.Unmarshal(data, &d); err != nil {
			return fmt.Errorf("unmarshal money: %w", err)
		}
		m.d = d.Round(2)
		return nil
	}
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer so amounts persist as numeric text.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner for numeric columns.
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		m.d = decimal.Zero
		return nil
	case string:
		parsed, err := FromString(v)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case []byte:
		parsed, err := FromString(string(v))
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case int64:
		m.d = decimal.NewFromInt(v)
		return nil
	case float64:
		m.d = decimal.NewFromFloat(v).Round(2)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", src)
	}
}

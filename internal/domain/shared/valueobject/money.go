package valueobject

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Tolerance is the residual tolerance: amounts within Tolerance of zero are
// treated as settled everywhere residuals are compared.
var Tolerance = decimal.New(1, -2) // 0.01

// Money is a value object representing monetary amounts in EUR with two
// fractional digits. It is immutable - all operations return new instances.
// Rounding is banker's rounding, applied at construction and persistence.
type Money struct {
	amount decimal.Decimal
}

// NewMoney creates Money from a decimal, rounding to two fractional digits
func NewMoney(amount decimal.Decimal) Money {
	return Money{amount: amount.RoundBank(2)}
}

// NewMoneyFromFloat creates Money from a float64 value
func NewMoneyFromFloat(amount float64) Money {
	return NewMoney(decimal.NewFromFloat(amount))
}

// NewMoneyFromString creates Money from a string representation.
// Both "1234.56" and the Italian comma form "1234,56" are accepted.
func NewMoneyFromString(amount string) (Money, error) {
	normalized := amount
	for i := 0; i < len(normalized); i++ {
		if normalized[i] == ',' {
			normalized = normalized[:i] + "." + normalized[i+1:]
			break
		}
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string %q: %w", amount, err)
	}
	return NewMoney(d), nil
}

// Zero returns a zero-value Money
func Zero() Money {
	return Money{amount: decimal.Zero}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// IsZero returns true if the amount is exactly zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsSettled returns true if the amount is within Tolerance of zero.
// This is the "effectively zero" comparison every residual check uses.
func (m Money) IsSettled() bool {
	return m.amount.Abs().LessThanOrEqual(Tolerance)
}

// IsPositive returns true if the amount exceeds Tolerance
func (m Money) IsPositive() bool {
	return m.amount.GreaterThan(Tolerance)
}

// IsNegative returns true if the amount is below -Tolerance
func (m Money) IsNegative() bool {
	return m.amount.LessThan(Tolerance.Neg())
}

// Add returns a new Money with the sum of both amounts
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Sub returns a new Money with the difference of both amounts
func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// Neg returns a new Money with the sign flipped
func (m Money) Neg() Money {
	return Money{amount: m.amount.Neg()}
}

// Abs returns a new Money with the absolute value
func (m Money) Abs() Money {
	return Money{amount: m.amount.Abs()}
}

// Min returns the smaller of the two amounts
func (m Money) Min(other Money) Money {
	if m.amount.LessThan(other.amount) {
		return m
	}
	return other
}

// Cmp compares two amounts: -1 if m < other, 0 if equal, +1 if m > other
func (m Money) Cmp(other Money) int {
	return m.amount.Cmp(other.amount)
}

// GreaterThan returns true if m > other
func (m Money) GreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

// LessThan returns true if m < other
func (m Money) LessThan(other Money) bool {
	return m.amount.LessThan(other.amount)
}

// Equals returns true if the two amounts differ by no more than Tolerance
func (m Money) Equals(other Money) bool {
	return m.amount.Sub(other.amount).Abs().LessThanOrEqual(Tolerance)
}

// String returns the canonical two-digit representation
func (m Money) String() string {
	return m.amount.StringFixedBank(2)
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := NewMoneyFromString(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer so Money persists as its two-digit decimal text
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner
func (m *Money) Scan(value interface{}) error {
	if value == nil {
		*m = Zero()
		return nil
	}
	switch v := value.(type) {
	case string:
		parsed, err := NewMoneyFromString(v)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case []byte:
		parsed, err := NewMoneyFromString(string(v))
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case float64:
		*m = NewMoneyFromFloat(v)
		return nil
	case int64:
		*m = NewMoney(decimal.NewFromInt(v))
		return nil
	default:
		return errors.New("failed to scan Money: unsupported type")
	}
}

// SumMoney adds a slice of amounts
func SumMoney(amounts []Money) Money {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.amount)
	}
	return Money{amount: total}
}

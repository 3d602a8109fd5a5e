package money

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places every amount is normalized to.
const Scale = 2

var (
	ErrNegative      = errors.New("negative_amount")
	ErrInvalidAmount = errors.New("invalid_amount")
)

var hundred = decimal.NewFromInt(100)

// Money is a non-negative amount in the club's single currency, held at cent
// precision. The zero value is 0.00.
type Money struct {
	amount decimal.Decimal
}

// New normalizes d to cents (half away from zero) and rejects negatives.
func New(d decimal.Decimal) (Money, error) {
	d = d.Round(Scale)
	if d.IsNegative() {
		return Money{}, ErrNegative
	}
	return Money{amount: d}, nil
}

func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return New(d)
}

// MustParse is intended for constants and tests.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

func FromCents(cents int64) (Money, error) {
	if cents < 0 {
		return Money{}, ErrNegative
	}
	return Money{amount: decimal.NewFromInt(cents).Div(hundred)}, nil
}

// FromFloat accepts amounts coming from loosely typed input. Prefer Parse.
func FromFloat(f float64) (Money, error) {
	return New(decimal.NewFromFloat(f))
}

func Zero() Money { return Money{} }

func (m Money) Decimal() decimal.Decimal { return m.amount }

func (m Money) Cents() int64 {
	return m.amount.Mul(hundred).Round(0).IntPart()
}

func (m Money) String() string { return m.amount.StringFixed(Scale) }

func (m Money) IsZero() bool { return m.amount.IsZero() }

func (m Money) IsPositive() bool { return m.amount.IsPositive() }

func (m Money) Cmp(other Money) int { return m.amount.Cmp(other.amount) }

func (m Money) Equal(other Money) bool { return m.amount.Equal(other.amount) }

func (m Money) LessThan(other Money) bool { return m.amount.LessThan(other.amount) }

func (m Money) GreaterThan(other Money) bool { return m.amount.GreaterThan(other.amount) }

func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Sub fails with ErrNegative when other exceeds m.
func (m Money) Sub(other Money) (Money, error) {
	out := m.amount.Sub(other.amount)
	if out.IsNegative() {
		return Money{}, ErrNegative
	}
	return Money{amount: out}, nil
}

// Sum adds amounts without intermediate rounding.
func Sum(values ...Money) Money {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v.amount)
	}
	return Money{amount: total}
}

// MarshalJSON writes a JSON number with exactly two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*m = Money{}
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value stores the amount as integer cents.
func (m Money) Value() (driver.Value, error) {
	return m.Cents(), nil
}

func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = Money{}
		return nil
	case int64:
		out, err := FromCents(v)
		if err != nil {
			return err
		}
		*m = out
		return nil
	case float64:
		out, err := FromCents(int64(v))
		if err != nil {
			return err
		}
		*m = out
		return nil
	case []byte:
		return m.scanString(string(v))
	case string:
		return m.scanString(v)
	default:
		return fmt.Errorf("money: cannot scan %T", src)
	}
}

func (m *Money) scanString(s string) error {
	cents, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return fmt.Errorf("money: cannot scan %q: %w", s, err)
	}
	out, err := FromCents(cents)
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// GormDataType keeps the column an integer on every dialect.
func (Money) GormDataType() string { return "bigint" }

// Balance is a signed difference of amounts, such as net income. It is never
// persisted.
type Balance struct {
	amount decimal.Decimal
}

// Net returns income minus expense.
func Net(income, expense Money) Balance {
	return Balance{amount: income.amount.Sub(expense.amount)}
}

func (b Balance) Decimal() decimal.Decimal { return b.amount }

func (b Balance) IsNegative() bool { return b.amount.IsNegative() }

func (b Balance) String() string { return b.amount.StringFixed(Scale) }

func (b Balance) MarshalJSON() ([]byte, error) {
	return []byte(b.String()), nil
}

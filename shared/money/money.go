// Package money holds the fixed-point currency type used for balances and
// transaction amounts. Values are stored as integer minor units (cents), so
// arithmetic on balances is exact.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places carried by an Amount.
const Scale = 2

var (
	ErrPrecision  = errors.New("amount has more than two decimal places")
	ErrOutOfRange = errors.New("amount is out of range")
	ErrNotANumber = errors.New("amount is not a number")
)

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// Amount is a monetary value in minor units.
type Amount int64

// FromDecimal converts a major-unit decimal (e.g. 12.34) to an Amount.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	shifted := d.Shift(Scale)
	if !shifted.IsInteger() {
		return 0, ErrPrecision
	}
	if shifted.GreaterThan(maxMinor) || shifted.LessThan(minMinor) {
		return 0, ErrOutOfRange
	}
	return Amount(shifted.IntPart()), nil
}

// FromFloat converts a major-unit float as it arrives from a JSON document.
// The shortest decimal representation of f is used, so 0.1 becomes 10 cents.
func FromFloat(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrNotANumber
	}
	return FromDecimal(decimal.NewFromFloat(f))
}

// Parse reads a major-unit decimal string such as "150" or "19.99".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, s)
	}
	return FromDecimal(d)
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Scale)
}

func (a Amount) Float64() float64 {
	return a.Decimal().InexactFloat64()
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(Scale)
}

// Display formats the amount with the currency's symbol and grouping,
// e.g. "$1,250.00".
func (a Amount) Display(currency string) string {
	return gomoney.New(int64(a), currency).Display()
}

// KnownCurrency reports whether code is an ISO 4217 code go-money can format.
func KnownCurrency(code string) bool {
	return gomoney.GetCurrency(code) != nil
}

// MarshalJSON writes the amount as a bare JSON number in major units.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal().String()), nil
}

// UnmarshalJSON accepts a JSON number (or a numeric string) in major units.
// The number is parsed as a decimal, never through float64.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	v, err := Parse(strings.Trim(s, `"`))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

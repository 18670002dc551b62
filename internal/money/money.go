// Package money provides the fixed-point arithmetic every ledger amount passes
// through. Amounts are kept at four fractional digits and rounded half away
// from zero after each operation. Binary floating point is never accepted.
package money

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the internal precision of every stored amount.
const Places = 4

// DisplayPlaces is the precision used for presentation.
const DisplayPlaces = 2

var (
	// ErrFloat is returned when a float32/float64 is offered as an amount.
	ErrFloat = errors.New("money: floating point amounts are not accepted")
	// ErrInvalid is returned for empty, malformed or unsupported input.
	ErrInvalid = errors.New("money: invalid amount")
	// ErrDivisionByZero is returned by Divide when the divisor is zero.
	ErrDivisionByZero = errors.New("money: division by zero")
)

var (
	// Tolerance is the largest difference still considered balanced.
	Tolerance = decimal.New(1, -3)
	// DefaultGSTRate is the Singapore standard rate, in percent.
	DefaultGSTRate = decimal.NewFromInt(9)

	hundred = decimal.NewFromInt(100)
)

// Zero returns a zero amount.
func Zero() decimal.Decimal {
	return decimal.Zero
}

// New converts v into an amount quantized to Places. Strings, integers and
// decimals are accepted.
func New(v any) (decimal.Decimal, error) {
	d, err := parse(v)
	if err != nil {
		return decimal.Zero, err
	}
	return Quantize(d), nil
}

// MustNew is New for constants known to be valid. It panics otherwise.
func MustNew(v any) decimal.Decimal {
	d, err := New(v)
	if err != nil {
		panic(err)
	}
	return d
}

// Display converts v into its two-decimal presentation string.
func Display(v any) (string, error) {
	d, err := parse(v)
	if err != nil {
		return "", err
	}
	return d.StringFixed(DisplayPlaces), nil
}

// Quantize rounds d to Places, half away from zero.
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Sum adds the quantized values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(Quantize(v))
	}
	return Quantize(total)
}

// Multiply returns a*b quantized.
func Multiply(a, b decimal.Decimal) decimal.Decimal {
	return Quantize(Quantize(a).Mul(Quantize(b)))
}

// Divide returns a/b quantized.
func Divide(a, b decimal.Decimal) (decimal.Decimal, error) {
	b = Quantize(b)
	if b.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	return Quantize(Quantize(a).Div(b)), nil
}

// Percentage returns pct percent of amount.
func Percentage(amount, pct decimal.Decimal) decimal.Decimal {
	return Quantize(Quantize(amount).Mul(pct).Div(hundred))
}

// GST computes the tax on a GST-exclusive amount at rate percent.
func GST(amount, rate decimal.Decimal) decimal.Decimal {
	return Percentage(amount, rate)
}

// ExtractGSTFromInclusive splits a GST-inclusive amount into its net and tax
// parts. net+tax always equals the quantized gross.
func ExtractGSTFromInclusive(gross, rate decimal.Decimal) (net, tax decimal.Decimal, err error) {
	divisor := hundred.Add(rate)
	if divisor.IsZero() {
		return decimal.Zero, decimal.Zero, ErrDivisionByZero
	}
	gross = Quantize(gross)
	net = Quantize(gross.Mul(hundred).Div(divisor))
	return net, gross.Sub(net), nil
}

// Balanced reports whether a and b differ by no more than Tolerance.
func Balanced(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

func parse(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, fmt.Errorf("%w: nil", ErrInvalid)
	case decimal.Decimal:
		return x, nil
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero, fmt.Errorf("%w: nil", ErrInvalid)
		}
		return *x, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Zero, fmt.Errorf("%w: empty string", ErrInvalid)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalid, x)
		}
		return d, nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int8:
		return decimal.NewFromInt(int64(x)), nil
	case int16:
		return decimal.NewFromInt(int64(x)), nil
	case int32:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case uint:
		return fromUint(uint64(x)), nil
	case uint8:
		return fromUint(uint64(x)), nil
	case uint16:
		return fromUint(uint64(x)), nil
	case uint32:
		return fromUint(uint64(x)), nil
	case uint64:
		return fromUint(x), nil
	case float32, float64:
		return decimal.Zero, fmt.Errorf("%w: got %T", ErrFloat, v)
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported type %T", ErrInvalid, v)
	}
}

func fromUint(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// Package money provides the integer-minor-unit amount type and the
// arbitrary-precision decimal price type used throughout the simulator.
//
// Balances never use binary floating point. Amount is a signed integer
// count of minor units (cents, satoshis, whatever the scenario denotes);
// Price is an exact decimal used for dealer quotes, anchors, ratios, and
// unit prices. The two never mix implicitly: converting a Price times a
// quantity into an Amount always goes through RoundAmount (round-half-up)
// or, for a creditor's share of a partial-recovery waterfall, FloorAmount
// (round-down).
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a signed integer count of minor units.
type Amount int64

// IsNegative reports whether the amount is below zero.
func (a Amount) IsNegative() bool { return a < 0 }

// Add returns a+b.
func (a Amount) Add(b Amount) Amount { return a + b }

// Sub returns a-b.
func (a Amount) Sub(b Amount) Amount { return a - b }

// Min returns the smaller of a and b.
func Min(a, b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

// Price is an exact decimal used for prices, ratios, shares, and anchors.
type Price struct {
	d decimal.Decimal
}

// NewPrice wraps a decimal.Decimal as a Price.
func NewPrice(d decimal.Decimal) Price { return Price{d: d} }

// PriceFromString parses an exact decimal string. Returns an error if the
// string is not a finite decimal (NaN/Inf are not representable by
// decimal.Decimal and simply fail to parse, which satisfies spec.md §6's
// "NaN/∞ are rejected" requirement for free).
func PriceFromString(s string) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}, fmt.Errorf("money: invalid decimal %q: %w", s, err)
	}
	return Price{d: d}, nil
}

// PriceFromInt builds an exact integer-valued Price.
func PriceFromInt(n int64) Price { return Price{d: decimal.NewFromInt(n)} }

// Zero is the additive identity.
var Zero = Price{d: decimal.Zero}

// Decimal exposes the underlying decimal.Decimal for callers that need the
// full arithmetic surface (Mul, Div, Cmp, ...).
func (p Price) Decimal() decimal.Decimal { return p.d }

func (p Price) Add(o Price) Price   { return Price{d: p.d.Add(o.d)} }
func (p Price) Sub(o Price) Price   { return Price{d: p.d.Sub(o.d)} }
func (p Price) Mul(o Price) Price   { return Price{d: p.d.Mul(o.d)} }
func (p Price) Div(o Price) Price   { return Price{d: p.d.Div(o.d)} }
func (p Price) Neg() Price          { return Price{d: p.d.Neg()} }
func (p Price) IsZero() bool        { return p.d.IsZero() }
func (p Price) IsNegative() bool    { return p.d.IsNegative() }
func (p Price) GreaterThan(o Price) bool { return p.d.GreaterThan(o.d) }
func (p Price) LessThan(o Price) bool    { return p.d.LessThan(o.d) }
func (p Price) GreaterThanOrEqual(o Price) bool { return p.d.GreaterThanOrEqual(o.d) }
func (p Price) LessThanOrEqual(o Price) bool    { return p.d.LessThanOrEqual(o.d) }
func (p Price) Equal(o Price) bool       { return p.d.Equal(o.d) }

// Max returns the greater of a and b.
func Max(a, b Price) Price {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// MinPrice returns the smaller of a and b.
func MinPrice(a, b Price) Price {
	if a.LessThan(b) {
		return a
	}
	return b
}

// ClampNonNegative returns p if p >= 0, else Zero. Used for the outside
// bid clip B configured by spec.md §3 ("B clipped ≥0 if configured").
func ClampNonNegative(p Price) Price {
	if p.IsNegative() {
		return Zero
	}
	return p
}

// String renders the canonical decimal string: no scientific notation, no
// trailing zeros beyond the decimal's own scale. This is the
// serialization format required by spec.md §6.
func (p Price) String() string { return p.d.String() }

// MarshalText implements encoding.TextMarshaler so Price serializes to its
// canonical decimal string in JSON/msgpack output.
func (p Price) MarshalText() ([]byte, error) { return []byte(p.d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Price) UnmarshalText(b []byte) error {
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return fmt.Errorf("money: invalid decimal %q: %w", string(b), err)
	}
	p.d = d
	return nil
}

// RoundAmount converts a Price to an Amount using round-half-up (half away
// from zero for the non-negative amounts the core ever rounds), the
// rounding mode spec.md §9 mandates for price·quantity → minor-unit
// conversions.
func RoundAmount(p Price) Amount {
	return Amount(p.d.Round(0).IntPart())
}

// Valued multiplies a quantity (integer count, e.g. a delivery-obligation
// quantity) by a unit Price and rounds to an Amount via RoundAmount.
func Valued(quantity int64, unit Price) Amount {
	return RoundAmount(Price{d: unit.d.Mul(decimal.NewFromInt(quantity))})
}

// FloorAmount converts a Price to an Amount by truncating toward zero
// (round-down), the mode spec.md §4.4 mandates for each creditor's share
// of a partial-recovery waterfall before the last creditor absorbs the
// remainder.
func FloorAmount(p Price) Amount {
	return Amount(p.d.Floor().IntPart())
}

// Ratio computes a/b as a decimal Price rounded to 28 decimal places
// (exact whenever the quotient terminates within that), for recovery-rate
// and share computations. Panics if b is zero, matching decimal's own
// division-by-zero behavior; callers must never call it with an empty
// pool/total.
func Ratio(a, b Amount) Price {
	return Price{d: decimal.NewFromInt(int64(a)).DivRound(decimal.NewFromInt(int64(b)), 28)}
}

// Package money holds reimbursement amounts as integer minor units (cents)
// and rate adjustments as scale-10000 fixed-point factors. Nothing in this
// package touches floating point.
package money

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Cents is a money amount in minor units. Negative values are representable
// (deltas, reversals) but most operations require non-negative inputs.
type Cents int64

// FactorScale is the fixed-point denominator for Factor: 1.065 is stored as 10650.
const FactorScale = 10_000

// Factor is a non-negative multiplicative adjustment (geo multiplier, COLA,
// modifier weight, RVU, GPCI) with four decimal digits of precision.
type Factor struct {
	scaled int64
}

// One is the identity Factor.
var One = Factor{scaled: FactorScale}

var (
	ErrOverflow = errors.New("money: amount overflows int64")
	ErrNegative = errors.New("money: negative input")
)

// ParseCents parses a decimal string such as "153.50" or "-43.05" into cents.
// At most two fractional digits are accepted; no grouping or currency symbols.
func ParseCents(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse amount: empty input")
	}
	neg := false
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		s = s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("parse amount: %q is not a decimal number", s)
	}
	var units uint64
	if whole != "" {
		u, err := strconv.ParseUint(whole, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse amount: %q is not a decimal number", s)
		}
		units = u
	}
	var cents uint64
	if hasFrac && frac != "" {
		if len(frac) > 2 {
			return 0, fmt.Errorf("parse amount: %q has more than two decimal places", s)
		}
		f, err := strconv.ParseUint(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse amount: %q is not a decimal number", s)
		}
		cents = f
		if len(frac) == 1 {
			cents *= 10
		}
	}
	if units > (math.MaxInt64-99)/100 {
		return 0, ErrOverflow
	}
	total := int64(units*100 + cents)
	if neg {
		total = -total
	}
	return Cents(total), nil
}

// String renders cents as a plain decimal: 15350 -> "153.50", -4305 -> "-43.05".
func (c Cents) String() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// UnmarshalYAML reads the scalar's literal text so "153.50" never round-trips
// through float64.
func (c *Cents) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: money amount must be a scalar", node.Line)
	}
	v, err := ParseCents(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*c = v
	return nil
}

// ParseFactor parses a non-negative decimal string such as "1.065" into a
// Factor. At most four fractional digits are accepted.
func ParseFactor(s string) (Factor, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Factor{}, fmt.Errorf("parse factor: empty input")
	}
	if s[0] == '+' || s[0] == '-' {
		return Factor{}, fmt.Errorf("parse factor: %q must be unsigned", s)
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return Factor{}, fmt.Errorf("parse factor: %q is not a decimal number", s)
	}
	var units uint64
	if whole != "" {
		u, err := strconv.ParseUint(whole, 10, 64)
		if err != nil {
			return Factor{}, fmt.Errorf("parse factor: %q is not a decimal number", s)
		}
		units = u
	}
	var scaled uint64
	if hasFrac && frac != "" {
		if len(frac) > 4 {
			return Factor{}, fmt.Errorf("parse factor: %q has more than four decimal places", s)
		}
		f, err := strconv.ParseUint(frac, 10, 64)
		if err != nil {
			return Factor{}, fmt.Errorf("parse factor: %q is not a decimal number", s)
		}
		for i := len(frac); i < 4; i++ {
			f *= 10
		}
		scaled = f
	}
	if units > (math.MaxInt64-scaled)/FactorScale {
		return Factor{}, ErrOverflow
	}
	return Factor{scaled: int64(units*FactorScale + scaled)}, nil
}

// Scaled returns the raw fixed-point value: 1.065 -> 10650.
func (f Factor) Scaled() int64 { return f.scaled }

// IsZero reports whether the factor is the zero value (unset or literal 0).
func (f Factor) IsZero() bool { return f.scaled == 0 }

// String renders the factor with trailing zeros trimmed: "1.065", "0.879", "1".
func (f Factor) String() string {
	whole := f.scaled / FactorScale
	frac := f.scaled % FactorScale
	if frac == 0 {
		return strconv.FormatInt(whole, 10)
	}
	return strings.TrimRight(fmt.Sprintf("%d.%04d", whole, frac), "0")
}

// UnmarshalYAML reads the scalar's literal text so "1.065" never round-trips
// through float64.
func (f *Factor) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: factor must be a scalar", node.Line)
	}
	v, err := ParseFactor(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*f = v
	return nil
}

// Mul computes c * units * factors... with a single round-half-up at the end.
// Intermediate products are exact, so Mul(c, u, a, b) and Mul(c, u, b, a)
// always agree.
func Mul(c Cents, units int64, factors ...Factor) (Cents, error) {
	num := int64(1)
	scale := int64(1)
	for _, f := range factors {
		if f.scaled < 0 {
			return 0, ErrNegative
		}
		hi, lo := bits.Mul64(uint64(num), uint64(f.scaled))
		if hi != 0 || lo > math.MaxInt64 {
			return 0, ErrOverflow
		}
		num = int64(lo)
		if scale > math.MaxInt64/FactorScale {
			return 0, ErrOverflow
		}
		scale *= FactorScale
	}
	return MulScaled(c, units, num, scale)
}

// MulScaled computes round(c * units * num / scale) with half-up rounding,
// using a 128-bit intermediate so the only precision loss is the final
// division. num carries an arbitrary fixed-point numerator (for example a
// sum of RVU*GPCI terms at scale 10^8).
func MulScaled(c Cents, units int64, num, scale int64) (Cents, error) {
	if c < 0 || units < 0 || num < 0 {
		return 0, ErrNegative
	}
	if scale <= 0 {
		return 0, fmt.Errorf("money: non-positive scale %d", scale)
	}
	hi, lo := bits.Mul64(uint64(c), uint64(units))
	if hi != 0 {
		return 0, ErrOverflow
	}
	q, err := mulDivRound(lo, uint64(num), uint64(scale))
	if err != nil {
		return 0, err
	}
	if q > math.MaxInt64 {
		return 0, ErrOverflow
	}
	return Cents(q), nil
}

// RatioBps returns part/whole as integer basis points, rounded half up:
// RatioBps(4305, 17305) -> 2488 (24.88%). Returns 0 when whole is not positive.
func RatioBps(part, whole int64) int32 {
	if whole <= 0 || part <= 0 {
		return 0
	}
	q, err := mulDivRound(uint64(part), 10_000, uint64(whole))
	if err != nil || q > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(q)
}

// DivRound divides a non-negative total by n with half-up rounding.
// Returns 0 when n is not positive.
func DivRound(total Cents, n int64) Cents {
	if n <= 0 || total <= 0 {
		return 0
	}
	q, err := mulDivRound(uint64(total), 1, uint64(n))
	if err != nil {
		return 0
	}
	return Cents(q)
}

// FormatBps renders basis points as a percentage string: 2488 -> "24.88%".
func FormatBps(bps int32) string {
	v := int64(bps)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d%%", sign, v/100, v%100)
}

// mulDivRound computes round(a*b/den) with half-up rounding over a 128-bit
// intermediate product.
func mulDivRound(a, b, den uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return 0, ErrOverflow
	}
	q, r := bits.Div64(hi, lo, den)
	if r >= den-r {
		if q == math.MaxUint64 {
			return 0, ErrOverflow
		}
		q++
	}
	return q, nil
}

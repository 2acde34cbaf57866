package numfmt

import (
	"math"
	"math/big"
	"strings"

	"github.com/spssio/spssio/errs"
	"github.com/spssio/spssio/numsys"
)

// FastPrecisionCeiling returns the maximum number of base-b significand
// digits the fast backend can distinguish: floor(53 * log_b(2)) + 1. A
// float64 carries 53 significand bits, so digits past this ceiling carry
// no information about the input value.
func FastPrecisionCeiling(base int) int {
	return int(math.Floor(53*math.Ln2/math.Log(float64(base)))) + 1
}

// Format renders value as at most k significant digits under ns, with no
// insignificant trailing zeros. Fixed-point notation is used when the
// digit-weight exponent e lies in [0, k]; otherwise the digits are
// followed by a signed base-b exponent.
//
// The two backends differ only in effective precision: the fast backend
// clamps k to FastPrecisionCeiling(ns.Base()) before rendering, so a
// request for more digits than a float64 holds comes back short and
// clean (".1" for 0.1 at base 10 and k = 24, rather than
// ".100000000000000005551115"); the precise
// backend renders all k requested digits of the input's exact binary
// value.
func Format(value float64, ns *numsys.NumberSystem, k int, opts ...Option) (string, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "", errs.ErrNonFiniteInput
	}

	if k < 1 {
		return "", errs.ErrBackendError
	}

	precise := cfg.usesPrecise()

	if value == 0 {
		if precise && math.Signbit(value) {
			return "-0", nil
		}

		return "0", nil
	}

	if !precise {
		if ceil := FastPrecisionCeiling(ns.Base()); k > ceil {
			k = ceil
		}
	}

	// big.Rat.SetFloat64 is always exact: a float64's value is itself a
	// dyadic rational.
	r := new(big.Rat).SetFloat64(math.Abs(value))
	if r == nil {
		return "", errs.ErrNonFiniteInput
	}

	return renderRat(math.Signbit(value), r, ns, k)
}

// Reshape re-renders a base-b literal s as k significant digits under dst,
// without ever materializing an intermediate float64. A literal already
// within k digits comes back unchanged, which is what makes re-encoding a
// file at its original precision stable.
func Reshape(s string, src, dst *numsys.NumberSystem, k int, _ ...Option) (string, error) {
	s = strings.TrimLeft(s, " \t")
	if s == "" {
		return "", errs.ErrEmpty
	}

	if s[0] == '*' {
		return "", errs.ErrSystemMissing
	}

	if k < 1 {
		return "", errs.ErrBackendError
	}

	p, err := parseDigits(s, src)
	if err != nil {
		return "", err
	}

	if p.rat.Sign() == 0 {
		return "0", nil
	}

	abs := new(big.Rat).Abs(p.rat)

	return renderRat(p.neg, abs, dst, k)
}

// renderRat is the shared core: round abs (non-negative, nonzero) to k
// significant digits under ns with half-even tie-breaking, then choose
// fixed-point or exponent notation and assemble the final text. All
// arithmetic here is exact-rational; the backend distinction has already
// been applied by the caller (as a precision clamp).
func renderRat(neg bool, abs *big.Rat, ns *numsys.NumberSystem, k int) (string, error) {
	base := ns.Base()

	e := exponentOf(abs, base)

	digitsBI, e2 := roundToKDigits(abs, base, e, k)

	digits, err := bigIntToDigits(digitsBI, base, k)
	if err != nil {
		return "", err
	}

	var body string
	if e2 >= 0 && e2 <= k {
		body = renderFixedForm(digits, e2, ns)
	} else {
		body = renderExponentForm(digits, e2, ns)
	}

	if neg {
		return "-" + body, nil
	}

	return body, nil
}

// exponentOf returns the smallest integer e such that |x| < base^e, for
// the nonzero exact rational x (represented here by its absolute value).
func exponentOf(absR *big.Rat, base int) int {
	f, _ := absR.Float64()

	e := 1
	if f > 0 && !math.IsInf(f, 0) {
		e = int(math.Floor(math.Log(f)/math.Log(float64(base)))) + 1
	}

	for cmpPow(absR, base, e) >= 0 {
		e++
	}
	for cmpPow(absR, base, e-1) < 0 {
		e--
	}

	return e
}

// cmpPow compares r to base^e, both taken exactly.
func cmpPow(r *big.Rat, base, e int) int {
	return r.Cmp(powRat(base, e))
}

// powRat returns base^e as an exact rational, for any sign of e.
func powRat(base, e int) *big.Rat {
	if e >= 0 {
		p := new(big.Int).Exp(big.NewInt(int64(base)), big.NewInt(int64(e)), nil)

		return new(big.Rat).SetInt(p)
	}

	p := new(big.Int).Exp(big.NewInt(int64(base)), big.NewInt(int64(-e)), nil)

	return new(big.Rat).SetFrac(big.NewInt(1), p)
}

// roundToKDigits rounds the nonzero rational absR, whose digit-weight
// exponent is e (base^(e-1) <= absR < base^e), to exactly k significant
// base-b digits using half-even tie-breaking. It returns the rounded
// mantissa as an integer in [base^(k-1), base^k) and the (possibly
// incremented, on carry) exponent that applies to it.
func roundToKDigits(absR *big.Rat, base, e, k int) (*big.Int, int) {
	scale := k - e

	scaled := new(big.Rat).Mul(absR, powRat(base, scale))

	num := scaled.Num()
	den := scaled.Denom()

	q, rem := new(big.Int).QuoRem(num, den, new(big.Int))

	twiceRem := new(big.Int).Lsh(rem, 1)

	switch twiceRem.CmpAbs(den) {
	case 1:
		q.Add(q, big.NewInt(1))
	case 0:
		if q.Bit(0) == 1 {
			q.Add(q, big.NewInt(1))
		}
	}

	powK := new(big.Int).Exp(big.NewInt(int64(base)), big.NewInt(int64(k)), nil)

	if q.Cmp(powK) >= 0 {
		q.Quo(q, big.NewInt(int64(base)))

		return q, e + 1
	}

	return q, e
}

// bigIntToDigits renders n, known to be in [0, base^k), as exactly k digit
// values most-significant first.
func bigIntToDigits(n *big.Int, base, k int) ([]int, error) {
	digits := make([]int, k)

	rem := new(big.Int).Set(n)
	bb := big.NewInt(int64(base))
	mod := new(big.Int)

	for i := k - 1; i >= 0; i-- {
		rem.DivMod(rem, bb, mod)
		digits[i] = int(mod.Int64())
	}

	if rem.Sign() != 0 {
		return nil, errs.ErrOverflow
	}

	return digits, nil
}

// renderExponentForm assembles digits (length k, most-significant first,
// digit-weight exponent e2) as a plain digit string followed by a signed
// base-b exponent. There is no embedded point, so the exponent is taken
// relative to the trimmed digit count: 1234567890 at three digits
// renders as "123+7", and a small magnitude like 0.0188... in base 30
// renders as "GTECSL0R001-C".
func renderExponentForm(digits []int, e2 int, ns *numsys.NumberSystem) string {
	nd := len(digits)
	for nd > 1 && digits[nd-1] == 0 {
		nd--
	}

	var sb strings.Builder
	for _, d := range digits[:nd] {
		ch, _ := ns.DigitChar(d)
		sb.WriteRune(ch)
	}

	exponent := e2 - nd

	if exponent < 0 {
		sb.WriteByte('-')
		sb.WriteString(uintToDigits(-exponent, ns))
	} else {
		sb.WriteByte('+')
		sb.WriteString(uintToDigits(exponent, ns))
	}

	return sb.String()
}

// renderFixedForm assembles digits (length k, most-significant first) as
// fixed-point text with the point placed e2 digits in from the left; at
// e2 = 0 the integer part is empty and the result leads with the bare
// point (".1", not "0.1"). Trailing zeros are trimmed only from the
// fractional part: integer-part zeros carry real place value.
func renderFixedForm(digits []int, e2 int, ns *numsys.NumberSystem) string {
	k := len(digits)

	var sb strings.Builder

	intPart := digits[:e2]
	var fracPart []int
	if e2 < k {
		fracPart = digits[e2:]
	}

	for _, d := range intPart {
		ch, _ := ns.DigitChar(d)
		sb.WriteRune(ch)
	}

	fracPart = trimTrailingZeros(fracPart)
	if len(fracPart) > 0 || e2 == 0 {
		sb.WriteByte('.')
		for _, d := range fracPart {
			ch, _ := ns.DigitChar(d)
			sb.WriteRune(ch)
		}
	}

	return sb.String()
}

// trimTrailingZeros drops trailing zero entries, leaving nil if all are
// zero (the caller treats an empty fractional part as "no fraction").
func trimTrailingZeros(digits []int) []int {
	n := len(digits)
	for n > 0 && digits[n-1] == 0 {
		n--
	}

	return digits[:n]
}

// uintToDigits renders the non-negative n in ns's base.
func uintToDigits(n int, ns *numsys.NumberSystem) string {
	if n == 0 {
		ch, _ := ns.DigitChar(0)

		return string(ch)
	}

	base := ns.Base()

	var rev []rune
	for n > 0 {
		ch, _ := ns.DigitChar(n % base)
		rev = append(rev, ch)
		n /= base
	}

	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}

	return string(rev)
}

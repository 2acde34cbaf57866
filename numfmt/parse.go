package numfmt

import (
	"math"
	"math/big"
	"strings"

	"github.com/spssio/spssio/errs"
	"github.com/spssio/spssio/numsys"
)

// Parse converts the character sequence s, expressed in base ns.Base(),
// into a double plus provenance.
//
// Grammar:
//
//	number   := sign? mantissa exponent?
//	mantissa := int-part ('.' frac-part?)? | '.' frac-part
//	exponent := ('+' | '-') int-part
//
// Leading whitespace is accepted and ignored. A leading '*' signals
// system-missing and returns errs.ErrSystemMissing with a zero Result; the
// caller (the POR cell reader) is expected to have already consumed any
// trailing delimiter such as POR's '/'.
//
// The fast backend computes the magnitude as float64(mantissa) scaled by
// a single float64 power of the base, narrowing each intermediate to 64
// bits; that one multiply-or-divide can land a unit off in the last
// significand digit, which is the documented trigesimal round-trip
// limitation. The precise backend rounds the exact rational value to the
// working precision (see WithWorkingPrecision) and then to float64; at 53
// bits that is a single rounding to the nearest float64.
func Parse(s string, ns *numsys.NumberSystem, opts ...Option) (Result, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s = strings.TrimLeft(s, " \t")
	if s == "" {
		return Result{}, errs.ErrEmpty
	}

	if s[0] == '*' {
		return Result{}, errs.ErrSystemMissing
	}

	p, err := parseDigits(s, ns)
	if err != nil {
		return Result{}, err
	}

	var value float64
	if cfg.usesPrecise() {
		value = preciseValue(p.rat, cfg)
	} else {
		value = fastValue(p.mant, p.neg, p.exponent-p.fcount, ns.Base())
	}

	if math.IsInf(value, 0) {
		return Result{}, errs.ErrOverflow
	}

	if value == 0 && p.rat.Sign() != 0 {
		return Result{}, errs.ErrUnderflow
	}

	exact := new(big.Rat).SetFloat64(value)
	inexact := exact == nil || exact.Cmp(p.rat) != 0

	sign := 0
	switch {
	case p.rat.Sign() < 0:
		sign = -1
	case p.rat.Sign() > 0:
		sign = 1
	}

	return Result{
		Value:    value,
		Sign:     sign,
		Exponent: p.exponent,
		Inexact:  inexact,
	}, nil
}

// parsed is the grammar's output before any backend arithmetic: the
// mantissa digit string as an exact integer, the fractional-digit count
// d, the exponent literal, and the exact signed rational value
// mant * b^(exponent - d).
type parsed struct {
	neg      bool
	exponent int
	fcount   int
	mant     *big.Int
	rat      *big.Rat
}

// parseDigits runs the grammar over s. It is the shared front half of
// Parse and Reshape, neither of which may round the mantissa through a
// float64 before the backend (or the digit renderer) gets it.
func parseDigits(s string, ns *numsys.NumberSystem) (parsed, error) {
	p := &parser{s: s, ns: ns}

	neg, err := p.sign()
	if err != nil {
		return parsed{}, err
	}

	mant, fcount, err := p.mantissa()
	if err != nil {
		return parsed{}, err
	}

	expNeg, exp, hasExp, err := p.exponent()
	if err != nil {
		return parsed{}, err
	}

	if !p.atEnd() {
		return parsed{}, errs.ErrUnexpectedChar
	}

	if len(mant) == 0 {
		return parsed{}, errs.ErrEmpty
	}

	mantInt := digitsToBigInt(mant, ns.Base())

	exponent := 0
	if hasExp {
		exponent = exp
		if expNeg {
			exponent = -exponent
		}
	}

	// value = mantInt * b^(exponent - fcount)
	r := ratFromScaledInt(mantInt, ns.Base(), exponent-fcount)
	if neg {
		r.Neg(r)
	}

	return parsed{
		neg:      neg,
		exponent: exponent,
		fcount:   fcount,
		mant:     mantInt,
		rat:      r,
	}, nil
}

// fastValue computes mant * base^scale in float64 arithmetic: one
// correctly-rounded integer conversion, then one multiply (scale > 0) or
// divide (scale < 0) by a float64 power. Each step narrows to 64 bits.
func fastValue(mant *big.Int, neg bool, scale, base int) float64 {
	f, _ := new(big.Float).SetInt(mant).Float64()

	if scale > 0 {
		f *= math.Pow(float64(base), float64(scale))
	} else if scale < 0 {
		f /= math.Pow(float64(base), float64(-scale))
	}

	if neg {
		f = -f
	}

	return f
}

// preciseValue rounds the exact rational to the nearest float64, through
// a big.Float at the configured working precision.
func preciseValue(r *big.Rat, cfg config) float64 {
	prec := cfg.workingPrecision
	if prec < 53 {
		prec = 53
	}

	f := new(big.Float).SetPrec(prec).SetRat(r)
	value, _ := f.Float64()

	return value
}

// parser walks a rune sequence against the number grammar using ns's
// digit alphabet.
type parser struct {
	s   string
	pos int
	ns  *numsys.NumberSystem
}

func (p *parser) atEnd() bool {
	return p.pos >= len(p.s)
}

func (p *parser) peek() (rune, bool) {
	if p.atEnd() {
		return 0, false
	}

	return rune(p.s[p.pos]), true
}

func (p *parser) sign() (neg bool, err error) {
	ch, ok := p.peek()
	if !ok {
		return false, errs.ErrEmpty
	}

	switch ch {
	case '-':
		p.pos++
		return true, nil
	case '+':
		p.pos++
		return false, nil
	default:
		return false, nil
	}
}

// mantissa consumes int-part ('.' frac-part?)? | '.' frac-part and returns
// the concatenated digit values plus the fractional digit count d.
func (p *parser) mantissa() (digits []int, fcount int, err error) {
	for {
		ch, ok := p.peek()
		if !ok {
			break
		}
		v, ok := p.ns.DigitValue(ch)
		if !ok {
			break
		}
		digits = append(digits, v)
		p.pos++
	}

	ch, ok := p.peek()
	if !ok || ch != '.' {
		if len(digits) == 0 {
			return nil, 0, errs.ErrEmpty
		}

		return digits, 0, nil
	}

	p.pos++ // consume '.'

	for {
		ch, ok := p.peek()
		if !ok {
			break
		}
		v, ok := p.ns.DigitValue(ch)
		if !ok {
			break
		}
		digits = append(digits, v)
		fcount++
		p.pos++
	}

	if len(digits) == 0 {
		return nil, 0, errs.ErrEmpty
	}

	return digits, fcount, nil
}

// exponent consumes ('+' | '-') int-part, if present.
func (p *parser) exponent() (neg bool, value int, present bool, err error) {
	ch, ok := p.peek()
	if !ok || (ch != '+' && ch != '-') {
		return false, 0, false, nil
	}

	neg = ch == '-'
	p.pos++

	var digits []int
	for {
		ch, ok := p.peek()
		if !ok {
			break
		}
		v, ok := p.ns.DigitValue(ch)
		if !ok {
			break
		}
		digits = append(digits, v)
		p.pos++
	}

	if len(digits) == 0 {
		return false, 0, false, errs.ErrUnexpectedChar
	}

	n := 0
	for _, d := range digits {
		n = n*p.ns.Base() + d
	}

	return neg, n, true, nil
}

// digitsToBigInt folds a digit-value slice into a big.Int under base b.
func digitsToBigInt(digits []int, base int) *big.Int {
	n := new(big.Int)
	bb := big.NewInt(int64(base))
	for _, d := range digits {
		n.Mul(n, bb)
		n.Add(n, big.NewInt(int64(d)))
	}

	return n
}

// ratFromScaledInt returns mantInt * base^scale as an exact rational.
func ratFromScaledInt(mantInt *big.Int, base, scale int) *big.Rat {
	r := new(big.Rat).SetInt(mantInt)
	if scale == 0 {
		return r
	}

	pow := new(big.Int).Exp(big.NewInt(int64(base)), big.NewInt(int64(absInt(scale))), nil)
	if scale > 0 {
		r.Mul(r, new(big.Rat).SetInt(pow))
	} else {
		r.Quo(r, new(big.Rat).SetInt(pow))
	}

	return r
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}

	return n
}

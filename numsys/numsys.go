// Package numsys implements the positional number system: a base b
// digit alphabet with no I/O and no arithmetic of its own. numfmt builds
// on it to parse and format IEEE-754 doubles.
package numsys

import "github.com/spssio/spssio/errs"

// DefaultAlphabet30 is the trigesimal (base-30) digit alphabet used by the
// POR file format: 0-9 followed by A-T.
const DefaultAlphabet30 = "0123456789ABCDEFGHIJKLMNOPQRST"

// DefaultAlphabet64 is the base-64 digit alphabet offered to CLI callers
// that want a denser encoding than base 30.
const DefaultAlphabet64 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz+/"

// NumberSystem is an immutable base-b numeral system with an explicit digit
// alphabet: an ordered sequence of code points where position i encodes
// digit value i.
type NumberSystem struct {
	alphabet      []rune
	values        map[rune]int
	base          int
	caseSensitive bool
}

// New constructs a NumberSystem from an explicit alphabet. The alphabet's
// length must be at least base, and it must contain no duplicate digits
// (after case-folding when caseSensitive is false). Only the first base
// runes of alphabet are used as digits.
func New(base int, alphabet string, caseSensitive bool) (*NumberSystem, error) {
	runes := []rune(alphabet)
	if base < 2 || len(runes) < base {
		return nil, errs.ErrAlphabetInvalid
	}

	digits := runes[:base]
	values := make(map[rune]int, base)
	for i, r := range digits {
		key := r
		if !caseSensitive {
			key = foldCase(r)
		}
		if _, dup := values[key]; dup {
			return nil, errs.ErrAlphabetInvalid
		}
		values[key] = i
	}

	return &NumberSystem{
		alphabet:      append([]rune(nil), digits...),
		values:        values,
		base:          base,
		caseSensitive: caseSensitive,
	}, nil
}

// Default30 returns the canonical trigesimal NumberSystem used by POR files.
func Default30() *NumberSystem {
	ns, err := New(30, DefaultAlphabet30, false)
	if err != nil {
		panic("numsys: built-in base-30 alphabet is invalid: " + err.Error())
	}

	return ns
}

// Default64 returns the canonical base-64 NumberSystem used by the CLI.
func Default64() *NumberSystem {
	ns, err := New(64, DefaultAlphabet64, true)
	if err != nil {
		panic("numsys: built-in base-64 alphabet is invalid: " + err.Error())
	}

	return ns
}

// Base returns b, the number of distinct digit values.
func (ns *NumberSystem) Base() int {
	return ns.base
}

// CaseSensitive reports whether digit lookups distinguish letter case.
func (ns *NumberSystem) CaseSensitive() bool {
	return ns.caseSensitive
}

// DigitValue returns the digit value of ch, or false if ch is not a digit
// of this number system.
func (ns *NumberSystem) DigitValue(ch rune) (int, bool) {
	key := ch
	if !ns.caseSensitive {
		key = foldCase(ch)
	}
	v, ok := ns.values[key]

	return v, ok
}

// DigitChar returns the canonical character for digit value v, or false if
// v is out of range [0, base).
func (ns *NumberSystem) DigitChar(v int) (rune, bool) {
	if v < 0 || v >= ns.base {
		return 0, false
	}

	return ns.alphabet[v], true
}

// IsDigit reports whether ch is a valid digit of this number system.
func (ns *NumberSystem) IsDigit(ch rune) bool {
	_, ok := ns.DigitValue(ch)

	return ok
}

// foldCase maps an ASCII letter to lower case; non-letters pass through
// unchanged. This avoids pulling in unicode.ToLower for the common ASCII
// alphabets used by POR and the CLI.
func foldCase(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r - 'A' + 'a'
	}

	return r
}

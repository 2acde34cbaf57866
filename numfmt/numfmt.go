// Package numfmt implements the number parser/formatter: conversion
// between IEEE-754 doubles and their base-b textual representation under a
// numsys.NumberSystem.
//
// Two arithmetic backends are available. The fast backend parses in
// float64 arithmetic, narrowing every intermediate value to a 64-bit float
// ("float-store" semantics, never widened through a register wider than a
// float64 the way an x87 FPU might), and formats the input's exact value
// with the significand capped at FastPrecisionCeiling digits. The precise
// backend carries the mantissa as an exact rational over math/big: Format
// rounds it to the target precision with half-even tie-breaking exactly
// once, and Parse rounds it to the working precision and then to float64.
package numfmt

// Backend selects the arithmetic used internally by Parse and Format.
type Backend uint8

const (
	// BackendFast parses in float64 arithmetic ("float-store") and caps
	// Format's significand at FastPrecisionCeiling digits.
	BackendFast Backend = iota
	// BackendPrecise carries the mantissa as an exact rational; Format
	// rounds it to the target precision exactly once, with half-even
	// tie-breaking.
	BackendPrecise
)

// ExactRounding selects whether calls configured for the fast backend are
// computed by the precise backend instead. The choice applies to every
// call, Parse and Format alike; boundary (tie) cases are not detected
// separately.
type ExactRounding uint8

const (
	// ExactRoundingNever always uses the fast backend's own rounding
	// decision. This is the default and reproduces the behaviour visible
	// when an FPU narrows every intermediate to 64 bits ("float-store").
	ExactRoundingNever ExactRounding = iota
	// ExactRoundingAlways escalates to the precise backend whenever the
	// fast backend is selected, reproducing canonical double-to-string
	// conversion.
	ExactRoundingAlways
)

// Result is the output of Parse: an IEEE-754 double plus its provenance.
type Result struct {
	// Value is the parsed double.
	Value float64
	// Sign is -1, 0, or 1.
	Sign int
	// Exponent is the unbiased integer exponent consumed from the
	// optional exponent production of the grammar (0 when absent).
	Exponent int
	// Inexact reports whether Value could not represent the parsed
	// magnitude exactly (rounding occurred converting to float64).
	Inexact bool
}

// config holds the resolved settings from a slice of Option values.
type config struct {
	backend          Backend
	exactRounding    ExactRounding
	workingPrecision uint
}

func defaultConfig() config {
	return config{
		backend:          BackendFast,
		exactRounding:    ExactRoundingNever,
		workingPrecision: 64,
	}
}

// Option configures Parse, Format, and Reshape.
type Option func(*config)

// WithBackend selects the arithmetic backend.
func WithBackend(b Backend) Option {
	return func(c *config) { c.backend = b }
}

// WithExactRounding selects whether calls on the fast backend are computed
// by the precise backend instead (see ExactRounding).
func WithExactRounding(r ExactRounding) Option {
	return func(c *config) { c.exactRounding = r }
}

// WithWorkingPrecision sets the precise backend's working precision in
// significand bits (typically 32, 64, or 128).
func WithWorkingPrecision(bits uint) Option {
	return func(c *config) {
		if bits < 53 {
			bits = 53
		}
		c.workingPrecision = bits
	}
}

// usesPrecise reports whether the resolved config should compute through
// the exact-rational path rather than plain float64 arithmetic.
func (c config) usesPrecise() bool {
	return c.backend == BackendPrecise || c.exactRounding == ExactRoundingAlways
}

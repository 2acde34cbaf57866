// Package sav implements the SAV (System file) format: header, variable,
// value-label and extension records, and the case-matrix codec built on
// endian, compress and matrix.
package sav

import "math"

// Signature is the fixed 4-byte SAV format signature.
const Signature = "$FL2"

// DefaultBias is the nominal compression bias used when a file's header
// does not otherwise specify one.
const DefaultBias = 100.0

// System-missing / HIGHEST / LOWEST defaults, stored
// as raw IEEE-754 bit patterns since they are sentinel values rather than
// ordinary arithmetic doubles.
const (
	sysmissBits = 0xFFEFFFFFFFFFFFFF
	highestBits = 0x7FEFFFFFFFFFFFFF
	lowestBits  = 0xFFEFFFFFFFFFFFFE
)

// Sysmiss is the system-missing double.
func Sysmiss() float64 { return math.Float64frombits(sysmissBits) }

// Highest is the HIGHEST sentinel double, used in open-high missing-value
// ranges.
func Highest() float64 { return math.Float64frombits(highestBits) }

// Lowest is the LOWEST sentinel double, used in open-low missing-value
// ranges.
func Lowest() float64 { return math.Float64frombits(lowestBits) }

// Record type tags, as specified by PSPP.
const (
	recTypeVariable    int32 = 2
	recTypeValueLabel  int32 = 3
	recTypeVarIndex    int32 = 4
	recTypeDocument    int32 = 6
	recTypeExtension   int32 = 7
	recTypeTermination int32 = 999
)

// Extension subtags parsed into typed records;
// every other subtag is preserved verbatim as a RawExtension.
const (
	subtagIntegerInfo int32 = 3
	subtagFloatInfo   int32 = 4
)

package sav

import "math"

func float64FromBits(bits uint64) float64 {
	return math.Float64frombits(bits)
}

func bitsFromFloat64(f float64) uint64 {
	return math.Float64bits(f)
}

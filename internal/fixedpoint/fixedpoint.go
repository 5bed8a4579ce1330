// Package fixedpoint converts between float probabilities and the scaled
// integer representation used at every store boundary.
package fixedpoint

import "math"

// Scale is the shared fixed-point factor: a probability p crosses a store
// boundary as round(p * Scale). Every collaborator assumes this exact value.
const Scale = 1_000_000

// #region convert
// FromProb converts a probability to its fixed-point form, rounding half
// away from zero. Inputs slightly outside [0,1] from floating error are
// clamped rather than rejected.
func FromProb(p float64) int64 {
	v := int64(math.Round(p * Scale))
	if v < 0 {
		return 0
	}
	if v > Scale {
		return Scale
	}
	return v
}

// ToProb converts a fixed-point value back to a float probability.
func ToProb(v int64) float64 {
	return float64(v) / Scale
}

// #endregion convert

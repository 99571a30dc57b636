package domain

import "math"

// ClampNonNegative maps NaN, infinities and negative numbers to 0.
// Every numeric value entered by the user passes through here before it is stored.
func ClampNonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func ClampKits(kits int) int {
	if kits < 0 {
		return 0
	}
	return kits
}

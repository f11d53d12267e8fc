package core

import (
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
)

const defaultEpsilon = 1e-12

// Float is the sample constraint shared by every generic processor in this
// module. Both float32 and float64 streams are supported.
type Float interface {
	algofft.Float
}

// Clamp limits value to the inclusive range [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	return ClampT(value, lo, hi)
}

// ClampT is the generic form of [Clamp]. Swapped bounds are reordered.
func ClampT[F Float](value, lo, hi F) F {
	if lo > hi {
		lo, hi = hi, lo
	}
	return min(max(value, lo), hi)
}

// NearlyEqual reports whether a and b agree within eps, absolute for
// small values and relative otherwise. eps <= 0 selects 1e-12.
func NearlyEqual(a, b, eps float64) bool {
	if eps <= 0 {
		eps = defaultEpsilon
	}
	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}
	return diff <= eps*math.Max(math.Abs(a), math.Abs(b))
}

// SnapToZero returns 0 when x lies within ±eps, x otherwise.
func SnapToZero[F Float](x, eps F) F {
	if !(x < -eps || x > eps) {
		return 0
	}
	return x
}

// IsFinite reports whether x is neither NaN nor ±Inf.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// DBToLinear converts a level in dB to an amplitude factor.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts an amplitude factor to dB: -Inf for zero, NaN for
// negative input.
func LinearToDB(linear float64) float64 {
	switch {
	case linear < 0:
		return math.NaN()
	case linear == 0:
		return math.Inf(-1)
	}
	return 20 * math.Log10(linear)
}

package testutil

import (
	"fmt"
	"math"
	"testing"

	"github.com/cwbudde/algo-waveshaper/dsp/core"
)

// RequireSliceNearlyEqual stops the test at the first sample where got and
// want differ by more than eps, or when their lengths differ.
func RequireSliceNearlyEqual[F core.Float](tb testing.TB, got, want []F, eps float64) {
	tb.Helper()
	if len(got) != len(want) {
		tb.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i, g := range got {
		if d := math.Abs(float64(g) - float64(want[i])); d > eps {
			tb.Fatalf("sample %d: got %v, want %v (|diff| %g > %g)", i, g, want[i], d, eps)
		}
	}
}

// RequireFinite stops the test at the first NaN or infinite sample.
func RequireFinite[F core.Float](tb testing.TB, data []F) {
	tb.Helper()
	for i, v := range data {
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			tb.Fatalf("sample %d is not finite: %v", i, v)
		}
	}
}

// MaxAbsDiff returns the largest sample-wise distance between a and b.
func MaxAbsDiff[F core.Float](a, b []F) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("testutil: length mismatch %d != %d", len(a), len(b))
	}
	var worst float64
	for i := range a {
		worst = max(worst, math.Abs(float64(a[i])-float64(b[i])))
	}
	return worst, nil
}

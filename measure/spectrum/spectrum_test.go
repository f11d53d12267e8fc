package spectrum

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-waveshaper/internal/testutil"
)

func TestNewAnalyzerValidation(t *testing.T) {
	for _, n := range []int{0, 4, 100, -8} {
		if _, err := NewAnalyzer(n); !errors.Is(err, ErrInvalidSize) {
			t.Errorf("NewAnalyzer(%d) err = %v", n, err)
		}
	}
}

func TestMagnitudeBinCentredSine(t *testing.T) {
	const (
		size = 4096
		sr   = 48000.0
	)
	a, err := NewAnalyzer(size)
	if err != nil {
		t.Fatal(err)
	}

	bin := 85
	freq := a.BinFrequency(bin, sr)
	sig := testutil.DeterministicSine(freq, sr, 0.5, size)

	mags, err := a.Magnitude(sig)
	if err != nil {
		t.Fatal(err)
	}
	if len(mags) != size/2+1 {
		t.Fatalf("len = %d", len(mags))
	}
	peakBin, level := Peak(mags, 1, size/2)
	if peakBin != bin {
		t.Fatalf("peak bin = %d, want %d", peakBin, bin)
	}
	if math.Abs(level-0.5) > 1e-6 {
		t.Fatalf("level = %v, want 0.5", level)
	}
	// Far from the tone the Blackman-Harris sidelobes are below -90 dB.
	if mags[bin+40] > 0.5*math.Pow(10, -90.0/20) {
		t.Fatalf("leakage at +40 bins: %v", mags[bin+40])
	}
}

func TestResponseOfImpulseIsFlat(t *testing.T) {
	a, _ := NewAnalyzer(64)
	mags, err := a.Response([]float64{1})
	if err != nil {
		t.Fatal(err)
	}
	for k, m := range mags {
		if math.Abs(m-1) > 1e-12 {
			t.Fatalf("bin %d = %v", k, m)
		}
	}
	if _, err := a.Response(make([]float64, 65)); err == nil {
		t.Fatal("expected error for oversized response")
	}
}

func TestAnalyzeKnownHarmonic(t *testing.T) {
	const (
		size = 8192
		sr   = 48000.0
	)
	a, _ := NewAnalyzer(size)
	f0 := a.BinFrequency(171, sr)

	sig := make([]float64, size)
	for i := range sig {
		ph := 2 * math.Pi * f0 * float64(i) / sr
		sig[i] = 0.8*math.Sin(ph) + 0.008*math.Sin(2*ph) + 0.004*math.Sin(3*ph)
	}

	d, err := a.Analyze(sig, sr, f0, 5)
	if err != nil {
		t.Fatal(err)
	}
	want := math.Hypot(0.01, 0.005)
	if math.Abs(d.THD-want) > 1e-5 {
		t.Fatalf("THD = %v, want %v", d.THD, want)
	}
	if math.Abs(d.Fundamental-0.8) > 1e-6 {
		t.Fatalf("fundamental = %v", d.Fundamental)
	}
	if len(d.Harmonics) != 5 || math.Abs(d.Harmonics[0]-0.01) > 1e-6 {
		t.Fatalf("harmonics = %v", d.Harmonics)
	}
	if d.AliasFloorDB > -100 {
		t.Fatalf("alias floor %v dB for a clean signal", d.AliasFloorDB)
	}
}

func TestAnalyzeDetectsAlias(t *testing.T) {
	const (
		size = 4096
		sr   = 48000.0
	)
	a, _ := NewAnalyzer(size)
	f0 := a.BinFrequency(100, sr)
	alias := a.BinFrequency(333, sr)

	sig := make([]float64, size)
	for i := range sig {
		sig[i] = math.Sin(2*math.Pi*f0*float64(i)/sr) + 0.001*math.Sin(2*math.Pi*alias*float64(i)/sr)
	}
	d, err := a.Analyze(sig, sr, f0, 3)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d.AliasFloorDB+60) > 0.1 {
		t.Fatalf("alias floor = %v dB, want -60", d.AliasFloorDB)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	a, _ := NewAnalyzer(256)
	if _, err := a.Analyze(make([]float64, 256), 48000, 30000, 3); err == nil {
		t.Fatal("expected error above Nyquist")
	}
	if _, err := a.Analyze(make([]float64, 256), 48000, 1000, 3); err == nil {
		t.Fatal("expected error for silence")
	}
	if _, err := a.Magnitude(nil); err == nil {
		t.Fatal("expected error for empty signal")
	}
}

func TestToDB(t *testing.T) {
	got := ToDB([]float64{1, 0.1, 0}, -120)
	testutil.RequireSliceNearlyEqual(t, got, []float64{0, -20, -120}, 1e-12)
}

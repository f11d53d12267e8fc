package spectrum

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-waveshaper/internal/testutil"
)

func TestToneLevelWholePeriods(t *testing.T) {
	const fs = 48000.0
	// 1 kHz spans 48 samples per period; 4800 samples hold 100 periods.
	x := testutil.DeterministicSine(1000, fs, 0.3, 4800)

	got, err := ToneLevel(x, 1000, fs)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-0.3) > 1e-9 {
		t.Fatalf("level = %v, want 0.3", got)
	}

	off, err := ToneLevel(x, 3000, fs)
	if err != nil {
		t.Fatal(err)
	}
	if off > 1e-9 {
		t.Fatalf("level at 3 kHz = %v, want 0", off)
	}
}

func TestGoertzelStreamingMatchesOneShot(t *testing.T) {
	const fs = 44100.0
	x := testutil.DeterministicNoise(3, 1, 1000)

	g, err := NewGoertzel(2205, fs)
	if err != nil {
		t.Fatal(err)
	}
	for start := 0; start < len(x); start += 64 {
		g.Process(x[start:min(start+64, len(x))])
	}

	want, err := ToneLevel(x, 2205, fs)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(g.Amplitude()-want) > 1e-12 {
		t.Fatalf("streamed %v, one-shot %v", g.Amplitude(), want)
	}

	g.Reset()
	if g.Amplitude() != 0 || g.Power() != 0 {
		t.Fatal("reset detector is not empty")
	}
}

func TestGoertzelValidation(t *testing.T) {
	for _, tc := range []struct{ f, fs float64 }{
		{1000, 0},
		{-1, 48000},
		{30000, 48000},
		{math.NaN(), 48000},
	} {
		if _, err := NewGoertzel(tc.f, tc.fs); err == nil {
			t.Errorf("NewGoertzel(%v, %v): expected error", tc.f, tc.fs)
		}
	}
}

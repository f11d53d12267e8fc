package oversample

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-waveshaper/measure/spectrum"
)

const responseSize = 4096

func requireHalfbandResponse(t *testing.T, name string, h []float64, gain float64, d Design) {
	t.Helper()

	a, err := spectrum.NewAnalyzer(responseSize)
	if err != nil {
		t.Fatal(err)
	}
	mags, err := a.Response(h)
	if err != nil {
		t.Fatal(err)
	}

	passEnd := int(math.Floor((0.25 - d.Transition/2) * responseSize))
	stopStart := int(math.Ceil((0.25 + d.Transition/2) * responseSize))

	for k := 0; k <= passEnd; k++ {
		db := 20 * math.Log10(mags[k]/gain)
		if math.Abs(db) > 0.1 {
			t.Fatalf("%s: passband ripple %.4f dB at bin %d", name, db, k)
		}
	}
	for k := stopStart; k < len(mags); k++ {
		db := 20 * math.Log10(mags[k]/gain)
		if db > -60 {
			t.Fatalf("%s: stopband %.2f dB at bin %d", name, db, k)
		}
	}
}

func TestDesignHalfbandFIRShape(t *testing.T) {
	tests := []struct {
		d       Design
		wantLen int
	}{
		{DefaultFIRUp, 119},
		{DefaultFIRDown, 79},
	}
	for _, tt := range tests {
		h, err := DesignHalfbandFIR(tt.d.Transition, tt.d.AttenuationDB)
		if err != nil {
			t.Fatal(err)
		}
		if len(h) != tt.wantLen || (len(h)-3)%4 != 0 {
			t.Fatalf("len = %d, want %d", len(h), tt.wantLen)
		}

		c := len(h) / 2
		sum := 0.0
		for i, v := range h {
			sum += v
			if h[len(h)-1-i] != v {
				t.Fatalf("tap %d not symmetric", i)
			}
			if i != c && (i-c)%2 == 0 && v != 0 {
				t.Fatalf("tap %d = %v, want 0", i, v)
			}
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Fatalf("DC gain = %v", sum)
		}
		if math.Abs(h[c]-0.5) > 1e-3 {
			t.Fatalf("centre tap = %v, want ~0.5", h[c])
		}

		requireHalfbandResponse(t, "fir", h, 1, tt.d)
	}
}

func TestDesignHalfbandIIR(t *testing.T) {
	for _, d := range []Design{DefaultIIRUp, DefaultIIRDown} {
		c, err := DesignHalfbandIIR(d.Transition, d.AttenuationDB)
		if err != nil {
			t.Fatal(err)
		}
		if len(c) != 4 {
			t.Fatalf("coefficient count = %d, want 4", len(c))
		}
		for i, v := range c {
			if v <= 0 || v >= 1 {
				t.Fatalf("coefficient %d = %v not in (0, 1)", i, v)
			}
			if i > 0 && v <= c[i-1] {
				t.Fatalf("coefficients not increasing: %v", c)
			}
		}

		att, _ := IIRAttenuation(len(c), d.Transition)
		fewer, _ := IIRAttenuation(len(c)-1, d.Transition)
		if att < d.AttenuationDB || fewer >= d.AttenuationDB {
			t.Fatalf("not the smallest design: %v dB with %d, %v dB with %d", att, len(c), fewer, len(c)-1)
		}
	}
}

func TestDesignErrors(t *testing.T) {
	tests := []struct {
		name    string
		tw, att float64
	}{
		{"zero transition", 0, 60},
		{"half transition", 0.5, 60},
		{"NaN transition", math.NaN(), 60},
		{"zero attenuation", 0.1, 0},
		{"negative attenuation", 0.1, -3},
		{"infinite attenuation", 0.1, math.Inf(1)},
	}
	for _, tt := range tests {
		if _, err := DesignHalfbandFIR(tt.tw, tt.att); !errors.Is(err, ErrDesign) {
			t.Errorf("FIR %s: err = %v", tt.name, err)
		}
		if _, err := DesignHalfbandIIR(tt.tw, tt.att); !errors.Is(err, ErrDesign) {
			t.Errorf("IIR %s: err = %v", tt.name, err)
		}
	}

	if _, err := DesignHalfbandIIR(0.001, 400); !errors.Is(err, ErrDesign) {
		t.Fatalf("unreachable attenuation err = %v", err)
	}
	if _, err := IIRAttenuation(0, 0.1); err == nil {
		t.Fatal("expected error for zero coefficients")
	}
	if _, err := IIRAttenuation(4, math.NaN()); err == nil {
		t.Fatal("expected error for NaN transition")
	}
}

func impulseUp(l level[float64], n int) []float64 {
	in := make([]float64, n)
	in[0] = 1
	out := make([]float64, 2*n)
	l.processUp(0, in, out)
	return out
}

func TestFIRLevelImpulseResponse(t *testing.T) {
	up, _ := DesignHalfbandFIR(DefaultFIRUp.Transition, DefaultFIRUp.AttenuationDB)
	down, _ := DesignHalfbandFIR(DefaultFIRDown.Transition, DefaultFIRDown.AttenuationDB)
	l := newFIRLevel[float64](up, down, 1)

	out := impulseUp(l, 80)
	for i, v := range up {
		if math.Abs(out[i]-2*v) > 1e-15 {
			t.Fatalf("sample %d = %v, want %v", i, out[i], 2*v)
		}
	}
	for i := len(up); i < len(out); i++ {
		if out[i] != 0 {
			t.Fatalf("tail sample %d = %v", i, out[i])
		}
	}
	if l.latency() != 59+39 {
		t.Fatalf("latency = %v, want 98", l.latency())
	}
}

func TestIIRLevelImpulseResponse(t *testing.T) {
	up, _ := DesignHalfbandIIR(DefaultIIRUp.Transition, DefaultIIRUp.AttenuationDB)
	down, _ := DesignHalfbandIIR(DefaultIIRDown.Transition, DefaultIIRDown.AttenuationDB)
	l := newIIRLevel[float64](up, down, 1)

	h := impulseUp(l, responseSize/2)
	requireHalfbandResponse(t, "iir up", h, 2, DefaultIIRUp)
}

func TestHistoryWindow(t *testing.T) {
	h := newHistory[float64](3)
	for i := 1; i <= 5; i++ {
		h.push(float64(i))
	}
	w := h.window()
	if w[0] != 5 || w[1] != 4 || w[2] != 3 {
		t.Fatalf("window = %v", w)
	}
	h.reset()
	for _, v := range h.window() {
		if v != 0 {
			t.Fatal("reset did not clear history")
		}
	}
}

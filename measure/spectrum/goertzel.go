package spectrum

import (
	"errors"
	"math"
)

// Goertzel tracks one DFT term over a running block of samples.
type Goertzel struct {
	coeff  float64
	s0, s1 float64
	n      int
}

// NewGoertzel returns a single-bin detector for freq, which must lie in
// [0, sampleRate/2].
func NewGoertzel(freq, sampleRate float64) (*Goertzel, error) {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return nil, errors.New("spectrum: sample rate must be positive")
	}
	if !(freq >= 0 && freq <= sampleRate/2) {
		return nil, errors.New("spectrum: tone must be in [0, Nyquist]")
	}
	return &Goertzel{coeff: 2 * math.Cos(2*math.Pi*freq/sampleRate)}, nil
}

// Process feeds x into the running block.
func (g *Goertzel) Process(x []float64) {
	s0, s1, c := g.s0, g.s1, g.coeff
	for _, v := range x {
		s0, s1 = v+c*s0-s1, s0
	}
	g.s0, g.s1 = s0, s1
	g.n += len(x)
}

// Reset starts a new block.
func (g *Goertzel) Reset() {
	g.s0, g.s1, g.n = 0, 0, 0
}

// Power returns |X|² of the block so far.
func (g *Goertzel) Power() float64 {
	return math.Max(g.s0*g.s0+g.s1*g.s1-g.coeff*g.s0*g.s1, 0)
}

// Amplitude returns the peak amplitude of a sinusoid that lands exactly on
// the detector bin, 2·|X|/N.
func (g *Goertzel) Amplitude() float64 {
	if g.n == 0 {
		return 0
	}
	return 2 * math.Sqrt(g.Power()) / float64(g.n)
}

// ToneLevel measures the amplitude of freq over the whole of signal. It is
// exact when signal spans a whole number of periods.
func ToneLevel(signal []float64, freq, sampleRate float64) (float64, error) {
	g, err := NewGoertzel(freq, sampleRate)
	if err != nil {
		return 0, err
	}
	g.Process(signal)
	return g.Amplitude(), nil
}

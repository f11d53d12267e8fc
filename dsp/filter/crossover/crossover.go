package crossover

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-waveshaper/dsp/core"
)

const (
	// DefaultMaxFrequency caps the cutoff regardless of sample rate.
	DefaultMaxFrequency = 20000.0

	// MaxCutoffRatio bounds the cutoff below Nyquist so g stays inside (0, 1).
	MaxCutoffRatio = 0.49

	snapEpsilon = 1e-8
)

// Mode selects the single output of [Filter.ProcessSample].
type Mode int

const (
	ModeLowpass Mode = iota
	ModeHighpass
)

// Filter is a first-order trapezoidal lowpass with a complementary highpass
// residual. The zero value is unusable; construct with [New].
type Filter[F core.Float] struct {
	sampleRate   float64
	cutoff       float64
	maxFrequency float64
	ceiling      float64
	g            F
	state        []F
}

// New creates a crossover filter at cutoff Hz for the given number of
// channels. The cutoff is clamped to min(0.49·sampleRate, 20 kHz).
func New[F core.Float](sampleRate, cutoff float64, channels int) (*Filter[F], error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("crossover: sample rate must be positive, got %v", sampleRate)
	}
	if cutoff <= 0 || !core.IsFinite(cutoff) {
		return nil, fmt.Errorf("crossover: cutoff must be positive, got %v", cutoff)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("crossover: channels must be positive, got %d", channels)
	}

	f := &Filter[F]{
		sampleRate: sampleRate,
		ceiling:    DefaultMaxFrequency,
		state:      make([]F, channels),
	}
	f.updateMaxFrequency()
	f.SetCutoffFrequency(cutoff)
	return f, nil
}

// SampleRate returns the sample rate in Hz.
func (f *Filter[F]) SampleRate() float64 { return f.sampleRate }

// Cutoff returns the effective (clamped) cutoff in Hz.
func (f *Filter[F]) Cutoff() float64 { return f.cutoff }

// MaxFrequency returns the current cutoff ceiling in Hz.
func (f *Filter[F]) MaxFrequency() float64 { return f.maxFrequency }

// NumChannels returns the number of state slots.
func (f *Filter[F]) NumChannels() int { return len(f.state) }

// Coefficient returns the integrator gain g = t/(1+t), t = tan(π·fc/fs).
func (f *Filter[F]) Coefficient() F { return f.g }

// SetNumChannels resizes the per-channel state and clears it.
func (f *Filter[F]) SetNumChannels(n int) {
	if n < 0 {
		n = 0
	}
	f.state = core.EnsureLen(f.state, n)
	core.Zero(f.state)
}

// Reset clears the state of every channel.
func (f *Filter[F]) Reset() {
	core.Zero(f.state)
}

// SetSampleRate updates the sample rate, re-clamps the cutoff and
// recomputes the coefficient. Non-positive rates are ignored.
func (f *Filter[F]) SetSampleRate(sampleRate float64) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return
	}
	f.sampleRate = sampleRate
	f.updateMaxFrequency()
	f.SetCutoffFrequency(f.cutoff)
}

// SetMaxFrequency sets the cutoff ceiling. The effective ceiling never
// exceeds MaxCutoffRatio·sampleRate.
func (f *Filter[F]) SetMaxFrequency(hz float64) {
	if hz <= 0 || !core.IsFinite(hz) {
		return
	}
	f.ceiling = hz
	f.updateMaxFrequency()
	f.SetCutoffFrequency(f.cutoff)
}

// SetCutoffFrequency clamps hz into (0, MaxFrequency] and updates the
// coefficient. It does not touch the filter state.
func (f *Filter[F]) SetCutoffFrequency(hz float64) {
	if math.IsNaN(hz) {
		return
	}
	minFrequency := f.maxFrequency * 1e-6
	f.cutoff = core.Clamp(hz, minFrequency, f.maxFrequency)

	t := math.Tan(math.Pi * f.cutoff / f.sampleRate)
	f.g = F(t / (1 + t))
}

// ProcessCrossover filters one sample of channel ch and returns the lowpass
// band and its complement high = in - low. An out-of-range
// channel returns (in, 0) and leaves every state untouched.
func (f *Filter[F]) ProcessCrossover(in F, ch int) (low, high F) {
	if ch < 0 || ch >= len(f.state) {
		return in, 0
	}

	s := f.state[ch]
	v := (in - s) * f.g
	low = s + v
	f.state[ch] = low + v
	return low, in - low
}

// ProcessSample filters one sample of channel ch and returns the band
// selected by mode. An out-of-range channel returns in.
func (f *Filter[F]) ProcessSample(in F, ch int, mode Mode) F {
	if ch < 0 || ch >= len(f.state) {
		return in
	}
	low, high := f.ProcessCrossover(in, ch)
	if mode == ModeHighpass {
		return high
	}
	return low
}

// ProcessBlock filters buf in place for channel ch using mode.
func (f *Filter[F]) ProcessBlock(buf []F, ch int, mode Mode) {
	if ch < 0 || ch >= len(f.state) {
		return
	}
	for i, x := range buf {
		buf[i] = f.ProcessSample(x, ch, mode)
	}
}

// SnapToZero flushes state values within ±1e-8 to zero.
func (f *Filter[F]) SnapToZero() {
	for i, s := range f.state {
		f.state[i] = core.SnapToZero(s, snapEpsilon)
	}
}

// MagnitudeDB returns the analytic magnitude response of the selected band
// at freq Hz.
func (f *Filter[F]) MagnitudeDB(freq float64, mode Mode) float64 {
	g := float64(f.g)
	w := 2 * math.Pi * freq / f.sampleRate
	zinv := complex(math.Cos(w), -math.Sin(w))
	lp := complex(g, 0) * (1 + zinv) / (1 + complex(2*g-1, 0)*zinv)

	h := lp
	if mode == ModeHighpass {
		h = 1 - lp
	}
	return core.LinearToDB(cmplxAbs(h))
}

func (f *Filter[F]) updateMaxFrequency() {
	f.maxFrequency = math.Min(f.sampleRate*MaxCutoffRatio, f.ceiling)
	if f.cutoff > f.maxFrequency {
		f.cutoff = f.maxFrequency
	}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

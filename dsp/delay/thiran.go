package delay

import "github.com/cwbudde/algo-waveshaper/dsp/core"

// Thiran is a first-order Thiran allpass providing a fractional delay with
// flat magnitude response. The low-frequency group delay equals the
// configured delay d; d in [0.5, 1.5] keeps the pole well inside the unit
// circle.
//
//	y[n] = a·x[n] + x[n-1] - a·y[n-1],  a = (1-d)/(1+d)
type Thiran[F core.Float] struct {
	delay float64
	a     F
	x1    []F
	y1    []F
}

// NewThiran creates a fractional delay of d samples for the given number
// of channels. d is clamped to (0, 2).
func NewThiran[F core.Float](d float64, channels int) *Thiran[F] {
	t := &Thiran[F]{
		x1: make([]F, max(channels, 0)),
		y1: make([]F, max(channels, 0)),
	}
	t.SetDelay(d)
	return t
}

// SetDelay updates the fractional delay. State is kept.
func (t *Thiran[F]) SetDelay(d float64) {
	d = core.Clamp(d, 1e-3, 2-1e-3)
	t.delay = d
	t.a = F((1 - d) / (1 + d))
}

// Delay returns the configured delay in samples.
func (t *Thiran[F]) Delay() float64 { return t.delay }

// Coefficient returns the allpass coefficient a.
func (t *Thiran[F]) Coefficient() F { return t.a }

// ProcessSample filters one sample of channel ch. Out-of-range channels
// pass through.
func (t *Thiran[F]) ProcessSample(x F, ch int) F {
	if ch < 0 || ch >= len(t.x1) {
		return x
	}
	y := t.a*x + t.x1[ch] - t.a*t.y1[ch]
	t.x1[ch] = x
	t.y1[ch] = y
	return y
}

// ProcessBlock filters buf in place for channel ch.
func (t *Thiran[F]) ProcessBlock(buf []F, ch int) {
	if ch < 0 || ch >= len(t.x1) {
		return
	}
	for i, x := range buf {
		buf[i] = t.ProcessSample(x, ch)
	}
}

// Reset clears the filter state.
func (t *Thiran[F]) Reset() {
	core.Zero(t.x1)
	core.Zero(t.y1)
}

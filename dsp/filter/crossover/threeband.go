package crossover

import (
	"fmt"

	"github.com/cwbudde/algo-waveshaper/dsp/core"
)

// ThreeBand cascades two [Filter] stages: the low filter splits the input
// into low and rest, the high filter splits rest into mid and high.
// low + mid + high reconstructs in up to rounding.
type ThreeBand[F core.Float] struct {
	low  *Filter[F]
	high *Filter[F]
}

// NewThreeBand creates a three-band splitter. The low crossover is clamped
// to be no higher than the high crossover.
func NewThreeBand[F core.Float](sampleRate, lowHz, highHz float64, channels int) (*ThreeBand[F], error) {
	if lowHz > highHz {
		lowHz = highHz
	}
	lo, err := New[F](sampleRate, lowHz, channels)
	if err != nil {
		return nil, fmt.Errorf("crossover: low band: %w", err)
	}
	hi, err := New[F](sampleRate, highHz, channels)
	if err != nil {
		return nil, fmt.Errorf("crossover: high band: %w", err)
	}
	return &ThreeBand[F]{low: lo, high: hi}, nil
}

// Low returns the low crossover filter.
func (t *ThreeBand[F]) Low() *Filter[F] { return t.low }

// High returns the high crossover filter.
func (t *ThreeBand[F]) High() *Filter[F] { return t.high }

// SetFrequencies updates both cutoffs, clamping low to be ≤ high.
func (t *ThreeBand[F]) SetFrequencies(lowHz, highHz float64) {
	if lowHz > highHz {
		lowHz = highHz
	}
	t.low.SetCutoffFrequency(lowHz)
	t.high.SetCutoffFrequency(highHz)
}

// SetSampleRate updates both filters.
func (t *ThreeBand[F]) SetSampleRate(sampleRate float64) {
	t.low.SetSampleRate(sampleRate)
	t.high.SetSampleRate(sampleRate)
}

// SetNumChannels resizes and clears both filters.
func (t *ThreeBand[F]) SetNumChannels(n int) {
	t.low.SetNumChannels(n)
	t.high.SetNumChannels(n)
}

// Reset clears both filters.
func (t *ThreeBand[F]) Reset() {
	t.low.Reset()
	t.high.Reset()
}

// SnapToZero flushes near-zero state in both filters.
func (t *ThreeBand[F]) SnapToZero() {
	t.low.SnapToZero()
	t.high.SnapToZero()
}

// Split returns the three bands of one sample of channel ch.
func (t *ThreeBand[F]) Split(in F, ch int) (low, mid, high F) {
	low, rest := t.low.ProcessCrossover(in, ch)
	mid, high = t.high.ProcessCrossover(rest, ch)
	return low, mid, high
}

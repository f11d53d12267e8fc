package delay

import (
	"fmt"

	"github.com/cwbudde/algo-waveshaper/dsp/core"
)

// Compensator delays every channel of a planar block by the same integer
// number of samples. It is used to align a path with lower latency to the
// path with the highest latency.
type Compensator[F core.Float] struct {
	lines    []*Line[F]
	maxDelay int
	delay    int
}

// NewCompensator allocates one line per channel able to hold maxDelay
// samples of delay.
func NewCompensator[F core.Float](channels, maxDelay int) (*Compensator[F], error) {
	if channels <= 0 {
		return nil, fmt.Errorf("delay: channels must be > 0: %d", channels)
	}
	if maxDelay < 0 {
		return nil, fmt.Errorf("delay: max delay must be >= 0: %d", maxDelay)
	}

	c := &Compensator[F]{
		lines:    make([]*Line[F], channels),
		maxDelay: maxDelay,
	}
	for ch := range c.lines {
		line, err := New[F](maxDelay + 1)
		if err != nil {
			return nil, err
		}
		c.lines[ch] = line
	}
	return c, nil
}

// NumChannels returns the number of delay lines.
func (c *Compensator[F]) NumChannels() int { return len(c.lines) }

// MaxDelay returns the largest delay the compensator can apply.
func (c *Compensator[F]) MaxDelay() int { return c.maxDelay }

// Delay returns the current delay in samples.
func (c *Compensator[F]) Delay() int { return c.delay }

// SetDelay sets the delay, clamped to [0, MaxDelay]. The line contents are
// kept, so the transition reads history that was already written.
func (c *Compensator[F]) SetDelay(samples int) {
	c.delay = max(0, min(samples, c.maxDelay))
}

// Process delays block in place. Channels beyond NumChannels are left
// untouched. A zero delay still feeds the lines so that later increases
// read valid history.
func (c *Compensator[F]) Process(block [][]F) {
	for ch, buf := range block {
		if ch >= len(c.lines) {
			return
		}
		c.lines[ch].ProcessBlock(buf, c.delay)
	}
}

// Reset clears every line.
func (c *Compensator[F]) Reset() {
	for _, line := range c.lines {
		line.Reset()
	}
}

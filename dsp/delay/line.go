package delay

import (
	"fmt"
	"math/bits"

	"github.com/cwbudde/algo-waveshaper/dsp/core"
)

// Line is a circular delay line holding the last Len samples. Storage is
// rounded up to a power of two so positions wrap with a mask.
type Line[F core.Float] struct {
	buf  []F
	mask int
	pos  int // next write index
	size int
}

// New returns a delay line that can reach size samples into the past.
func New[F core.Float](size int) (*Line[F], error) {
	if size <= 0 {
		return nil, fmt.Errorf("delay: size must be > 0: %d", size)
	}
	capacity := 1 << bits.Len(uint(size-1))
	return &Line[F]{buf: make([]F, capacity), mask: capacity - 1, size: size}, nil
}

// Len returns the longest reachable delay.
func (d *Line[F]) Len() int { return d.size }

// Write pushes one sample.
func (d *Line[F]) Write(x F) {
	d.buf[d.pos] = x
	d.pos = (d.pos + 1) & d.mask
}

// Read returns the sample written delay pushes ago: Read(1) is the newest,
// Read(Len()) the oldest. delay is clamped to [1, Len()].
func (d *Line[F]) Read(delay int) F {
	delay = max(1, min(delay, d.size))
	return d.buf[(d.pos-delay)&d.mask]
}

// Process writes x and returns the input from delay samples earlier, in
// [0, Len()-1]. A zero delay returns x.
func (d *Line[F]) Process(x F, delay int) F {
	d.Write(x)
	return d.Read(delay + 1)
}

// ProcessBlock delays buf in place by delay samples.
func (d *Line[F]) ProcessBlock(buf []F, delay int) {
	delay = max(0, min(delay, d.size-1))
	for i, x := range buf {
		d.buf[d.pos] = x
		buf[i] = d.buf[(d.pos-delay)&d.mask]
		d.pos = (d.pos + 1) & d.mask
	}
}

// Reset clears the history.
func (d *Line[F]) Reset() {
	core.Zero(d.buf)
	d.pos = 0
}

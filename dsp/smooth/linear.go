// Package smooth provides parameter smoothers that turn discrete control
// changes into per-sample ramps.
//
// A [Linear] smoother is split across two goroutines: the control side
// posts targets with [Linear.SetTarget], which is lock-free, while the audio
// side advances the ramp with [Linear.Next]. Every other method belongs to
// the audio side.
package smooth

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-waveshaper/dsp/core"
)

// Linear ramps linearly from its current value to a target over a fixed
// number of steps. After exactly that many calls to Next the value equals
// the target.
type Linear[F core.Float] struct {
	current   F
	target    F
	step      F
	countdown int
	steps     int

	pending atomic.Uint64
}

// NewLinear returns a smoother resting at initial with a zero-length ramp.
// Call Reset to configure the ramp length.
func NewLinear[F core.Float](initial F) *Linear[F] {
	s := &Linear[F]{}
	s.SetCurrentAndTarget(initial)
	return s
}

// Reset sets the ramp length to ceil(rampSeconds·sampleRate) steps. An
// active ramp restarts from the current value with the new length.
func (s *Linear[F]) Reset(sampleRate, rampSeconds float64) {
	steps := 0
	if sampleRate > 0 && rampSeconds > 0 {
		steps = int(math.Ceil(rampSeconds * sampleRate))
	}
	s.steps = steps

	if s.countdown > 0 {
		s.countdown = 0
		s.start(s.target)
	}
}

// Steps returns the ramp length in steps.
func (s *Linear[F]) Steps() int { return s.steps }

// SetTarget posts a new target. Safe to call from any goroutine; the
// audio side picks it up on the next call to Next. NaN is ignored.
func (s *Linear[F]) SetTarget(v F) {
	if v != v {
		return
	}
	s.pending.Store(math.Float64bits(float64(v)))
}

// SetCurrentAndTarget jumps to v without ramping.
func (s *Linear[F]) SetCurrentAndTarget(v F) {
	s.pending.Store(math.Float64bits(float64(v)))
	s.current = v
	s.target = v
	s.countdown = 0
}

// Snap jumps to the latest posted target.
func (s *Linear[F]) Snap() {
	s.SetCurrentAndTarget(s.loadPending())
}

// Next advances one step and returns the new value.
func (s *Linear[F]) Next() F {
	s.poll()
	if s.countdown <= 0 {
		return s.current
	}

	s.countdown--
	if s.countdown == 0 {
		s.current = s.target
	} else {
		s.current += s.step
	}
	return s.current
}

// Skip advances n steps and returns the new value.
func (s *Linear[F]) Skip(n int) F {
	s.poll()
	if n <= 0 || s.countdown <= 0 {
		return s.current
	}
	if n >= s.countdown {
		s.countdown = 0
		s.current = s.target
		return s.current
	}

	s.countdown -= n
	s.current += s.step * F(n)
	return s.current
}

// IsRamping reports whether the value is still moving, including a posted
// target that Next has not consumed yet.
func (s *Linear[F]) IsRamping() bool {
	return s.countdown > 0 || s.loadPending() != s.target
}

// Posted returns the most recently posted target, which Next may not have
// picked up yet. Safe to call from any goroutine.
func (s *Linear[F]) Posted() F { return s.loadPending() }

// Current returns the value without advancing.
func (s *Linear[F]) Current() F { return s.current }

// Target returns the target currently ramped to.
func (s *Linear[F]) Target() F { return s.target }

func (s *Linear[F]) poll() {
	if p := s.loadPending(); p != s.target {
		s.start(p)
	}
}

func (s *Linear[F]) start(v F) {
	s.target = v
	if s.steps <= 0 || v == s.current {
		s.current = v
		s.countdown = 0
		return
	}
	s.countdown = s.steps
	s.step = (v - s.current) / F(s.steps)
}

func (s *Linear[F]) loadPending() F {
	return F(math.Float64frombits(s.pending.Load()))
}

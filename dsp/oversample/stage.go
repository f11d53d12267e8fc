package oversample

import (
	"math"

	"github.com/cwbudde/algo-waveshaper/dsp/core"
	"github.com/cwbudde/algo-waveshaper/dsp/delay"
)

// golden is the smallest fractional delay handed to the Thiran filter;
// shorter delays are pushed up by one sample.
const golden = 0.618

// coefficients are designed once per bank and shared by its stages.
type coefficients struct {
	firUp, firDown []float64
	iirUp, iirDown []float64
}

// Stage oversamples a planar block by 2^levels. A stage with zero levels
// passes blocks through unchanged with zero latency.
type Stage[F core.Float] struct {
	levels   []level[F]
	channels int
	maxBlock int

	// buffers[j][ch] holds the signal at 2^(j+1) times the base rate.
	buffers [][][]F
	views   [][]F

	latency    float64
	fracDelay  float64
	fractional *delay.Thiran[F]
}

func newStage[F core.Float](numLevels, channels, maxBlock int, coefs *coefficients, integerLatency bool) *Stage[F] {
	s := &Stage[F]{
		levels:   make([]level[F], numLevels),
		channels: channels,
		maxBlock: maxBlock,
		buffers:  make([][][]F, numLevels),
		views:    make([][]F, channels),
	}

	for j := range numLevels {
		if j == 0 {
			s.levels[j] = newFIRLevel[F](coefs.firUp, coefs.firDown, channels)
		} else {
			s.levels[j] = newIIRLevel[F](coefs.iirUp, coefs.iirDown, channels)
		}
		s.buffers[j] = core.NewPlanar[F](channels, maxBlock<<(j+1))
		s.latency += s.levels[j].latency() / float64(int(1)<<(j+1))
	}

	if integerLatency && numLevels > 0 {
		frac := math.Ceil(s.latency) - s.latency
		if frac > 1e-9 {
			if frac < golden {
				frac++
			}
			s.fracDelay = frac
			s.fractional = delay.NewThiran[F](frac, channels)
		}
	}

	return s
}

// Factor returns the oversampling factor 2^levels.
func (s *Stage[F]) Factor() int { return 1 << len(s.levels) }

// NumLevels returns the number of half-band levels.
func (s *Stage[F]) NumLevels() int { return len(s.levels) }

// Latency returns the round-trip latency in base-rate samples, including
// the fractional compensation delay when integer latency is enabled.
func (s *Stage[F]) Latency() float64 { return s.latency + s.fracDelay }

// UncompensatedLatency returns the latency of the half-band filters alone.
func (s *Stage[F]) UncompensatedLatency() float64 { return s.latency }

// ProcessUp oversamples block and returns views into the stage's internal
// buffers. The block must hold at most maxBlockSize frames and exactly the
// prepared number of channels; otherwise nil is returned. A zero-level
// stage returns block itself.
func (s *Stage[F]) ProcessUp(block [][]F) [][]F {
	n, ok := s.frames(block)
	if !ok {
		return nil
	}
	if len(s.levels) == 0 {
		return block
	}

	for j, lvl := range s.levels {
		for ch := range s.channels {
			var in []F
			if j == 0 {
				in = block[ch][:n]
			} else {
				in = s.buffers[j-1][ch][:n<<j]
			}
			lvl.processUp(ch, in, s.buffers[j][ch][:n<<(j+1)])
		}
	}

	last := len(s.levels) - 1
	for ch := range s.channels {
		s.views[ch] = s.buffers[last][ch][:n<<(last+1)]
	}
	return s.views
}

// ProcessDown decimates the internal oversampled buffers, as left by
// ProcessUp and modified in place by the caller, back into block.
func (s *Stage[F]) ProcessDown(block [][]F) {
	n, ok := s.frames(block)
	if !ok || len(s.levels) == 0 {
		return
	}

	for j := len(s.levels) - 1; j >= 0; j-- {
		for ch := range s.channels {
			var out []F
			if j == 0 {
				out = block[ch][:n]
			} else {
				out = s.buffers[j-1][ch][:n<<j]
			}
			s.levels[j].processDown(ch, s.buffers[j][ch][:n<<(j+1)], out)
		}
	}

	if s.fractional != nil {
		for ch := range s.channels {
			s.fractional.ProcessBlock(block[ch][:n], ch)
		}
	}
}

// Reset clears every filter state.
func (s *Stage[F]) Reset() {
	for _, lvl := range s.levels {
		lvl.reset()
	}
	if s.fractional != nil {
		s.fractional.Reset()
	}
}

func (s *Stage[F]) frames(block [][]F) (int, bool) {
	if len(block) != s.channels {
		return 0, false
	}
	n, ok := core.Frames(block)
	if !ok || n > s.maxBlock {
		return 0, false
	}
	return n, true
}

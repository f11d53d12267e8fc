package oversample

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-waveshaper/dsp/core"
)

// DefaultNumStages gives factors 1, 2, 4, 8 and 16.
const DefaultNumStages = 5

var (
	// ErrNotPrepared is returned when a bank is used before Prepare.
	ErrNotPrepared = errors.New("oversample: bank not prepared")
	// ErrStageIndex is returned for a stage index outside the bank.
	ErrStageIndex = errors.New("oversample: stage index out of range")
	// ErrInvalidLayout is returned for non-positive channel or block counts.
	ErrInvalidLayout = errors.New("oversample: invalid channel or block layout")
)

// Bank holds one [Stage] per oversampling factor and routes processing to
// the active one. Stage i oversamples by 2^i; stage 0 is the pass-through.
// All stages are built eagerly by Prepare so switching never allocates.
type Bank[F core.Float] struct {
	cfg       config
	numStages int
	stages    []*Stage[F]
	active    int
	channels  int
	maxBlock  int
}

// NewBank creates a bank with numStages stages.
func NewBank[F core.Float](numStages int, opts ...Option) (*Bank[F], error) {
	if numStages < 1 {
		return nil, fmt.Errorf("%w: need at least one stage, got %d", ErrStageIndex, numStages)
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Bank[F]{cfg: cfg, numStages: numStages}, nil
}

// Prepare designs the half-band filters and allocates every stage for the
// given channel count and maximum base-rate block size. Filter state is
// cleared and the active index is kept.
func (b *Bank[F]) Prepare(channels, maxBlockSize int) error {
	if channels <= 0 || maxBlockSize <= 0 {
		return fmt.Errorf("%w: channels=%d maxBlockSize=%d", ErrInvalidLayout, channels, maxBlockSize)
	}

	coefs, err := b.design()
	if err != nil {
		return err
	}

	stages := make([]*Stage[F], b.numStages)
	for i := range stages {
		stages[i] = newStage[F](i, channels, maxBlockSize, coefs, b.cfg.integerLatency)
	}

	b.stages = stages
	b.channels = channels
	b.maxBlock = maxBlockSize
	return nil
}

func (b *Bank[F]) design() (*coefficients, error) {
	var (
		c   coefficients
		err error
	)
	if b.numStages < 2 {
		return &c, nil
	}
	if c.firUp, err = DesignHalfbandFIR(b.cfg.firUp.Transition, b.cfg.firUp.AttenuationDB); err != nil {
		return nil, fmt.Errorf("oversample: FIR up: %w", err)
	}
	if c.firDown, err = DesignHalfbandFIR(b.cfg.firDown.Transition, b.cfg.firDown.AttenuationDB); err != nil {
		return nil, fmt.Errorf("oversample: FIR down: %w", err)
	}
	if b.numStages < 3 {
		return &c, nil
	}
	if c.iirUp, err = DesignHalfbandIIR(b.cfg.iirUp.Transition, b.cfg.iirUp.AttenuationDB); err != nil {
		return nil, fmt.Errorf("oversample: IIR up: %w", err)
	}
	if c.iirDown, err = DesignHalfbandIIR(b.cfg.iirDown.Transition, b.cfg.iirDown.AttenuationDB); err != nil {
		return nil, fmt.Errorf("oversample: IIR down: %w", err)
	}
	return &c, nil
}

// IsPrepared reports whether Prepare succeeded.
func (b *Bank[F]) IsPrepared() bool { return b.stages != nil }

// NumStages returns the number of stages.
func (b *Bank[F]) NumStages() int { return b.numStages }

// NumChannels returns the prepared channel count.
func (b *Bank[F]) NumChannels() int { return b.channels }

// MaxBlockSize returns the prepared maximum block size.
func (b *Bank[F]) MaxBlockSize() int { return b.maxBlock }

// Active returns the active stage index.
func (b *Bank[F]) Active() int { return b.active }

// SetActive selects the stage used by ProcessUp and ProcessDown. Switching
// to a different stage clears its filter state.
func (b *Bank[F]) SetActive(i int) error {
	if i < 0 || i >= b.numStages {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrStageIndex, i, b.numStages)
	}
	if !b.IsPrepared() {
		return ErrNotPrepared
	}
	if i != b.active {
		b.stages[i].Reset()
	}
	b.active = i
	return nil
}

// Stage returns stage i, or nil if unprepared or out of range.
func (b *Bank[F]) Stage(i int) *Stage[F] {
	if i < 0 || i >= len(b.stages) {
		return nil
	}
	return b.stages[i]
}

// Factor returns the oversampling factor of stage i.
func (b *Bank[F]) Factor(i int) int {
	if i < 0 || i >= b.numStages {
		return 0
	}
	return 1 << i
}

// Latency returns the latency of stage i in base-rate samples.
func (b *Bank[F]) Latency(i int) float64 {
	if s := b.Stage(i); s != nil {
		return s.Latency()
	}
	return 0
}

// LatencySamples returns the latency of stage i rounded to whole samples.
func (b *Bank[F]) LatencySamples(i int) int {
	return int(math.Round(b.Latency(i)))
}

// MaxLatency returns the largest stage latency rounded to whole samples.
func (b *Bank[F]) MaxLatency() int {
	m := 0
	for i := range b.stages {
		m = max(m, b.LatencySamples(i))
	}
	return m
}

// ProcessUp oversamples block with the active stage. See [Stage.ProcessUp].
func (b *Bank[F]) ProcessUp(block [][]F) [][]F {
	if !b.IsPrepared() {
		return nil
	}
	return b.stages[b.active].ProcessUp(block)
}

// ProcessDown decimates back into block with the active stage.
func (b *Bank[F]) ProcessDown(block [][]F) {
	if !b.IsPrepared() {
		return
	}
	b.stages[b.active].ProcessDown(block)
}

// Reset clears the filter state of every stage.
func (b *Bank[F]) Reset() {
	for _, s := range b.stages {
		s.Reset()
	}
}

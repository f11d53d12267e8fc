package waveshaper

import (
	"fmt"

	"github.com/cwbudde/algo-waveshaper/dsp/core"
	"github.com/cwbudde/algo-waveshaper/dsp/delay"
	"github.com/cwbudde/algo-waveshaper/dsp/smooth"
)

// Engine wraps a [Processor] with the host-side controls: the output gain,
// the active switch and a bypass path aligned to the processed one.
//
// Input channels are processed; any extra output channels receive a copy
// of channel 0.
type Engine[F core.Float] struct {
	cfg    core.ProcessorConfig
	proc   *Processor[F]
	gain   *smooth.Linear[F]
	bypass *delay.Compensator[F]
	params Params

	channels int
	prepared bool
}

// NewEngine returns an unprepared engine with default parameters.
func NewEngine[F core.Float](opts ...core.ProcessorOption) *Engine[F] {
	cfg := core.ApplyProcessorOptions(opts...)
	e := &Engine[F]{
		cfg:  cfg,
		proc: NewProcessor[F](opts...),
		gain: smooth.NewLinear(F(1)),
	}
	if err := e.Apply(DefaultParams()); err != nil {
		panic(err)
	}
	return e
}

// Processor returns the wrapped processor.
func (e *Engine[F]) Processor() *Processor[F] { return e.proc }

// SampleRate returns the rate given to Prepare.
func (e *Engine[F]) SampleRate() float64 { return e.cfg.SampleRate }

// Params returns the last applied parameters.
func (e *Engine[F]) Params() Params { return e.params }

// Prepare configures the engine for sampleRate, the number of input
// channels and the largest block it will receive. All ramps start at their
// targets.
func (e *Engine[F]) Prepare(sampleRate float64, channels, maxBlockSize int) error {
	if err := e.proc.SetSampleRate(sampleRate); err != nil {
		return err
	}
	if err := e.proc.Prepare(channels, maxBlockSize); err != nil {
		return err
	}

	latency := e.proc.MaxLatency()
	bypass, err := delay.NewCompensator[F](channels, latency)
	if err != nil {
		return fmt.Errorf("waveshaper: bypass: %w", err)
	}
	bypass.SetDelay(latency)

	e.bypass = bypass
	e.channels = channels
	e.cfg.SampleRate = sampleRate
	e.gain.Reset(sampleRate, e.cfg.SmoothingTime)
	e.gain.Snap()
	e.proc.ResetSmoothers()
	e.prepared = true
	return nil
}

// Apply validates p and forwards it to the processor. An inactive engine
// runs fully dry at unity gain; muted bands drop to MutedPassbandDB.
func (e *Engine[F]) Apply(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := e.proc.SetClippingToUse(p.ClipNegative, p.ClipPositive); err != nil {
		return err
	}
	if err := e.proc.SetOverSampleIndex(p.Oversampling); err != nil {
		return err
	}

	neg, pos := p.Thresholds()
	e.proc.SetThresholds(F(neg), F(pos))
	e.proc.SetDrive(F(p.DriveDB))
	e.proc.SetCrossoverFrequencies(p.CrossoverLow, p.CrossoverHigh)
	e.proc.SetPassBandLevel(F(p.PassbandDB()))

	mix, gain := p.MixPercent/100, core.DBToLinear(p.OutputDB)
	if !p.Active {
		mix, gain = 0, 1
	}
	e.proc.SetMix(F(mix))
	e.gain.SetTarget(F(gain))

	e.params = p
	return nil
}

// Latency returns the latency the host should report. Every oversampling
// setting is delayed to this value, so it does not change with Apply.
func (e *Engine[F]) Latency() int { return e.proc.MaxLatency() }

// Process runs the waveshaper over block in place.
func (e *Engine[F]) Process(block [][]F) {
	if !e.prepared || len(block) < e.channels {
		return
	}
	in := block[:e.channels]
	n, ok := core.Frames(in)
	if !ok {
		return
	}

	e.proc.ProcessBlock(in)
	for i := range n {
		g := e.gain.Next()
		for _, ch := range in {
			ch[i] *= g
		}
	}
	e.upmix(block, n)
}

// ProcessBypassed delays block by Latency so toggling bypass keeps the
// timing of the processed path.
func (e *Engine[F]) ProcessBypassed(block [][]F) {
	if !e.prepared || len(block) < e.channels {
		return
	}
	in := block[:e.channels]
	n, ok := core.Frames(in)
	if !ok {
		return
	}

	e.bypass.Process(in)
	e.upmix(block, n)
}

// Reset clears the processor and bypass delay lines and snaps every ramp.
func (e *Engine[F]) Reset() {
	if !e.prepared {
		return
	}
	e.proc.Reset()
	e.bypass.Reset()
	e.gain.Snap()
	e.proc.ResetSmoothers()
}

func (e *Engine[F]) upmix(block [][]F, n int) {
	for _, ch := range block[e.channels:] {
		if len(ch) >= n {
			copy(ch[:n], block[0][:n])
		}
	}
}

type (
	Processor32 = Processor[float32]
	Processor64 = Processor[float64]
	Engine32    = Engine[float32]
	Engine64    = Engine[float64]
)

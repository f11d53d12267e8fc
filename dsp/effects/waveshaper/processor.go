package waveshaper

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-waveshaper/dsp/core"
	"github.com/cwbudde/algo-waveshaper/dsp/delay"
	"github.com/cwbudde/algo-waveshaper/dsp/filter/crossover"
	"github.com/cwbudde/algo-waveshaper/dsp/oversample"
	"github.com/cwbudde/algo-waveshaper/dsp/shaper"
	"github.com/cwbudde/algo-waveshaper/dsp/smooth"
)

const (
	// NumOverSampleStages covers the factors 1, 2, 4, 8 and 16.
	NumOverSampleStages = oversample.DefaultNumStages

	// MinThreshold keeps the threshold reciprocal finite.
	MinThreshold = 0.01

	defaultCrossoverLow  = 200.0
	defaultCrossoverHigh = 5000.0
	defaultOverSample    = 1
)

var (
	// ErrInvalidSampleRate is returned for non-positive or non-finite rates.
	ErrInvalidSampleRate = errors.New("waveshaper: invalid sample rate")
	// ErrOverSampleIndex is returned for a stage index outside the bank.
	ErrOverSampleIndex = errors.New("waveshaper: oversampling index out of range")
)

// Processor is the multi-band waveshaper. Each sample is split into low,
// mid and high bands; only the mid band is driven into the selected
// clippers, the outer bands are scaled by the passband level.
//
// Prepare, ProcessBlock and ResetSmoothers belong to the audio goroutine.
// The Set* methods may be called from any goroutine while audio runs.
type Processor[F core.Float] struct {
	cfg        core.ProcessorConfig
	sampleRate float64

	bank  *oversample.Bank[F]
	bands *crossover.ThreeBand[F]
	comp  *delay.Compensator[F]

	xLow, xHigh *smooth.Linear[float64]

	negThreshold *smooth.Linear[F]
	posThreshold *smooth.Linear[F]
	drive        *smooth.Linear[F]
	driveOut     *smooth.Linear[F]
	passband     *smooth.Linear[F]
	mix          *smooth.Linear[F]

	requestedOS atomic.Int32
	pendingRate atomic.Uint64
	appliedRate atomic.Uint64
	appliedComp atomic.Int32
	clipNeg     atomic.Int32
	clipPos     atomic.Int32
	minBits     atomic.Uint64
	maxBits     atomic.Uint64
	prepared    atomic.Bool

	// Audio-goroutine state.
	channels   int
	maxBlock   int
	osIndex    int
	osFactor   int
	maxLatency int
	negClip    shaper.Clipper
	posClip    shaper.Clipper
	chunk      [][]F

	// Per-frame values.
	negIn, negOut F
	posIn, posOut F
	driveGain     F
	driveOutGain  F
	mixAmount     F
	bandGain      F
	blockMin      F
	blockMax      F
}

// NewProcessor returns an unprepared processor. The sample rate, block
// size, channel count and smoothing time come from opts; Prepare may
// override the layout.
func NewProcessor[F core.Float](opts ...core.ProcessorOption) *Processor[F] {
	cfg := core.ApplyProcessorOptions(opts...)
	p := &Processor[F]{
		cfg:          cfg,
		sampleRate:   cfg.SampleRate,
		xLow:         smooth.NewLinear(defaultCrossoverLow),
		xHigh:        smooth.NewLinear(defaultCrossoverHigh),
		negThreshold: smooth.NewLinear(F(-1)),
		posThreshold: smooth.NewLinear(F(1)),
		drive:        smooth.NewLinear(F(1)),
		driveOut:     smooth.NewLinear(F(1)),
		passband:     smooth.NewLinear(F(1)),
		mix:          smooth.NewLinear(F(1)),
		osFactor:     1,
	}
	p.requestedOS.Store(defaultOverSample)
	p.appliedRate.Store(math.Float64bits(cfg.SampleRate))
	return p
}

// Prepare allocates every oversampling stage, the crossover state and the
// compensation delay for the given layout. It computes the maximum latency
// and leaves the processor ready for ProcessBlock. Calling Prepare again
// rebuilds everything; it must not run concurrently with ProcessBlock.
func (p *Processor[F]) Prepare(numChannels, maxBlockSize int) error {
	if numChannels <= 0 || maxBlockSize <= 0 {
		return fmt.Errorf("waveshaper: invalid layout channels=%d maxBlockSize=%d", numChannels, maxBlockSize)
	}
	p.prepared.Store(false)

	if r := p.pendingRate.Swap(0); r != 0 {
		p.setRate(math.Float64frombits(r))
	}

	bank, err := oversample.NewBank[F](NumOverSampleStages, oversample.WithIntegerLatency(true))
	if err != nil {
		return fmt.Errorf("waveshaper: %w", err)
	}
	if err := bank.Prepare(numChannels, maxBlockSize); err != nil {
		return fmt.Errorf("waveshaper: %w", err)
	}

	idx := int(p.requestedOS.Load())
	if err := bank.SetActive(idx); err != nil {
		return fmt.Errorf("waveshaper: %w", err)
	}
	factor := bank.Factor(idx)

	bands, err := crossover.NewThreeBand[F](p.sampleRate*float64(factor), p.xLow.Current(), p.xHigh.Current(), numChannels)
	if err != nil {
		return fmt.Errorf("waveshaper: %w", err)
	}

	maxLatency := bank.MaxLatency()
	comp, err := delay.NewCompensator[F](numChannels, maxLatency)
	if err != nil {
		return fmt.Errorf("waveshaper: %w", err)
	}
	p.bank = bank
	p.bands = bands
	p.comp = comp
	p.channels = numChannels
	p.maxBlock = maxBlockSize
	p.osIndex = idx
	p.osFactor = factor
	p.maxLatency = maxLatency
	p.chunk = make([][]F, 0, numChannels)
	p.setCompensation(maxLatency - bank.LatencySamples(idx))
	p.loadClippers()
	p.resetSmoothers()

	p.prepared.Store(true)
	return nil
}

// IsPrepared reports whether Prepare has succeeded.
func (p *Processor[F]) IsPrepared() bool { return p.prepared.Load() }

// SampleRate returns the base sample rate in use by the audio goroutine. A
// rate posted with SetSampleRate shows up after the next block.
func (p *Processor[F]) SampleRate() float64 {
	return math.Float64frombits(p.appliedRate.Load())
}

// SetSampleRate changes the base sample rate. On a prepared processor the
// change is applied at the start of the next block: the crossover runs at
// the new oversampled rate and every ramp is rebased from its current value.
func (p *Processor[F]) SetSampleRate(hz float64) error {
	if hz <= 0 || !core.IsFinite(hz) {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRate, hz)
	}
	p.pendingRate.Store(math.Float64bits(hz))
	return nil
}

// SetOverSampleIndex selects oversampling stage i (factor 2^i). The switch
// takes effect at the start of the next block and resets the new stage.
func (p *Processor[F]) SetOverSampleIndex(i int) error {
	if i < 0 || i >= NumOverSampleStages {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrOverSampleIndex, i, NumOverSampleStages)
	}
	p.requestedOS.Store(int32(i))
	return nil
}

// OverSampleIndex returns the most recently requested stage.
func (p *Processor[F]) OverSampleIndex() int { return int(p.requestedOS.Load()) }

// SetClippingToUse selects the clippers for the negative and positive
// half of the mid band.
func (p *Processor[F]) SetClippingToUse(neg, pos shaper.Clipper) error {
	if !neg.Valid() {
		return fmt.Errorf("waveshaper: negative clipper: %w: index %d", shaper.ErrUnknownClipper, int(neg))
	}
	if !pos.Valid() {
		return fmt.Errorf("waveshaper: positive clipper: %w: index %d", shaper.ErrUnknownClipper, int(pos))
	}
	p.clipNeg.Store(int32(neg))
	p.clipPos.Store(int32(pos))
	return nil
}

// Clippers returns the selected negative and positive clippers.
func (p *Processor[F]) Clippers() (neg, pos shaper.Clipper) {
	return shaper.Clipper(p.clipNeg.Load()), shaper.Clipper(p.clipPos.Load())
}

// SetThresholds sets the clipping thresholds. The negative threshold is
// forced below zero and the positive one above; both are kept at least
// MinThreshold away from zero.
func (p *Processor[F]) SetThresholds(neg, pos F) {
	p.negThreshold.SetTarget(-clampThreshold(neg))
	p.posThreshold.SetTarget(clampThreshold(pos))
}

// SetCrossoverFrequencies sets the low/mid and mid/high split points in Hz.
// low is clamped so it never exceeds high.
func (p *Processor[F]) SetCrossoverFrequencies(low, high float64) {
	if low > high {
		low = high
	}
	p.xLow.SetTarget(low)
	p.xHigh.SetTarget(high)
}

// SetDrive sets the mid-band input gain in dB together with its loudness
// compensation: 1/ln(g·e) for g ≥ 1 and 1/g below.
func (p *Processor[F]) SetDrive(dB F) {
	g, comp := DriveGains(float64(dB))
	p.drive.SetTarget(F(g))
	p.driveOut.SetTarget(F(comp))
}

// SetMix sets the dry/wet ratio, clamped to [0, 1].
func (p *Processor[F]) SetMix(ratio F) {
	if ratio != ratio {
		return
	}
	p.mix.SetTarget(core.ClampT(ratio, 0, 1))
}

// SetPassBandLevel sets the gain of the low and high bands in dB.
func (p *Processor[F]) SetPassBandLevel(dB F) {
	p.passband.SetTarget(F(core.DBToLinear(float64(dB))))
}

// DriveGains returns the drive gain for dB and the matching output
// compensation. The compensation is a loudness heuristic.
func DriveGains(dB float64) (gain, compensation float64) {
	gain = core.DBToLinear(dB)
	if gain >= 1 {
		return gain, 1 / math.Log(gain*math.E)
	}
	return gain, 1 / gain
}

// Latency returns the latency of the requested oversampling stage in
// samples, or 0 before Prepare.
func (p *Processor[F]) Latency() int {
	if !p.IsPrepared() {
		return 0
	}
	return p.bank.LatencySamples(p.OverSampleIndex())
}

// MaxLatency returns the largest stage latency. Every stage is delayed up
// to this value, so it is the latency a host should report.
func (p *Processor[F]) MaxLatency() int {
	if !p.IsPrepared() {
		return 0
	}
	return p.maxLatency
}

// CompensationDelay returns MaxLatency minus Latency, the delay the
// requested oversampling stage needs. The delay line switches to it at the
// start of the next block; see [Processor.EffectiveCompensationDelay].
func (p *Processor[F]) CompensationDelay() int {
	return max(p.MaxLatency()-p.Latency(), 0)
}

// EffectiveCompensationDelay returns the delay the compensation line
// currently applies.
func (p *Processor[F]) EffectiveCompensationDelay() int {
	if !p.IsPrepared() {
		return 0
	}
	return int(p.appliedComp.Load())
}

// Min returns the smallest mid-band sample of the last block.
func (p *Processor[F]) Min() F { return F(math.Float64frombits(p.minBits.Load())) }

// Max returns the largest mid-band sample of the last block.
func (p *Processor[F]) Max() F { return F(math.Float64frombits(p.maxBits.Load())) }

// ResetSmoothers jumps every ramp to its latest target and updates the
// crossover cutoffs to match.
func (p *Processor[F]) ResetSmoothers() {
	for _, s := range []*smooth.Linear[float64]{p.xLow, p.xHigh} {
		s.Snap()
	}
	for _, s := range p.gainSmoothers() {
		s.Snap()
	}
	if p.bands != nil {
		p.bands.SetFrequencies(p.xLow.Current(), p.xHigh.Current())
	}
}

// Reset clears the oversampling, crossover and delay state.
func (p *Processor[F]) Reset() {
	if !p.IsPrepared() {
		return
	}
	p.bank.Reset()
	p.bands.Reset()
	p.comp.Reset()
	p.minBits.Store(0)
	p.maxBits.Store(0)
}

// TransferAt evaluates the static mid-band curve at x using the latest
// drive, thresholds and clippers, ignoring mix. It does not touch audio
// state.
func (p *Processor[F]) TransferAt(x F) F {
	neg, pos := p.Clippers()
	y := x * p.drive.Posted()
	if y < 0 {
		thr := p.negThreshold.Posted()
		y = clip(y, neg, 1/thr, thr)
	} else {
		thr := p.posThreshold.Posted()
		y = clip(y, pos, 1/thr, thr)
	}
	return y * p.driveOut.Posted()
}

// ProcessBlock processes a planar block in place. The block must carry the
// prepared channel count with equal-length channels; anything else, or an
// unprepared processor, leaves the block untouched. Blocks longer than the
// prepared maximum are processed in chunks.
func (p *Processor[F]) ProcessBlock(block [][]F) {
	if !p.IsPrepared() || len(block) != p.channels {
		return
	}
	n, ok := core.Frames(block)
	if !ok || n == 0 {
		return
	}

	p.applyPending()
	p.blockMin, p.blockMax = 0, 0

	for start := 0; start < n; start += p.maxBlock {
		m := min(p.maxBlock, n-start)
		p.chunk = core.Window(p.chunk, block, start, m)
		p.processChunk(p.chunk, m)
	}

	p.minBits.Store(math.Float64bits(float64(p.blockMin)))
	p.maxBits.Store(math.Float64bits(float64(p.blockMax)))
}

func (p *Processor[F]) processChunk(block [][]F, n int) {
	up := p.bank.ProcessUp(block)
	if up == nil {
		return
	}

	factor := p.osFactor
	for s := range n {
		p.tick()
		base := s * factor
		for ch, data := range up {
			for i := base; i < base+factor; i++ {
				data[i] = p.processSample(data[i], ch)
			}
		}
	}

	p.bank.ProcessDown(block)
	p.bands.SnapToZero()
	p.comp.Process(block)
}

// tick advances every ramp by one base-rate frame.
func (p *Processor[F]) tick() {
	p.negOut = p.negThreshold.Next()
	p.negIn = 1 / p.negOut
	p.posOut = p.posThreshold.Next()
	p.posIn = 1 / p.posOut

	p.driveGain = p.drive.Next()
	p.driveOutGain = p.driveOut.Next()
	pb := p.passband.Next()
	p.mixAmount = p.mix.Next()
	p.bandGain = 1 + (pb-1)*p.mixAmount

	if p.xLow.IsRamping() || p.xHigh.IsRamping() {
		p.bands.SetFrequencies(p.xLow.Next(), p.xHigh.Next())
	}
}

func (p *Processor[F]) processSample(x F, ch int) F {
	low, mid, high := p.bands.Split(x, ch)

	clean := mid
	p.blockMin = min(p.blockMin, clean)
	p.blockMax = max(p.blockMax, clean)

	mid *= p.driveGain
	if mid < 0 {
		mid = clip(mid, p.negClip, p.negIn, p.negOut)
	} else {
		mid = clip(mid, p.posClip, p.posIn, p.posOut)
	}
	mid *= p.driveOutGain

	mid = clean + (mid-clean)*p.mixAmount
	return low*p.bandGain + mid + high*p.bandGain
}

// clip scales x into the clipper's unit range, shapes it and scales back.
func clip[F core.Float](x F, c shaper.Clipper, in, out F) F {
	return shaper.Apply(c, x*in) * out
}

func (p *Processor[F]) applyPending() {
	if r := p.pendingRate.Swap(0); r != 0 {
		p.setRate(math.Float64frombits(r))
		p.bands.SetSampleRate(p.sampleRate * float64(p.osFactor))
		p.resetSmoothers()
	}

	if idx := int(p.requestedOS.Load()); idx != p.osIndex {
		if err := p.bank.SetActive(idx); err == nil {
			p.osIndex = idx
			p.osFactor = p.bank.Factor(idx)
			p.bands.SetSampleRate(p.sampleRate * float64(p.osFactor))
			p.setCompensation(p.maxLatency - p.bank.LatencySamples(idx))
		}
	}

	p.loadClippers()
}

func (p *Processor[F]) setRate(hz float64) {
	p.sampleRate = hz
	p.appliedRate.Store(math.Float64bits(hz))
}

func (p *Processor[F]) setCompensation(n int) {
	p.comp.SetDelay(n)
	p.appliedComp.Store(int32(p.comp.Delay()))
}

func (p *Processor[F]) loadClippers() {
	p.negClip = shaper.Clipper(p.clipNeg.Load())
	p.posClip = shaper.Clipper(p.clipPos.Load())
}

// resetSmoothers sets every ramp length from the base sample rate.
func (p *Processor[F]) resetSmoothers() {
	rate, t := p.sampleRate, p.cfg.SmoothingTime
	p.xLow.Reset(rate, t)
	p.xHigh.Reset(rate, t)
	for _, s := range p.gainSmoothers() {
		s.Reset(rate, t)
	}
}

func (p *Processor[F]) gainSmoothers() [6]*smooth.Linear[F] {
	return [6]*smooth.Linear[F]{p.negThreshold, p.posThreshold, p.drive, p.driveOut, p.passband, p.mix}
}

func clampThreshold[F core.Float](v F) F {
	if v < 0 {
		v = -v
	}
	if !(v >= MinThreshold) {
		return MinThreshold
	}
	return v
}

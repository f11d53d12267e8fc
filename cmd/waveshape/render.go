package main

import (
	"github.com/cwbudde/algo-waveshaper/dsp/core"
	"github.com/cwbudde/algo-waveshaper/dsp/effects/waveshaper"
)

type renderConfig struct {
	params     waveshaper.Params
	sampleRate float64
	block      int
	bypass     bool
	align      bool
}

// render runs planar input through a freshly prepared engine and returns
// the output and the engine latency. With align set, latency frames of
// silence are appended and the first latency frames dropped so the output
// lines up with the input.
func render[F core.Float](cfg renderConfig, in [][]float64) ([][]float64, int, error) {
	e := waveshaper.NewEngine[F](core.WithSampleRate(cfg.sampleRate), core.WithBlockSize(cfg.block))
	if err := e.Apply(cfg.params); err != nil {
		return nil, 0, err
	}
	if err := e.Prepare(cfg.sampleRate, len(in), cfg.block); err != nil {
		return nil, 0, err
	}

	latency := e.Latency()
	frames := 0
	if len(in) > 0 {
		frames = len(in[0])
	}
	skip := 0
	if cfg.align {
		skip = latency
	}

	buf := core.NewPlanar[F](len(in), frames+skip)
	for c, ch := range in {
		for i, v := range ch {
			buf[c][i] = F(v)
		}
	}

	process := e.Process
	if cfg.bypass {
		process = e.ProcessBypassed
	}
	total := frames + skip
	view := make([][]F, 0, len(in))
	for start := 0; start < total; start += cfg.block {
		view = core.Window(view, buf, start, min(cfg.block, total-start))
		process(view)
	}

	out := make([][]float64, len(in))
	for c := range out {
		ch := make([]float64, frames)
		for i := range ch {
			ch[i] = float64(buf[c][i+skip])
		}
		out[c] = ch
	}
	return out, latency, nil
}

package main

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/cwbudde/algo-vecmath/cpu"

	"github.com/cwbudde/algo-waveshaper/dsp/core"
	"github.com/cwbudde/algo-waveshaper/dsp/effects/waveshaper"
	"github.com/cwbudde/algo-waveshaper/dsp/shaper"
	"github.com/cwbudde/algo-waveshaper/measure/spectrum"
)

const (
	analysisSize      = 8192
	analysisTone      = 1000.0
	analysisAmplitude = 0.5
	analysisHarmonics = 64
)

func printInfo(w io.Writer, sampleRate float64) error {
	p := waveshaper.NewProcessor[float64](core.WithSampleRate(sampleRate))
	if err := p.Prepare(1, 64); err != nil {
		return err
	}

	fmt.Fprintf(w, "Oversampling at %.0f Hz (reported latency %d samples)\n", sampleRate, p.MaxLatency())
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Index\tFactor\tLatency\tCompensation")
	for i := range waveshaper.NumOverSampleStages {
		if err := p.SetOverSampleIndex(i); err != nil {
			return err
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", i, waveshaper.OverSampleLabels[i], p.Latency(), p.CompensationDelay())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Clippers")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Index\tName\tCurve")
	for i := range shaper.NumClippers {
		c := shaper.Clipper(i)
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i, c, c.Label())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	f := cpu.DetectFeatures()
	fmt.Fprintln(w)
	fmt.Fprintf(w, "CPU: arch=%s sse2=%t avx2=%t neon=%t generic=%t\n",
		f.Architecture, f.HasSSE2, f.HasAVX2, f.HasNEON, f.ForceGeneric)
	return nil
}

type analysisRow struct {
	index      int
	latency    int
	gainDB     float64
	distortion spectrum.Distortion
}

// analyze renders a bin-centred tone through every oversampling setting
// and measures the steady-state output.
func analyze(o *options) ([]analysisRow, float64, error) {
	a, err := spectrum.NewAnalyzer(analysisSize)
	if err != nil {
		return nil, 0, err
	}
	tone := a.BinFrequency(a.Bin(analysisTone, o.rate), o.rate)

	settle := int(math.Ceil(o.rate * 0.1))
	n := settle + analysisSize
	in := make([]float64, n)
	step := 2 * math.Pi * tone / o.rate
	for i := range in {
		in[i] = analysisAmplitude * math.Sin(step*float64(i))
	}

	inLevel, err := spectrum.ToneLevel(in[settle:], tone, o.rate)
	if err != nil {
		return nil, 0, err
	}

	proc := waveshaper.NewProcessor[float64](core.WithSampleRate(o.rate))
	if err := proc.Prepare(1, o.block); err != nil {
		return nil, 0, err
	}

	rows := make([]analysisRow, 0, waveshaper.NumOverSampleStages)
	for i := range waveshaper.NumOverSampleStages {
		p := o.params
		p.Oversampling = i
		cfg := renderConfig{params: p, sampleRate: o.rate, block: o.block, align: true}

		var out [][]float64
		if o.f32 {
			out, _, err = render[float32](cfg, [][]float64{in})
		} else {
			out, _, err = render[float64](cfg, [][]float64{in})
		}
		if err != nil {
			return nil, 0, err
		}

		d, err := a.Analyze(out[0][settle:], o.rate, tone, analysisHarmonics)
		if err != nil {
			return nil, 0, fmt.Errorf("oversampling %s: %w", waveshaper.OverSampleLabels[i], err)
		}
		outLevel, err := spectrum.ToneLevel(out[0][settle:], tone, o.rate)
		if err != nil {
			return nil, 0, err
		}
		if err := proc.SetOverSampleIndex(i); err != nil {
			return nil, 0, err
		}
		rows = append(rows, analysisRow{
			index:      i,
			latency:    proc.Latency(),
			gainDB:     core.LinearToDB(outLevel / inLevel),
			distortion: d,
		})
	}
	return rows, tone, nil
}

func printAnalysis(w io.Writer, o *options) error {
	rows, tone, err := analyze(o)
	if err != nil {
		return err
	}

	p := o.params
	fmt.Fprintf(w, "Tone %.1f Hz at %.2f, drive %.1f dB, clippers %s/%s, %.0f Hz\n",
		tone, analysisAmplitude, p.DriveDB, p.ClipNegative, p.ClipPositive, o.rate)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Oversampling\tLatency\tLevel\tGain (dB)\tTHD (dB)\tAlias floor (dB)")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%.2f\t%.1f\t%.1f\n",
			waveshaper.OverSampleLabels[r.index], r.latency,
			r.distortion.Fundamental, r.gainDB, r.distortion.THDdB, r.distortion.AliasFloorDB)
	}
	return tw.Flush()
}

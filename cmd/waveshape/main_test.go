package main

import (
	"bytes"
	"errors"
	"flag"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/algo-waveshaper/dsp/effects/waveshaper"
	"github.com/cwbudde/algo-waveshaper/dsp/shaper"
	"github.com/cwbudde/algo-waveshaper/internal/testutil"
)

func TestParseFlagsOverridesPreset(t *testing.T) {
	dir := t.TempDir()
	preset := filepath.Join(dir, "p.json")
	p := waveshaper.DefaultParams()
	p.DriveDB = 30
	p.ClipPositive = shaper.Ripple
	if err := savePreset(preset, p); err != nil {
		t.Fatal(err)
	}

	o, err := parseFlags([]string{"-preset", preset, "-clip-neg", "tanh", "-os", "3", "a.wav", "b.wav"}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	got := o.params
	if got.DriveDB != 30 || got.ClipPositive != shaper.Ripple {
		t.Fatalf("preset values lost: %+v", got)
	}
	if got.ClipNegative != shaper.Tanh || got.Oversampling != 3 {
		t.Fatalf("flag overrides lost: %+v", got)
	}
	if len(o.args) != 2 {
		t.Fatalf("args = %v", o.args)
	}
}

func TestParseFlagsRejectsBadValues(t *testing.T) {
	tests := [][]string{
		{"-drive", "60"},
		{"-clip-pos", "fuzz"},
		{"-os", "7"},
		{"-block", "0"},
		{"-bits", "12"},
		{"-preset", "/does/not/exist.json"},
	}
	for _, args := range tests {
		if _, err := parseFlags(args, &bytes.Buffer{}); err == nil {
			t.Errorf("parseFlags(%v) succeeded", args)
		}
	}

	if _, err := parseFlags([]string{"-h"}, &bytes.Buffer{}); !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("-h err = %v", err)
	}
}

func TestRunInfo(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"-info"}, &out, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, want := range []string{"reported latency 52", "x16", "Poly Soft Clip", "CPU: arch="} {
		if !strings.Contains(text, want) {
			t.Errorf("info output misses %q:\n%s", want, text)
		}
	}
}

func TestRunRendersWAV(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.wav")
	outPath := filepath.Join(dir, "out.wav")

	left := testutil.DeterministicSine(440, 44100, 0.5, 4410)
	right := testutil.DeterministicSine(880, 44100, 0.25, 4410)
	if err := writeWAV(inPath, &pcmFile{sampleRate: 44100, bitDepth: 24, channels: [][]float64{left, right}}); err != nil {
		t.Fatal(err)
	}

	var logs bytes.Buffer
	args := []string{"-os", "0", "-log-level", "debug", inPath, outPath}
	if err := run(args, &bytes.Buffer{}, &logs); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(logs.String(), "msg=rendered") {
		t.Fatalf("missing render log:\n%s", logs.String())
	}

	got, err := readWAV(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if got.sampleRate != 44100 || got.bitDepth != 24 || len(got.channels) != 2 || got.frames() != 4410 {
		t.Fatalf("output format rate=%d bits=%d ch=%d frames=%d", got.sampleRate, got.bitDepth, len(got.channels), got.frames())
	}

	// Unity settings and aligned output reproduce the input within quantisation.
	tol := 2 / fullScale(24)
	testutil.RequireSliceNearlyEqual(t, got.channels[0], left, tol)
	testutil.RequireSliceNearlyEqual(t, got.channels[1], right, tol)
}

func TestRunSavePresetOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preset.json")
	if err := run([]string{"-drive", "12", "-save-preset", path}, &bytes.Buffer{}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	p, err := loadPreset(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.DriveDB != 12 {
		t.Fatalf("saved drive = %v", p.DriveDB)
	}
}

func TestRunNeedsTwoFiles(t *testing.T) {
	if err := run([]string{"only.wav"}, &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Fatal("run accepted a single file")
	}
	if err := run([]string{"-log-level", "loud"}, &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Fatal("run accepted an unknown log level")
	}
}

func TestRenderAlignment(t *testing.T) {
	in := [][]float64{testutil.Impulse(256, 10)}
	p := waveshaper.DefaultParams()
	p.Oversampling = 0

	aligned, latency, err := render[float64](renderConfig{params: p, sampleRate: 48000, block: 64, align: true}, in)
	if err != nil {
		t.Fatal(err)
	}
	raw, _, err := render[float64](renderConfig{params: p, sampleRate: 48000, block: 64}, in)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(aligned[0][10]-1) > 1e-9 {
		t.Fatalf("aligned impulse at 10 = %v", aligned[0][10])
	}
	if math.Abs(raw[0][10+latency]-1) > 1e-9 {
		t.Fatalf("raw impulse at %d = %v", 10+latency, raw[0][10+latency])
	}

	bypassed, _, err := render[float32](renderConfig{params: p, sampleRate: 48000, block: 64, align: true, bypass: true}, in)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, bypassed[0], in[0], 0)
}

func TestAnalyzeOversamplingLowersAliasing(t *testing.T) {
	if testing.Short() {
		t.Skip("renders every oversampling stage")
	}
	o, err := parseFlags([]string{"-drive", "30", "-clip-pos", "hard", "-clip-neg", "hard"}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}

	rows, tone, err := analyze(o)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != waveshaper.NumOverSampleStages {
		t.Fatalf("rows = %d", len(rows))
	}
	if math.Abs(tone-1000) > 6 {
		t.Fatalf("tone = %v", tone)
	}
	if rows[0].distortion.THDdB < -40 {
		t.Fatalf("hard clipping measured THD %v dB", rows[0].distortion.THDdB)
	}
	if rows[4].distortion.AliasFloorDB >= rows[0].distortion.AliasFloorDB {
		t.Fatalf("alias floor x16 %v dB not below off %v dB",
			rows[4].distortion.AliasFloorDB, rows[0].distortion.AliasFloorDB)
	}

	var out bytes.Buffer
	if err := printAnalysis(&out, o); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Alias floor") {
		t.Fatalf("analysis table:\n%s", out.String())
	}
}

func TestAnalyzeCleanPathHasUnityGain(t *testing.T) {
	if testing.Short() {
		t.Skip("renders every oversampling stage")
	}
	o, err := parseFlags(nil, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}

	rows, _, err := analyze(o)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range rows {
		if math.Abs(r.gainDB) > 0.1 {
			t.Errorf("%s: gain %.3f dB at 0 dB drive", waveshaper.OverSampleLabels[r.index], r.gainDB)
		}
	}
}

func TestWAVRejectsUnsupportedInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(path, []byte("not a wav file at all"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readWAV(path); err == nil {
		t.Fatal("readWAV accepted junk")
	}
	if err := writeWAV(path, &pcmFile{sampleRate: 48000, bitDepth: 8, channels: [][]float64{{0}}}); err == nil {
		t.Fatal("writeWAV accepted 8-bit output")
	}
}

func TestQuantize(t *testing.T) {
	full := fullScale(16)
	tests := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{0.5, 16384},
		{1, 32767},
		{-1, -32768},
		{-2, -32768},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := quantize(tt.in, full); got != tt.want {
			t.Errorf("quantize(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

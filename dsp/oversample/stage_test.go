package oversample

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-waveshaper/dsp/core"
	"github.com/cwbudde/algo-waveshaper/internal/testutil"
)

var wantLatency = []int{0, 49, 51, 51, 52}

func prepared[F core.Float](t *testing.T, channels, block int, opts ...Option) *Bank[F] {
	t.Helper()
	b, err := NewBank[F](DefaultNumStages, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Prepare(channels, block); err != nil {
		t.Fatal(err)
	}
	return b
}

// render pushes in through up/down of the active stage in blocks.
func render[F core.Float](b *Bank[F], in [][]F, block int) {
	n := len(in[0])
	views := make([][]F, len(in))
	for start := 0; start < n; start += block {
		m := min(block, n-start)
		w := core.Window(views, in, start, m)
		b.ProcessUp(w)
		b.ProcessDown(w)
	}
}

func TestStageLatencyIsInteger(t *testing.T) {
	b := prepared[float64](t, 1, 64)
	for i, want := range wantLatency {
		lat := b.Latency(i)
		if math.Abs(lat-float64(want)) > 1e-9 {
			t.Errorf("stage %d: latency %v, want %d", i, lat, want)
		}
		s := b.Stage(i)
		if s.Factor() != 1<<i || b.Factor(i) != 1<<i {
			t.Errorf("stage %d: factor %d", i, s.Factor())
		}
		if s.Latency() < s.UncompensatedLatency() {
			t.Errorf("stage %d: compensation shortened latency", i)
		}
	}
	if b.MaxLatency() != 52 {
		t.Fatalf("MaxLatency() = %d, want 52", b.MaxLatency())
	}
}

func TestStageLatencyWithoutCompensation(t *testing.T) {
	b := prepared[float64](t, 1, 64, WithIntegerLatency(false))
	if got := b.Latency(1); got != 49 {
		t.Fatalf("stage 1 latency = %v, want 49", got)
	}
	s := b.Stage(2)
	if s.Latency() != s.UncompensatedLatency() {
		t.Fatal("latency compensated with integer latency disabled")
	}
	if math.Abs(s.Latency()-49.9186) > 1e-3 {
		t.Fatalf("stage 2 latency = %v", s.Latency())
	}
}

func TestStageOutputIsDelayedInput(t *testing.T) {
	const (
		sr = 48000.0
		n  = 1536
	)
	for stage, lat := range wantLatency {
		b := prepared[float64](t, 2, 100)
		if err := b.SetActive(stage); err != nil {
			t.Fatal(err)
		}

		left := testutil.DeterministicSine(200, sr, 0.5, n)
		right := testutil.DeterministicSine(310, sr, 0.25, n)
		block := [][]float64{append([]float64(nil), left...), append([]float64(nil), right...)}
		render(b, block, 100)

		for i := 600; i < n; i++ {
			if d := math.Abs(block[0][i] - left[i-lat]); d > 1e-4 {
				t.Fatalf("stage %d sample %d: left off by %v", stage, i, d)
			}
			if d := math.Abs(block[1][i] - right[i-lat]); d > 1e-4 {
				t.Fatalf("stage %d sample %d: right off by %v", stage, i, d)
			}
		}
	}
}

func TestStageFloat32(t *testing.T) {
	b := prepared[float32](t, 1, 128)
	_ = b.SetActive(3)

	src := testutil.DeterministicSine(200, 48000, 0.5, 1024)
	block := [][]float32{make([]float32, len(src))}
	for i, v := range src {
		block[0][i] = float32(v)
	}
	render(b, block, 128)

	for i := 600; i < len(src); i++ {
		if d := math.Abs(float64(block[0][i]) - src[i-51]); d > 1e-3 {
			t.Fatalf("sample %d off by %v", i, d)
		}
	}
}

func TestDummyStagePassesThrough(t *testing.T) {
	b := prepared[float64](t, 1, 16)
	in := [][]float64{{1, -2, 3, 0.5}}
	up := b.ProcessUp(in)
	if &up[0][0] != &in[0][0] {
		t.Fatal("dummy stage should return the input block")
	}
	b.ProcessDown(in)
	testutil.RequireSliceNearlyEqual(t, in[0], []float64{1, -2, 3, 0.5}, 0)
}

func TestProcessUpReturnsOversampledViews(t *testing.T) {
	b := prepared[float64](t, 2, 32)
	_ = b.SetActive(4)
	block := core.NewPlanar[float64](2, 20)
	up := b.ProcessUp(block)
	if len(up) != 2 || len(up[0]) != 20*16 || len(up[1]) != 20*16 {
		t.Fatalf("view shape %d x %d", len(up), len(up[0]))
	}
}

func TestProcessUpRejectsBadBlocks(t *testing.T) {
	b := prepared[float64](t, 2, 32)
	_ = b.SetActive(1)
	if b.ProcessUp(core.NewPlanar[float64](1, 8)) != nil {
		t.Error("channel mismatch accepted")
	}
	if b.ProcessUp(core.NewPlanar[float64](2, 33)) != nil {
		t.Error("oversized block accepted")
	}
	if b.ProcessUp([][]float64{make([]float64, 4), make([]float64, 5)}) != nil {
		t.Error("ragged block accepted")
	}
}

func TestBankErrors(t *testing.T) {
	if _, err := NewBank[float64](0); !errors.Is(err, ErrStageIndex) {
		t.Fatalf("NewBank(0) err = %v", err)
	}

	b, _ := NewBank[float64](DefaultNumStages)
	if err := b.SetActive(1); !errors.Is(err, ErrNotPrepared) {
		t.Fatalf("SetActive before Prepare err = %v", err)
	}
	if b.ProcessUp(core.NewPlanar[float64](1, 4)) != nil {
		t.Fatal("unprepared ProcessUp returned data")
	}
	if err := b.Prepare(0, 64); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("Prepare(0, 64) err = %v", err)
	}
	if err := b.Prepare(2, 0); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("Prepare(2, 0) err = %v", err)
	}
	if err := b.Prepare(2, 64); err != nil {
		t.Fatal(err)
	}
	for _, i := range []int{-1, DefaultNumStages} {
		if err := b.SetActive(i); !errors.Is(err, ErrStageIndex) {
			t.Fatalf("SetActive(%d) err = %v", i, err)
		}
	}
	if b.Stage(9) != nil || b.Factor(9) != 0 || b.Latency(-1) != 0 {
		t.Fatal("out-of-range accessors should return zero values")
	}

	bad := Design{Transition: 0.7, AttenuationDB: 60}
	b2, _ := NewBank[float64](3, WithIIRDesign(bad, bad))
	if err := b2.Prepare(1, 8); !errors.Is(err, ErrDesign) {
		t.Fatalf("bad IIR design err = %v", err)
	}
}

func TestSetActiveResetsNewStage(t *testing.T) {
	b := prepared[float64](t, 1, 64)
	_ = b.SetActive(2)
	noise := [][]float64{testutil.DeterministicNoise(1, 1, 64)}
	b.ProcessUp(noise)
	b.ProcessDown(noise)

	_ = b.SetActive(1)
	_ = b.SetActive(2)

	silence := core.NewPlanar[float64](1, 64)
	b.ProcessUp(silence)
	b.ProcessDown(silence)
	for i, v := range silence[0] {
		if v != 0 {
			t.Fatalf("sample %d = %v, stale state after switch", i, v)
		}
	}
}

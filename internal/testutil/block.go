package testutil

import "github.com/cwbudde/algo-waveshaper/dsp/core"

// Delayed returns x shifted right by d samples, zero-filled at the start.
func Delayed(x []float64, d int) []float64 {
	out := make([]float64, len(x))
	if d < 0 {
		d = 0
	}
	if d < len(x) {
		copy(out[d:], x[:len(x)-d])
	}
	return out
}

// Convert copies x into a slice of another sample type.
func Convert[To, From core.Float](x []From) []To {
	out := make([]To, len(x))
	for i, v := range x {
		out[i] = To(v)
	}
	return out
}

// RenderBlocks copies the planar signal, splits it into blocks of at most
// blockSize frames and calls process on each block in order. The rendered
// copy is returned; signal is left untouched.
func RenderBlocks[F core.Float](signal [][]F, blockSize int, process func(block [][]F)) [][]F {
	out := make([][]F, len(signal))
	for c, ch := range signal {
		out[c] = append([]F(nil), ch...)
	}
	n, ok := core.Frames(out)
	if !ok || blockSize <= 0 {
		return out
	}

	var view [][]F
	for start := 0; start < n; start += blockSize {
		view = core.Window(view, out, start, min(blockSize, n-start))
		process(view)
	}
	return out
}

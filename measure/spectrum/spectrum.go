package spectrum

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// ErrInvalidSize is returned for FFT sizes that are not a power of two >= 8.
var ErrInvalidSize = errors.New("spectrum: size must be a power of two >= 8")

// Analyzer computes Blackman-Harris windowed magnitude spectra of a fixed
// size.
type Analyzer struct {
	size    int
	plan    *algofft.Plan[complex128]
	window  []float64
	winGain float64

	frame []float64
	in    []complex128
	out   []complex128
	re    []float64
	im    []float64
	mag   []float64
}

// NewAnalyzer creates an analyzer for size-point transforms.
func NewAnalyzer(size int) (*Analyzer, error) {
	if size < 8 || size&(size-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("spectrum: fft plan: %w", err)
	}

	win := BlackmanHarris(size)
	sum := 0.0
	for _, w := range win {
		sum += w
	}

	bins := size/2 + 1
	return &Analyzer{
		size:    size,
		plan:    plan,
		window:  win,
		winGain: sum / 2,
		frame:   make([]float64, size),
		in:      make([]complex128, size),
		out:     make([]complex128, size),
		re:      make([]float64, bins),
		im:      make([]float64, bins),
		mag:     make([]float64, bins),
	}, nil
}

// Size returns the transform size.
func (a *Analyzer) Size() int { return a.size }

// BinFrequency returns the centre frequency of bin k.
func (a *Analyzer) BinFrequency(k int, sampleRate float64) float64 {
	return float64(k) * sampleRate / float64(a.size)
}

// Bin returns the bin nearest to freq.
func (a *Analyzer) Bin(freq, sampleRate float64) int {
	k := int(math.Round(freq * float64(a.size) / sampleRate))
	return max(0, min(k, a.size/2))
}

// Magnitude windows the first Size samples of signal (zero-padded if
// shorter) and returns bins 0..Size/2. A sine of amplitude A centred on a
// bin reads A at that bin. The returned slice is reused by the next call.
func (a *Analyzer) Magnitude(signal []float64) ([]float64, error) {
	if len(signal) == 0 {
		return nil, errors.New("spectrum: empty signal")
	}

	clear(a.frame)
	copy(a.frame, signal)
	vecmath.MulBlockInPlace(a.frame, a.window)

	return a.transform(a.frame, 1/a.winGain)
}

// Response returns the unwindowed magnitude of the zero-padded sequence h,
// which is the frequency response when h is an impulse response.
func (a *Analyzer) Response(h []float64) ([]float64, error) {
	if len(h) == 0 || len(h) > a.size {
		return nil, fmt.Errorf("spectrum: impulse response length %d not in [1, %d]", len(h), a.size)
	}

	clear(a.frame)
	copy(a.frame, h)
	return a.transform(a.frame, 1)
}

func (a *Analyzer) transform(frame []float64, scale float64) ([]float64, error) {
	for i, v := range frame {
		a.in[i] = complex(v*scale, 0)
	}
	if err := a.plan.Forward(a.out, a.in); err != nil {
		return nil, fmt.Errorf("spectrum: fft: %w", err)
	}

	for k := range a.mag {
		a.re[k] = real(a.out[k])
		a.im[k] = imag(a.out[k])
	}
	vecmath.Magnitude(a.mag, a.re, a.im)
	return a.mag, nil
}

// ToDB converts magnitudes to dB in place with a floor.
func ToDB(mags []float64, floorDB float64) []float64 {
	floor := math.Pow(10, floorDB/20)
	for i, m := range mags {
		mags[i] = 20 * math.Log10(math.Max(m, floor))
	}
	return mags
}

// BlackmanHarris returns a periodic 4-term Blackman-Harris window.
func BlackmanHarris(n int) []float64 {
	const (
		a0 = 0.35875
		a1 = 0.48829
		a2 = 0.14128
		a3 = 0.01168
	)
	out := make([]float64, n)
	for i := range out {
		x := 2 * math.Pi * float64(i) / float64(n)
		out[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x) - a3*math.Cos(3*x)
	}
	return out
}

// Peak returns the largest bin in [lo, hi] and its magnitude.
func Peak(mags []float64, lo, hi int) (bin int, level float64) {
	lo = max(lo, 0)
	hi = min(hi, len(mags)-1)
	bin = -1
	for k := lo; k <= hi; k++ {
		if mags[k] > level || bin < 0 {
			bin, level = k, mags[k]
		}
	}
	return bin, level
}

// BandPower returns the summed squared magnitude of bins
// [center-spread, center+spread].
func BandPower(mags []float64, center, spread int) float64 {
	p := 0.0
	for k := max(center-spread, 0); k <= min(center+spread, len(mags)-1); k++ {
		p += mags[k] * mags[k]
	}
	return p
}

package spectrum

import (
	"errors"
	"math"
)

// mainLobe is the half-width in bins of the Blackman-Harris main lobe.
const mainLobe = 4

// Distortion summarises a single-tone measurement.
type Distortion struct {
	Fundamental float64 // amplitude at the fundamental
	Harmonics   []float64
	THD         float64 // ratio, not percent
	THDdB       float64
	// AliasFloorDB is the strongest non-harmonic component relative to the
	// fundamental.
	AliasFloorDB float64
}

// Analyze measures the fundamental at freq, up to maxHarmonics harmonics
// below Nyquist, and the strongest component that is neither. The signal
// should contain at least Size samples of steady state.
func (a *Analyzer) Analyze(signal []float64, sampleRate, freq float64, maxHarmonics int) (Distortion, error) {
	if sampleRate <= 0 || freq <= 0 || freq >= sampleRate/2 {
		return Distortion{}, errors.New("spectrum: fundamental must be in (0, Nyquist)")
	}

	mags, err := a.Magnitude(signal)
	if err != nil {
		return Distortion{}, err
	}

	f0 := a.Bin(freq, sampleRate)
	fundPower := BandPower(mags, f0, mainLobe)
	if fundPower == 0 {
		return Distortion{}, errors.New("spectrum: no energy at the fundamental")
	}

	var d Distortion
	_, d.Fundamental = Peak(mags, f0-1, f0+1)

	nyquist := len(mags) - 1
	reserved := make([]bool, len(mags))
	mark := func(center int) {
		for k := max(center-mainLobe, 0); k <= min(center+mainLobe, nyquist); k++ {
			reserved[k] = true
		}
	}
	mark(0)
	mark(f0)

	harmPower := 0.0
	for h := 2; h <= maxHarmonics+1; h++ {
		bin := h * f0
		if bin+mainLobe > nyquist {
			break
		}
		p := BandPower(mags, bin, mainLobe)
		harmPower += p
		d.Harmonics = append(d.Harmonics, math.Sqrt(p/fundPower))
		mark(bin)
	}

	d.THD = math.Sqrt(harmPower / fundPower)
	d.THDdB = 20 * math.Log10(math.Max(d.THD, 1e-12))

	worst := 0.0
	for k, m := range mags {
		if !reserved[k] && m > worst {
			worst = m
		}
	}
	d.AliasFloorDB = 20 * math.Log10(math.Max(worst, 1e-15)/d.Fundamental)

	return d, nil
}

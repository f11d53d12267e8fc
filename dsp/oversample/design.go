package oversample

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-waveshaper/dsp/core"
)

const maxIIRCoefficients = 32

// ErrDesign is wrapped by every filter design failure.
var ErrDesign = errors.New("oversample: filter design failed")

// DesignHalfbandFIR designs a linear-phase half-band lowpass with a
// Kaiser-windowed sinc. transition is the normalised transition width
// (relative to the oversampled rate, centred on a quarter of it) and
// attenuationDB the stop-band target. The length is 4K+3 so the centre tap
// sits on an odd index and every other odd tap is zero. Taps are scaled to
// unity DC gain.
func DesignHalfbandFIR(transition, attenuationDB float64) ([]float64, error) {
	if err := validateDesign(transition, attenuationDB); err != nil {
		return nil, err
	}

	est := int(math.Ceil((attenuationDB-7.95)/(14.36*transition) + 1))
	k := max(0, est/4) // smallest K with 4K+3 >= est
	n := 4*k + 3

	beta := kaiserBeta(attenuationDB)
	center := n / 2

	taps := make([]float64, n)
	for i := range n {
		t := float64(i - center)
		if i != center && (i-center)%2 == 0 {
			continue
		}
		taps[i] = 0.5 * sinc(0.5*t) * kaiserWindow(i, n, beta)
	}

	var sum float64
	for _, v := range taps {
		sum += v
	}
	if sum == 0 {
		return nil, fmt.Errorf("%w: zero-sum half-band", ErrDesign)
	}
	for i := range taps {
		taps[i] /= sum
	}

	return taps, nil
}

// DesignHalfbandIIR designs the allpass coefficients of a polyphase IIR
// half-band filter (two allpass branches, elliptic q-series design). The
// smallest coefficient count whose stop-band reaches attenuationDB is used.
// Even-indexed coefficients belong to the first branch, odd-indexed ones to
// the second.
func DesignHalfbandIIR(transition, attenuationDB float64) ([]float64, error) {
	if err := validateDesign(transition, attenuationDB); err != nil {
		return nil, err
	}

	for n := 1; n <= maxIIRCoefficients; n++ {
		att, err := IIRAttenuation(n, transition)
		if err != nil {
			return nil, err
		}
		if att >= attenuationDB {
			return designIIRCoefficients(n, transition), nil
		}
	}

	return nil, fmt.Errorf("%w: %.1f dB needs more than %d coefficients at transition %g",
		ErrDesign, attenuationDB, maxIIRCoefficients, transition)
}

// IIRAttenuation returns the stop-band attenuation in dB of a polyphase IIR
// half-band with numberOfCoeffs allpass coefficients.
func IIRAttenuation(numberOfCoeffs int, transition float64) (float64, error) {
	if numberOfCoeffs < 1 {
		return 0, fmt.Errorf("%w: number of coefficients must be >= 1: %d", ErrDesign, numberOfCoeffs)
	}
	if !core.IsFinite(transition) || transition <= 0 || transition >= 0.5 {
		return 0, fmt.Errorf("%w: transition must be in (0, 0.5): %g", ErrDesign, transition)
	}

	_, q := transitionParam(transition)
	order := numberOfCoeffs*2 + 1
	v := 4 * math.Exp(float64(order)*0.5*math.Log(q))
	return -10 * math.Log10(v/(1+v)), nil
}

// IIRGroupDelay returns the low-frequency group delay of one allpass
// section with coefficient c, in samples of the rate it runs at.
func IIRGroupDelay(c float64) float64 {
	return (1 - c) / (1 + c)
}

func validateDesign(transition, attenuationDB float64) error {
	if !core.IsFinite(transition) || transition <= 0 || transition >= 0.5 {
		return fmt.Errorf("%w: transition must be in (0, 0.5): %g", ErrDesign, transition)
	}
	if !core.IsFinite(attenuationDB) || attenuationDB <= 0 {
		return fmt.Errorf("%w: attenuation must be positive: %g", ErrDesign, attenuationDB)
	}
	return nil
}

func designIIRCoefficients(n int, transition float64) []float64 {
	k, q := transitionParam(transition)
	order := n*2 + 1

	coeffs := make([]float64, n)
	for i := range n {
		coeffs[i] = iirCoefficient(i, k, q, order)
	}
	return coeffs
}

func transitionParam(transition float64) (k, q float64) {
	k = math.Pow(math.Tan((1-transition*2)*math.Pi*0.25), 2)
	kksqrt := math.Pow(1-k*k, 0.25)
	e := 0.5 * (1 - kksqrt) / (1 + kksqrt)
	e4 := e * e * e * e
	q = e * (1 + e4*(2+e4*(15+150*e4)))
	return k, q
}

func iirCoefficient(index int, k, q float64, order int) float64 {
	c := index + 1
	num := accNum(q, order, c) * math.Pow(q, 0.25)
	den := accDen(q, order, c) + 0.5
	ww := (num * num) / (den * den)

	r := math.Sqrt((1-ww*k)*(1-ww/k)) / (1 + ww)
	return (1 - r) / (1 + r)
}

func accNum(q float64, order, c int) float64 {
	result := 0.0
	sign := 1.0
	for i := 0; ; i++ {
		term := math.Pow(q, float64(i*(i+1))) * math.Sin(float64(i*2+1)*float64(c)*math.Pi/float64(order)) * sign
		result += term
		sign = -sign
		if math.Abs(term) <= 1e-100 {
			break
		}
	}
	return result
}

func accDen(q float64, order, c int) float64 {
	result := 0.0
	sign := -1.0
	for i := 1; ; i++ {
		term := math.Pow(q, float64(i*i)) * math.Cos(2*float64(i)*float64(c)*math.Pi/float64(order)) * sign
		result += term
		sign = -sign
		if math.Abs(term) <= 1e-100 {
			break
		}
	}
	return result
}

func kaiserBeta(attenuationDB float64) float64 {
	switch {
	case attenuationDB > 50:
		return 0.1102 * (attenuationDB - 8.7)
	case attenuationDB >= 21:
		return 0.5842*math.Pow(attenuationDB-21, 0.4) + 0.07886*(attenuationDB-21)
	default:
		return 0
	}
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 1
	}
	pix := math.Pi * x
	return math.Sin(pix) / pix
}

func kaiserWindow(i, n int, beta float64) float64 {
	if n <= 1 || beta == 0 {
		return 1
	}
	t := 2*float64(i)/float64(n-1) - 1
	a := math.Sqrt(math.Max(0, 1-t*t))
	return i0(beta*a) / i0(beta)
}

func i0(x float64) float64 {
	// Power series approximation.
	sum := 1.0
	term := 1.0
	x2 := (x * x) / 4
	for k := 1; k < 64; k++ {
		term *= x2 / float64(k*k)
		sum += term
		if term < 1e-16*sum {
			break
		}
	}
	return sum
}

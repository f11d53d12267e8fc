package shaper

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-waveshaper/dsp/core"
)

// ErrUnknownClipper is returned by [Parse] for names outside the bank.
var ErrUnknownClipper = errors.New("shaper: unknown clipper")

// Clipper selects one transfer function of the bank.
type Clipper int

const (
	HardClip Clipper = iota
	Tanh
	Atan
	Saturate
	SaturateRootSquared
	CubicSoftClip
	PolySoftClip
	Ripple

	// NumClippers is the bank size.
	NumClippers = int(Ripple) + 1
)

const (
	polyClipLimit = 1.875
	polyClipA3    = -0.18963
	polyClipA5    = 0.0161817
	inv6          = 1.0 / 6.0
)

var names = [NumClippers]string{
	"hard",
	"tanh",
	"atan",
	"saturate",
	"saturate-root",
	"cubic",
	"poly",
	"ripple",
}

var labels = [NumClippers]string{
	"Hard Clip",
	"Tanh",
	"Atan",
	"x / (1 + |x|)",
	"x / sqrt(1 + x^2)",
	"x - (x^3 / 6)",
	"Poly Soft Clip",
	"Ripple",
}

// Valid reports whether c indexes the bank.
func (c Clipper) Valid() bool {
	return c >= 0 && int(c) < NumClippers
}

// String returns the short name used by Parse.
func (c Clipper) String() string {
	if !c.Valid() {
		return fmt.Sprintf("clipper(%d)", int(c))
	}
	return names[c]
}

// Label returns the human-readable formula label.
func (c Clipper) Label() string {
	if !c.Valid() {
		return c.String()
	}
	return labels[c]
}

// Names returns the short names of every clipper in bank order.
func Names() []string {
	out := make([]string, NumClippers)
	copy(out, names[:])
	return out
}

// Parse resolves a short name (case-insensitive) or a decimal bank index.
func Parse(s string) (Clipper, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n == key {
			return Clipper(i), nil
		}
	}

	var idx int
	if _, err := fmt.Sscanf(key, "%d", &idx); err == nil && fmt.Sprint(idx) == key {
		if c := Clipper(idx); c.Valid() {
			return c, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownClipper, s)
}

// MarshalText encodes c as its short name.
func (c Clipper) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: index %d", ErrUnknownClipper, int(c))
	}
	return []byte(names[c]), nil
}

// UnmarshalText accepts anything Parse accepts.
func (c *Clipper) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// FromIndex converts a raw parameter index, rejecting out-of-range values.
func FromIndex(i int) (Clipper, error) {
	c := Clipper(i)
	if !c.Valid() {
		return 0, fmt.Errorf("%w: index %d not in [0, %d)", ErrUnknownClipper, i, NumClippers)
	}
	return c, nil
}

// Apply evaluates clipper c at x. An invalid clipper passes x through
// unchanged; callers are expected to validate with [Clipper.Valid].
//
//nolint:cyclop
func Apply[F core.Float](c Clipper, x F) F {
	switch c {
	case HardClip:
		return HardClipT(x)
	case Tanh:
		return TanhT(x)
	case Atan:
		return AtanT(x)
	case Saturate:
		return SaturateT(x)
	case SaturateRootSquared:
		return SaturateRootSquaredT(x)
	case CubicSoftClip:
		return CubicSoftClipT(x)
	case PolySoftClip:
		return PolySoftClipT(x)
	case Ripple:
		return RippleT(x)
	default:
		return x
	}
}

// HardClipT clamps x to [-1, 1].
func HardClipT[F core.Float](x F) F {
	if x < -1 {
		return -1
	}
	if x > 1 {
		return 1
	}
	return x
}

// HardClipToThreshold clamps x to [-threshold, threshold].
func HardClipToThreshold[F core.Float](x, threshold F) F {
	if x < -threshold {
		return -threshold
	}
	if x > threshold {
		return threshold
	}
	return x
}

// TanhT returns tanh(x).
func TanhT[F core.Float](x F) F {
	return F(math.Tanh(float64(x)))
}

// AtanT returns atan(x).
func AtanT[F core.Float](x F) F {
	return F(math.Atan(float64(x)))
}

// SaturateT returns x / (1 + |x|).
func SaturateT[F core.Float](x F) F {
	return x / (abs(x) + 1)
}

// SaturateRootSquaredT returns x / sqrt(1 + x²).
func SaturateRootSquaredT[F core.Float](x F) F {
	return x / F(mathSqrt(float64(x*x)+1))
}

// CubicSoftClipT hard-clips x to ±√2 and subtracts x³/6, which reaches
// ±(2√2)/3 at the clip point with zero slope.
func CubicSoftClipT[F core.Float](x F) F {
	x = HardClipToThreshold(x, F(math.Sqrt2))
	return x - F(inv6)*x*x*x
}

// PolySoftClipT is the fifth-order soft clipper saturating at ±1.875. The
// limit itself maps to exactly ±1; the polynomial reaches 0.999997 there.
func PolySoftClipT[F core.Float](x F) F {
	if x >= polyClipLimit {
		return 1
	}
	if x <= -polyClipLimit {
		return -1
	}

	x2 := float64(x) * float64(x)
	x3 := x2 * float64(x)
	return F(x3*polyClipA3 + x3*x2*polyClipA5 + float64(x))
}

// RippleT is sin(x·π/2) inside the unit range. Outside it adds ln|x| to the
// sine, takes the magnitude and normalises by 1 + ln|x|, keeping the sign of
// x. The log term is even while the sine is odd, so the two half-planes fold
// differently: sign(x)·|sin(x·π/2) + ln|x|| / (1 + ln|x|).
func RippleT[F core.Float](x F) F {
	v := float64(x)
	m := math.Abs(v)
	s := math.Sin(v * math.Pi * 0.5)
	if m <= 1 {
		return F(s)
	}

	l := math.Log(m)
	y := math.Abs(s+l) / (1 + l)
	return F(math.Copysign(y, v))
}

func abs[F core.Float](x F) F {
	if x < 0 {
		return -x
	}
	return x
}

package waveshaper

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/cwbudde/algo-waveshaper/dsp/shaper"
)

const (
	// SymmetryScale maps the symmetry control onto threshold offsets.
	SymmetryScale = 0.009

	// MutedPassbandDB is the passband level used when the outer bands are muted.
	MutedPassbandDB = -96.0
)

// ErrInvalidParams is wrapped by every Params validation error.
var ErrInvalidParams = errors.New("waveshaper: invalid parameters")

// ParamSpec describes one entry of the parameter vector.
type ParamSpec struct {
	ID      string
	Label   string
	Min     float64
	Max     float64
	Default float64
}

// Specs lists the parameter vector in host order.
var Specs = []ParamSpec{
	{ID: "active", Label: "Active", Min: 0, Max: 1, Default: 1},
	{ID: "drive", Label: "Drive (dB)", Min: -12, Max: 48, Default: 0},
	{ID: "outGain", Label: "Output (dB)", Min: -60, Max: 12, Default: 0},
	{ID: "modePos", Label: "Positive Clipper", Min: 0, Max: float64(shaper.NumClippers - 1), Default: 0},
	{ID: "modeNeg", Label: "Negative Clipper", Min: 0, Max: float64(shaper.NumClippers - 1), Default: 0},
	{ID: "sym", Label: "Symmetry", Min: -100, Max: 100, Default: 0},
	{ID: "xOverLow", Label: "Crossover Low (Hz)", Min: 20, Max: 19500, Default: defaultCrossoverLow},
	{ID: "xOverHigh", Label: "Crossover High (Hz)", Min: 20, Max: 19500, Default: defaultCrossoverHigh},
	{ID: "filter", Label: "Mute Bands", Min: 0, Max: 1, Default: 0},
	{ID: "mix", Label: "Mix (%)", Min: 0, Max: 100, Default: 100},
	{ID: "os", Label: "Oversampling", Min: 0, Max: NumOverSampleStages - 1, Default: defaultOverSample},
}

// OverSampleLabels names the oversampling choices by index.
var OverSampleLabels = [NumOverSampleStages]string{"Off", "x2", "x4", "x8", "x16"}

// Params is the full control state of an [Engine].
type Params struct {
	Active        bool           `json:"active"`
	DriveDB       float64        `json:"drive_db"`
	OutputDB      float64        `json:"output_db"`
	ClipPositive  shaper.Clipper `json:"clip_positive"`
	ClipNegative  shaper.Clipper `json:"clip_negative"`
	Symmetry      float64        `json:"symmetry"`
	CrossoverLow  float64        `json:"crossover_low_hz"`
	CrossoverHigh float64        `json:"crossover_high_hz"`
	MuteBands     bool           `json:"mute_bands"`
	MixPercent    float64        `json:"mix_percent"`
	Oversampling  int            `json:"oversampling"`
}

// DefaultParams returns the default of every entry in [Specs].
func DefaultParams() Params {
	p, err := ParamsFromVector(DefaultVector())
	if err != nil {
		panic(err)
	}
	return p
}

// DefaultVector returns the defaults in host order.
func DefaultVector() []float64 {
	v := make([]float64, len(Specs))
	for i, s := range Specs {
		v[i] = s.Default
	}
	return v
}

// Validate reports the first entry outside its range.
func (p Params) Validate() error {
	if !p.ClipPositive.Valid() {
		return fmt.Errorf("%w: positive clipper %d", ErrInvalidParams, int(p.ClipPositive))
	}
	if !p.ClipNegative.Valid() {
		return fmt.Errorf("%w: negative clipper %d", ErrInvalidParams, int(p.ClipNegative))
	}
	if p.Oversampling < 0 || p.Oversampling >= NumOverSampleStages {
		return fmt.Errorf("%w: oversampling %d", ErrInvalidParams, p.Oversampling)
	}

	v := p.Vector()
	for i, s := range Specs {
		if math.IsNaN(v[i]) || v[i] < s.Min || v[i] > s.Max {
			return fmt.Errorf("%w: %s=%g not in [%g, %g]", ErrInvalidParams, s.ID, v[i], s.Min, s.Max)
		}
	}
	return nil
}

// Thresholds maps Symmetry onto the clipping thresholds. Negative symmetry
// lowers the positive threshold, positive symmetry raises the negative one.
func (p Params) Thresholds() (neg, pos float64) {
	sym := p.Symmetry * SymmetryScale
	neg, pos = -1, 1
	if sym < 0 {
		pos = 1 + sym
	} else {
		neg = sym - 1
	}
	return neg, pos
}

// PassbandDB returns the level of the outer bands.
func (p Params) PassbandDB() float64 {
	if p.MuteBands {
		return MutedPassbandDB
	}
	return 0
}

// Vector returns p in host order, see [Specs].
func (p Params) Vector() []float64 {
	return []float64{
		boolValue(p.Active),
		p.DriveDB,
		p.OutputDB,
		float64(p.ClipPositive),
		float64(p.ClipNegative),
		p.Symmetry,
		p.CrossoverLow,
		p.CrossoverHigh,
		boolValue(p.MuteBands),
		p.MixPercent,
		float64(p.Oversampling),
	}
}

// ParamsFromVector builds Params from host-order values. Switches are on
// at 0.5 and above; choice indices are rounded.
func ParamsFromVector(v []float64) (Params, error) {
	if len(v) != len(Specs) {
		return Params{}, fmt.Errorf("%w: vector has %d entries, want %d", ErrInvalidParams, len(v), len(Specs))
	}
	p := Params{
		Active:        v[0] >= 0.5,
		DriveDB:       v[1],
		OutputDB:      v[2],
		ClipPositive:  shaper.Clipper(math.Round(v[3])),
		ClipNegative:  shaper.Clipper(math.Round(v[4])),
		Symmetry:      v[5],
		CrossoverLow:  v[6],
		CrossoverHigh: v[7],
		MuteBands:     v[8] >= 0.5,
		MixPercent:    v[9],
		Oversampling:  int(math.Round(v[10])),
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// LoadParams decodes a JSON preset. Missing fields keep their defaults.
func LoadParams(r io.Reader) (Params, error) {
	p := DefaultParams()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Params{}, fmt.Errorf("waveshaper: decode preset: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// SaveParams writes p as an indented JSON preset.
func SaveParams(w io.Writer, p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("waveshaper: encode preset: %w", err)
	}
	return nil
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

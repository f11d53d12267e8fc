package oversample

// Design holds the transition width (normalised to the higher rate) and the
// stop-band attenuation of one half-band filter.
type Design struct {
	Transition    float64
	AttenuationDB float64
}

var (
	// DefaultFIRUp is the first-level upsampling filter.
	DefaultFIRUp = Design{Transition: 0.05, AttenuationDB: 90}
	// DefaultFIRDown is the first-level downsampling filter.
	DefaultFIRDown = Design{Transition: 0.06, AttenuationDB: 75}
	// DefaultIIRUp is the upsampling filter of every further level.
	DefaultIIRUp = Design{Transition: 0.1, AttenuationDB: 70}
	// DefaultIIRDown is the downsampling filter of every further level.
	DefaultIIRDown = Design{Transition: 0.12, AttenuationDB: 60}
)

type config struct {
	integerLatency bool
	firUp, firDown Design
	iirUp, iirDown Design
}

func defaultConfig() config {
	return config{
		integerLatency: true,
		firUp:          DefaultFIRUp,
		firDown:        DefaultFIRDown,
		iirUp:          DefaultIIRUp,
		iirDown:        DefaultIIRDown,
	}
}

// Option configures a [Bank].
type Option func(*config)

// WithIntegerLatency enables or disables the fractional delay that rounds
// every stage's latency up to a whole number of samples. Enabled by default.
func WithIntegerLatency(enabled bool) Option {
	return func(cfg *config) {
		cfg.integerLatency = enabled
	}
}

// WithFIRDesign overrides the first-level filter designs.
func WithFIRDesign(up, down Design) Option {
	return func(cfg *config) {
		cfg.firUp = up
		cfg.firDown = down
	}
}

// WithIIRDesign overrides the designs of levels after the first.
func WithIIRDesign(up, down Design) Option {
	return func(cfg *config) {
		cfg.iirUp = up
		cfg.iirDown = down
	}
}

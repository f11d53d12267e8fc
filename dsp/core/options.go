package core

// DefaultSmoothingTime is the ramp length, in seconds, used for every
// smoothed control value.
const DefaultSmoothingTime = 0.020

// ProcessorConfig defines common DSP processing settings.
type ProcessorConfig struct {
	SampleRate    float64
	BlockSize     int
	Channels      int
	SmoothingTime float64
}

// ProcessorOption mutates a ProcessorConfig.
type ProcessorOption func(*ProcessorConfig)

// DefaultProcessorConfig returns sensible defaults for offline and streaming use.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		SampleRate:    48000,
		BlockSize:     512,
		Channels:      2,
		SmoothingTime: DefaultSmoothingTime,
	}
}

// WithSampleRate sets the processing sample rate.
func WithSampleRate(sampleRate float64) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithBlockSize sets the maximum processing block size.
func WithBlockSize(blockSize int) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if blockSize > 0 {
			cfg.BlockSize = blockSize
		}
	}
}

// WithChannels sets the channel count.
func WithChannels(channels int) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if channels > 0 {
			cfg.Channels = channels
		}
	}
}

// WithSmoothingTime sets the parameter ramp length in seconds.
func WithSmoothingTime(seconds float64) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if seconds >= 0 && IsFinite(seconds) {
			cfg.SmoothingTime = seconds
		}
	}
}

// ApplyProcessorOptions applies zero or more options to the default config.
func ApplyProcessorOptions(opts ...ProcessorOption) ProcessorConfig {
	cfg := DefaultProcessorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

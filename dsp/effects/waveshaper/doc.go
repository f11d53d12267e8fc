// Package waveshaper implements a multi-band waveshaping distortion.
//
// Each input sample is oversampled by the active stage of an
// [oversample.Bank], split into low, mid and high bands by two cascaded
// one-pole crossovers, and only the mid band is driven into a pair of
// clippers from [shaper]: one for the negative half-wave and one for the
// positive half-wave, each with its own threshold. The outer bands are
// scaled by the passband level, the bands are summed, decimated and
// finally delayed so that every oversampling setting has the same total
// latency.
//
// [Processor] is the real-time core. [Engine] adds the host-facing
// controls (output gain, active switch, aligned bypass) and is driven by
// a [Params] vector that can be stored as a JSON preset.
//
// Control methods may be called from any goroutine while another
// goroutine calls ProcessBlock; every control value is handed over
// through atomics and applied by the audio goroutine without locking or
// allocating.
package waveshaper

// Package crossover provides first-order crossover filters for splitting an
// audio signal into complementary frequency bands.
//
// [Filter] is a one-pole lowpass discretised with the trapezoidal
// (topology-preserving) rule. Its crossover output returns the lowpass band
// and the residual highpass band high = in - low, so the two bands sum back
// to the input up to floating-point rounding. Cascading two filters in
// [ThreeBand] splits a signal into low, mid and high bands that reconstruct
// the same way.
//
// Per-channel state lives inside the filter; callers pass the channel index
// with every sample. Cutoff updates only recompute one coefficient, so they
// are safe to call per sample while a parameter glides.
//
// Example:
//
//	xo, _ := crossover.New[float64](48000, 1000, 2)
//	lo, hi := xo.ProcessCrossover(x, 0)
//	sum := lo + hi // ≈ x
package crossover

// Package shaper provides the fixed bank of stateless transfer functions
// ("clippers") used by the waveshaper.
//
// Each function maps one sample to one sample, satisfies f(0) = 0 and stays
// bounded for large inputs. All but Ripple are odd-symmetric. The bank is a closed enumeration: a [Clipper]
// value selects the function and [Apply] dispatches with a switch, so the
// per-sample hot path makes no indirect calls.
//
// Bank order (the index is the persisted parameter value):
//
//	0 HardClip             clamp to [-1, 1]
//	1 Tanh                 tanh(x)
//	2 Atan                 atan(x)
//	3 Saturate             x / (1 + |x|)
//	4 SaturateRootSquared  x / sqrt(1 + x²)
//	5 CubicSoftClip        clamp to ±√2, then x - x³/6
//	6 PolySoftClip         x - 0.18963x³ + 0.0161817x⁵ inside ±1.875, ±1 outside
//	7 Ripple               sin(x·π/2) inside ±1, sign-kept log-corrected fold outside
//
// Building with the fastmath tag replaces the square root used by
// SaturateRootSquared with the algo-approx approximation.
package shaper

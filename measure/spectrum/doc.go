// Package spectrum measures magnitude spectra, tone levels and harmonic
// distortion of rendered signals.
//
// It backs the oversampling filter tests and the analysis mode of the
// waveshape command. An [Analyzer] owns its FFT plan and scratch buffers,
// so repeated measurements of the same size do not allocate.
package spectrum

// Package oversample provides a bank of oversampling stages with factors
// 1, 2, 4, 8 and 16 built from cascaded half-band filters.
//
// The first factor-of-two level of every stage uses a linear-phase
// Kaiser-windowed FIR half-band. Further levels, which run at rates far
// above the audio band, use cheaper polyphase allpass IIR half-bands. Every
// filter is designed and every buffer allocated when the bank is prepared;
// processing and switching stages never allocate.
//
// With integer latency enabled (the default) each stage appends a
// first-order Thiran fractional delay after downsampling so that its total
// latency is a whole number of base-rate samples, which keeps it alignable
// with a plain integer delay line.
//
// Typical use on the audio goroutine:
//
//	up := bank.ProcessUp(block) // views into the stage buffers
//	for ch := range up {
//		for i := range up[ch] {
//			up[ch][i] = shape(up[ch][i])
//		}
//	}
//	bank.ProcessDown(block)
package oversample

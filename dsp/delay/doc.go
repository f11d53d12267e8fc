// Package delay provides integer and fractional delays used to align
// signal paths with different latencies.
//
// [Line] is a fixed-size circular buffer. [Compensator] applies the same
// integer delay to every channel of a planar block. [Thiran] is a
// first-order allpass that adds a fractional delay so that a path's total
// latency lands on a whole number of samples.
package delay

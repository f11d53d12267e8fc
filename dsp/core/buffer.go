package core

// EnsureLen returns buf resized to n, allocating only when its capacity is
// too small. Newly allocated slices are zeroed; reused ones keep their data.
func EnsureLen[F Float](buf []F, n int) []F {
	if n <= 0 {
		return buf[:0]
	}
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]F, n)
}

// Zero clears buf.
func Zero[F Float](buf []F) {
	for i := range buf {
		buf[i] = 0
	}
}

// NewPlanar allocates channels zeroed buffers of n samples each.
func NewPlanar[F Float](channels, n int) [][]F {
	out := make([][]F, channels)
	for c := range out {
		out[c] = make([]F, n)
	}
	return out
}

// Frames returns the common length of a planar block. ok is false when the
// channels are ragged.
func Frames[F Float](block [][]F) (n int, ok bool) {
	if len(block) == 0 {
		return 0, true
	}
	n = len(block[0])
	for _, ch := range block[1:] {
		if len(ch) != n {
			return 0, false
		}
	}
	return n, true
}

// Window returns the planar sub-block [start, start+n) of block without
// copying. dst is reused for the channel headers.
func Window[F Float](dst, block [][]F, start, n int) [][]F {
	dst = dst[:0]
	for _, ch := range block {
		dst = append(dst, ch[start:start+n])
	}
	return dst
}

package oversample

import "github.com/cwbudde/algo-waveshaper/dsp/core"

// level is one factor-of-two step between rate r and 2r. Up and down
// filters keep separate per-channel state.
type level[F core.Float] interface {
	processUp(ch int, in, out []F)
	processDown(ch int, in, out []F)
	// latency is the up plus down delay in samples of the higher rate.
	latency() float64
	reset()
}

// history keeps the last n values of a stream in a doubled buffer so the
// window window()[k] = x[m-k] is always contiguous.
type history[F core.Float] struct {
	buf []F
	pos int
	n   int
}

func newHistory[F core.Float](n int) history[F] {
	return history[F]{buf: make([]F, 2*n), n: n}
}

func (h *history[F]) push(x F) {
	h.pos--
	if h.pos < 0 {
		h.pos = h.n - 1
	}
	h.buf[h.pos] = x
	h.buf[h.pos+h.n] = x
}

func (h *history[F]) window() []F {
	return h.buf[h.pos : h.pos+h.n]
}

func (h *history[F]) reset() {
	core.Zero(h.buf)
	h.pos = 0
}

// firKernel holds the non-zero taps of a 4K+3 half-band: the even-indexed
// taps and the centre tap.
type firKernel[F core.Float] struct {
	even   []F
	center F
	k      int
}

func newFIRKernel[F core.Float](taps []float64) firKernel[F] {
	n := len(taps)
	kern := firKernel[F]{
		even:   make([]F, (n+1)/2),
		center: F(taps[n/2]),
		k:      (n - 3) / 4,
	}
	for i := range kern.even {
		kern.even[i] = F(taps[2*i])
	}
	return kern
}

func (k firKernel[F]) delay() float64 {
	return float64(2*k.k + 1)
}

// firLevel is a linear-phase half-band level in polyphase form.
type firLevel[F core.Float] struct {
	up, down firKernel[F]

	upHist   []history[F]
	downEven []history[F]
	downOdd  []history[F]
}

func newFIRLevel[F core.Float](upTaps, downTaps []float64, channels int) *firLevel[F] {
	l := &firLevel[F]{
		up:       newFIRKernel[F](upTaps),
		down:     newFIRKernel[F](downTaps),
		upHist:   make([]history[F], channels),
		downEven: make([]history[F], channels),
		downOdd:  make([]history[F], channels),
	}
	for ch := range channels {
		l.upHist[ch] = newHistory[F](len(l.up.even))
		l.downEven[ch] = newHistory[F](len(l.down.even))
		l.downOdd[ch] = newHistory[F](l.down.k + 2)
	}
	return l
}

// processUp writes 2·len(in) samples to out.
func (l *firLevel[F]) processUp(ch int, in, out []F) {
	h := &l.upHist[ch]
	taps := l.up.even
	center := 2 * l.up.center
	k := l.up.k

	for i, x := range in {
		h.push(x)
		w := h.window()
		var acc F
		for j, c := range taps {
			acc += c * w[j]
		}
		out[2*i] = 2 * acc
		out[2*i+1] = center * w[k]
	}
}

// processDown consumes 2·len(out) samples of in.
func (l *firLevel[F]) processDown(ch int, in, out []F) {
	he := &l.downEven[ch]
	ho := &l.downOdd[ch]
	taps := l.down.even
	center := l.down.center
	k := l.down.k

	for i := range out {
		he.push(in[2*i])
		ho.push(in[2*i+1])
		w := he.window()
		var acc F
		for j, c := range taps {
			acc += c * w[j]
		}
		out[i] = acc + center*ho.window()[k+1]
	}
}

func (l *firLevel[F]) latency() float64 {
	return l.up.delay() + l.down.delay()
}

func (l *firLevel[F]) reset() {
	for ch := range l.upHist {
		l.upHist[ch].reset()
		l.downEven[ch].reset()
		l.downOdd[ch].reset()
	}
}

// allpassChain is a cascade of first-order allpass sections
// y = (x - y1)·c + x1 running at the lower rate of a level.
type allpassChain[F core.Float] struct {
	coefs []F
	x1    []F
	y1    []F
}

func newAllpassChain[F core.Float](coefs []F) allpassChain[F] {
	return allpassChain[F]{
		coefs: coefs,
		x1:    make([]F, len(coefs)),
		y1:    make([]F, len(coefs)),
	}
}

func (a *allpassChain[F]) process(x F) F {
	for i, c := range a.coefs {
		y := (x-a.y1[i])*c + a.x1[i]
		a.x1[i] = x
		a.y1[i] = y
		x = y
	}
	return x
}

func (a *allpassChain[F]) reset() {
	core.Zero(a.x1)
	core.Zero(a.y1)
}

// iirPaths splits half-band coefficients across the two branches.
type iirPaths[F core.Float] struct {
	path0, path1 []F
	delay        float64
}

func newIIRPaths[F core.Float](coefs []float64) iirPaths[F] {
	var p iirPaths[F]
	for i, c := range coefs {
		if i%2 == 0 {
			p.path0 = append(p.path0, F(c))
		} else {
			p.path1 = append(p.path1, F(c))
		}
		p.delay += IIRGroupDelay(c)
	}
	return p
}

// iirLevel is a polyphase allpass half-band level. Its phase response is
// not linear; the reported latency is the low-frequency group delay.
type iirLevel[F core.Float] struct {
	up, down iirPaths[F]

	upChains   [][2]allpassChain[F]
	downChains [][2]allpassChain[F]
}

func newIIRLevel[F core.Float](upCoefs, downCoefs []float64, channels int) *iirLevel[F] {
	l := &iirLevel[F]{
		up:         newIIRPaths[F](upCoefs),
		down:       newIIRPaths[F](downCoefs),
		upChains:   make([][2]allpassChain[F], channels),
		downChains: make([][2]allpassChain[F], channels),
	}
	for ch := range channels {
		l.upChains[ch] = [2]allpassChain[F]{newAllpassChain(l.up.path0), newAllpassChain(l.up.path1)}
		l.downChains[ch] = [2]allpassChain[F]{newAllpassChain(l.down.path0), newAllpassChain(l.down.path1)}
	}
	return l
}

func (l *iirLevel[F]) processUp(ch int, in, out []F) {
	c := &l.upChains[ch]
	for i, x := range in {
		out[2*i] = c[0].process(x)
		out[2*i+1] = c[1].process(x)
	}
}

func (l *iirLevel[F]) processDown(ch int, in, out []F) {
	c := &l.downChains[ch]
	for i := range out {
		s0 := c[0].process(in[2*i+1])
		s1 := c[1].process(in[2*i])
		out[i] = 0.5 * (s0 + s1)
	}
}

// latency sums the section delays of both branches in both directions.
// Averaging the branches maps lower-rate section delays onto the same count
// of higher-rate samples, and the half-sample offsets of the up and down
// structures cancel.
func (l *iirLevel[F]) latency() float64 {
	return l.up.delay + l.down.delay
}

func (l *iirLevel[F]) reset() {
	for ch := range l.upChains {
		for p := range 2 {
			l.upChains[ch][p].reset()
			l.downChains[ch][p].reset()
		}
	}
}

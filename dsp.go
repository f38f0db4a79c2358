package audioworld

import (
	"fmt"
	"math"

	"github.com/gopxl/beep"
)

// DSPKind is an effect that can be attached to a channel. The value is also
// the effect's slot in the channel chain.
type DSPKind int

const (
	DSPReverb DSPKind = iota
	DSPLowPass
	DSPHighPass
	DSPDistortion
	DSPChorus

	dspSlots
)

func (k DSPKind) String() string {
	switch k {
	case DSPReverb:
		return "reverb"
	case DSPLowPass:
		return "lowpass"
	case DSPHighPass:
		return "highpass"
	case DSPDistortion:
		return "distortion"
	case DSPChorus:
		return "chorus"
	}
	return fmt.Sprintf("dsp(%d)", int(k))
}

// DSPParam names a tunable value of a DSP node.
type DSPParam int

const (
	ParamCutoff DSPParam = iota
	ParamLevel
	ParamDecayTime
	ParamDensity
	ParamDiffusion
	ParamMix
	ParamRate
	ParamDepth
)

var dspParamNames = [...]string{"cutoff", "level", "decay", "density", "diffusion", "mix", "rate", "depth"}

func (p DSPParam) String() string {
	if p < 0 || int(p) >= len(dspParamNames) {
		return fmt.Sprintf("param(%d)", int(p))
	}
	return dspParamNames[p]
}

// DSPNode processes interleaved stereo samples in place.
type DSPNode interface {
	Kind() DSPKind
	SetParameter(p DSPParam, v float64) error
	Parameter(p DSPParam) (float64, error)
	Process(samples [][2]float64)
}

// NewDSP returns a node of the given kind with its default settings.
func NewDSP(kind DSPKind, sr beep.SampleRate) (DSPNode, error) {
	switch kind {
	case DSPReverb:
		return newReverb(sr), nil
	case DSPLowPass:
		return newBiquad(DSPLowPass, sr, 5000), nil
	case DSPHighPass:
		return newBiquad(DSPHighPass, sr, 500), nil
	case DSPDistortion:
		return &distortion{level: 0.7}, nil
	case DSPChorus:
		return newChorus(sr), nil
	}
	return nil, fmt.Errorf("%v: %w", kind, ErrUnknownParameter)
}

func unknownParam(kind DSPKind, p DSPParam) error {
	return fmt.Errorf("%v has no %v parameter: %w", kind, p, ErrUnknownParameter)
}

// biquad is an RBJ cookbook low- or high-pass filter with Q = 1/sqrt(2).
type biquad struct {
	kind   DSPKind
	sr     float64
	cutoff float64

	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     [2]float64
}

func newBiquad(kind DSPKind, sr beep.SampleRate, cutoff float64) *biquad {
	f := &biquad{kind: kind, sr: float64(sr)}
	f.setCutoff(cutoff)
	return f
}

func (f *biquad) Kind() DSPKind { return f.kind }

func (f *biquad) setCutoff(hz float64) {
	f.cutoff = math.Max(10, math.Min(hz, f.sr*0.49))

	w0 := 2 * math.Pi * f.cutoff / f.sr
	cosw, alpha := math.Cos(w0), math.Sin(w0)/math.Sqrt2
	a0 := 1 + alpha

	if f.kind == DSPLowPass {
		f.b0 = (1 - cosw) / 2 / a0
		f.b1 = (1 - cosw) / a0
	} else {
		f.b0 = (1 + cosw) / 2 / a0
		f.b1 = -(1 + cosw) / a0
	}
	f.b2 = f.b0
	f.a1 = -2 * cosw / a0
	f.a2 = (1 - alpha) / a0
}

func (f *biquad) SetParameter(p DSPParam, v float64) error {
	if p != ParamCutoff {
		return unknownParam(f.kind, p)
	}
	f.setCutoff(v)
	return nil
}

func (f *biquad) Parameter(p DSPParam) (float64, error) {
	if p != ParamCutoff {
		return 0, unknownParam(f.kind, p)
	}
	return f.cutoff, nil
}

func (f *biquad) Process(samples [][2]float64) {
	for i := range samples {
		for c := 0; c < 2; c++ {
			x := samples[i][c]
			y := f.b0*x + f.b1*f.x1[c] + f.b2*f.x2[c] - f.a1*f.y1[c] - f.a2*f.y2[c]
			f.x2[c], f.x1[c] = f.x1[c], x
			f.y2[c], f.y1[c] = f.y1[c], y
			samples[i][c] = y
		}
	}
}

// distortion soft clips with tanh, normalised so full scale stays at 1.
type distortion struct {
	level float64
}

func (d *distortion) Kind() DSPKind { return DSPDistortion }

func (d *distortion) SetParameter(p DSPParam, v float64) error {
	if p != ParamLevel {
		return unknownParam(DSPDistortion, p)
	}
	d.level = clampUnit(v)
	return nil
}

func (d *distortion) Parameter(p DSPParam) (float64, error) {
	if p != ParamLevel {
		return 0, unknownParam(DSPDistortion, p)
	}
	return d.level, nil
}

func (d *distortion) Process(samples [][2]float64) {
	if d.level == 0 {
		return
	}
	drive := 1 + 49*d.level
	norm := math.Tanh(drive)
	for i := range samples {
		samples[i][0] = math.Tanh(drive*samples[i][0]) / norm
		samples[i][1] = math.Tanh(drive*samples[i][1]) / norm
	}
}

const (
	chorusBaseDelayMs = 7.0
	chorusMaxDepthMs  = 100.0
)

// chorus mixes in a copy delayed by a sine-modulated amount.
type chorus struct {
	sr    float64
	mix   float64 // percent
	rate  float64 // Hz
	depth float64 // ms

	buf   [][2]float64
	pos   int
	phase float64
}

func newChorus(sr beep.SampleRate) *chorus {
	size := int(float64(sr)*(chorusBaseDelayMs+chorusMaxDepthMs)/1000) + 2
	return &chorus{
		sr:    float64(sr),
		mix:   50,
		rate:  0.8,
		depth: 3,
		buf:   make([][2]float64, size),
	}
}

func (c *chorus) Kind() DSPKind { return DSPChorus }

func (c *chorus) SetParameter(p DSPParam, v float64) error {
	switch p {
	case ParamMix:
		c.mix = math.Max(0, math.Min(100, v))
	case ParamRate:
		c.rate = math.Max(0, math.Min(20, v))
	case ParamDepth:
		c.depth = math.Max(0, math.Min(chorusMaxDepthMs, v))
	default:
		return unknownParam(DSPChorus, p)
	}
	return nil
}

func (c *chorus) Parameter(p DSPParam) (float64, error) {
	switch p {
	case ParamMix:
		return c.mix, nil
	case ParamRate:
		return c.rate, nil
	case ParamDepth:
		return c.depth, nil
	}
	return 0, unknownParam(DSPChorus, p)
}

func (c *chorus) Process(samples [][2]float64) {
	wet := c.mix / 100
	n := len(c.buf)
	for i := range samples {
		c.buf[c.pos] = samples[i]

		delayMs := chorusBaseDelayMs + c.depth*(1+math.Sin(2*math.Pi*c.phase))/2
		delay := delayMs * c.sr / 1000
		whole := int(delay)
		frac := delay - float64(whole)
		a := c.buf[((c.pos-whole)%n+n)%n]
		b := c.buf[((c.pos-whole-1)%n+n)%n]

		for ch := 0; ch < 2; ch++ {
			delayed := a[ch]*(1-frac) + b[ch]*frac
			samples[i][ch] = samples[i][ch]*(1-wet) + delayed*wet
		}

		c.pos = (c.pos + 1) % n
		c.phase += c.rate / c.sr
		c.phase -= math.Floor(c.phase)
	}
}

var (
	reverbCombMs    = [4]float64{29.7, 37.1, 41.1, 43.7}
	reverbAllpassMs = [2]float64{5.0, 1.7}
)

const reverbWet = 0.3

// reverb is a Schroeder reverberator: parallel feedback combs into series
// allpasses. Density stretches the comb delays, diffusion sets allpass gain.
type reverb struct {
	sr        float64
	decay     float64 // ms
	density   float64 // percent
	diffusion float64 // percent

	combs     [4][]float64
	combLen   [4]int
	combPos   [4]int
	combGain  [4]float64
	allpass   [2][]float64
	allpassAt [2]int
}

func newReverb(sr beep.SampleRate) *reverb {
	r := &reverb{
		sr:        float64(sr),
		decay:     1500,
		density:   100,
		diffusion: 100,
	}
	for i, ms := range reverbCombMs {
		r.combs[i] = make([]float64, int(ms*r.sr/1000)+1)
	}
	for i, ms := range reverbAllpassMs {
		r.allpass[i] = make([]float64, int(ms*r.sr/1000)+1)
	}
	r.tune()
	return r
}

func (r *reverb) tune() {
	stretch := 0.5 + 0.5*r.density/100
	for i, ms := range reverbCombMs {
		delayMs := ms * stretch
		r.combLen[i] = max(1, int(delayMs*r.sr/1000))
		r.combPos[i] %= r.combLen[i]
		// 60 dB down after decay milliseconds
		r.combGain[i] = math.Pow(10, -3*delayMs/r.decay)
	}
}

func (r *reverb) Kind() DSPKind { return DSPReverb }

func (r *reverb) SetParameter(p DSPParam, v float64) error {
	switch p {
	case ParamDecayTime:
		r.decay = math.Max(100, math.Min(20000, v))
	case ParamDensity:
		r.density = math.Max(0, math.Min(100, v))
	case ParamDiffusion:
		r.diffusion = math.Max(0, math.Min(100, v))
	default:
		return unknownParam(DSPReverb, p)
	}
	r.tune()
	return nil
}

func (r *reverb) Parameter(p DSPParam) (float64, error) {
	switch p {
	case ParamDecayTime:
		return r.decay, nil
	case ParamDensity:
		return r.density, nil
	case ParamDiffusion:
		return r.diffusion, nil
	}
	return 0, unknownParam(DSPReverb, p)
}

func (r *reverb) Process(samples [][2]float64) {
	g := 0.7 * r.diffusion / 100
	for i := range samples {
		in := (samples[i][0] + samples[i][1]) / 2

		var out float64
		for c := range r.combs {
			buf := r.combs[c]
			pos := r.combPos[c]
			y := buf[pos]
			buf[pos] = in + y*r.combGain[c]
			r.combPos[c] = (pos + 1) % r.combLen[c]
			out += y
		}
		out /= float64(len(r.combs))

		for a := range r.allpass {
			buf := r.allpass[a]
			pos := r.allpassAt[a]
			delayed := buf[pos]
			y := -g*out + delayed
			buf[pos] = out + g*y
			r.allpassAt[a] = (pos + 1) % len(buf)
			out = y
		}

		samples[i][0] = samples[i][0]*(1-reverbWet) + out*reverbWet
		samples[i][1] = samples[i][1]*(1-reverbWet) + out*reverbWet
	}
}

// dspChain runs the attached nodes in slot order after the source.
type dspChain struct {
	src   beep.Streamer
	nodes [dspSlots]DSPNode
}

func (d *dspChain) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = d.src.Stream(samples)
	for _, node := range d.nodes {
		if node != nil {
			node.Process(samples[:n])
		}
	}
	return n, ok
}

func (d *dspChain) Err() error { return d.src.Err() }

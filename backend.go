package audioworld

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
)

// Backend produces sound for an AudioManager.
type Backend interface {
	Open(sampleRate beep.SampleRate) error
	Close() error
	Load(path string, mode SoundMode) (Sound, error)
	Play(s Sound, loop bool) (Voice, error)
	// Err reports a failure of the output since it was opened.
	Err() error
}

// Sound is loaded audio data that can be played many times.
type Sound interface {
	Length() time.Duration
	Close() error
}

// Voice is one playing instance of a Sound.
type Voice interface {
	Stop()
	SetPaused(paused bool)
	SetLoop(loop bool)
	SetGain(gain float64)
	SetPan(pan float64)
	SetRate(ratio float64)
	AttachDSP(node DSPNode)
	SetDSPParameter(kind DSPKind, p DSPParam, value float64) error
	Playing() bool
	Position() time.Duration
}

// SilentBackend keeps voice state without an output device. Playback only
// advances through Advance.
type SilentBackend struct {
	mu     sync.Mutex
	sr     beep.SampleRate
	open   bool
	voices []*silentVoice

	// Fail is returned by Err when set.
	Fail error

	// Lengths gives the length reported for a path; unknown paths get one second.
	Lengths map[string]time.Duration
}

func NewSilentBackend() *SilentBackend {
	return &SilentBackend{Lengths: make(map[string]time.Duration)}
}

func (b *SilentBackend) Open(sampleRate beep.SampleRate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sr = sampleRate
	b.open = true
	return nil
}

func (b *SilentBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, v := range b.voices {
		v.Stop()
	}
	b.voices = nil
	b.open = false
	return nil
}

func (b *SilentBackend) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Fail
}

type silentSound struct {
	path   string
	length time.Duration
}

func (s *silentSound) Length() time.Duration { return s.length }
func (s *silentSound) Close() error          { return nil }

func (b *SilentBackend) Load(path string, mode SoundMode) (Sound, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	length, ok := b.Lengths[path]
	if !ok {
		length = time.Second
	}
	return &silentSound{path: path, length: length}, nil
}

func (b *SilentBackend) Play(s Sound, loop bool) (Voice, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := &silentVoice{
		length:  s.Length(),
		loop:    loop,
		playing: true,
		gain:    1,
		rate:    1,
	}
	b.voices = append(b.voices, v)
	return v, nil
}

// Advance moves every unpaused voice forward by d of wall time, scaled by its
// playback rate. Non-looping voices stop at the end of their sound.
func (b *SilentBackend) Advance(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	live := b.voices[:0]
	for _, v := range b.voices {
		v.advance(d)
		if v.Playing() {
			live = append(live, v)
		}
	}
	b.voices = live
}

// playingVoices returns the voices that are still playing.
func (b *SilentBackend) playingVoices() []*silentVoice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*silentVoice(nil), b.voices...)
}

type silentVoice struct {
	mu       sync.Mutex
	length   time.Duration
	position time.Duration
	loop     bool
	paused   bool
	playing  bool
	gain     float64
	pan      float64
	rate     float64
	dsp      [dspSlots]DSPNode
}

func (v *silentVoice) advance(d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.playing || v.paused {
		return
	}
	v.position += time.Duration(float64(d) * v.rate)
	if v.position < v.length {
		return
	}
	if v.loop && v.length > 0 {
		v.position %= v.length
		return
	}
	v.position = v.length
	v.playing = false
}

func (v *silentVoice) Stop() {
	v.mu.Lock()
	v.playing = false
	v.mu.Unlock()
}

func (v *silentVoice) SetPaused(paused bool) {
	v.mu.Lock()
	v.paused = paused
	v.mu.Unlock()
}

func (v *silentVoice) SetLoop(loop bool) {
	v.mu.Lock()
	v.loop = loop
	v.mu.Unlock()
}

func (v *silentVoice) SetGain(gain float64) {
	v.mu.Lock()
	v.gain = gain
	v.mu.Unlock()
}

func (v *silentVoice) SetPan(pan float64) {
	v.mu.Lock()
	v.pan = pan
	v.mu.Unlock()
}

func (v *silentVoice) SetRate(ratio float64) {
	v.mu.Lock()
	v.rate = ratio
	v.mu.Unlock()
}

func (v *silentVoice) AttachDSP(node DSPNode) {
	v.mu.Lock()
	v.dsp[node.Kind()] = node
	v.mu.Unlock()
}

func (v *silentVoice) SetDSPParameter(kind DSPKind, p DSPParam, value float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	node := v.dsp[kind]
	if node == nil {
		return fmt.Errorf("%v: %w", kind, ErrDSPNotAttached)
	}
	return node.SetParameter(p, value)
}

// DSP returns the node in the given slot, or nil.
func (v *silentVoice) DSP(kind DSPKind) DSPNode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dsp[kind]
}

func (v *silentVoice) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

func (v *silentVoice) Position() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.position
}

// Mix reports the gain, pan and rate last pushed to the voice.
func (v *silentVoice) Mix() (gain, pan, rate float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gain, v.pan, v.rate
}

package audioworld

import (
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"
)

const resampleQuality = 4

// BeepBackend plays voices through the system speaker. mu guards sr and
// open; mixer and voices belong to the speaker lock. Nothing the speaker
// goroutine runs takes mu.
type BeepBackend struct {
	mu     sync.Mutex
	sr     beep.SampleRate
	open   bool
	mixer  *beep.Mixer
	voices map[*beepVoice]struct{}
	err    atomic.Pointer[error]
}

func NewBeepBackend() *BeepBackend {
	return &BeepBackend{
		mixer:  &beep.Mixer{},
		voices: make(map[*beepVoice]struct{}),
	}
}

func (b *BeepBackend) Open(sampleRate beep.SampleRate) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Millisecond*100)); err != nil {
		return fmt.Errorf("opening speaker: %w", err)
	}
	b.sr = sampleRate
	b.err.Store(nil)
	speaker.Play(b.mixer)
	b.open = true
	return nil
}

func (b *BeepBackend) Err() error {
	if err := b.err.Load(); err != nil {
		return *err
	}
	return nil
}

// fail keeps the first error. It runs on the speaker goroutine.
func (b *BeepBackend) fail(err error) {
	b.err.CompareAndSwap(nil, &err)
}

// Close drops every voice, closing the files of streamed ones, and shuts the
// speaker down.
func (b *BeepBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	speaker.Lock()
	for v := range b.voices {
		v.ctrl.Streamer = nil
		v.playing.Store(false)
		v.closeSource()
	}
	clear(b.voices)
	b.mixer.Clear()
	speaker.Unlock()

	if !b.open {
		return nil
	}
	speaker.Close()
	b.open = false
	return nil
}

// beepSound is either a decoded buffer or, for streams, the file to decode
// from on every play.
type beepSound struct {
	path   string
	format beep.Format
	buffer *beep.Buffer
	length time.Duration
}

func (s *beepSound) Length() time.Duration { return s.length }

func (s *beepSound) Close() error {
	s.buffer = nil
	return nil
}

func decodeWAV(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}
	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return streamer, format, nil
}

func (b *BeepBackend) Load(path string, mode SoundMode) (Sound, error) {
	streamer, format, err := decodeWAV(path)
	if err != nil {
		return nil, err
	}
	defer streamer.Close()

	s := &beepSound{
		path:   path,
		format: format,
		length: format.SampleRate.D(streamer.Len()),
	}
	if mode == SoundStream {
		return s, nil
	}

	s.buffer = beep.NewBuffer(format)
	s.buffer.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("buffering %s: %w", path, err)
	}
	return s, nil
}

func (b *BeepBackend) Play(snd Sound, loop bool) (Voice, error) {
	s, ok := snd.(*beepSound)
	if !ok {
		return nil, fmt.Errorf("sound %T not loaded by this backend: %w", snd, ErrInvalidInput)
	}

	var (
		src    beep.StreamSeeker
		closer func() error
	)
	if s.buffer != nil {
		src = s.buffer.Streamer(0, s.buffer.Len())
	} else {
		streamer, _, err := decodeWAV(s.path)
		if err != nil {
			return nil, err
		}
		src, closer = streamer, streamer.Close
	}

	b.mu.Lock()
	deviceRate := b.sr
	b.mu.Unlock()
	if deviceRate <= 0 {
		deviceRate = s.format.SampleRate
	}

	v := &beepVoice{
		backend:   b,
		format:    s.format,
		closer:    closer,
		baseRatio: float64(s.format.SampleRate) / float64(deviceRate),
	}
	v.tracker = &loopTracker{src: src, loop: loop}
	v.resampler = beep.ResampleRatio(resampleQuality, v.baseRatio, v.tracker)
	v.chain = &dspChain{src: v.resampler}
	v.volume = &effects.Volume{Streamer: v.chain, Base: 2}
	v.pan = &effects.Pan{Streamer: v.volume}
	v.ctrl = &beep.Ctrl{Streamer: v.pan}
	v.playing.Store(true)

	speaker.Lock()
	b.voices[v] = struct{}{}
	b.mixer.Add(beep.Seq(v.ctrl, beep.Callback(v.finish)))
	speaker.Unlock()
	return v, nil
}

// loopTracker counts source frames and restarts the source when looping.
type loopTracker struct {
	src  beep.StreamSeeker
	loop bool
	pos  int
}

func (t *loopTracker) Stream(samples [][2]float64) (n int, ok bool) {
	for n < len(samples) {
		got, more := t.src.Stream(samples[n:])
		n += got
		t.pos += got
		if more && got > 0 {
			continue
		}
		if !t.loop || t.src.Len() == 0 {
			break
		}
		if err := t.src.Seek(0); err != nil {
			break
		}
		t.pos = 0
	}
	return n, n > 0
}

func (t *loopTracker) Err() error { return t.src.Err() }

// beepVoice is a chain of source, resampler, DSP, volume and pan behind a
// Ctrl in the shared mixer. Mutations hold the speaker lock.
type beepVoice struct {
	backend   *BeepBackend
	format    beep.Format
	closer    func() error
	baseRatio float64

	tracker   *loopTracker
	resampler *beep.Resampler
	chain     *dspChain
	volume    *effects.Volume
	pan       *effects.Pan
	ctrl      *beep.Ctrl

	playing atomic.Bool
}

// finish runs on the speaker goroutine once the voice has drained.
func (v *beepVoice) finish() {
	v.playing.Store(false)
	if err := v.tracker.Err(); err != nil {
		v.backend.fail(err)
	}
	delete(v.backend.voices, v)
	v.closeSource()
}

// closeSource needs the speaker lock.
func (v *beepVoice) closeSource() {
	if v.closer != nil {
		v.closer()
		v.closer = nil
	}
}

func (v *beepVoice) Stop() {
	speaker.Lock()
	v.ctrl.Streamer = nil
	speaker.Unlock()
	v.playing.Store(false)
}

func (v *beepVoice) SetPaused(paused bool) {
	speaker.Lock()
	v.ctrl.Paused = paused
	speaker.Unlock()
}

func (v *beepVoice) SetLoop(loop bool) {
	speaker.Lock()
	v.tracker.loop = loop
	speaker.Unlock()
}

func (v *beepVoice) SetGain(gain float64) {
	speaker.Lock()
	defer speaker.Unlock()
	if gain <= 0 {
		v.volume.Silent = true
		return
	}
	v.volume.Silent = false
	v.volume.Volume = math.Log2(gain)
}

func (v *beepVoice) SetPan(pan float64) {
	speaker.Lock()
	v.pan.Pan = math.Max(-1, math.Min(1, pan))
	speaker.Unlock()
}

func (v *beepVoice) SetRate(ratio float64) {
	if !(ratio > 0) || math.IsInf(ratio, 1) {
		return
	}
	speaker.Lock()
	v.resampler.SetRatio(v.baseRatio * ratio)
	speaker.Unlock()
}

func (v *beepVoice) AttachDSP(node DSPNode) {
	speaker.Lock()
	v.chain.nodes[node.Kind()] = node
	speaker.Unlock()
}

func (v *beepVoice) SetDSPParameter(kind DSPKind, p DSPParam, value float64) error {
	speaker.Lock()
	defer speaker.Unlock()
	node := v.chain.nodes[kind]
	if node == nil {
		return fmt.Errorf("%v: %w", kind, ErrDSPNotAttached)
	}
	return node.SetParameter(p, value)
}

func (v *beepVoice) Playing() bool {
	return v.playing.Load()
}

func (v *beepVoice) Position() time.Duration {
	speaker.Lock()
	pos := v.tracker.pos
	speaker.Unlock()
	return v.format.SampleRate.D(pos)
}

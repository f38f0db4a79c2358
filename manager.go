package audioworld

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gopxl/beep"
)

const (
	DefaultMaxChannels = 10
	DefaultSampleRate  = beep.SampleRate(44100)

	minPitch        = 0.2
	maxDopplerLevel = 5.0
)

// AudioConfig sizes an AudioManager.
type AudioConfig struct {
	SampleRate   beep.SampleRate
	MaxChannels  int
	Settings     Settings3D
	MaxPolygons  int
	MaxVertices  int
	MaxWorldSize float64
}

func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		SampleRate:   DefaultSampleRate,
		MaxChannels:  DefaultMaxChannels,
		Settings:     DefaultSettings3D(),
		MaxPolygons:  DefaultMaxPolygons,
		MaxVertices:  DefaultMaxVertices,
		MaxWorldSize: DefaultMaxWorldSize,
	}
}

type loadedSound struct {
	sound Sound
	mode  SoundMode
}

type channel struct {
	id      ChannelID
	sound   string
	mode    SoundMode
	voice   Voice
	volume  float64
	pitch   float64
	pan     float64
	paused  bool
	looping bool
	doppler float64
	pos     mgl64.Vec3
	vel     mgl64.Vec3
	mix     spatialMix
	dsp     [dspSlots]bool
}

func (c *channel) reset() {
	c.volume = 1
	c.pitch = 1
	c.pan = 0
	c.paused = false
	c.looping = false
}

// push sends the channel controls combined with the last spatial mix to the voice.
func (c *channel) push() {
	if c.voice == nil {
		return
	}
	c.voice.SetGain(c.volume * c.mix.gain)
	c.voice.SetPan(math.Max(-1, math.Min(1, c.pan+c.mix.pan)))
	c.voice.SetRate(c.pitch * c.mix.pitch)
}

// AudioManager implements AudioEngine on top of a Backend.
type AudioManager struct {
	mu  sync.Mutex
	log *slog.Logger
	cfg AudioConfig

	backend     Backend
	initialized bool
	sounds      map[string]*loadedSound
	channels    []*channel
	nextChannel int
	listener    ListenerAttributes
	geometry    *Geometry
}

var _ AudioEngine = (*AudioManager)(nil)

func NewAudioManager(backend Backend, cfg AudioConfig, log *slog.Logger) *AudioManager {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.MaxChannels <= 0 {
		cfg.MaxChannels = DefaultMaxChannels
	}
	cfg.Settings = cfg.Settings.withDefaults()
	return &AudioManager{
		log:      log,
		cfg:      cfg,
		backend:  backend,
		sounds:   make(map[string]*loadedSound),
		listener: DefaultListener(),
	}
}

func (m *AudioManager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}
	if err := m.backend.Open(m.cfg.SampleRate); err != nil {
		return fmt.Errorf("initializing audio: %w", err)
	}

	m.channels = make([]*channel, m.cfg.MaxChannels)
	for i := range m.channels {
		m.channels[i] = &channel{id: ChannelID(i), doppler: 1}
		m.channels[i].reset()
	}
	m.nextChannel = 0
	m.geometry = NewGeometry(m.cfg.MaxPolygons, m.cfg.MaxVertices, m.cfg.MaxWorldSize)
	m.initialized = true

	m.log.Info("Audio manager initialized", "channels", len(m.channels), "sampleRate", int(m.cfg.SampleRate))
	return nil
}

func (m *AudioManager) Destroy() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroy()
}

func (m *AudioManager) destroy() error {
	if !m.initialized {
		return nil
	}
	for _, c := range m.channels {
		if c.voice != nil {
			c.voice.Stop()
			c.voice = nil
		}
	}
	for path, s := range m.sounds {
		if err := s.sound.Close(); err != nil {
			m.log.Warn("Releasing sound failed", "path", path, "err", err)
		}
	}
	m.sounds = make(map[string]*loadedSound)
	m.initialized = false
	if err := m.backend.Close(); err != nil {
		return fmt.Errorf("closing audio backend: %w", err)
	}
	return nil
}

// Update re-spatialises every live channel. A backend failure tears the
// manager down and is returned.
func (m *AudioManager) Update() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil
	}
	if err := m.backend.Err(); err != nil {
		m.log.Error("Audio backend failed", "err", err)
		if derr := m.destroy(); derr != nil {
			m.log.Warn("Destroying audio manager failed", "err", derr)
		}
		return fmt.Errorf("%w: %w", ErrBackendFailed, err)
	}
	for _, c := range m.channels {
		if c.voice == nil || !c.voice.Playing() {
			continue
		}
		m.spatialise(c)
		c.push()
	}
	return nil
}

// spatialise positions 3D channels relative to the listener. Other sounds
// play flat.
func (m *AudioManager) spatialise(c *channel) {
	if c.mode != Sound3D {
		c.mix = spatialMix{gain: 1, pitch: 1}
		return
	}
	c.mix = m.cfg.Settings.spatialise(m.listener, c.pos, c.vel, c.doppler, m.geometry)
}

func (m *AudioManager) LoadSound(path string, mode SoundMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ErrNotInitialized
	}
	if _, ok := m.sounds[path]; ok {
		m.log.Warn("Audio already loaded", "path", path)
		return nil
	}
	s, err := m.backend.Load(path, mode)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	m.sounds[path] = &loadedSound{sound: s, mode: mode}
	m.log.Info("Audio loaded", "path", path, "mode", mode.String(), "length", s.Length())
	return nil
}

func (m *AudioManager) AudioLength(path string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sounds[path]
	if !ok {
		return 0, fmt.Errorf("%s: %w", path, ErrSoundNotFound)
	}
	return s.sound.Length(), nil
}

func (m *AudioManager) channel(id ChannelID) (*channel, error) {
	if !m.initialized {
		return nil, ErrNotInitialized
	}
	if id < 0 || int(id) >= len(m.channels) {
		return nil, fmt.Errorf("channel %d: %w", id, ErrInvalidChannel)
	}
	return m.channels[id], nil
}

// Play3DSound starts path on channel id, or on the next free-running channel
// when id is 0. The channel that was used is returned.
func (m *AudioManager) Play3DSound(id ChannelID, path string, pos, vel mgl64.Vec3) (ChannelID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ChannelID(m.nextChannel), ErrNotInitialized
	}
	s, ok := m.sounds[path]
	if !ok {
		return ChannelID(m.nextChannel), fmt.Errorf("%s: %w", path, ErrSoundNotFound)
	}

	target := id
	if id == 0 {
		target = ChannelID(m.nextChannel)
		m.nextChannel = (m.nextChannel + 1) % len(m.channels)
	}
	c, err := m.channel(target)
	if err != nil {
		return target, err
	}

	if c.voice != nil {
		c.voice.Stop()
	}
	looping := s.mode == Sound3D
	v, err := m.backend.Play(s.sound, looping)
	if err != nil {
		c.voice = nil
		return target, fmt.Errorf("playing %s on channel %d: %w", path, target, err)
	}

	c.voice = v
	c.sound = path
	c.mode = s.mode
	c.looping = looping
	c.paused = false
	c.pos, c.vel = pos, vel
	c.dsp = [dspSlots]bool{}
	m.spatialise(c)
	c.push()
	v.SetPaused(false)

	m.log.Debug("Playing audio", "path", path, "channel", int(target))
	return target, nil
}

func (m *AudioManager) StopAudio(id ChannelID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.channel(id)
	if err != nil {
		return err
	}
	if c.voice != nil {
		c.voice.Stop()
	}
	return nil
}

func (m *AudioManager) PauseSound(id ChannelID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.channel(id)
	if err != nil {
		return err
	}
	c.paused = !c.paused
	if c.voice != nil {
		c.voice.SetPaused(c.paused)
	}
	return nil
}

func (m *AudioManager) LoopAudio(id ChannelID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.channel(id)
	if err != nil {
		return err
	}
	c.looping = !c.looping
	if c.voice != nil {
		c.voice.SetLoop(c.looping)
	}
	return nil
}

func (m *AudioManager) IsChannelPlaying(id ChannelID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.channel(id)
	if err != nil || c.voice == nil {
		return false
	}
	return c.voice.Playing()
}

func (m *AudioManager) PlaybackPosition(id ChannelID) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.channel(id)
	if err != nil {
		return 0, err
	}
	if c.voice == nil {
		return 0, nil
	}
	return c.voice.Position(), nil
}

func (m *AudioManager) InitializeChannelAttributes(id ChannelID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.channel(id)
	if err != nil {
		return err
	}
	c.reset()
	return nil
}

func (m *AudioManager) SetChannelVolume(id ChannelID, volume float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.channel(id)
	if err != nil {
		return err
	}
	c.volume = volume
	c.push()
	return nil
}

func (m *AudioManager) AdjustChannelPitch(id ChannelID, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.channel(id)
	if err != nil {
		return err
	}
	c.pitch = math.Max(minPitch, c.pitch+delta)
	c.push()
	return nil
}

func (m *AudioManager) AdjustChannelPan(id ChannelID, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.channel(id)
	if err != nil {
		return err
	}
	c.pan = math.Max(-1, math.Min(1, c.pan+delta))
	c.push()
	return nil
}

func (m *AudioManager) ChannelState(id ChannelID) (ChannelState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.channel(id)
	if err != nil {
		return ChannelState{}, err
	}
	st := ChannelState{
		ID:        c.id,
		Sound:     c.sound,
		Volume:    c.volume,
		Pitch:     c.pitch,
		Pan:       c.pan,
		Paused:    c.paused,
		Looping:   c.looping,
		Playing:   c.voice != nil && c.voice.Playing(),
		Doppler:   c.doppler,
		Occlusion: c.mix.occlusion,
		Position:  c.pos,
		Velocity:  c.vel,
	}
	for kind, on := range c.dsp {
		if on {
			st.DSP = append(st.DSP, DSPKind(kind))
		}
	}
	return st, nil
}

func (m *AudioManager) UpdateSound3DAttributes(id ChannelID, pos, vel mgl64.Vec3) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.channel(id)
	if err != nil {
		return err
	}
	c.pos, c.vel = pos, vel
	return nil
}

func (m *AudioManager) SetDopplerLevel(id ChannelID, level float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.channel(id)
	if err != nil {
		return err
	}
	c.doppler = math.Max(0, math.Min(maxDopplerLevel, level))
	return nil
}

// AddDSP attaches a fresh node of kind to the channel's current voice,
// replacing any node already in that slot.
func (m *AudioManager) AddDSP(id ChannelID, kind DSPKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.channel(id)
	if err != nil {
		return err
	}
	if c.voice == nil {
		return fmt.Errorf("channel %d has no voice: %w", id, ErrInvalidChannel)
	}
	node, err := NewDSP(kind, m.cfg.SampleRate)
	if err != nil {
		return err
	}
	c.voice.AttachDSP(node)
	c.dsp[kind] = true
	return nil
}

func (m *AudioManager) SetDSPParameter(id ChannelID, kind DSPKind, param DSPParam, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.channel(id)
	if err != nil {
		return err
	}
	if kind < 0 || kind >= dspSlots || !c.dsp[kind] || c.voice == nil {
		return fmt.Errorf("channel %d %v: %w", id, kind, ErrDSPNotAttached)
	}
	if err := c.voice.SetDSPParameter(kind, param, value); err != nil {
		return fmt.Errorf("channel %d: %w", id, err)
	}
	return nil
}

func (m *AudioManager) SetListenerAttributes(l ListenerAttributes) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ErrNotInitialized
	}
	m.listener = l
	return nil
}

func (m *AudioManager) ListenerAttributes() ListenerAttributes {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listener
}

func (m *AudioManager) RegisterOcclusionPolygon(ordered [4]Point3, direct, reverb float64, doubleSided bool) (PolygonHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return -1, ErrNotInitialized
	}
	return m.geometry.AddPolygon(direct, reverb, doubleSided, ordered[:])
}

func (m *AudioManager) PolygonVertex(h PolygonHandle, index int) (Point3, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return Point3{}, ErrNotInitialized
	}
	return m.geometry.PolygonVertex(h, index)
}

func (m *AudioManager) GeometryOcclusion(from, to Point3) (direct, reverb float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return 0, 0
	}
	return m.geometry.Occlusion(from, to)
}

// PolygonCount is the number of registered occlusion polygons.
func (m *AudioManager) PolygonCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return 0
	}
	return m.geometry.PolygonCount()
}

// SetGeometryActive switches occlusion on or off without dropping polygons.
func (m *AudioManager) SetGeometryActive(active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ErrNotInitialized
	}
	m.geometry.SetActive(active)
	return nil
}

func (m *AudioManager) GeometryActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized && m.geometry.Active()
}

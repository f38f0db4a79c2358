package audioworld

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// AudioModel ties a scene model to the channel its sound plays on.
// ChannelID 0 means "take whichever channel the engine hands out".
type AudioModel struct {
	Name         string
	Kind         ModelKind
	AudioPath    string
	ChannelID    ChannelID
	IsPlaying    bool
	ModelScale   float64
	Position     mgl64.Vec3
	Velocity     mgl64.Vec3
	Acceleration mgl64.Vec3

	launchVelocity     mgl64.Vec3
	launchAcceleration mgl64.Vec3
}

// NewAudioModel snapshots m's position and scale as the model's resting state.
// vel and acc are restored whenever a ship flight ends.
func NewAudioModel(m *SceneModel, audioPath string, vel, acc mgl64.Vec3) *AudioModel {
	return &AudioModel{
		Name:               m.Name,
		Kind:               m.Kind,
		AudioPath:          audioPath,
		ModelScale:         m.Scale,
		Position:           m.Position,
		Velocity:           vel,
		Acceleration:       acc,
		launchVelocity:     vel,
		launchAcceleration: acc,
	}
}

// SceneState is everything the synchronizer carries between frames.
type SceneState struct {
	Models           []*AudioModel
	AnimationRunning bool
	AnimationTime    float64
	TimeLimit        float64
}

func NewSceneState(models []*AudioModel, now float64) *SceneState {
	return &SceneState{Models: models, AnimationTime: now}
}

type DSPValue struct {
	Param DSPParam
	Value float64
}

// DSPPreset is an effect attached when a model starts playing on a channel.
type DSPPreset struct {
	Kind   DSPKind
	Values []DSPValue
}

func DefaultDSPPresets() map[ChannelID][]DSPPreset {
	return map[ChannelID][]DSPPreset{
		1: {
			{Kind: DSPLowPass, Values: []DSPValue{{ParamCutoff, 4500}}},
			{Kind: DSPHighPass, Values: []DSPValue{{ParamCutoff, 200}}},
		},
		2: {
			{Kind: DSPLowPass, Values: []DSPValue{{ParamCutoff, 2000}}},
			{Kind: DSPHighPass, Values: []DSPValue{{ParamCutoff, 2000}}},
		},
		3: {
			{Kind: DSPReverb, Values: []DSPValue{{ParamDecayTime, 4000}, {ParamDensity, 100}, {ParamDiffusion, 100}}},
		},
		4: {
			{Kind: DSPDistortion, Values: []DSPValue{{ParamLevel, 0.1}}},
		},
		5: {
			{Kind: DSPChorus, Values: []DSPValue{{ParamMix, 90}, {ParamRate, 19}, {ParamDepth, 90}}},
		},
	}
}

type SyncConfig struct {
	ProximityRadius   float64
	AnimationInterval float64
	ShipEndZ          float64
	MaxDeltaTime      float64
	ShipDopplerLevel  float64
	ShipVolume        float64
	Presets           map[ChannelID][]DSPPreset
}

func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		ProximityRadius:   90,
		AnimationInterval: 7.5,
		ShipEndZ:          -500,
		MaxDeltaTime:      1.0 / 30.0,
		ShipDopplerLevel:  4,
		ShipVolume:        1,
		Presets:           DefaultDSPPresets(),
	}
}

const pulseDecay = 0.99

// Synchronizer drives audio from the scene once per frame.
type Synchronizer struct {
	log   *slog.Logger
	cfg   SyncConfig
	scene SceneEngine
	audio AudioEngine
	state *SceneState
	last  float64
}

func NewSynchronizer(scene SceneEngine, audio AudioEngine, state *SceneState, cfg SyncConfig, log *slog.Logger) *Synchronizer {
	return &Synchronizer{
		log:   log,
		cfg:   cfg,
		scene: scene,
		audio: audio,
		state: state,
		last:  state.AnimationTime,
	}
}

func (s *Synchronizer) State() *SceneState {
	return s.state
}

// Frame advances the world to now, in seconds. Failures of single models are
// collected and the frame carries on with the rest.
func (s *Synchronizer) Frame(now float64) error {
	st := s.state

	dt := now - s.last
	dt = max(0, min(dt, s.cfg.MaxDeltaTime))
	s.last = now
	st.TimeLimit = now - st.AnimationTime

	var errs []error
	if st.TimeLimit >= s.cfg.AnimationInterval && !st.AnimationRunning {
		st.AnimationTime = now
		st.AnimationRunning = true
		errs = append(errs, s.beginAnimation()...)
	}

	errs = append(errs, s.updateAudio(dt, now)...)
	return errors.Join(errs...)
}

func (s *Synchronizer) beginAnimation() []error {
	var errs []error
	ships := lo.Filter(s.state.Models, func(m *AudioModel, _ int) bool {
		return m.Kind == KindShip && !m.IsPlaying
	})
	for _, ship := range ships {
		if err := s.play(ship); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.audio.SetChannelVolume(ship.ChannelID, s.cfg.ShipVolume); err != nil {
			errs = append(errs, err)
		}
		if err := s.audio.SetDopplerLevel(ship.ChannelID, s.cfg.ShipDopplerLevel); err != nil {
			errs = append(errs, err)
		}
		s.log.Debug("Spaceship launched", "model", ship.Name, "channel", int(ship.ChannelID))
	}
	// nothing took off, so the next interval may try again
	if !lo.SomeBy(s.state.Models, func(m *AudioModel) bool { return m.Kind == KindShip && m.IsPlaying }) {
		s.state.AnimationRunning = false
	}
	return errs
}

func (s *Synchronizer) play(m *AudioModel) error {
	ch, err := s.audio.Play3DSound(m.ChannelID, m.AudioPath, m.Position, m.Velocity)
	if err != nil {
		return fmt.Errorf("playing %s: %w", m.Name, err)
	}
	if m.ChannelID == 0 {
		m.ChannelID = ch
	}
	m.IsPlaying = true
	return nil
}

func (s *Synchronizer) updateAudio(dt, now float64) []error {
	var errs []error
	cam := s.scene.Camera()
	if err := s.audio.SetListenerAttributes(cam.Listener()); err != nil {
		errs = append(errs, err)
	}

	for _, m := range s.state.Models {
		var err error
		if m.Kind == KindShip {
			if m.IsPlaying {
				err = s.moveShip(m, dt, now)
			}
		} else {
			err = s.proximity(m, cam.GetPosition())
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	if err := s.audio.Update(); err != nil {
		errs = append(errs, err)
	}
	return errs
}

func (s *Synchronizer) moveShip(m *AudioModel, dt, now float64) error {
	m.Velocity = m.Velocity.Add(m.Acceleration.Mul(dt))

	pos, err := s.scene.ModelPosition(m.Name)
	if err != nil {
		return err
	}
	pos = pos.Add(m.Velocity.Mul(dt))
	if err := s.scene.MoveModel(m.Name, pos); err != nil {
		return err
	}
	if err := s.audio.UpdateSound3DAttributes(m.ChannelID, pos, m.Velocity); err != nil {
		return err
	}

	if pos.Z() < s.cfg.ShipEndZ {
		return s.endAnimation(m, now)
	}
	return nil
}

func (s *Synchronizer) endAnimation(m *AudioModel, now float64) error {
	var err error
	if m.IsPlaying {
		err = s.audio.StopAudio(m.ChannelID)
		m.IsPlaying = false
	}
	m.Velocity = m.launchVelocity
	m.Acceleration = m.launchAcceleration
	if merr := s.scene.MoveModel(m.Name, m.Position); merr != nil {
		err = errors.Join(err, merr)
	}

	s.state.AnimationRunning = false
	s.state.AnimationTime = now
	s.state.TimeLimit = 0
	s.log.Debug("Spaceship landed", "model", m.Name)
	return err
}

// proximity pulses and plays a model while the listener is close to it.
func (s *Synchronizer) proximity(m *AudioModel, listener mgl64.Vec3) error {
	if listener.Sub(m.Position).Len() >= s.cfg.ProximityRadius {
		if !m.IsPlaying {
			return nil
		}
		m.IsPlaying = false
		err := s.audio.StopAudio(m.ChannelID)
		return errors.Join(err, s.scene.ScaleModel(m.Name, m.ModelScale))
	}

	scale, err := s.scene.ModelScale(m.Name)
	if err != nil {
		return err
	}
	if scale <= m.ModelScale {
		scale = m.ModelScale + 1
	}
	if err := s.scene.ScaleModel(m.Name, scale*pulseDecay); err != nil {
		return err
	}

	if m.IsPlaying {
		return nil
	}
	if err := s.play(m); err != nil {
		return err
	}
	s.log.Debug("Audio model in range", "model", m.Name, "channel", int(m.ChannelID))
	return s.applyPresets(m.ChannelID)
}

func (s *Synchronizer) applyPresets(ch ChannelID) error {
	var errs []error
	for _, p := range s.cfg.Presets[ch] {
		if err := s.audio.AddDSP(ch, p.Kind); err != nil {
			errs = append(errs, err)
			continue
		}
		for _, v := range p.Values {
			if err := s.audio.SetDSPParameter(ch, p.Kind, v.Param, v.Value); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

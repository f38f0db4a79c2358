package audioworld

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	testTrack = "assets/track.wav"
	testShip  = "assets/ship.wav"
)

func newTestManager(t *testing.T) (*AudioManager, *SilentBackend) {
	t.Helper()
	backend := NewSilentBackend()
	backend.Lengths[testTrack] = 10 * time.Second
	backend.Lengths[testShip] = 2 * time.Second

	m := NewAudioManager(backend, DefaultAudioConfig(), slog.New(slog.DiscardHandler))
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := m.LoadSound(testTrack, Sound3D); err != nil {
		t.Fatalf("LoadSound() error = %v", err)
	}
	if err := m.LoadSound(testShip, SoundSample); err != nil {
		t.Fatalf("LoadSound() error = %v", err)
	}
	return m, backend
}

func play(t *testing.T, m *AudioManager, id ChannelID, path string, pos mgl64.Vec3) ChannelID {
	t.Helper()
	got, err := m.Play3DSound(id, path, pos, mgl64.Vec3{})
	if err != nil {
		t.Fatalf("Play3DSound(%d) error = %v", id, err)
	}
	return got
}

func voiceOn(t *testing.T, b *SilentBackend, n int) *silentVoice {
	t.Helper()
	voices := b.playingVoices()
	if len(voices) <= n {
		t.Fatalf("backend has %d voices, want more than %d", len(voices), n)
	}
	return voices[n]
}

func TestAudioManagerNotInitialized(t *testing.T) {
	m := NewAudioManager(NewSilentBackend(), DefaultAudioConfig(), slog.New(slog.DiscardHandler))

	if err := m.LoadSound(testTrack, Sound3D); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("LoadSound() error = %v, want ErrNotInitialized", err)
	}
	if _, err := m.Play3DSound(0, testTrack, mgl64.Vec3{}, mgl64.Vec3{}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Play3DSound() error = %v, want ErrNotInitialized", err)
	}
	if err := m.SetChannelVolume(1, 0.5); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("SetChannelVolume() error = %v, want ErrNotInitialized", err)
	}
	if err := m.Update(); err != nil {
		t.Errorf("Update() error = %v, want nil", err)
	}
	if m.IsChannelPlaying(0) {
		t.Error("IsChannelPlaying() = true before Initialize")
	}
}

func TestAudioManagerInitializeIdempotent(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.Initialize(); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}
	// sounds survive a second Initialize
	if _, err := m.AudioLength(testTrack); err != nil {
		t.Errorf("AudioLength() error = %v", err)
	}
}

func TestAudioManagerLoadTwice(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.LoadSound(testTrack, SoundStream); err != nil {
		t.Fatalf("LoadSound() error = %v", err)
	}
	length, err := m.AudioLength(testTrack)
	if err != nil {
		t.Fatalf("AudioLength() error = %v", err)
	}
	if length != 10*time.Second {
		t.Errorf("AudioLength() = %v, want 10s", length)
	}
	if _, err := m.AudioLength("missing.wav"); !errors.Is(err, ErrSoundNotFound) {
		t.Errorf("AudioLength(missing) error = %v, want ErrSoundNotFound", err)
	}
}

func TestPlay3DSoundChannelAssignment(t *testing.T) {
	m, _ := newTestManager(t)

	testCases := []struct {
		name string
		id   ChannelID
		want ChannelID
	}{
		{"First automatic", 0, 0},
		{"Second automatic", 0, 1},
		{"Explicit", 5, 5},
		{"Automatic after explicit", 0, 2},
		{"Explicit reuse", 5, 5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := play(t, m, tc.id, testTrack, mgl64.Vec3{}); got != tc.want {
				t.Errorf("Play3DSound(%d) = %d, want %d", tc.id, got, tc.want)
			}
		})
	}
}

func TestPlay3DSoundWraps(t *testing.T) {
	m, _ := newTestManager(t)
	for i := 0; i < DefaultMaxChannels; i++ {
		play(t, m, 0, testShip, mgl64.Vec3{})
	}
	if got := play(t, m, 0, testShip, mgl64.Vec3{}); got != 0 {
		t.Errorf("Play3DSound() after %d plays = %d, want 0", DefaultMaxChannels, got)
	}
}

func TestPlay3DSoundErrors(t *testing.T) {
	m, _ := newTestManager(t)

	if _, err := m.Play3DSound(0, "missing.wav", mgl64.Vec3{}, mgl64.Vec3{}); !errors.Is(err, ErrSoundNotFound) {
		t.Errorf("unknown sound error = %v, want ErrSoundNotFound", err)
	}
	if _, err := m.Play3DSound(DefaultMaxChannels, testTrack, mgl64.Vec3{}, mgl64.Vec3{}); !errors.Is(err, ErrInvalidChannel) {
		t.Errorf("out of range channel error = %v, want ErrInvalidChannel", err)
	}
	if _, err := m.Play3DSound(-1, testTrack, mgl64.Vec3{}, mgl64.Vec3{}); !errors.Is(err, ErrInvalidChannel) {
		t.Errorf("negative channel error = %v, want ErrInvalidChannel", err)
	}
}

func TestPlay3DSoundReplacesVoice(t *testing.T) {
	m, b := newTestManager(t)
	play(t, m, 3, testTrack, mgl64.Vec3{})
	first := voiceOn(t, b, 0)
	play(t, m, 3, testShip, mgl64.Vec3{})

	if first.Playing() {
		t.Error("previous voice on the channel still playing")
	}
	st, err := m.ChannelState(3)
	if err != nil {
		t.Fatalf("ChannelState() error = %v", err)
	}
	if st.Sound != testShip || !st.Playing {
		t.Errorf("ChannelState() = %+v, want %s playing", st, testShip)
	}
}

func TestChannelControls(t *testing.T) {
	m, _ := newTestManager(t)
	id := play(t, m, 1, testShip, mgl64.Vec3{})

	steps := []struct {
		name  string
		apply func() error
		check func(ChannelState) bool
	}{
		{"Volume", func() error { return m.SetChannelVolume(id, 0.25) }, func(s ChannelState) bool { return s.Volume == 0.25 }},
		{"Pitch up", func() error { return m.AdjustChannelPitch(id, 0.5) }, func(s ChannelState) bool { return almostEqual(s.Pitch, 1.5) }},
		{"Pitch floor", func() error { return m.AdjustChannelPitch(id, -5) }, func(s ChannelState) bool { return almostEqual(s.Pitch, minPitch) }},
		{"Pan left", func() error { return m.AdjustChannelPan(id, -0.4) }, func(s ChannelState) bool { return almostEqual(s.Pan, -0.4) }},
		{"Pan clamp", func() error { return m.AdjustChannelPan(id, -2) }, func(s ChannelState) bool { return s.Pan == -1 }},
		{"Pause", func() error { return m.PauseSound(id) }, func(s ChannelState) bool { return s.Paused }},
		{"Resume", func() error { return m.PauseSound(id) }, func(s ChannelState) bool { return !s.Paused }},
		{"Loop", func() error { return m.LoopAudio(id) }, func(s ChannelState) bool { return s.Looping }},
		{"Reset", func() error { return m.InitializeChannelAttributes(id) }, func(s ChannelState) bool {
			return s.Volume == 1 && s.Pitch == 1 && s.Pan == 0 && !s.Paused && !s.Looping
		}},
	}

	for _, step := range steps {
		if err := step.apply(); err != nil {
			t.Fatalf("%s: error = %v", step.name, err)
		}
		st, err := m.ChannelState(id)
		if err != nil {
			t.Fatalf("%s: ChannelState() error = %v", step.name, err)
		}
		if !step.check(st) {
			t.Errorf("%s: unexpected state %+v", step.name, st)
		}
	}
}

func TestChannelPlaybackLifecycle(t *testing.T) {
	m, b := newTestManager(t)
	id := play(t, m, 2, testShip, mgl64.Vec3{})

	b.Advance(500 * time.Millisecond)
	pos, err := m.PlaybackPosition(id)
	if err != nil {
		t.Fatalf("PlaybackPosition() error = %v", err)
	}
	if pos != 500*time.Millisecond {
		t.Errorf("PlaybackPosition() = %v, want 500ms", pos)
	}

	if err := m.PauseSound(id); err != nil {
		t.Fatalf("PauseSound() error = %v", err)
	}
	b.Advance(time.Second)
	if pos, _ := m.PlaybackPosition(id); pos != 500*time.Millisecond {
		t.Errorf("paused position moved to %v", pos)
	}
	if err := m.PauseSound(id); err != nil {
		t.Fatalf("PauseSound() error = %v", err)
	}

	b.Advance(2 * time.Second)
	if m.IsChannelPlaying(id) {
		t.Error("sample still playing past its end")
	}

	play(t, m, id, testShip, mgl64.Vec3{})
	if err := m.StopAudio(id); err != nil {
		t.Fatalf("StopAudio() error = %v", err)
	}
	if m.IsChannelPlaying(id) {
		t.Error("channel playing after StopAudio")
	}
}

func TestSound3DLoops(t *testing.T) {
	m, b := newTestManager(t)
	id := play(t, m, 4, testTrack, mgl64.Vec3{0, 0, -1})

	b.Advance(25 * time.Second)
	if !m.IsChannelPlaying(id) {
		t.Fatal("3D sound stopped, want looping")
	}
	if pos, _ := m.PlaybackPosition(id); pos != 5*time.Second {
		t.Errorf("PlaybackPosition() = %v, want 5s", pos)
	}

	if err := m.LoopAudio(id); err != nil {
		t.Fatalf("LoopAudio() error = %v", err)
	}
	b.Advance(10 * time.Second)
	if m.IsChannelPlaying(id) {
		t.Error("3D sound still playing after loop was turned off")
	}
}

func TestUpdateSpatialisation(t *testing.T) {
	m, b := newTestManager(t)
	settings := DefaultSettings3D()

	id := play(t, m, 1, testTrack, mgl64.Vec3{10, 0, 0})
	v := voiceOn(t, b, 0)

	if err := m.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	gain, pan, rate := v.Mix()
	if want := settings.attenuation(10); !almostEqual(gain, want) {
		t.Errorf("gain = %f, want %f", gain, want)
	}
	// default listener looks down -z, so +x is hard right
	if !almostEqual(pan, 1) {
		t.Errorf("pan = %f, want 1", pan)
	}
	if !almostEqual(rate, 1) {
		t.Errorf("rate = %f, want 1", rate)
	}

	if err := m.SetListenerAttributes(ListenerAttributes{
		Position: mgl64.Vec3{20, 0, 0},
		Forward:  mgl64.Vec3{0, 0, -1},
		Up:       mgl64.Vec3{0, 1, 0},
	}); err != nil {
		t.Fatalf("SetListenerAttributes() error = %v", err)
	}
	if err := m.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if _, pan, _ := v.Mix(); !almostEqual(pan, -1) {
		t.Errorf("pan after moving listener = %f, want -1", pan)
	}

	if err := m.SetChannelVolume(id, 0.5); err != nil {
		t.Fatalf("SetChannelVolume() error = %v", err)
	}
	if gain, _, _ := v.Mix(); !almostEqual(gain, 0.5*settings.attenuation(10)) {
		t.Errorf("gain after volume change = %f, want %f", gain, 0.5*settings.attenuation(10))
	}
}

func TestUpdateDoppler(t *testing.T) {
	m, b := newTestManager(t)
	id := play(t, m, 1, testTrack, mgl64.Vec3{0, 0, -50})
	v := voiceOn(t, b, 0)

	if err := m.SetDopplerLevel(id, 4); err != nil {
		t.Fatalf("SetDopplerLevel() error = %v", err)
	}
	// moving away from the listener
	if err := m.UpdateSound3DAttributes(id, mgl64.Vec3{0, 0, -50}, mgl64.Vec3{0, 0, -20}); err != nil {
		t.Fatalf("UpdateSound3DAttributes() error = %v", err)
	}
	if err := m.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if _, _, rate := v.Mix(); rate >= 1 {
		t.Errorf("rate = %f, want below 1 for a receding source", rate)
	}

	if err := m.SetDopplerLevel(id, 10); err != nil {
		t.Fatalf("SetDopplerLevel() error = %v", err)
	}
	if st, _ := m.ChannelState(id); st.Doppler != maxDopplerLevel {
		t.Errorf("Doppler = %f, want clamped to %f", st.Doppler, maxDopplerLevel)
	}
}

func TestUpdateOcclusion(t *testing.T) {
	m, b := newTestManager(t)
	wall, err := OrderQuadVertices(wallAtZ())
	if err != nil {
		t.Fatalf("OrderQuadVertices() error = %v", err)
	}
	if _, err := m.RegisterOcclusionPolygon(wall, 0.9, 0.9, true); err != nil {
		t.Fatalf("RegisterOcclusionPolygon() error = %v", err)
	}

	id := play(t, m, 1, testTrack, mgl64.Vec3{0, 0, 20})
	v := voiceOn(t, b, 0)
	if err := m.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	want := DefaultSettings3D().attenuation(20) * (1 - 0.9)
	if gain, _, _ := v.Mix(); !almostEqual(gain, want) {
		t.Errorf("occluded gain = %f, want %f", gain, want)
	}
	st, _ := m.ChannelState(id)
	if !almostEqual(st.Occlusion, 0.9) {
		t.Errorf("ChannelState().Occlusion = %f, want 0.9", st.Occlusion)
	}

	direct, reverb := m.GeometryOcclusion(pt(0, 0, 0), pt(0, 0, 20))
	if !almostEqual(direct, 0.9) || !almostEqual(reverb, 0.9) {
		t.Errorf("GeometryOcclusion() = (%f, %f), want (0.9, 0.9)", direct, reverb)
	}
}

func TestFlatSoundIgnoresPosition(t *testing.T) {
	m, b := newTestManager(t)
	play(t, m, 1, testShip, mgl64.Vec3{500, 0, 0})
	v := voiceOn(t, b, 0)
	if err := m.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if gain, pan, _ := v.Mix(); gain != 1 || pan != 0 {
		t.Errorf("Mix() = (%f, %f), want (1, 0)", gain, pan)
	}
}

func TestUpdateBackendFailure(t *testing.T) {
	m, b := newTestManager(t)
	play(t, m, 1, testTrack, mgl64.Vec3{})

	b.Fail = errors.New("device lost")
	if err := m.Update(); !errors.Is(err, ErrBackendFailed) {
		t.Fatalf("Update() error = %v, want ErrBackendFailed", err)
	}
	if _, err := m.ChannelState(1); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("ChannelState() after failure error = %v, want ErrNotInitialized", err)
	}
}

func TestManagerDSP(t *testing.T) {
	m, b := newTestManager(t)
	id := play(t, m, 1, testTrack, mgl64.Vec3{})
	v := voiceOn(t, b, 0)

	if err := m.SetDSPParameter(id, DSPLowPass, ParamCutoff, 4500); !errors.Is(err, ErrDSPNotAttached) {
		t.Errorf("SetDSPParameter() before AddDSP error = %v, want ErrDSPNotAttached", err)
	}

	for _, kind := range []DSPKind{DSPLowPass, DSPHighPass} {
		if err := m.AddDSP(id, kind); err != nil {
			t.Fatalf("AddDSP(%v) error = %v", kind, err)
		}
	}
	if err := m.SetDSPParameter(id, DSPLowPass, ParamCutoff, 4500); err != nil {
		t.Fatalf("SetDSPParameter() error = %v", err)
	}
	if got, _ := v.DSP(DSPLowPass).Parameter(ParamCutoff); got != 4500 {
		t.Errorf("low-pass cutoff = %f, want 4500", got)
	}
	if err := m.SetDSPParameter(id, DSPHighPass, ParamLevel, 1); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("SetDSPParameter(wrong param) error = %v, want ErrUnknownParameter", err)
	}

	st, _ := m.ChannelState(id)
	if len(st.DSP) != 2 || st.DSP[0] != DSPLowPass || st.DSP[1] != DSPHighPass {
		t.Errorf("ChannelState().DSP = %v, want [lowpass highpass]", st.DSP)
	}

	// a new play starts with a clean chain
	play(t, m, id, testTrack, mgl64.Vec3{})
	if st, _ := m.ChannelState(id); len(st.DSP) != 0 {
		t.Errorf("DSP after replay = %v, want none", st.DSP)
	}
}

func TestDestroy(t *testing.T) {
	m, b := newTestManager(t)
	play(t, m, 1, testTrack, mgl64.Vec3{})

	if err := m.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if len(b.playingVoices()) != 0 {
		t.Errorf("backend still has %d voices", len(b.playingVoices()))
	}
	if _, err := m.AudioLength(testTrack); !errors.Is(err, ErrSoundNotFound) {
		t.Errorf("AudioLength() after Destroy error = %v, want ErrSoundNotFound", err)
	}
	if err := m.Destroy(); err != nil {
		t.Errorf("second Destroy() error = %v", err)
	}
}

func TestSettings3DWithDefaults(t *testing.T) {
	def := DefaultSettings3D()
	testCases := []struct {
		name string
		in   Settings3D
		want Settings3D
	}{
		{"Unset", Settings3D{}, def},
		{"Negative", Settings3D{DistanceFactor: -1, MinDistance: -2, MaxDistance: -3, RolloffScale: -1, DopplerScale: -1}, def},
		{"Kept", Settings3D{DopplerScale: 1, DistanceFactor: 2, RolloffScale: 0.3, MinDistance: 4, MaxDistance: 50}, Settings3D{DopplerScale: 1, DistanceFactor: 2, RolloffScale: 0.3, MinDistance: 4, MaxDistance: 50}},
		{"Max below min", Settings3D{MinDistance: 20, MaxDistance: 10}, Settings3D{DopplerScale: def.DopplerScale, DistanceFactor: def.DistanceFactor, RolloffScale: def.RolloffScale, MinDistance: 20, MaxDistance: 20}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.withDefaults(); got != tc.want {
				t.Errorf("withDefaults() = %+v, want %+v", got, tc.want)
			}
		})
	}

	// a zero speed of sound must not divide by zero
	if r := (Settings3D{DopplerScale: 1}).doppler(mgl64.Vec3{0, 0, -1}, mgl64.Vec3{}, mgl64.Vec3{0, 0, -5}, 4); r != 1 {
		t.Errorf("doppler() with no distance factor = %f, want 1", r)
	}
}

func TestManagerGeometryToggle(t *testing.T) {
	m, _ := newTestManager(t)
	wall := [4]Point3{pt(-10, -10, 0), pt(10, -10, 0), pt(10, 10, 0), pt(-10, 10, 0)}
	if _, err := m.RegisterOcclusionPolygon(wall, 0.9, 0.9, true); err != nil {
		t.Fatalf("RegisterOcclusionPolygon() error = %v", err)
	}
	if m.PolygonCount() != 1 || !m.GeometryActive() {
		t.Fatalf("PolygonCount() = %d, GeometryActive() = %v", m.PolygonCount(), m.GeometryActive())
	}

	if err := m.SetGeometryActive(false); err != nil {
		t.Fatalf("SetGeometryActive() error = %v", err)
	}
	if direct, _ := m.GeometryOcclusion(pt(0, 0, 5), pt(0, 0, -5)); direct != 0 || m.GeometryActive() {
		t.Errorf("inactive geometry occludes %f", direct)
	}
	if m.PolygonCount() != 1 {
		t.Errorf("PolygonCount() = %d after deactivating, want 1", m.PolygonCount())
	}

	if err := m.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if err := m.SetGeometryActive(true); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("SetGeometryActive() after Destroy error = %v, want ErrNotInitialized", err)
	}
	if m.PolygonCount() != 0 || m.GeometryActive() {
		t.Error("destroyed manager still reports geometry")
	}
}

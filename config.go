package audioworld

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gopxl/beep"
	"github.com/restartfu/gophig"
	"github.com/samber/lo"
)

const (
	BackendBeep   = "beep"
	BackendSilent = "silent"
)

// SoundConfig is a file to load at startup. Mode is "sample", "stream" or "3d".
type SoundConfig struct {
	Path string
	Mode string
}

// ModelConfig places one model. Vertices are in model space; when DXF is set
// the faces are read from that file instead. AudioPath and Channel only
// matter for audio and ship models.
type ModelConfig struct {
	Name         string
	Kind         string
	Position     [3]float64
	Scale        float64
	Vertices     [][3]float64
	DXF          string
	AudioPath    string
	Channel      int
	Velocity     [3]float64
	Acceleration [3]float64
}

// Config holds the application configuration.
type Config struct {
	AudioWorld struct {
		LogLevel     string // Can be "debug", "info", "warn", "error"
		SentryDsn    string
		WindowWidth  int
		WindowHeight int
	}
	Audio struct {
		Backend        string // "beep" or "silent"
		SampleRate     int
		MaxChannels    int
		DopplerScale   float64
		DistanceFactor float64
		RolloffScale   float64
		MinDistance    float64
		MaxDistance    float64
		MaxWorldSize   float64
		MaxPolygons    int
		MaxVertices    int
	}
	Scene struct {
		ProximityRadius   float64
		AnimationInterval float64
		ShipEndZ          float64
		CameraPosition    [3]float64
		Sounds            []SoundConfig
		Models            []ModelConfig
	}
}

var (
	musicTracks = [2]string{"Audio/Medieval_Music.wav", "Audio/Awesomeness.wav"}
	shipSound   = "Audio/Spaceship.wav"
)

// DefaultConfig returns the demo room: four music sources between walls and a
// spaceship overhead.
func DefaultConfig() Config {
	c := Config{}

	c.AudioWorld.LogLevel = "info"
	c.AudioWorld.SentryDsn = ""
	c.AudioWorld.WindowWidth = 800
	c.AudioWorld.WindowHeight = 600

	audio := DefaultAudioConfig()
	c.Audio.Backend = BackendBeep
	c.Audio.SampleRate = int(audio.SampleRate)
	c.Audio.MaxChannels = audio.MaxChannels
	c.Audio.DopplerScale = audio.Settings.DopplerScale
	c.Audio.DistanceFactor = audio.Settings.DistanceFactor
	c.Audio.RolloffScale = audio.Settings.RolloffScale
	c.Audio.MinDistance = audio.Settings.MinDistance
	c.Audio.MaxDistance = audio.Settings.MaxDistance
	c.Audio.MaxWorldSize = audio.MaxWorldSize
	c.Audio.MaxPolygons = audio.MaxPolygons
	c.Audio.MaxVertices = audio.MaxVertices

	sync := DefaultSyncConfig()
	c.Scene.ProximityRadius = sync.ProximityRadius
	c.Scene.AnimationInterval = sync.AnimationInterval
	c.Scene.ShipEndZ = sync.ShipEndZ
	c.Scene.CameraPosition = [3]float64{0, 10, 150}

	for _, path := range append(musicTracks[:], shipSound) {
		c.Scene.Sounds = append(c.Scene.Sounds, SoundConfig{Path: path, Mode: Sound3D.String()})
	}

	// wall corners are listed out of order the way mesh exports give them
	longWall := [][3]float64{{-100, 0, 0}, {100, 40, 0}, {100, 0, 0}, {-100, 40, 0}}
	sideWall := [][3]float64{{0, 0, -100}, {0, 40, 100}, {0, 0, 100}, {0, 40, -100}}

	c.Scene.Models = []ModelConfig{
		{Name: "NorthWall", Kind: string(KindWall), Position: [3]float64{0, 0, -120}, Scale: 1, Vertices: longWall},
		{Name: "Jukebox", Kind: string(KindAudio), Position: [3]float64{-60, 0, -60}, Scale: 1},
		{Name: "Radio", Kind: string(KindAudio), Position: [3]float64{60, 0, -60}, Scale: 1},
		{Name: "EastWall", Kind: string(KindWall), Position: [3]float64{120, 0, 0}, Scale: 1, Vertices: sideWall},
		{Name: "Speaker", Kind: string(KindAudio), Position: [3]float64{60, 0, 60}, Scale: 1},
		{Name: "Gramophone", Kind: string(KindAudio), Position: [3]float64{-60, 0, 60}, Scale: 1},
		{Name: "Divider", Kind: string(KindWall), Position: [3]float64{0, 0, 0}, Scale: 0.4, Vertices: sideWall},
		{
			Name:         "Spaceship",
			Kind:         string(KindShip),
			Position:     [3]float64{0, 30, 0},
			Scale:        1,
			Velocity:     [3]float64{0, 0, -5},
			Acceleration: [3]float64{0, 0, -9.8},
		},
		{Name: "WestWall", Kind: string(KindWall), Position: [3]float64{-120, 0, 0}, Scale: 1, Vertices: sideWall},
	}
	return c
}

// ParseLogLevel returns the appropriate slog.Level based on string configuration.
// Returns an error if the provided log level string is not recognized.
func ParseLogLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unrecognized log level: %q", level)
	}
}

func ParseSoundMode(mode string) (SoundMode, error) {
	for _, m := range []SoundMode{SoundSample, SoundStream, Sound3D} {
		if m.String() == mode {
			return m, nil
		}
	}
	return SoundSample, fmt.Errorf("unrecognized sound mode %q: %w", mode, ErrInvalidInput)
}

// ReadConfig loads the configuration from path.
// If the file doesn't exist, it creates a new one with default values.
func ReadConfig(path string) (Config, error) {
	g := gophig.NewGophig[Config](path, gophig.TOMLMarshaler{}, os.ModePerm)
	_, err := g.LoadConf()
	if errors.Is(err, os.ErrNotExist) {
		err = g.SaveConf(DefaultConfig())
		if err != nil {
			return Config{}, err
		}
	}
	c, err := g.LoadConf()
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return c, nil
}

func (c Config) AudioConfig() AudioConfig {
	return AudioConfig{
		SampleRate:  beep.SampleRate(c.Audio.SampleRate),
		MaxChannels: c.Audio.MaxChannels,
		Settings: Settings3D{
			DopplerScale:   c.Audio.DopplerScale,
			DistanceFactor: c.Audio.DistanceFactor,
			RolloffScale:   c.Audio.RolloffScale,
			MinDistance:    c.Audio.MinDistance,
			MaxDistance:    c.Audio.MaxDistance,
		},
		MaxPolygons:  c.Audio.MaxPolygons,
		MaxVertices:  c.Audio.MaxVertices,
		MaxWorldSize: c.Audio.MaxWorldSize,
	}
}

func (c Config) SyncConfig() SyncConfig {
	s := DefaultSyncConfig()
	s.ProximityRadius = c.Scene.ProximityRadius
	s.AnimationInterval = c.Scene.AnimationInterval
	s.ShipEndZ = c.Scene.ShipEndZ
	return s
}

// SoundPaths lists every sound the scene refers to, configured ones first.
func (c Config) SoundPaths() []string {
	paths := lo.Map(c.Scene.Sounds, func(s SoundConfig, _ int) string { return s.Path })
	for i, m := range c.Scene.Models {
		if path := m.audioPath(i); path != "" {
			paths = append(paths, path)
		}
	}
	return lo.Uniq(paths)
}

// audioPath falls back to the ship sound for ships and alternates the music
// tracks by the model's position in the list.
func (m ModelConfig) audioPath(index int) string {
	if m.AudioPath != "" {
		return m.AudioPath
	}
	switch ModelKind(m.Kind) {
	case KindShip:
		return shipSound
	case KindAudio:
		if index%2 == 0 {
			return musicTracks[1]
		}
		return musicTracks[0]
	}
	return ""
}

func (m ModelConfig) mesh() (*Mesh, error) {
	if m.DXF != "" {
		faces, err := LoadFacesFromDXFFile(m.DXF)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", m.Name, err)
		}
		return NewMeshFromFaces(faces), nil
	}
	mesh := NewMesh()
	if len(m.Vertices) == 0 {
		return mesh, nil
	}
	mesh.AddFace(lo.Map(m.Vertices, func(v [3]float64, _ int) Point3 {
		return NewPoint3(v[0], v[1], v[2])
	}))
	return mesh, nil
}

// BuildScene creates the scene and the audio models that follow it.
func (c Config) BuildScene(log *slog.Logger) (*Scene, []*AudioModel, error) {
	p := c.Scene.CameraPosition
	scene := NewScene(NewCamera(p[0], p[1], p[2]), log)

	var audioModels []*AudioModel
	for i, mc := range c.Scene.Models {
		mesh, err := mc.mesh()
		if err != nil {
			return nil, nil, err
		}
		scale := mc.Scale
		if scale == 0 {
			scale = 1
		}
		model := &SceneModel{
			Name:     mc.Name,
			Kind:     ModelKind(mc.Kind),
			Position: mgl64.Vec3(mc.Position),
			Scale:    scale,
			Mesh:     mesh,
		}
		if err := scene.AddModel(model); err != nil {
			return nil, nil, err
		}

		if !model.Kind.Audible() {
			continue
		}
		am := NewAudioModel(model, mc.audioPath(i), mgl64.Vec3(mc.Velocity), mgl64.Vec3(mc.Acceleration))
		am.ChannelID = ChannelID(mc.Channel)
		audioModels = append(audioModels, am)
	}
	return scene, audioModels, nil
}

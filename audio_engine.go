package audioworld

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// ChannelID indexes one of the manager's playback channels.
type ChannelID int

// SoundMode selects how a file is loaded.
type SoundMode int

const (
	// SoundSample decodes the whole file into memory.
	SoundSample SoundMode = iota
	// SoundStream decodes from the file while playing.
	SoundStream
	// Sound3D decodes into memory, loops and is positioned in the world.
	Sound3D
)

func (m SoundMode) String() string {
	switch m {
	case SoundSample:
		return "sample"
	case SoundStream:
		return "stream"
	case Sound3D:
		return "3d"
	}
	return "unknown"
}

// ListenerAttributes place the virtual ears in the world.
type ListenerAttributes struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Forward  mgl64.Vec3
	Up       mgl64.Vec3
}

// DefaultListener sits at the origin looking down -z.
func DefaultListener() ListenerAttributes {
	return ListenerAttributes{
		Forward: mgl64.Vec3{0, 0, -1},
		Up:      mgl64.Vec3{0, 1, 0},
	}
}

// ChannelState is a snapshot of a channel's controls.
type ChannelState struct {
	ID        ChannelID
	Sound     string
	Volume    float64
	Pitch     float64
	Pan       float64
	Paused    bool
	Looping   bool
	Playing   bool
	Doppler   float64
	Occlusion float64
	Position  mgl64.Vec3
	Velocity  mgl64.Vec3
	DSP       []DSPKind
}

// AudioEngine is everything the scene code needs from an audio library.
type AudioEngine interface {
	OcclusionRegistrar

	Initialize() error
	Update() error
	Destroy() error

	LoadSound(path string, mode SoundMode) error
	AudioLength(path string) (time.Duration, error)

	Play3DSound(id ChannelID, path string, pos, vel mgl64.Vec3) (ChannelID, error)
	StopAudio(id ChannelID) error
	PauseSound(id ChannelID) error
	LoopAudio(id ChannelID) error
	IsChannelPlaying(id ChannelID) bool
	PlaybackPosition(id ChannelID) (time.Duration, error)

	InitializeChannelAttributes(id ChannelID) error
	SetChannelVolume(id ChannelID, volume float64) error
	AdjustChannelPitch(id ChannelID, delta float64) error
	AdjustChannelPan(id ChannelID, delta float64) error
	ChannelState(id ChannelID) (ChannelState, error)

	UpdateSound3DAttributes(id ChannelID, pos, vel mgl64.Vec3) error
	SetDopplerLevel(id ChannelID, level float64) error

	AddDSP(id ChannelID, kind DSPKind) error
	SetDSPParameter(id ChannelID, kind DSPKind, param DSPParam, value float64) error

	SetListenerAttributes(l ListenerAttributes) error
	ListenerAttributes() ListenerAttributes
	GeometryOcclusion(from, to Point3) (direct, reverb float64)
	PolygonCount() int
	SetGeometryActive(active bool) error
	GeometryActive() bool
}

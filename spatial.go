package audioworld

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const speedOfSound = 340.0

// Settings3D mirror the global 3D settings of an audio engine.
type Settings3D struct {
	DopplerScale   float64
	DistanceFactor float64
	RolloffScale   float64
	MinDistance    float64
	MaxDistance    float64
}

func DefaultSettings3D() Settings3D {
	return Settings3D{
		DopplerScale:   0.5,
		DistanceFactor: 0.5,
		RolloffScale:   0.1,
		MinDistance:    0.5,
		MaxDistance:    1000,
	}
}

// withDefaults replaces unset or negative fields with DefaultSettings3D.
// A config file that leaves a key out decodes it as zero.
func (s Settings3D) withDefaults() Settings3D {
	d := DefaultSettings3D()
	for _, f := range []struct{ v, def *float64 }{
		{&s.DopplerScale, &d.DopplerScale},
		{&s.DistanceFactor, &d.DistanceFactor},
		{&s.RolloffScale, &d.RolloffScale},
		{&s.MinDistance, &d.MinDistance},
		{&s.MaxDistance, &d.MaxDistance},
	} {
		if !(*f.v > 0) {
			*f.v = *f.def
		}
	}
	if s.MaxDistance < s.MinDistance {
		s.MaxDistance = s.MinDistance
	}
	return s
}

// spatialMix is what the listener hears of one source.
type spatialMix struct {
	gain      float64
	pan       float64
	pitch     float64
	occlusion float64
}

// attenuation is inverse rolloff: full volume inside min distance, no further
// drop past max distance.
func (s Settings3D) attenuation(dist float64) float64 {
	if dist <= s.MinDistance {
		return 1
	}
	d := math.Min(dist, s.MaxDistance)
	return s.MinDistance / (s.MinDistance + s.RolloffScale*(d-s.MinDistance))
}

// doppler returns the pitch ratio for a source seen from the listener.
// Motion towards each other raises the pitch.
func (s Settings3D) doppler(dir, listenerVel, sourceVel mgl64.Vec3, level float64) float64 {
	k := s.DopplerScale * level
	if k == 0 {
		return 1
	}
	c := speedOfSound * s.DistanceFactor
	if c <= 0 {
		return 1
	}
	vl := listenerVel.Dot(dir) * k
	vs := sourceVel.Dot(dir) * k
	// neither side may reach the speed of sound
	vl = math.Max(-c*0.9, math.Min(c*0.9, vl))
	vs = math.Max(-c*0.9, math.Min(c*0.9, vs))
	return (c + vl) / (c + vs)
}

// pan is -1 hard left to 1 hard right.
func listenerPan(l ListenerAttributes, dir mgl64.Vec3) float64 {
	right := l.Forward.Cross(l.Up)
	if right.Len() == 0 {
		return 0
	}
	return math.Max(-1, math.Min(1, dir.Dot(right.Normalize())))
}

func (s Settings3D) spatialise(l ListenerAttributes, pos, vel mgl64.Vec3, dopplerLevel float64, geom *Geometry) spatialMix {
	offset := pos.Sub(l.Position)
	dist := offset.Len()
	mix := spatialMix{gain: s.attenuation(dist), pitch: 1}
	if dist == 0 {
		return mix
	}
	dir := offset.Mul(1 / dist)
	mix.pan = listenerPan(l, dir)
	mix.pitch = s.doppler(dir, l.Velocity, vel, dopplerLevel)
	if geom != nil {
		mix.occlusion, _ = geom.Occlusion(Point3FromVec(l.Position), Point3FromVec(pos))
		mix.gain *= 1 - mix.occlusion
	}
	return mix
}

package audioworld

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	initialYaw = -90.0
	maxPitch   = 89.0
)

// Camera is a yaw/pitch fly camera. Angles are in degrees; yaw -90 looks
// down -z.
type Camera struct {
	position mgl64.Vec3
	up       mgl64.Vec3
	yaw      float64
	pitch    float64
}

func NewCamera(xp, yp, zp float64) *Camera {
	return &Camera{
		position: mgl64.Vec3{xp, yp, zp},
		up:       mgl64.Vec3{0, 1, 0},
		yaw:      initialYaw,
	}
}

func (c *Camera) GetPosition() mgl64.Vec3 {
	return c.position
}

func (c *Camera) SetCameraPosition(x, y, z float64) {
	c.position = mgl64.Vec3{x, y, z}
}

func (c *Camera) MoveCameraPosition(dx, dy, dz float64) {
	c.position = c.position.Add(mgl64.Vec3{dx, dy, dz})
}

// MoveForward moves along the view direction flattened onto the ground.
func (c *Camera) MoveForward(d float64) {
	f := c.Forward()
	flat := mgl64.Vec3{f.X(), 0, f.Z()}
	if flat.Len() == 0 {
		return
	}
	c.position = c.position.Add(flat.Normalize().Mul(d))
}

func (c *Camera) Strafe(d float64) {
	c.position = c.position.Add(c.Right().Mul(d))
}

// AddAngle turns the camera. Pitch stops short of straight up or down.
func (c *Camera) AddAngle(yaw, pitch float64) {
	c.yaw = math.Mod(c.yaw+yaw, 360)
	c.pitch = math.Max(-maxPitch, math.Min(maxPitch, c.pitch+pitch))
}

func (c *Camera) Angles() (yaw, pitch float64) {
	return c.yaw, c.pitch
}

func (c *Camera) Forward() mgl64.Vec3 {
	yaw, pitch := mgl64.DegToRad(c.yaw), mgl64.DegToRad(c.pitch)
	return mgl64.Vec3{
		math.Cos(yaw) * math.Cos(pitch),
		math.Sin(pitch),
		math.Sin(yaw) * math.Cos(pitch),
	}.Normalize()
}

func (c *Camera) Up() mgl64.Vec3 {
	return c.up
}

func (c *Camera) Right() mgl64.Vec3 {
	return c.Forward().Cross(c.up).Normalize()
}

// ViewMatrix is the world to camera transform.
func (c *Camera) ViewMatrix() mgl64.Mat4 {
	return mgl64.LookAtV(c.position, c.position.Add(c.Forward()), c.up)
}

// Listener places the audio listener at the camera, standing still.
func (c *Camera) Listener() ListenerAttributes {
	return ListenerAttributes{
		Position: c.position,
		Forward:  c.Forward(),
		Up:       c.up,
	}
}

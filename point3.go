package audioworld

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Point3 is a position in world space. Values are treated as immutable.
type Point3 struct {
	X float64
	Y float64
	Z float64
}

func NewPoint3(x, y, z float64) Point3 {
	return Point3{
		X: x,
		Y: y,
		Z: z,
	}
}

func Point3FromVec(v mgl64.Vec3) Point3 {
	return Point3{X: v[0], Y: v[1], Z: v[2]}
}

func (p Point3) Vec() mgl64.Vec3 {
	return mgl64.Vec3{p.X, p.Y, p.Z}
}

// Rounded snaps every coordinate to the nearest integer, half away from zero.
func (p Point3) Rounded() Point3 {
	return Point3{
		X: math.Round(p.X),
		Y: math.Round(p.Y),
		Z: math.Round(p.Z),
	}
}

func (p Point3) IsFinite() bool {
	for _, c := range [3]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// axisMatches counts the coordinates p shares exactly with o.
func (p Point3) axisMatches(o Point3) int {
	n := 0
	if p.X == o.X {
		n++
	}
	if p.Y == o.Y {
		n++
	}
	if p.Z == o.Z {
		n++
	}
	return n
}

func (p Point3) DistanceTo(o Point3) float64 {
	return p.Vec().Sub(o.Vec()).Len()
}

func (p Point3) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Z)
}

package audioworld

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Plane is A*x + B*y + C*z + D = 0 with (A, B, C) the unit normal.
type Plane struct {
	A, B, C, D float64
}

const planeThickness = 1e-6

// NewPlane builds the plane through pnts[0] using the winding of the first
// three points for the normal. It returns nil for fewer than three points or
// when they are collinear.
func NewPlane(pnts []Point3) *Plane {
	normal, ok := polygonNormal(pnts)
	if !ok {
		return nil
	}
	p := &Plane{
		A: normal[0],
		B: normal[1],
		C: normal[2],
	}
	p.D = -(p.A*pnts[0].X + p.B*pnts[0].Y + p.C*pnts[0].Z)
	return p
}

func polygonNormal(pnts []Point3) (mgl64.Vec3, bool) {
	if len(pnts) < 3 {
		return mgl64.Vec3{}, false
	}
	// Newell's method copes with a non-convex first corner
	var n mgl64.Vec3
	for i := range pnts {
		cur := pnts[i]
		next := pnts[(i+1)%len(pnts)]
		n[0] += (cur.Y - next.Y) * (cur.Z + next.Z)
		n[1] += (cur.Z - next.Z) * (cur.X + next.X)
		n[2] += (cur.X - next.X) * (cur.Y + next.Y)
	}
	if n.Len() < planeThickness {
		return mgl64.Vec3{}, false
	}
	return n.Normalize(), true
}

func (p *Plane) Normal() mgl64.Vec3 {
	return mgl64.Vec3{p.A, p.B, p.C}
}

// PointOnPlane returns the signed distance of the point from the plane,
// snapped to zero inside planeThickness.
func (p *Plane) PointOnPlane(pnt Point3) float64 {
	num := p.A*pnt.X + p.B*pnt.Y + p.C*pnt.Z + p.D
	if math.Abs(num) < planeThickness {
		return 0.0
	}
	return num
}

// LIntersect reports whether the segment p1-p2 crosses the plane. Touching
// the plane with an end point counts as a crossing.
func (p *Plane) LIntersect(p1, p2 Point3) bool {
	a := p.PointOnPlane(p1)
	b := p.PointOnPlane(p2)
	if a == 0 && b == 0 {
		return false
	}
	return (a >= 0 && b <= 0) || (a <= 0 && b >= 0)
}

func (p *Plane) LineIntersect(p1, p2 Point3) (Point3, bool) {
	if !p.LIntersect(p1, p2) {
		return Point3{}, false
	}
	dx, dy, dz := p2.X-p1.X, p2.Y-p1.Y, p2.Z-p1.Z
	denom := p.A*dx + p.B*dy + p.C*dz
	if denom == 0 {
		return Point3{}, false
	}
	t := -(p.A*p1.X + p.B*p1.Y + p.C*p1.Z + p.D) / denom
	return NewPoint3(p1.X+dx*t, p1.Y+dy*t, p1.Z+dz*t), true
}

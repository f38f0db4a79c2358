package audioworld

import (
	"fmt"
	"math"
	"sync"
)

const (
	DefaultMaxPolygons  = 2000
	DefaultMaxVertices  = 8000
	DefaultMaxWorldSize = 1000.0
)

// PolygonHandle identifies a polygon registered with a Geometry.
type PolygonHandle int

type occluder struct {
	points      []Point3
	plane       *Plane
	direct      float64
	reverb      float64
	doubleSided bool
	dropAxis    int
}

func newOccluder(points []Point3, direct, reverb float64, doubleSided bool) (*occluder, error) {
	pl := NewPlane(points)
	if pl == nil {
		return nil, fmt.Errorf("polygon has no area: %w", ErrInvalidPolygon)
	}
	pnts := make([]Point3, len(points))
	copy(pnts, points)
	return &occluder{
		points:      pnts,
		plane:       pl,
		direct:      clampUnit(direct),
		reverb:      clampUnit(reverb),
		doubleSided: doubleSided,
		dropAxis:    dominantAxis(pl),
	}, nil
}

// dominantAxis is the normal axis with the largest component; projecting the
// polygon along it keeps the 2D shape non-degenerate.
func dominantAxis(p *Plane) int {
	ax, ay, az := math.Abs(p.A), math.Abs(p.B), math.Abs(p.C)
	switch {
	case ax >= ay && ax >= az:
		return 0
	case ay >= az:
		return 1
	}
	return 2
}

func (o *occluder) project(p Point3) (float64, float64) {
	switch o.dropAxis {
	case 0:
		return p.Y, p.Z
	case 1:
		return p.X, p.Z
	}
	return p.X, p.Y
}

// contains tests a point already on the plane with the crossing rule.
func (o *occluder) contains(p Point3) bool {
	px, py := o.project(p)
	inside := false
	n := len(o.points)
	for i := 0; i < n; i++ {
		ax, ay := o.project(o.points[i])
		bx, by := o.project(o.points[(i+1)%n])
		if (ay > py) != (by > py) {
			x := ax + (py-ay)*(bx-ax)/(by-ay)
			if px < x {
				inside = !inside
			}
		}
	}
	return inside
}

func (o *occluder) blocks(from, to Point3) bool {
	if !o.doubleSided && o.plane.PointOnPlane(from) <= 0 {
		return false
	}
	hit, ok := o.plane.LineIntersect(from, to)
	if !ok {
		return false
	}
	return o.contains(hit)
}

// Geometry is a store of occluding polygons queried between two points.
type Geometry struct {
	mu           sync.RWMutex
	polygons     []*occluder
	vertexCount  int
	maxPolygons  int
	maxVertices  int
	maxWorldSize float64
	active       bool
}

func NewGeometry(maxPolygons, maxVertices int, maxWorldSize float64) *Geometry {
	if maxPolygons <= 0 {
		maxPolygons = DefaultMaxPolygons
	}
	if maxVertices <= 0 {
		maxVertices = DefaultMaxVertices
	}
	if maxWorldSize <= 0 {
		maxWorldSize = DefaultMaxWorldSize
	}
	return &Geometry{
		polygons:     make([]*occluder, 0, 16),
		maxPolygons:  maxPolygons,
		maxVertices:  maxVertices,
		maxWorldSize: maxWorldSize,
		active:       true,
	}
}

// AddPolygon stores the vertices as given. direct and reverb are occlusion
// factors in [0, 1]; a single-sided polygon only occludes paths that start on
// the side its normal points to.
func (g *Geometry) AddPolygon(direct, reverb float64, doubleSided bool, vertices []Point3) (PolygonHandle, error) {
	if len(vertices) < 3 {
		return -1, fmt.Errorf("polygon needs at least 3 vertices, got %d: %w", len(vertices), ErrInvalidPolygon)
	}
	for i, v := range vertices {
		if !v.IsFinite() {
			return -1, fmt.Errorf("vertex %d is not finite: %w", i, ErrInvalidPolygon)
		}
		if math.Abs(v.X) > g.maxWorldSize || math.Abs(v.Y) > g.maxWorldSize || math.Abs(v.Z) > g.maxWorldSize {
			return -1, fmt.Errorf("vertex %d %v outside world size %.0f: %w", i, v, g.maxWorldSize, ErrInvalidPolygon)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.polygons) >= g.maxPolygons {
		return -1, fmt.Errorf("%d polygons: %w", g.maxPolygons, ErrGeometryFull)
	}
	if g.vertexCount+len(vertices) > g.maxVertices {
		return -1, fmt.Errorf("%d vertices: %w", g.maxVertices, ErrGeometryFull)
	}

	occ, err := newOccluder(vertices, direct, reverb, doubleSided)
	if err != nil {
		return -1, err
	}
	g.polygons = append(g.polygons, occ)
	g.vertexCount += len(vertices)
	return PolygonHandle(len(g.polygons) - 1), nil
}

func (g *Geometry) polygon(h PolygonHandle) (*occluder, error) {
	if h < 0 || int(h) >= len(g.polygons) {
		return nil, fmt.Errorf("polygon handle %d: %w", h, ErrInvalidPolygon)
	}
	return g.polygons[h], nil
}

func (g *Geometry) PolygonVertex(h PolygonHandle, index int) (Point3, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	occ, err := g.polygon(h)
	if err != nil {
		return Point3{}, err
	}
	if index < 0 || index >= len(occ.points) {
		return Point3{}, fmt.Errorf("vertex %d of polygon %d: %w", index, h, ErrInvalidPolygon)
	}
	return occ.points[index], nil
}

func (g *Geometry) PolygonVertexCount(h PolygonHandle) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	occ, err := g.polygon(h)
	if err != nil {
		return 0, err
	}
	return len(occ.points), nil
}

func (g *Geometry) PolygonCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.polygons)
}

func (g *Geometry) SetActive(active bool) {
	g.mu.Lock()
	g.active = active
	g.mu.Unlock()
}

func (g *Geometry) Active() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.active
}

// Occlusion returns the combined direct and reverb occlusion along the
// segment from-to. Each crossed polygon lets through (1 - factor) of what
// reaches it.
func (g *Geometry) Occlusion(from, to Point3) (direct, reverb float64) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.active {
		return 0, 0
	}
	passDirect, passReverb := 1.0, 1.0
	for _, occ := range g.polygons {
		if occ.blocks(from, to) {
			passDirect *= 1 - occ.direct
			passReverb *= 1 - occ.reverb
		}
	}
	return 1 - passDirect, 1 - passReverb
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

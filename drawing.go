package audioworld

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

var (
	wallColour     = color.RGBA{R: 220, G: 220, B: 220, A: 255}
	idleColour     = color.RGBA{R: 90, G: 90, B: 110, A: 255}
	playingColour  = color.RGBA{R: 40, G: 200, B: 90, A: 255}
	shipColour     = color.RGBA{R: 255, G: 140, B: 0, A: 255}
	listenerColour = color.RGBA{R: 255, G: 230, B: 0, A: 255}
	rangeColour    = color.RGBA{R: 60, G: 60, B: 60, A: 255}
)

var whiteSub *ebiten.Image

func solidSource() *ebiten.Image {
	if whiteSub == nil {
		whiteImage := ebiten.NewImage(3, 3)
		whiteImage.Fill(color.White)
		whiteSub = whiteImage.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
	}
	return whiteSub
}

// mapView projects world x/z onto the screen, looking straight down with -z
// pointing up the screen.
type mapView struct {
	width, height int
	pixelsPerUnit float64
	centre        mgl64.Vec3
}

// newMapView fits a square of side worldSpan around centre into the screen.
func newMapView(width, height int, worldSpan float64, centre mgl64.Vec3) mapView {
	return mapView{
		width:         width,
		height:        height,
		pixelsPerUnit: float64(min(width, height)) / worldSpan,
		centre:        centre,
	}
}

func (v mapView) project(p mgl64.Vec3) (float32, float32) {
	x := float64(v.width)/2 + (p.X()-v.centre.X())*v.pixelsPerUnit
	y := float64(v.height)/2 + (p.Z()-v.centre.Z())*v.pixelsPerUnit
	return float32(x), float32(y)
}

func (v mapView) length(d float64) float32 {
	return float32(d * v.pixelsPerUnit)
}

// outline projects a polygon, dropping consecutive points that land on the
// same pixel. A wall seen edge-on collapses to a line.
func (v mapView) outline(points []Point3) (xp, yp []float32) {
	for _, p := range points {
		x, y := v.project(p.Vec())
		n := len(xp)
		if n > 0 && math.Abs(float64(xp[n-1]-x)) < 0.5 && math.Abs(float64(yp[n-1]-y)) < 0.5 {
			continue
		}
		xp = append(xp, x)
		yp = append(yp, y)
	}
	return xp, yp
}

// drawPolygonOutline strokes a closed path through the given points.
func drawPolygonOutline(screen *ebiten.Image, xp, yp []float32, strokeWidth float32, clr color.RGBA) {
	if len(xp) < 2 {
		return
	}

	var path vector.Path
	path.MoveTo(xp[0], yp[0])
	for i := 1; i < len(xp); i++ {
		path.LineTo(xp[i], yp[i])
	}
	path.Close()

	vertices, indices := path.AppendVerticesAndIndicesForStroke(nil, nil, &vector.StrokeOptions{
		Width: strokeWidth,
	})

	cr := float32(clr.R) / 255.0
	cg := float32(clr.G) / 255.0
	cb := float32(clr.B) / 255.0
	ca := float32(clr.A) / 255.0
	for i := range vertices {
		vertices[i].ColorR = cr
		vertices[i].ColorG = cg
		vertices[i].ColorB = cb
		vertices[i].ColorA = ca
		vertices[i].SrcX = 1
		vertices[i].SrcY = 1
	}

	screen.DrawTriangles(vertices, indices, solidSource(), &ebiten.DrawTrianglesOptions{AntiAlias: true})
}

// drawArrow draws a line from (x, y) of the given length along angle, with
// a short head.
func drawArrow(screen *ebiten.Image, x, y, length float32, angle float64, clr color.Color) {
	ex := x + length*float32(math.Cos(angle))
	ey := y + length*float32(math.Sin(angle))
	vector.StrokeLine(screen, x, y, ex, ey, 2, clr, true)

	head := length / 3
	for _, side := range []float64{-2.5, 2.5} {
		hx := ex + head*float32(math.Cos(angle+side))
		hy := ey + head*float32(math.Sin(angle+side))
		vector.StrokeLine(screen, ex, ey, hx, hy, 2, clr, true)
	}
}

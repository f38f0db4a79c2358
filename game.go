package audioworld

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	moveSpeed   = 60.0 // units per second
	turnSpeed   = 90.0 // degrees per second
	dragDegrees = 0.3  // per pixel
	mapSpan     = 300.0
)

// Game walks the listener through the scene and draws a top-down map of it.
type Game struct {
	log    *slog.Logger
	scene  *Scene
	audio  AudioEngine
	sync   *Synchronizer
	start  time.Time
	last   time.Time
	width  int
	height int

	isDragging   bool
	lastX, lastY int
	lastErr      string
}

func NewGame(scene *Scene, audio AudioEngine, sync *Synchronizer, width, height int, log *slog.Logger) *Game {
	now := time.Now()
	return &Game{
		log:    log,
		scene:  scene,
		audio:  audio,
		sync:   sync,
		start:  now,
		last:   now,
		width:  width,
		height: height,
	}
}

func (g *Game) Update() error {
	now := time.Now()
	dt := now.Sub(g.last).Seconds()
	g.last = now

	g.handleInput(dt)

	err := g.sync.Frame(now.Sub(g.start).Seconds())
	if errors.Is(err, ErrBackendFailed) {
		return err
	}
	// a failing model fails every frame, so only changes are logged
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if msg != "" && msg != g.lastErr {
		g.log.Warn("Frame failed", "err", err)
	}
	g.lastErr = msg
	return nil
}

func (g *Game) handleInput(dt float64) {
	cam := g.scene.Camera()
	step := moveSpeed * dt
	turn := turnSpeed * dt

	keys := []struct {
		key  ebiten.Key
		move func()
	}{
		{ebiten.KeyW, func() { cam.MoveForward(step) }},
		{ebiten.KeyS, func() { cam.MoveForward(-step) }},
		{ebiten.KeyA, func() { cam.Strafe(-step) }},
		{ebiten.KeyD, func() { cam.Strafe(step) }},
		{ebiten.KeyQ, func() { cam.MoveCameraPosition(0, -step, 0) }},
		{ebiten.KeyE, func() { cam.MoveCameraPosition(0, step, 0) }},
		{ebiten.KeyArrowLeft, func() { cam.AddAngle(-turn, 0) }},
		{ebiten.KeyArrowRight, func() { cam.AddAngle(turn, 0) }},
		{ebiten.KeyArrowUp, func() { cam.AddAngle(0, turn) }},
		{ebiten.KeyArrowDown, func() { cam.AddAngle(0, -turn) }},
	}
	for _, k := range keys {
		if ebiten.IsKeyPressed(k.key) {
			k.move()
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		g.togglePause()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyG) {
		if err := g.audio.SetGeometryActive(!g.audio.GeometryActive()); err != nil {
			g.log.Warn("Toggling occlusion failed", "err", err)
		}
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		g.isDragging = true
		g.lastX, g.lastY = ebiten.CursorPosition()
	}
	if g.isDragging {
		x, y := ebiten.CursorPosition()
		cam.AddAngle(float64(x-g.lastX)*dragDegrees, float64(g.lastY-y)*dragDegrees)
		g.lastX, g.lastY = x, y
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		g.isDragging = false
	}
}

func (g *Game) togglePause() {
	for _, m := range g.sync.State().Models {
		if !m.IsPlaying {
			continue
		}
		if err := g.audio.PauseSound(m.ChannelID); err != nil {
			g.log.Warn("Pausing failed", "model", m.Name, "err", err)
		}
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)
	view := newMapView(g.width, g.height, mapSpan, mgl64.Vec3{})

	for _, wall := range g.scene.ModelsOfKind(KindWall) {
		vertices, err := g.scene.ModelVertices(wall.Name)
		if err != nil {
			continue
		}
		xp, yp := view.outline(vertices)
		drawPolygonOutline(screen, xp, yp, 2, wallColour)
	}

	radius := g.sync.cfg.ProximityRadius
	for _, m := range g.sync.State().Models {
		pos, err := g.scene.ModelPosition(m.Name)
		if err != nil {
			continue
		}
		scale, _ := g.scene.ModelScale(m.Name)
		x, y := view.project(pos)

		clr := idleColour
		switch {
		case m.Kind == KindShip:
			clr = shipColour
		case m.IsPlaying:
			clr = playingColour
		}
		if m.Kind != KindShip {
			vector.StrokeCircle(screen, x, y, view.length(radius), 1, rangeColour, true)
		}
		vector.DrawFilledCircle(screen, x, y, float32(4*scale), clr, true)
	}

	cam := g.scene.Camera()
	x, y := view.project(cam.GetPosition())
	fwd := cam.Forward()
	drawArrow(screen, x, y, 14, math.Atan2(fwd.Z(), fwd.X()), listenerColour)

	lines := append([]string{
		fmt.Sprintf("FPS: %0.2f", ebiten.ActualFPS()),
		statusLine(cam, g.audio),
	}, channelLines(g.sync.State().Models, g.audio)...)
	ebitenutil.DebugPrint(screen, strings.Join(lines, "\n"))
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.width, g.height
}

func statusLine(cam *Camera, audio AudioEngine) string {
	yaw, pitch := cam.Angles()
	occlusion := "off"
	if audio.GeometryActive() {
		occlusion = "on"
	}
	return fmt.Sprintf("yaw %.0f pitch %.0f walls %d occlusion %s", yaw, pitch, audio.PolygonCount(), occlusion)
}

// channelLines describes the channel of every playing model.
func channelLines(models []*AudioModel, audio AudioEngine) []string {
	var lines []string
	for _, m := range models {
		if !m.IsPlaying {
			continue
		}
		st, err := audio.ChannelState(m.ChannelID)
		if err != nil {
			lines = append(lines, fmt.Sprintf("%s: %v", m.Name, err))
			continue
		}
		line := fmt.Sprintf("%s ch%d vol %.2f pitch %.2f pan %+.2f occ %.2f", m.Name, st.ID, st.Volume, st.Pitch, st.Pan, st.Occlusion)
		if st.Paused {
			line += " paused"
		}
		for _, kind := range st.DSP {
			line += " " + kind.String()
		}
		lines = append(lines, line)
	}
	return lines
}

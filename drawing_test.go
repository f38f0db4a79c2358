package audioworld

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestMapViewProject(t *testing.T) {
	v := newMapView(800, 600, 300, mgl64.Vec3{})

	testCases := []struct {
		name string
		p    mgl64.Vec3
		x, y float32
	}{
		{"Origin", mgl64.Vec3{0, 0, 0}, 400, 300},
		{"Height ignored", mgl64.Vec3{0, 50, 0}, 400, 300},
		{"East", mgl64.Vec3{150, 0, 0}, 700, 300},
		{"Ahead is up", mgl64.Vec3{0, 0, -150}, 400, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			x, y := v.project(tc.p)
			if !almostEqual(float64(x), float64(tc.x)) || !almostEqual(float64(y), float64(tc.y)) {
				t.Errorf("project(%v) = (%f, %f), want (%f, %f)", tc.p, x, y, tc.x, tc.y)
			}
		})
	}
}

func TestMapViewOutlineCollapsesEdgeOnWall(t *testing.T) {
	v := newMapView(300, 300, 300, mgl64.Vec3{})

	// a vertical wall seen from above is a line
	xp, yp := v.outline([]Point3{pt(0, 0, 0), pt(0, 40, 0), pt(100, 40, 0), pt(100, 0, 0)})
	if len(xp) != 2 || len(yp) != 2 {
		t.Fatalf("outline() = %v %v, want two points", xp, yp)
	}
	if xp[0] != 150 || xp[1] != 250 {
		t.Errorf("outline() x = %v, want [150 250]", xp)
	}
}

func TestChannelLines(t *testing.T) {
	radio := radioModel("Radio", 4, mgl64.Vec3{0, 0, -10})
	idle := radioModel("Idle", 0, mgl64.Vec3{0, 0, -500})
	f := newSyncFixture(t, radio, idle)
	f.frame(t, frame)

	lines := channelLines(f.sync.State().Models, f.audio)
	if len(lines) != 1 {
		t.Fatalf("channelLines() = %q, want one line", lines)
	}
	if !strings.HasPrefix(lines[0], "Radio ch4 ") || !strings.HasSuffix(lines[0], DSPDistortion.String()) {
		t.Errorf("channelLines() = %q", lines[0])
	}

	if err := f.audio.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	lines = channelLines(f.sync.State().Models, f.audio)
	if len(lines) != 1 || !strings.Contains(lines[0], ErrNotInitialized.Error()) {
		t.Errorf("channelLines() after Destroy = %q", lines)
	}
}

func TestGameLayout(t *testing.T) {
	f := newSyncFixture(t)
	g := NewGame(f.scene, f.audio, f.sync, 640, 480, slog.New(slog.DiscardHandler))
	if w, h := g.Layout(1920, 1080); w != 640 || h != 480 {
		t.Errorf("Layout() = (%d, %d), want (640, 480)", w, h)
	}
}

func TestStatusLine(t *testing.T) {
	m, _ := newTestManager(t)
	cam := NewCamera(0, 0, 0)
	cam.AddAngle(90, 10)

	if got, want := statusLine(cam, m), "yaw 0 pitch 10 walls 0 occlusion on"; got != want {
		t.Errorf("statusLine() = %q, want %q", got, want)
	}
	if err := m.SetGeometryActive(false); err != nil {
		t.Fatalf("SetGeometryActive() error = %v", err)
	}
	if got := statusLine(cam, m); !strings.HasSuffix(got, "occlusion off") {
		t.Errorf("statusLine() = %q", got)
	}
}

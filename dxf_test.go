package audioworld

import (
	"fmt"
	"strings"
	"testing"
)

func dxfFace(corners ...Point3) string {
	var sb strings.Builder
	sb.WriteString("0\n3DFACE\n8\n0\n")
	codes := [][3]int{{10, 20, 30}, {11, 21, 31}, {12, 22, 32}, {13, 23, 33}}
	for i, c := range corners {
		sb.WriteString(fmt.Sprintf("%d\n%g\n%d\n%g\n%d\n%g\n", codes[i][0], c.X, codes[i][1], c.Y, codes[i][2], c.Z))
	}
	return sb.String()
}

func TestLoadFacesFromDXF(t *testing.T) {
	wall := []Point3{pt(0, 0, 0), pt(0, 10, 0), pt(10, 10, 0), pt(10, 0, 0)}
	floor := []Point3{pt(0, 0, 0), pt(10, 0, 0), pt(10, 0, 10), pt(0, 0, 10)}
	src := "0\nSECTION\n2\nENTITIES\n" + dxfFace(wall...) + dxfFace(floor...) + "0\nENDSEC\n0\nEOF\n"

	faces, err := LoadFacesFromDXF(strings.NewReader(src))
	if err != nil {
		t.Fatalf("LoadFacesFromDXF() error = %v", err)
	}
	if len(faces) != 2 {
		t.Fatalf("LoadFacesFromDXF() returned %d faces, want 2", len(faces))
	}
	for i, want := range [][]Point3{wall, floor} {
		for j := range want {
			if faces[i][j] != want[j] {
				t.Errorf("face %d vertex %d = %v, want %v", i, j, faces[i][j], want[j])
			}
		}
	}

	mesh := NewMeshFromFaces(faces)
	if len(mesh.Points) != 6 {
		t.Errorf("mesh has %d unique points, want 6", len(mesh.Points))
	}
	if got := mesh.Face(1); got[3] != floor[3] {
		t.Errorf("mesh face 1 = %v, want %v", got, floor)
	}
}

func TestLoadFacesFromDXFErrors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{"Truncated header", "0\n3DFACE\n8\n"},
		{"Bad number", "0\n3DFACE\n8\n0\n10\nabc\n"},
		{"Missing corners", "0\n3DFACE\n8\n0\n10\n1\n20\n2\n30\n3\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadFacesFromDXF(strings.NewReader(tc.src)); err == nil {
				t.Errorf("LoadFacesFromDXF() expected an error")
			}
		})
	}
}

func TestZeroMeshAddFace(t *testing.T) {
	m := &Mesh{Points: []Point3{pt(0, 0, 0)}}
	idx := m.AddFace([]Point3{pt(0, 0, 0), pt(1, 0, 0), pt(1, 1, 0)})
	if len(idx) != 3 || idx[0] != 0 || idx[1] != 1 || idx[2] != 2 {
		t.Errorf("AddFace() = %v, want [0 1 2]", idx)
	}
	if len(m.Points) != 3 {
		t.Errorf("mesh has %d points, want 3", len(m.Points))
	}
	if got := (&Mesh{}).AddPoint(pt(5, 5, 5)); got != 0 {
		t.Errorf("AddPoint() on empty mesh = %d, want 0", got)
	}
}

package audioworld

// Mesh holds unique vertices in first-seen order and faces as index lists.
type Mesh struct {
	Points     []Point3
	Faces      [][]int
	pointIndex map[Point3]int
}

func NewMesh() *Mesh {
	return &Mesh{
		Points:     make([]Point3, 0, 8),
		pointIndex: make(map[Point3]int),
	}
}

// NewMeshFromFaces builds a mesh, sharing vertices that repeat between faces.
func NewMeshFromFaces(faces [][]Point3) *Mesh {
	m := NewMesh()
	for _, f := range faces {
		m.AddFace(f)
	}
	return m
}

// AddPoint uses the map for an average O(1) lookup. A zero Mesh builds its
// index from Points on first use.
func (m *Mesh) AddPoint(point Point3) int {
	if m.pointIndex == nil {
		m.pointIndex = make(map[Point3]int, len(m.Points))
		for i, p := range m.Points {
			if _, found := m.pointIndex[p]; !found {
				m.pointIndex[p] = i
			}
		}
	}
	if index, found := m.pointIndex[point]; found {
		return index
	}
	m.Points = append(m.Points, point)
	newIndex := len(m.Points) - 1
	m.pointIndex[point] = newIndex
	return newIndex
}

func (m *Mesh) AddFace(pnts []Point3) []int {
	indices := make([]int, len(pnts))
	for i, p := range pnts {
		indices[i] = m.AddPoint(p)
	}
	m.Faces = append(m.Faces, indices)
	return indices
}

func (m *Mesh) Face(i int) []Point3 {
	face := make([]Point3, len(m.Faces[i]))
	for j, idx := range m.Faces[i] {
		face[j] = m.Points[idx]
	}
	return face
}

func (m *Mesh) Copy() *Mesh {
	newPointIndex := make(map[Point3]int, len(m.pointIndex))
	for key, value := range m.pointIndex {
		newPointIndex[key] = value
	}
	faces := make([][]int, len(m.Faces))
	for i, f := range m.Faces {
		faces[i] = append([]int(nil), f...)
	}

	return &Mesh{
		Points:     append([]Point3(nil), m.Points...),
		Faces:      faces,
		pointIndex: newPointIndex,
	}
}

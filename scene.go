package audioworld

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

type ModelKind string

const (
	KindWall  ModelKind = "wall"
	KindAudio ModelKind = "audio"
	KindShip  ModelKind = "ship"
	KindProp  ModelKind = "prop"
)

func (k ModelKind) Valid() bool {
	return lo.Contains([]ModelKind{KindWall, KindAudio, KindShip, KindProp}, k)
}

// Audible reports whether models of this kind carry a sound.
func (k ModelKind) Audible() bool {
	return k == KindAudio || k == KindShip
}

// SceneModel is a mesh placed in the world. The mesh is in model space and is
// scaled about its origin before it is moved to Position.
type SceneModel struct {
	Name     string
	Kind     ModelKind
	Position mgl64.Vec3
	Scale    float64
	Mesh     *Mesh
}

func (m *SceneModel) transform() mgl64.Mat4 {
	return mgl64.Translate3D(m.Position.X(), m.Position.Y(), m.Position.Z()).
		Mul4(mgl64.Scale3D(m.Scale, m.Scale, m.Scale))
}

// SceneEngine is what the synchronizer needs from the scene.
type SceneEngine interface {
	ModelPosition(name string) (mgl64.Vec3, error)
	MoveModel(name string, pos mgl64.Vec3) error
	ModelScale(name string) (float64, error)
	ScaleModel(name string, scale float64) error
	ModelVertices(name string) ([]Point3, error)
	Camera() *Camera
}

// Scene keeps models in the order they were added.
type Scene struct {
	log    *slog.Logger
	models []*SceneModel
	byName map[string]*SceneModel
	camera *Camera
}

var _ SceneEngine = (*Scene)(nil)

func NewScene(camera *Camera, log *slog.Logger) *Scene {
	return &Scene{
		log:    log,
		byName: make(map[string]*SceneModel),
		camera: camera,
	}
}

func (s *Scene) AddModel(m *SceneModel) error {
	if m.Name == "" {
		return fmt.Errorf("model without a name: %w", ErrInvalidInput)
	}
	if !m.Kind.Valid() {
		return fmt.Errorf("model %s has kind %q: %w", m.Name, m.Kind, ErrInvalidInput)
	}
	if _, ok := s.byName[m.Name]; ok {
		return fmt.Errorf("model %s added twice: %w", m.Name, ErrInvalidInput)
	}
	if m.Mesh == nil {
		m.Mesh = NewMesh()
	}
	s.models = append(s.models, m)
	s.byName[m.Name] = m
	s.log.Debug("Model added", "name", m.Name, "kind", string(m.Kind), "vertices", len(m.Mesh.Points))
	return nil
}

func (s *Scene) model(name string) (*SceneModel, error) {
	m, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrModelNotFound)
	}
	return m, nil
}

func (s *Scene) Model(name string) (*SceneModel, error) {
	return s.model(name)
}

func (s *Scene) Models() []*SceneModel {
	return s.models
}

func (s *Scene) ModelsOfKind(kinds ...ModelKind) []*SceneModel {
	return lo.Filter(s.models, func(m *SceneModel, _ int) bool {
		return lo.Contains(kinds, m.Kind)
	})
}

func (s *Scene) ModelPosition(name string) (mgl64.Vec3, error) {
	m, err := s.model(name)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return m.Position, nil
}

func (s *Scene) MoveModel(name string, pos mgl64.Vec3) error {
	m, err := s.model(name)
	if err != nil {
		return err
	}
	m.Position = pos
	return nil
}

func (s *Scene) ModelScale(name string) (float64, error) {
	m, err := s.model(name)
	if err != nil {
		return 0, err
	}
	return m.Scale, nil
}

func (s *Scene) ScaleModel(name string, scale float64) error {
	m, err := s.model(name)
	if err != nil {
		return err
	}
	m.Scale = scale
	return nil
}

// ModelVertices returns the model's unique vertices in world space.
func (s *Scene) ModelVertices(name string) ([]Point3, error) {
	m, err := s.model(name)
	if err != nil {
		return nil, err
	}
	mat := m.transform()
	return lo.Map(m.Mesh.Points, func(p Point3, _ int) Point3 {
		return Point3FromVec(mgl64.TransformCoordinate(p.Vec(), mat))
	}), nil
}

func (s *Scene) Camera() *Camera {
	return s.camera
}

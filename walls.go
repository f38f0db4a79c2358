package audioworld

import (
	"errors"
	"fmt"
	"log/slog"
)

const (
	wallDirectOcclusion = 0.9
	wallReverbOcclusion = 0.9
)

// OcclusionRegistrar is the part of the audio engine that stores occluders.
type OcclusionRegistrar interface {
	RegisterOcclusionPolygon(ordered [4]Point3, directOcclusion, reverbOcclusion float64, doubleSided bool) (PolygonHandle, error)
	PolygonVertex(h PolygonHandle, index int) (Point3, error)
}

// RegisterWall orders the first four vertices of a wall mesh and submits them
// as a double-sided occluder. The stored vertices are read back and logged.
func RegisterWall(reg OcclusionRegistrar, vertices []Point3, log *slog.Logger) (PolygonHandle, error) {
	if len(vertices) < quadCorners {
		return -1, fmt.Errorf("wall has %d vertices: %w", len(vertices), ErrInvalidInput)
	}

	ordered, err := OrderQuadVertices(vertices[:quadCorners])
	if err != nil {
		return -1, fmt.Errorf("ordering wall vertices: %w", err)
	}

	h, err := reg.RegisterOcclusionPolygon(ordered, wallDirectOcclusion, wallReverbOcclusion, true)
	if err != nil {
		return -1, fmt.Errorf("registering wall polygon: %w", err)
	}

	for i := 0; i < quadCorners; i++ {
		stored, err := reg.PolygonVertex(h, i)
		if err != nil {
			return h, fmt.Errorf("reading back wall vertex %d: %w", i, err)
		}
		log.Debug("Wall vertex", "polygon", int(h), "index", i, "stored", stored, "input", vertices[i])
	}
	return h, nil
}

// RegisterSceneWalls registers every wall model of the scene. A wall that
// cannot be registered is logged and skipped; the skipped walls come back as
// one joined error. step, if set, is called once per wall.
func RegisterSceneWalls(scene *Scene, reg OcclusionRegistrar, log *slog.Logger, step func()) (int, error) {
	var (
		registered int
		errs       []error
	)
	for _, wall := range scene.ModelsOfKind(KindWall) {
		if step != nil {
			step()
		}
		vertices, err := scene.ModelVertices(wall.Name)
		if err == nil {
			_, err = RegisterWall(reg, vertices, log.With("wall", wall.Name))
		}
		if err != nil {
			log.Warn("Skipping wall", "wall", wall.Name, "err", err)
			errs = append(errs, fmt.Errorf("wall %s: %w", wall.Name, err))
			continue
		}
		registered++
	}
	return registered, errors.Join(errs...)
}

package audioworld

import "errors"

var (
	// ErrInvalidInput is returned when a quad does not have exactly four finite points.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDegenerateGeometry is returned when quad corners do not trace an axis-aligned rectangle.
	ErrDegenerateGeometry = errors.New("degenerate geometry")

	ErrGeometryFull     = errors.New("occlusion geometry is full")
	ErrInvalidPolygon   = errors.New("invalid polygon")
	ErrNotInitialized   = errors.New("audio manager not initialized")
	ErrSoundNotFound    = errors.New("sound not found")
	ErrInvalidChannel   = errors.New("invalid channel")
	ErrUnknownParameter = errors.New("unknown dsp parameter")
	ErrDSPNotAttached   = errors.New("dsp not attached")
	ErrModelNotFound    = errors.New("model not found")
	ErrBackendFailed    = errors.New("audio backend failed")
)

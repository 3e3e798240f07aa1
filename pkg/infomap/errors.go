package infomap

import "errors"

var (
	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("infomap: invalid config")

	// ErrAborted is returned when a run is cancelled through its context.
	// The returned error also wraps the context error.
	ErrAborted = errors.New("infomap: run aborted")

	ErrVertexOutOfRange = errors.New("infomap: vertex index out of range")
	ErrNegativeWeight   = errors.New("infomap: negative link weight")

	// ErrNoResult is returned when every trial failed to produce a tree.
	ErrNoResult = errors.New("infomap: no trial produced a result")
)

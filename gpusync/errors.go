package gpusync

import (
	"errors"
	"fmt"
)

// Sentinel errors for the gpusync package.
var (
	// ErrUnknownUniform is returned for a uniform name missing from the
	// pass layout.
	ErrUnknownUniform = errors.New("gpusync: unknown uniform binding")

	// ErrUniformSize is returned when uniform data does not match the
	// declared field size.
	ErrUniformSize = errors.New("gpusync: uniform size mismatch")

	// ErrTextureSlot is returned for a texture slot outside the layout.
	ErrTextureSlot = errors.New("gpusync: texture slot out of range")

	// ErrFrameInProgress is returned by BeginFrame before the previous
	// frame was ended.
	ErrFrameInProgress = errors.New("gpusync: frame already in progress")

	// ErrNoFrame is returned by EndFrame without a matching BeginFrame.
	ErrNoFrame = errors.New("gpusync: no frame in progress")
)

// BindingError is a violation of the pass binding contract. In debug builds
// it is raised as a panic value.
type BindingError struct {
	Pass string
	Name string
	Err  error
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("%v: pass %q binding %q", e.Err, e.Pass, e.Name)
}

func (e *BindingError) Unwrap() error { return e.Err }

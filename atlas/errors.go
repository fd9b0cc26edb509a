package atlas

import (
	"errors"
	"fmt"
)

// Sentinel errors for the atlas package.
var (
	// ErrAtlasFull is matched by every error reporting that a request could
	// not be placed in any allowed layer.
	ErrAtlasFull = errors.New("atlas: all layers are full")

	// ErrInvalidSize is returned for empty requests or requests larger than
	// a layer.
	ErrInvalidSize = errors.New("atlas: invalid rectangle size")
)

// FullError describes a failed placement.
type FullError struct {
	Width, Height int
	MaxLayers     int
}

func (e *FullError) Error() string {
	return fmt.Sprintf("atlas: no room for %dx%d in %d layers", e.Width, e.Height, e.MaxLayers)
}

// Is reports whether target is ErrAtlasFull.
func (e *FullError) Is(target error) bool {
	return target == ErrAtlasFull
}

// ConfigError is returned by Config.Validate.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "atlas: invalid config " + e.Field + ": " + e.Reason
}

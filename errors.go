package ggui

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ggui package.
var (
	// ErrAssetLoadFailed matches every failed asset load.
	ErrAssetLoadFailed = errors.New("ggui: asset load failed")

	// ErrInvalidTexture is returned for bad texture sizes and unknown handles.
	ErrInvalidTexture = errors.New("ggui: invalid texture")

	// ErrInvalidRegion is returned when an upload does not fit its texture
	// or the pixel buffer has the wrong length.
	ErrInvalidRegion = errors.New("ggui: invalid upload region")

	// ErrUnsupportedFormat is returned for pixel formats a provider cannot store.
	ErrUnsupportedFormat = errors.New("ggui: unsupported texture format")
)

// AssetError reports a failed load for one content key.
type AssetError struct {
	Key  string
	Path string
	Err  error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("ggui: load %q from %s: %v", e.Key, e.Path, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }

// Is reports whether target is ErrAssetLoadFailed.
func (e *AssetError) Is(target error) bool {
	return target == ErrAssetLoadFailed
}

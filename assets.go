package ggui

import "image"

// AssetResult is a finished load delivered on the render goroutine.
// Exactly one of Image and Err is set.
type AssetResult struct {
	Key   string
	Path  string
	Image *image.RGBA
	Err   error
}

// AssetLoader decodes images off the render goroutine.
//
// Request and Cancel never block. Completions are only observed through
// Poll, which the owner calls once per frame on the render goroutine.
type AssetLoader interface {
	// Request schedules a load of path for key. It returns false if the
	// request was rejected (loader closed or key already pending).
	Request(key, path string) bool

	// Cancel drops any pending load for key; its completion is discarded.
	Cancel(key string)

	// Poll hands every completed result to fn and returns how many were
	// delivered.
	Poll(fn func(AssetResult)) int
}

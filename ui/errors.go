package ui

import "errors"

// Sentinel errors for the ui package.
var (
	// ErrStaleInput is returned by TouchRouter.DispatchErr for a Moved,
	// Stationary, Ended or Canceled touch whose finger has no live capture.
	ErrStaleInput = errors.New("ui: stale input event")

	// ErrUnknownView is returned for a removed or never issued ViewID.
	ErrUnknownView = errors.New("ui: unknown view")

	// ErrNoLoader is returned by LoadImage when the context has no asset
	// loader.
	ErrNoLoader = errors.New("ui: no asset loader configured")

	// ErrLoadRejected is returned by LoadImage when the loader refuses the
	// request.
	ErrLoadRejected = errors.New("ui: load request rejected")

	// ErrInvalidImage is returned by RegisterImage for nil or empty images.
	ErrInvalidImage = errors.New("ui: invalid image")
)

package text

import (
	"errors"
	"fmt"
)

// Sentinel errors for text package.
var (
	// ErrEmptyFontData is returned when font data is empty.
	ErrEmptyFontData = errors.New("text: empty font data")

	// ErrInvalidSize is returned by Layout for non-positive font sizes.
	ErrInvalidSize = errors.New("text: invalid font size")
)

// FontError reports a font that could not be parsed.
type FontError struct {
	Name string
	Err  error
}

func (e *FontError) Error() string {
	return fmt.Sprintf("text: parse font %q: %v", e.Name, e.Err)
}

func (e *FontError) Unwrap() error { return e.Err }

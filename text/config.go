package text

import (
	"fmt"
	"strings"

	"golang.org/x/image/font/gofont/goregular"
)

// Config holds Source configuration.
type Config struct {
	// FontData is a TrueType or OpenType font file.
	// Default: Go Regular
	FontData []byte

	// Name identifies the face inside glyph keys. It must not contain ':'.
	// Default: "goregular"
	Name string

	// Language tags the shaping input.
	// Default: "en"
	Language string

	// LineSpacing scales the font's line height.
	// Default: 1
	LineSpacing float32

	// MaskCacheSize is the number of rasterized glyph masks kept.
	// Default: 512
	MaskCacheSize int
}

// DefaultConfig returns a configuration using the Go Regular font.
func DefaultConfig() Config {
	return Config{
		FontData:      goregular.TTF,
		Name:          "goregular",
		Language:      "en",
		LineSpacing:   1,
		MaskCacheSize: 512,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if len(c.FontData) == 0 {
		return ErrEmptyFontData
	}
	if c.Name == "" || strings.ContainsRune(c.Name, ':') {
		return fmt.Errorf("text: invalid face name %q", c.Name)
	}
	if c.LineSpacing <= 0 {
		return fmt.Errorf("text: LineSpacing must be positive, got %g", c.LineSpacing)
	}
	if c.MaskCacheSize < 1 {
		return fmt.Errorf("text: MaskCacheSize must be positive, got %d", c.MaskCacheSize)
	}
	return nil
}

package ggui

import "image"

// Glyph is one positioned glyph of a laid out label.
type Glyph struct {
	// Key is the atlas content key of the glyph bitmap.
	Key string

	// X and Y locate the bitmap's top-left corner relative to the label
	// origin, which is the top-left of the first line box.
	X, Y float32

	// Width and Height are the bitmap size in pixels. Glyphs without
	// coverage, such as spaces, are left out of the layout.
	Width, Height int
}

// TextLayout is the result of laying out a label.
type TextLayout struct {
	Glyphs []Glyph

	// Width is the widest line; Height is the total height of all lines.
	Width, Height float32

	// Lines holds the advance width of every line, used for alignment.
	Lines []LineMetrics

	// RTL is set when the paragraph direction is right to left.
	RTL bool
}

// LineMetrics describes one laid out line.
type LineMetrics struct {
	Width float32
	// First and Last delimit the line's glyphs in TextLayout.Glyphs.
	First, Last int
}

// GlyphSource shapes label text and rasterizes glyph bitmaps.
type GlyphSource interface {
	// Layout shapes text at the given pixel size.
	Layout(text string, size float32) (TextLayout, error)

	// Mask returns the coverage bitmap for a glyph key from a previous
	// Layout. The mask bounds start at (0, 0).
	Mask(key string) (*image.Alpha, bool)
}

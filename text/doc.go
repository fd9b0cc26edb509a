// Package text provides the glyph source behind label views.
//
// A Source shapes each line with go-text/typesetting's HarfBuzz shaper,
// picks the paragraph direction with golang.org/x/text/unicode/bidi, and
// rasterizes glyph outlines read through golang.org/x/image/font/sfnt into
// alpha masks. The canvas stores each mask in the atlas under its glyph key:
//
//	src, err := text.New(text.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	ctx := ggui.NewContext(ggui.WithGlyphSource(src))
//
// Glyph keys have the form "glyph:<face>:<size>:<glyph id>".
package text

package text

import (
	"image"

	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// rasterize fills the outline of gid into an alpha mask whose origin is the
// top-left of the glyph's pixel bounds. Must be called with s.mu held.
func (s *Source) rasterize(gid sfnt.GlyphIndex, ppem fixed.Int26_6) (*image.Alpha, bool) {
	bounds, ok := s.pixelBounds(gid, ppem)
	if !ok {
		return nil, false
	}
	segments, err := s.sf.LoadGlyph(&s.buf, gid, ppem, nil)
	if err != nil {
		// Color and bitmap glyphs have no outline.
		return nil, false
	}

	w, h := bounds.Dx(), bounds.Dy()
	dx, dy := float32(-bounds.Min.X), float32(-bounds.Min.Y)
	pt := func(p fixed.Point26_6) (float32, float32) {
		return float32(p.X)/64 + dx, float32(p.Y)/64 + dy
	}

	r := vector.NewRasterizer(w, h)
	open := false
	for _, seg := range segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			if open {
				r.ClosePath()
			}
			r.MoveTo(pt(seg.Args[0]))
			open = true
		case sfnt.SegmentOpLineTo:
			r.LineTo(pt(seg.Args[0]))
		case sfnt.SegmentOpQuadTo:
			bx, by := pt(seg.Args[0])
			cx, cy := pt(seg.Args[1])
			r.QuadTo(bx, by, cx, cy)
		case sfnt.SegmentOpCubeTo:
			bx, by := pt(seg.Args[0])
			cx, cy := pt(seg.Args[1])
			ex, ey := pt(seg.Args[2])
			r.CubeTo(bx, by, cx, cy, ex, ey)
		}
	}
	if open {
		r.ClosePath()
	}

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	r.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask, true
}

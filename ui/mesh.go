package ui

import (
	"cmp"
	"image/color"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggui"
)

// Vertex is one canvas vertex. Color is premultiplied RGBA.
type Vertex struct {
	Pos   mgl32.Vec2
	UV    mgl32.Vec2
	Color [4]uint8
}

// VertexSize is the packed size of a Vertex on the GPU: two float32x2
// attributes and one unorm8x4.
const VertexSize = 20

// ViewMesh is the batch for one atlas layer: every quad drawn from that
// layer this frame, in draw order, as one indexed triangle list.
type ViewMesh struct {
	Layer   int
	Texture ggui.TextureHandle

	Vertices []Vertex
	Indices  []uint32

	// Views lists the views that contributed quads, in draw order.
	Views []ViewID
}

// Quads returns the number of quads in the mesh.
func (m *ViewMesh) Quads() int { return len(m.Indices) / 6 }

func (m *ViewMesh) addQuad(id ViewID, q texQuad, col [4]uint8) {
	if n := len(m.Views); n == 0 || m.Views[n-1] != id {
		m.Views = append(m.Views, id)
	}
	base := uint32(len(m.Vertices))
	d, t := q.dst, q.uv
	if q.corners != nil {
		for _, f := range q.corners {
			m.Vertices = append(m.Vertices, Vertex{
				Pos:   mgl32.Vec2{d.X + d.W*f.X(), d.Y + d.H*f.Y()},
				UV:    mgl32.Vec2{t.u0 + (t.u1-t.u0)*f.X(), t.v0 + (t.v1-t.v0)*f.Y()},
				Color: col,
			})
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
		return
	}
	m.Vertices = append(m.Vertices,
		Vertex{Pos: mgl32.Vec2{d.X, d.Y}, UV: mgl32.Vec2{t.u0, t.v0}, Color: col},
		Vertex{Pos: mgl32.Vec2{d.X + d.W, d.Y}, UV: mgl32.Vec2{t.u1, t.v0}, Color: col},
		Vertex{Pos: mgl32.Vec2{d.X + d.W, d.Y + d.H}, UV: mgl32.Vec2{t.u1, t.v1}, Color: col},
		Vertex{Pos: mgl32.Vec2{d.X, d.Y + d.H}, UV: mgl32.Vec2{t.u0, t.v1}, Color: col},
	)
	m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
}

// uvRect is a texture coordinate rectangle.
type uvRect struct {
	u0, v0, u1, v1 float32
}

// sub returns the part of r between the given fractions of its extent.
func (r uvRect) sub(fx0, fy0, fx1, fy1 float32) uvRect {
	du, dv := r.u1-r.u0, r.v1-r.v0
	return uvRect{
		u0: r.u0 + du*fx0,
		v0: r.v0 + dv*fy0,
		u1: r.u0 + du*fx1,
		v1: r.v0 + dv*fy1,
	}
}

// texQuad is a destination rect with its texture coordinates. When corners
// is set the quad is a general quadrilateral whose corners are fractions of
// dst and uv, wound like the rect corners.
type texQuad struct {
	dst     Rect
	uv      uvRect
	corners *[4]mgl32.Vec2
}

// maxTiles caps the quads a tiled sprite may emit; beyond it the sprite is
// stretched like a simple one.
const maxTiles = 4096

// spriteQuads expands a sprite into quads for its fill mode. iw and ih are
// the image size in pixels.
func spriteQuads(s Sprite, dst Rect, iw, ih int, uv uvRect) []texQuad {
	if dst.Empty() {
		return nil
	}
	switch s.Mode {
	case SpriteSliced:
		return slicedQuads(s.Border, dst, iw, ih, uv)
	case SpriteTiled:
		if q := tiledQuads(dst, iw, ih, uv); q != nil {
			return q
		}
	case SpriteFilled:
		return filledQuads(s, dst, uv)
	}
	return []texQuad{{dst: dst, uv: uv}}
}

func slicedQuads(b Border, dst Rect, iw, ih int, uv uvRect) []texQuad {
	xs, us := sliceAxis(dst.X, dst.W, b.Left, b.Right, iw)
	ys, vs := sliceAxis(dst.Y, dst.H, b.Top, b.Bottom, ih)

	quads := make([]texQuad, 0, 9)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			d := Rect{X: xs[col], Y: ys[row], W: xs[col+1] - xs[col], H: ys[row+1] - ys[row]}
			if d.Empty() || us[col] == us[col+1] || vs[row] == vs[row+1] {
				continue
			}
			quads = append(quads, texQuad{dst: d, uv: uv.sub(us[col], vs[row], us[col+1], vs[row+1])})
		}
	}
	return quads
}

// sliceAxis returns the four edge positions and texture fractions of one
// 9-slice axis. Borders shrink proportionally when the rect is narrower
// than both borders together.
func sliceAxis(start, extent float32, lo, hi, size int) (pos, frac [4]float32) {
	lo = min(max(lo, 0), size)
	hi = min(max(hi, 0), size-lo)
	l, h := float32(lo), float32(hi)
	if l+h > extent && l+h > 0 {
		scale := extent / (l + h)
		l, h = l*scale, h*scale
	}
	pos = [4]float32{start, start + l, start + extent - h, start + extent}
	fs := float32(size)
	frac = [4]float32{0, float32(lo) / fs, 1 - float32(hi)/fs, 1}
	return pos, frac
}

func tiledQuads(dst Rect, iw, ih int, uv uvRect) []texQuad {
	tw, th := float32(iw), float32(ih)
	nx := int(math.Ceil(float64(dst.W / tw)))
	ny := int(math.Ceil(float64(dst.H / th)))
	if nx*ny > maxTiles {
		return nil
	}

	quads := make([]texQuad, 0, nx*ny)
	for j := 0; j < ny; j++ {
		y := float32(j) * th
		h := min(th, dst.H-y)
		for i := 0; i < nx; i++ {
			x := float32(i) * tw
			w := min(tw, dst.W-x)
			quads = append(quads, texQuad{
				dst: Rect{X: dst.X + x, Y: dst.Y + y, W: w, H: h},
				uv:  uv.sub(0, 0, w/tw, h/th),
			})
		}
	}
	return quads
}

func filledQuads(s Sprite, dst Rect, uv uvRect) []texQuad {
	a := min(max(s.FillAmount, 0), 1)
	if a == 0 {
		return nil
	}
	if s.Fill >= FillRadial90 {
		return radialQuads(s, dst, uv, float64(a))
	}
	d, t := dst, uv
	switch {
	case s.Fill == FillHorizontal && s.FillOrigin == FillFromStart:
		d.W = dst.W * a
		t = uv.sub(0, 0, a, 1)
	case s.Fill == FillHorizontal:
		d.W = dst.W * a
		d.X = dst.X + dst.W - d.W
		t = uv.sub(1-a, 0, 1, 1)
	case s.FillOrigin == FillFromStart:
		// Vertical fills grow up from the bottom edge.
		d.H = dst.H * a
		d.Y = dst.Y + dst.H - d.H
		t = uv.sub(0, 1-a, 1, 1)
	default:
		d.H = dst.H * a
		t = uv.sub(0, 0, 1, a)
	}
	return []texQuad{{dst: d, uv: t}}
}

// angleEps is the tolerance, in degrees, for a rect corner lying on the
// edge of a radial sweep.
const angleEps = 1e-4

// radialSweep returns the pivot of a radial fill as fractions of the rect,
// and the range of screen angles it covers at full fill. Angles are in
// degrees clockwise from +x, so start is where a clockwise fill begins.
func radialSweep(m FillMethod, o FillOrigin) (pivot mgl32.Vec2, start, extent float64) {
	switch m {
	case FillRadial90:
		switch o {
		case FillTopLeft:
			return mgl32.Vec2{0, 0}, 0, 90
		case FillTopRight:
			return mgl32.Vec2{1, 0}, 90, 90
		case FillBottomRight:
			return mgl32.Vec2{1, 1}, 180, 90
		}
		return mgl32.Vec2{0, 1}, 270, 90
	case FillRadial180:
		switch o {
		case FillRight:
			return mgl32.Vec2{1, 0.5}, 90, 180
		case FillTop:
			return mgl32.Vec2{0.5, 0}, 0, 180
		case FillLeft:
			return mgl32.Vec2{0, 0.5}, 270, 180
		}
		return mgl32.Vec2{0.5, 1}, 180, 180
	}
	center := mgl32.Vec2{0.5, 0.5}
	switch o {
	case FillRight:
		return center, 0, 360
	case FillTop:
		return center, 270, 360
	case FillLeft:
		return center, 180, 360
	}
	return center, 90, 360
}

// radialQuads cuts the sector of a radial fill out of the rect. Angles are
// taken in rect fractions, so a half-filled Radial90 always ends on the
// diagonal. The sector is a triangle fan around the pivot; consecutive
// triangles share a quad.
func radialQuads(s Sprite, dst Rect, uv uvRect, amount float64) []texQuad {
	pivot, start, extent := radialSweep(s.Fill, s.FillOrigin)
	sweep := extent * amount
	lo, hi := start+extent-sweep, start+extent
	if s.FillClockwise {
		lo, hi = start, start+sweep
	}

	type corner struct {
		angle float64
		p     mgl32.Vec2
	}
	var inside []corner
	for _, p := range [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}} {
		if p == pivot {
			continue
		}
		a := angleTo(pivot, p)
		for a < lo {
			a += 360
		}
		for a >= lo+360 {
			a -= 360
		}
		if a > lo+angleEps && a < hi-angleEps {
			inside = append(inside, corner{a, p})
		}
	}
	slices.SortFunc(inside, func(a, b corner) int { return cmp.Compare(a.angle, b.angle) })

	fan := make([]mgl32.Vec2, 0, len(inside)+2)
	fan = append(fan, rayExit(pivot, lo))
	for _, c := range inside {
		fan = append(fan, c.p)
	}
	fan = append(fan, rayExit(pivot, hi))

	last := len(fan) - 1
	quads := make([]texQuad, 0, (last+1)/2)
	for i := 0; i < last; i += 2 {
		quads = append(quads, texQuad{
			dst:     dst,
			uv:      uv,
			corners: &[4]mgl32.Vec2{pivot, fan[i], fan[i+1], fan[min(i+2, last)]},
		})
	}
	return quads
}

// angleTo returns the screen angle from p to q in degrees.
func angleTo(p, q mgl32.Vec2) float64 {
	return math.Atan2(float64(q.Y()-p.Y()), float64(q.X()-p.X())) * 180 / math.Pi
}

// rayExit returns where a ray from p at the given angle leaves the unit rect.
func rayExit(p mgl32.Vec2, deg float64) mgl32.Vec2 {
	rad := deg * math.Pi / 180
	dx, dy := snapZero(math.Cos(rad)), snapZero(math.Sin(rad))
	px, py := float64(p.X()), float64(p.Y())
	t := math.Inf(1)
	switch {
	case dx > 0:
		t = (1 - px) / dx
	case dx < 0:
		t = -px / dx
	}
	switch {
	case dy > 0:
		t = min(t, (1-py)/dy)
	case dy < 0:
		t = min(t, -py/dy)
	}
	return mgl32.Vec2{clamp01(px + t*dx), clamp01(py + t*dy)}
}

func snapZero(v float64) float64 {
	if math.Abs(v) < 1e-9 {
		return 0
	}
	return v
}

func clamp01(v float64) float32 {
	return float32(min(max(v, 0), 1))
}

// premultiply converts a straight-alpha color to premultiplied bytes.
func premultiply(c color.NRGBA) [4]uint8 {
	a := uint32(c.A)
	return [4]uint8{
		uint8((uint32(c.R)*a + 127) / 255),
		uint8((uint32(c.G)*a + 127) / 255),
		uint8((uint32(c.B)*a + 127) / 255),
		c.A,
	}
}

package atlas

import (
	"fmt"
	"image"
)

// Rect is an integer rectangle in atlas texel space.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Area returns Width*Height.
func (r Rect) Area() int {
	return r.Width * r.Height
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether the point (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Overlaps reports whether r and o share any texel.
func (r Rect) Overlaps(o Rect) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// Inset shrinks r by n texels on every side.
func (r Rect) Inset(n int) Rect {
	return Rect{X: r.X + n, Y: r.Y + n, Width: r.Width - 2*n, Height: r.Height - 2*n}
}

// Image converts r to an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// UV returns the normalized texture coordinates of r inside a layer of the
// given size.
func (r Rect) UV(layerW, layerH int) (u0, v0, u1, v1 float32) {
	fw, fh := float32(layerW), float32(layerH)
	return float32(r.X) / fw, float32(r.Y) / fh,
		float32(r.X+r.Width) / fw, float32(r.Y+r.Height) / fh
}

func (r Rect) String() string {
	return fmt.Sprintf("Rect(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

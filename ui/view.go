package ui

import (
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggui/atlas"
	"github.com/gogpu/ggui/input"
)

// ViewID is a handle to a view in a Canvas. A handle outlives its view:
// once the view is removed, the handle is stale and lookups fail.
type ViewID struct {
	index uint32
	gen   uint32
}

// Valid reports whether id was ever issued. It says nothing about whether
// the view still exists; use Canvas.View for that.
func (id ViewID) Valid() bool { return id.gen != 0 }

func (id ViewID) String() string {
	if !id.Valid() {
		return "ViewID(invalid)"
	}
	return fmt.Sprintf("ViewID(%d.%d)", id.index, id.gen)
}

// HAlign anchors a view horizontally inside its parent.
type HAlign uint8

const (
	AlignLeft HAlign = iota
	AlignCenter
	AlignRight
	// AlignStretchH sizes the view to the parent width plus Size.X.
	AlignStretchH
)

// VAlign anchors a view vertically inside its parent.
type VAlign uint8

const (
	AlignTop VAlign = iota
	AlignMiddle
	AlignBottom
	// AlignStretchV sizes the view to the parent height plus Size.Y.
	AlignStretchV
)

// TouchHandler receives the touches routed to a view. Positions are in
// canvas pixels.
type TouchHandler func(id ViewID, t input.Touch)

// View describes one UI element. Views are added to a Canvas by value and
// changed afterwards through Canvas.Modify or the typed setters, all of
// which mark the canvas dirty.
type View struct {
	// Name is for debugging only.
	Name string

	// Offset moves the pivot point away from the anchor, in pixels.
	Offset mgl32.Vec2

	// Size is the view size in pixels. On a stretched axis it is added to
	// the parent size instead.
	Size mgl32.Vec2

	// Pivot is the point of the view, in fractions of its size, that sits
	// at the anchor. The zero value is the top-left corner.
	Pivot mgl32.Vec2

	AlignH HAlign
	AlignV VAlign

	// DrawOrder sorts views back to front. Views with equal order draw in
	// insertion order.
	DrawOrder int

	// Color tints the content. Constructors default it to opaque white.
	Color color.NRGBA

	Hidden      bool
	IgnoreInput bool
	OnTouch     TouchHandler

	Content Content
}

// NewSprite returns a view showing the image stored under key.
func NewSprite(key atlas.Key, w, h float32) View {
	return View{Size: mgl32.Vec2{w, h}, Color: White, Content: Sprite{Key: key}}
}

// NewLabel returns a view showing text at size pixels per em.
func NewLabel(text string, size float32, w, h float32) View {
	return View{Size: mgl32.Vec2{w, h}, Color: White, Content: Label{Text: text, Size: size}}
}

// NewQuad returns a solid colored view.
func NewQuad(c color.NRGBA, w, h float32) View {
	return View{Size: mgl32.Vec2{w, h}, Color: c, Content: Quad{}}
}

// White is the untinted view color.
var White = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// Content is what a view draws: Sprite, Label or Quad. A nil Content draws
// nothing but still lays out and receives input.
type Content interface {
	isContent()
}

// SpriteMode selects how a sprite fills its view rect.
type SpriteMode uint8

const (
	// SpriteSimple stretches the whole image over the rect.
	SpriteSimple SpriteMode = iota
	// SpriteSliced keeps the border widths and stretches the centre.
	SpriteSliced
	// SpriteTiled repeats the image at its native size, clipping the last
	// row and column.
	SpriteTiled
	// SpriteFilled draws FillAmount of the image along FillMethod.
	SpriteFilled
)

func (m SpriteMode) String() string {
	switch m {
	case SpriteSimple:
		return "simple"
	case SpriteSliced:
		return "sliced"
	case SpriteTiled:
		return "tiled"
	case SpriteFilled:
		return "filled"
	}
	return fmt.Sprintf("SpriteMode(%d)", uint8(m))
}

// FillMethod is how a filled sprite grows with FillAmount.
type FillMethod uint8

const (
	FillHorizontal FillMethod = iota
	FillVertical
	// FillRadial90 sweeps a quarter turn around a corner.
	FillRadial90
	// FillRadial180 sweeps a half turn around the middle of an edge.
	FillRadial180
	// FillRadial360 sweeps a full turn around the centre.
	FillRadial360
)

// FillOrigin is where a filled sprite grows from. Its meaning depends on
// the FillMethod.
//
// Horizontal fills use FillFromStart for left and FillFromEnd for right;
// vertical fills use FillFromStart for bottom and FillFromEnd for top.
// Radial90 fills pivot on the corner named by FillBottomLeft, FillTopLeft,
// FillTopRight or FillBottomRight. Radial180 fills pivot on the middle of
// the edge named by FillBottom, FillRight, FillTop or FillLeft, and
// Radial360 fills start from that edge.
type FillOrigin uint8

const (
	FillFromStart FillOrigin = iota
	FillFromEnd
)

const (
	FillBottomLeft FillOrigin = iota
	FillTopLeft
	FillTopRight
	FillBottomRight
)

const (
	FillBottom FillOrigin = iota
	FillRight
	FillTop
	FillLeft
)

// Border is a 9-slice border in image pixels.
type Border struct {
	Left, Top, Right, Bottom int
}

// Sprite draws an image registered or loaded under Key.
type Sprite struct {
	Key    atlas.Key
	Mode   SpriteMode
	Border Border

	Fill       FillMethod
	FillOrigin FillOrigin
	// FillAmount is clamped to [0, 1].
	FillAmount float32
	// FillClockwise turns radial fills clockwise on screen. The zero value
	// sweeps counter-clockwise.
	FillClockwise bool
}

// TextAlign positions label lines inside the view rect.
type TextAlign uint8

const (
	TextLeft TextAlign = iota
	TextCenter
	TextRight
)

// TextVAlign positions the label block inside the view rect.
type TextVAlign uint8

const (
	TextTop TextVAlign = iota
	TextMiddle
	TextBottom
)

// Label draws shaped text. Lines break on '\n'.
type Label struct {
	Text   string
	Size   float32
	Align  TextAlign
	VAlign TextVAlign
}

// Quad fills the view rect with its color.
type Quad struct{}

func (Sprite) isContent() {}
func (Label) isContent()  {}
func (Quad) isContent()   {}

// Rect is a laid out view rectangle in canvas pixels, y down.
type Rect struct {
	X, Y, W, H float32
}

// Contains reports whether p lies inside r. The right and bottom edges are
// exclusive.
func (r Rect) Contains(p mgl32.Vec2) bool {
	return p.X() >= r.X && p.X() < r.X+r.W && p.Y() >= r.Y && p.Y() < r.Y+r.H
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

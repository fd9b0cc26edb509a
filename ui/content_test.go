package ui

import (
	"errors"
	"image"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggui"
	"github.com/gogpu/ggui/atlas"
)

func TestLoadImageDrawsWhenReady(t *testing.T) {
	loader := newStubLoader()
	c := newCanvas(t, ggui.NewContext(ggui.WithAssetLoader(loader)), nil)

	if err := c.LoadImage("img", "x.png"); err != nil {
		t.Fatal(err)
	}
	if loader.requests["img"] != "x.png" {
		t.Fatalf("requests = %v", loader.requests)
	}
	c.AddView(NewSprite("img", 20, 20))

	if m := c.Update(1); len(m) != 0 {
		t.Fatalf("pending content drawn: %+v", m)
	}
	if got := c.Stats().Skipped; got != 1 {
		t.Errorf("Skipped = %d, want 1", got)
	}
	c.OnFrameEnd()

	loader.complete("img", "x.png", solid(4, 4, red), nil)
	m := c.Update(2)
	if len(m) != 1 || m[0].Quads() != 1 {
		t.Fatalf("meshes after load = %+v", m)
	}
	s := c.Stats()
	if s.LoadsStarted != 1 || s.Skipped != 0 || s.Uploads != 1 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestLoadImageFailure(t *testing.T) {
	loader := newStubLoader()
	c := newCanvas(t, ggui.NewContext(ggui.WithAssetLoader(loader)), nil)
	c.LoadImage("img", "x.png")
	c.AddView(NewSprite("img", 20, 20))
	c.Update(1)

	loader.complete("img", "x.png", nil, errors.New("decode failed"))
	if m := c.Update(2); len(m) != 0 {
		t.Errorf("failed content drawn: %+v", m)
	}
	if got := c.Stats().LoadFailures; got != 1 {
		t.Errorf("LoadFailures = %d, want 1", got)
	}
}

func TestRemoveViewKeepsLoad(t *testing.T) {
	loader := newStubLoader()
	c := newCanvas(t, ggui.NewContext(ggui.WithAssetLoader(loader)), nil)
	c.LoadImage("img", "x.png")
	id := c.AddView(NewSprite("img", 20, 20))
	c.Update(1)

	if err := c.RemoveView(id); err != nil {
		t.Fatal(err)
	}
	if len(loader.canceled) != 0 {
		t.Errorf("canceled = %v, want the load kept", loader.canceled)
	}
	loader.complete("img", "x.png", solid(4, 4, red), nil)
	if m := c.Update(2); len(m) != 0 {
		t.Errorf("meshes without views = %+v", m)
	}
	if c.Atlas().Contains("img") {
		t.Error("unreferenced content placed")
	}

	c.AddView(NewSprite("img", 20, 20))
	if m := c.Update(3); len(m) != 1 || m[0].Quads() != 1 {
		t.Fatalf("meshes after re-adding a view = %+v", m)
	}
	if got := c.Stats().LoadsStarted; got != 1 {
		t.Errorf("LoadsStarted = %d, want 1", got)
	}
}

func TestUnregisterImageCancelsLoad(t *testing.T) {
	loader := newStubLoader()
	c := newCanvas(t, ggui.NewContext(ggui.WithAssetLoader(loader)), nil)
	c.LoadImage("img", "x.png")
	id := c.AddView(NewSprite("img", 20, 20))
	c.Update(1)
	c.RemoveView(id)

	if !c.UnregisterImage("img") {
		t.Fatal("UnregisterImage = false for a loading key")
	}
	if !slices.Contains(loader.canceled, "img") {
		t.Errorf("canceled = %v, want img", loader.canceled)
	}

	// A decode that was already running still completes; it must not
	// resurrect the content.
	loader.complete("img", "x.png", solid(4, 4, red), nil)
	if m := c.Update(2); len(m) != 0 {
		t.Errorf("meshes = %+v", m)
	}
	if _, ok := c.contents["img"]; ok {
		t.Error("late completion recreated the content")
	}
	if c.UnregisterImage("img") {
		t.Error("second UnregisterImage = true")
	}
}

func TestUnregisterImageWhileShown(t *testing.T) {
	c := newCanvas(t, nil, nil)
	mustRegister(t, c, "a", solid(4, 4, red))
	c.AddView(NewSprite("a", 10, 10))
	if m := c.Rebuild(); len(m) != 1 {
		t.Fatalf("meshes = %+v", m)
	}

	if !c.UnregisterImage("a") {
		t.Fatal("UnregisterImage = false")
	}
	if c.Atlas().Contains("a") {
		t.Error("unregistered content still placed")
	}
	if m := c.Rebuild(); len(m) != 0 {
		t.Errorf("unregistered content drawn: %+v", m)
	}

	mustRegister(t, c, "a", solid(4, 4, blue))
	if m := c.Rebuild(); len(m) != 1 || m[0].Quads() != 1 {
		t.Errorf("meshes after re-registering = %+v", m)
	}
}

func TestSwapContentAndBack(t *testing.T) {
	c := newCanvas(t, nil, nil)
	mustRegister(t, c, "normal", solid(4, 4, red))
	mustRegister(t, c, "pressed", solid(4, 4, blue))
	id := c.AddView(NewSprite("normal", 10, 10))

	for i, key := range []string{"pressed", "normal", "pressed"} {
		if err := c.SetContent(id, Sprite{Key: atlas.Key(key)}); err != nil {
			t.Fatal(err)
		}
		m := c.Rebuild()
		if len(m) != 1 || m[0].Quads() != 1 {
			t.Fatalf("swap %d to %s: meshes = %+v", i, key, m)
		}
		if got := c.Stats().Skipped; got != 0 {
			t.Errorf("swap %d to %s: Skipped = %d", i, key, got)
		}
		if !c.Atlas().Contains(atlas.Key(key)) {
			t.Errorf("swap %d: %s not placed", i, key)
		}
	}
	if c.Atlas().Contains("normal") {
		t.Error("unshown content kept its atlas space")
	}
}

func TestReaddViewDrawsRegisteredContent(t *testing.T) {
	c := newCanvas(t, nil, nil)
	mustRegister(t, c, "a", solid(4, 4, red))
	id := c.AddView(NewSprite("a", 10, 10))
	c.Rebuild()
	if err := c.RemoveView(id); err != nil {
		t.Fatal(err)
	}
	if m := c.Rebuild(); len(m) != 0 {
		t.Fatalf("meshes = %+v", m)
	}

	c.AddView(NewSprite("a", 10, 10))
	if m := c.Rebuild(); len(m) != 1 || m[0].Quads() != 1 {
		t.Fatalf("meshes after re-adding = %+v", m)
	}
	if got := c.Stats().Uploads; got != 2 {
		t.Errorf("Uploads = %d, want 2", got)
	}
}

func TestRegisterImageRejectsReservedKey(t *testing.T) {
	c := newCanvas(t, nil, nil)
	if err := c.RegisterImage(whiteKey, solid(2, 2, red)); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("RegisterImage(white) = %v, want ErrInvalidImage", err)
	}
}

func TestReloadDiscardsOlderPath(t *testing.T) {
	loader := newStubLoader()
	c := newCanvas(t, ggui.NewContext(ggui.WithAssetLoader(loader)), nil)
	c.AddView(NewSprite("img", 20, 20))
	c.LoadImage("img", "old.png")
	if err := c.LoadImage("img", "new.png"); err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(loader.canceled, "img") {
		t.Error("old load not canceled")
	}

	loader.complete("img", "old.png", solid(4, 4, red), nil)
	if m := c.Update(1); len(m) != 0 {
		t.Fatal("stale path drawn")
	}
	loader.complete("img", "new.png", solid(4, 4, blue), nil)
	if m := c.Update(2); len(m) != 1 {
		t.Fatal("new path not drawn")
	}
}

func TestRegisterImageCancelsLoad(t *testing.T) {
	loader := newStubLoader()
	c := newCanvas(t, ggui.NewContext(ggui.WithAssetLoader(loader)), nil)
	c.AddView(NewSprite("img", 20, 20))
	c.LoadImage("img", "x.png")
	mustRegister(t, c, "img", solid(4, 4, blue))
	if !slices.Contains(loader.canceled, "img") {
		t.Error("pending load not canceled")
	}

	loader.complete("img", "x.png", solid(8, 8, red), nil)
	c.Update(1)
	if pl, _ := c.Atlas().Lookup("img"); pl.Rect.Width != 4 {
		t.Errorf("placement %v, want the registered 4x4 image", pl.Rect)
	}
}

func TestLoadImageErrors(t *testing.T) {
	c := newCanvas(t, nil, nil)
	if err := c.LoadImage("img", "x.png"); !errors.Is(err, ErrNoLoader) {
		t.Errorf("without loader = %v, want ErrNoLoader", err)
	}

	loader := newStubLoader()
	loader.requests["img"] = "elsewhere.png"
	c = newCanvas(t, ggui.NewContext(ggui.WithAssetLoader(loader)), nil)
	if err := c.LoadImage("img", "x.png"); !errors.Is(err, ErrLoadRejected) {
		t.Errorf("rejected request = %v, want ErrLoadRejected", err)
	}
}

func TestLabelMesh(t *testing.T) {
	c := newCanvas(t, ggui.NewContext(ggui.WithGlyphSource(stubGlyphs{})), nil)
	v := NewLabel("ab", 10, 100, 20)
	v.Content = Label{Text: "ab", Size: 10, Align: TextCenter, VAlign: TextBottom}
	v.Offset = mgl32.Vec2{5, 5}
	c.AddView(v)

	m := c.Rebuild()
	if len(m) != 1 || m[0].Quads() != 2 {
		t.Fatalf("meshes = %+v, want 2 glyph quads", m)
	}
	// Line width 20 centred in 100, block height 12 at the bottom of 20.
	if got := m[0].Vertices[0].Pos; got != (mgl32.Vec2{45, 14}) {
		t.Errorf("first glyph at %v, want 45,14", got)
	}
	if got := m[0].Vertices[6].Pos; got != (mgl32.Vec2{63, 24}) {
		t.Errorf("second glyph ends at %v, want 63,24", got)
	}
	if c.Stats().Uploads != 2 {
		t.Errorf("Uploads = %d, want 2", c.Stats().Uploads)
	}
}

func TestLabelSharesGlyphs(t *testing.T) {
	tex := ggui.NewMemoryTextures()
	c := newCanvas(t, ggui.NewContext(ggui.WithTextureProvider(tex), ggui.WithGlyphSource(stubGlyphs{})), nil)
	c.AddView(NewLabel("a a\na", 10, 100, 50))

	m := c.Rebuild()
	if len(m) != 1 || m[0].Quads() != 3 {
		t.Fatalf("meshes = %+v, want 3 glyph quads", m)
	}
	if tex.Uploads() != 1 {
		t.Errorf("uploads = %d, want 1 for a repeated glyph", tex.Uploads())
	}
	if got := m[0].Vertices[8].Pos; got != (mgl32.Vec2{0, 13}) {
		t.Errorf("second line glyph at %v", got)
	}

	img, _ := tex.Image(m[0].Texture)
	pl, _ := c.Atlas().Lookup("g:a")
	if got := img.RGBAAt(pl.Rect.X, pl.Rect.Y); got.A != 0xff || got.R != 0xff {
		t.Errorf("glyph texel = %v, want opaque white", got)
	}
}

func TestLabelWithoutGlyphSource(t *testing.T) {
	c := newCanvas(t, nil, nil)
	c.AddView(NewLabel("hi", 10, 100, 20))
	if m := c.Rebuild(); len(m) != 0 {
		t.Errorf("meshes = %+v", m)
	}
	if got := c.Stats().Skipped; got != 1 {
		t.Errorf("Skipped = %d, want 1", got)
	}
}

func TestTightRGBA(t *testing.T) {
	img := solid(8, 8, red)
	if tightRGBA(img) != img {
		t.Error("tight image copied")
	}
	sub := img.SubImage(img.Rect.Inset(2)).(*image.RGBA)
	out := tightRGBA(sub)
	if out == sub || out.Rect.Min.X != 0 || out.Rect.Dx() != 4 || out.Stride != 16 {
		t.Errorf("tightRGBA(sub) = %v stride %d", out.Rect, out.Stride)
	}
}

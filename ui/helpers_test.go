package ui

import (
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/ggui"
	"github.com/gogpu/ggui/atlas"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func testConfig() CanvasConfig {
	cfg := DefaultCanvasConfig()
	cfg.Width, cfg.Height = 200, 200
	cfg.Atlas.LayerWidth, cfg.Atlas.LayerHeight = 256, 256
	cfg.Rebuild = RebuildPolicy{}
	return cfg
}

func newCanvas(t *testing.T, ctx *ggui.Context, mutate func(*CanvasConfig)) *Canvas {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := NewCanvas(ctx, cfg)
	if err != nil {
		t.Fatalf("NewCanvas: %v", err)
	}
	return c
}

func mustRegister(t *testing.T, c *Canvas, key atlas.Key, img *image.RGBA) {
	t.Helper()
	if err := c.RegisterImage(key, img); err != nil {
		t.Fatalf("RegisterImage(%q): %v", key, err)
	}
}

// stubLoader completes loads only when the test says so.
type stubLoader struct {
	requests map[string]string
	canceled []string
	done     []ggui.AssetResult
}

func newStubLoader() *stubLoader {
	return &stubLoader{requests: make(map[string]string)}
}

func (l *stubLoader) Request(key, path string) bool {
	if _, ok := l.requests[key]; ok {
		return false
	}
	l.requests[key] = path
	return true
}

func (l *stubLoader) Cancel(key string) {
	delete(l.requests, key)
	l.canceled = append(l.canceled, key)
}

func (l *stubLoader) Poll(fn func(ggui.AssetResult)) int {
	done := l.done
	l.done = nil
	for _, r := range done {
		fn(r)
	}
	return len(done)
}

// complete finishes a load even if it was canceled, like a decode that was
// already running.
func (l *stubLoader) complete(key, path string, img *image.RGBA, err error) {
	delete(l.requests, key)
	l.done = append(l.done, ggui.AssetResult{Key: key, Path: path, Image: img, Err: err})
}

// stubGlyphs lays out every rune as an 8x10 box on a 10 pixel advance and
// 12 pixel lines.
type stubGlyphs struct{}

func (stubGlyphs) Layout(text string, size float32) (ggui.TextLayout, error) {
	var out ggui.TextLayout
	line := ggui.LineMetrics{}
	var y float32
	flush := func() {
		line.Last = len(out.Glyphs)
		out.Lines = append(out.Lines, line)
		out.Width = max(out.Width, line.Width)
		line = ggui.LineMetrics{First: len(out.Glyphs)}
		y += 12
	}
	for _, r := range text {
		if r == '\n' {
			flush()
			continue
		}
		if r != ' ' {
			out.Glyphs = append(out.Glyphs, ggui.Glyph{
				Key: "g:" + string(r), X: line.Width, Y: y + 1, Width: 8, Height: 10,
			})
		}
		line.Width += 10
	}
	flush()
	out.Height = y
	return out, nil
}

func (stubGlyphs) Mask(key string) (*image.Alpha, bool) {
	m := image.NewAlpha(image.Rect(0, 0, 8, 10))
	for i := range m.Pix {
		m.Pix[i] = 0xff
	}
	return m, true
}

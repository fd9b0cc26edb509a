package main

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggui/atlas"
	"github.com/gogpu/ggui/input"
	"github.com/gogpu/ggui/ui"
)

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// imageFiles lists the decodable images directly inside dir.
func imageFiles(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, e.Name())
		}
	}
	return files, nil
}

// scene is the demo view tree: a panel with a title, a button, a progress
// bar, a radial spinner and a row of sprites loaded from disk.
type scene struct {
	panel, button, bar, spinner ui.ViewID
	taps                        int
}

func buildScene(canvas *ui.Canvas, files []string) (*scene, error) {
	if err := canvas.RegisterImage("panel", framedImage(24, 24, 6,
		color.RGBA{R: 40, G: 44, B: 52, A: 255}, color.RGBA{R: 200, G: 200, B: 210, A: 255})); err != nil {
		return nil, err
	}
	if err := canvas.RegisterImage("checker", checker(16, 4)); err != nil {
		return nil, err
	}

	s := &scene{}
	panel := ui.NewSprite("panel", -40, -40)
	panel.Name = "panel"
	panel.AlignH, panel.AlignV = ui.AlignStretchH, ui.AlignStretchV
	panel.Offset = mgl32.Vec2{20, 20}
	panel.Content = ui.Sprite{Key: "panel", Mode: ui.SpriteSliced, Border: ui.Border{Left: 6, Top: 6, Right: 6, Bottom: 6}}
	s.panel = canvas.AddView(panel)

	title := ui.NewLabel("ggui demo", 20, -24, 28)
	title.Name = "title"
	title.AlignH = ui.AlignStretchH
	title.Offset = mgl32.Vec2{12, 10}
	title.Content = ui.Label{Text: "ggui demo", Size: 20, Align: ui.TextCenter}
	title.DrawOrder = 1
	if _, err := canvas.AddChild(s.panel, title); err != nil {
		return nil, err
	}

	button := ui.NewQuad(color.NRGBA{R: 60, G: 120, B: 220, A: 255}, 120, 36)
	button.Name = "button"
	button.AlignH, button.AlignV = ui.AlignCenter, ui.AlignMiddle
	button.Pivot = mgl32.Vec2{0.5, 0.5}
	button.DrawOrder = 1
	button.OnTouch = func(_ ui.ViewID, t input.Touch) {
		if t.Phase == input.Ended {
			s.taps++
		}
	}
	var err error
	if s.button, err = canvas.AddChild(s.panel, button); err != nil {
		return nil, err
	}
	caption := ui.NewLabel("Tap", 16, 0, 0)
	caption.AlignH, caption.AlignV = ui.AlignStretchH, ui.AlignStretchV
	caption.Content = ui.Label{Text: "Tap", Size: 16, Align: ui.TextCenter, VAlign: ui.TextMiddle}
	caption.IgnoreInput = true
	if _, err := canvas.AddChild(s.button, caption); err != nil {
		return nil, err
	}

	bar := ui.NewSprite("checker", -48, 12)
	bar.Name = "progress"
	bar.AlignH, bar.AlignV = ui.AlignStretchH, ui.AlignBottom
	bar.Offset = mgl32.Vec2{24, -24}
	bar.Pivot = mgl32.Vec2{0, 1}
	bar.DrawOrder = 1
	bar.Content = ui.Sprite{Key: "checker", Mode: ui.SpriteFilled, Fill: ui.FillHorizontal}
	if s.bar, err = canvas.AddChild(s.panel, bar); err != nil {
		return nil, err
	}

	spinner := ui.NewSprite("checker", 24, 24)
	spinner.Name = "spinner"
	spinner.AlignH = ui.AlignRight
	spinner.Offset = mgl32.Vec2{-12, 8}
	spinner.Pivot = mgl32.Vec2{1, 0}
	spinner.DrawOrder = 2
	spinner.Content = ui.Sprite{Key: "checker", Mode: ui.SpriteFilled, Fill: ui.FillRadial360, FillOrigin: ui.FillTop, FillClockwise: true}
	if s.spinner, err = canvas.AddChild(s.panel, spinner); err != nil {
		return nil, err
	}

	for i, name := range files {
		key := atlas.Key("file:" + name)
		if err := canvas.LoadImage(key, name); err != nil {
			return nil, err
		}
		v := ui.NewSprite(key, 48, 48)
		v.Name = name
		v.Offset = mgl32.Vec2{float32(16 + i*56), 48}
		v.DrawOrder = 2
		if _, err := canvas.AddChild(s.panel, v); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// animate advances the progress bar and, given a queue, taps the button.
func (s *scene) animate(canvas *ui.Canvas, frame int, touches *input.Queue) {
	_ = canvas.Modify(s.bar, func(v *ui.View) {
		sp := v.Content.(ui.Sprite)
		sp.FillAmount = float32(frame%60) / 59
		v.Content = sp
	})
	_ = canvas.Modify(s.spinner, func(v *ui.View) {
		sp := v.Content.(ui.Sprite)
		sp.FillAmount = float32(frame%30) / 29
		v.Content = sp
	})

	const tapFrame = 10
	if touches == nil || (frame != tapFrame && frame != tapFrame+2) {
		return
	}
	r, ok := canvas.Rect(s.button)
	if !ok {
		return
	}
	phase := input.Began
	if frame == tapFrame+2 {
		phase = input.Ended
	}
	touches.Push(input.Touch{
		Phase:    phase,
		X:        r.X + r.W/2,
		Y:        r.Y + r.H/2,
		Time:     time.Duration(frame) * time.Second / 60,
		TapCount: 1,
	})
}

// framedImage is a solid image with a border of another color, suitable
// for nine-slicing.
func framedImage(w, h, border int, fill, edge color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := fill
			if x < border || y < border || x >= w-border || y >= h-border {
				c = edge
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func checker(size, cell int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := color.RGBA{R: 90, G: 200, B: 120, A: 255}
			if (x/cell+y/cell)%2 == 1 {
				c = color.RGBA{R: 60, G: 160, B: 90, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

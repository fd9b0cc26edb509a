//go:build !nogpu

package native

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/ggui"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

type layer struct {
	tex           hal.Texture
	view          hal.TextureView
	width, height int
}

// Textures is a ggui.TextureProvider backed by HAL textures. Uploads go
// through queue.WriteTexture and are ordered with later submissions.
//
// Textures is safe for concurrent use.
type Textures struct {
	dev *Device

	mu     sync.RWMutex
	next   ggui.TextureHandle
	layers map[ggui.TextureHandle]*layer
}

// NewTextures creates an empty texture provider on dev.
func NewTextures(dev *Device) *Textures {
	return &Textures{dev: dev, layers: make(map[ggui.TextureHandle]*layer)}
}

// CreateAtlasLayer creates a sampled RGBA8 texture and its view.
func (t *Textures) CreateAtlasLayer(width, height int, format gputypes.TextureFormat) (ggui.TextureHandle, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("%w: %dx%d", ggui.ErrInvalidTexture, width, height)
	}
	if format != gputypes.TextureFormatRGBA8Unorm {
		return 0, fmt.Errorf("%w: format %v", ggui.ErrUnsupportedFormat, format)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	label := fmt.Sprintf("ggui_atlas_%d", t.next)

	device := t.dev.device
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1}, //nolint:gosec // positive, checked above
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return 0, fmt.Errorf("native: create %s: %w", label, err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		device.DestroyTexture(tex)
		return 0, fmt.Errorf("native: create %s view: %w", label, err)
	}

	t.layers[t.next] = &layer{tex: tex, view: view, width: width, height: height}
	ggui.Logger().Debug("native: atlas layer created", "texture", t.next, "width", width, "height", height)
	return t.next, nil
}

// UploadRegion writes tightly packed RGBA8 pixels into rect.
func (t *Textures) UploadRegion(tex ggui.TextureHandle, rect image.Rectangle, pixels []byte) error {
	t.mu.RLock()
	l, ok := t.layers[tex]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: handle %d", ErrUnknownTexture, tex)
	}
	if err := ggui.CheckRegion(l.width, l.height, rect, pixels); err != nil {
		return err
	}

	w, h := uint32(rect.Dx()), uint32(rect.Dy()) //nolint:gosec // rect is inside the layer
	t.dev.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  l.tex,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: uint32(rect.Min.X), Y: uint32(rect.Min.Y)}, //nolint:gosec // rect is inside the layer
		},
		pixels,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	return nil
}

// DestroyTexture releases a layer. Unknown handles are ignored.
func (t *Textures) DestroyTexture(tex ggui.TextureHandle) {
	t.mu.Lock()
	l, ok := t.layers[tex]
	delete(t.layers, tex)
	t.mu.Unlock()
	if !ok {
		return
	}
	t.dev.device.DestroyTextureView(l.view)
	t.dev.device.DestroyTexture(l.tex)
}

// View returns the texture view of a layer.
func (t *Textures) View(tex ggui.TextureHandle) (hal.TextureView, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	l, ok := t.layers[tex]
	if !ok {
		return nil, false
	}
	return l.view, true
}

// Len returns the number of live layers.
func (t *Textures) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.layers)
}

// Close destroys every layer.
func (t *Textures) Close() {
	t.mu.Lock()
	layers := t.layers
	t.layers = make(map[ggui.TextureHandle]*layer)
	t.mu.Unlock()
	for _, l := range layers {
		t.dev.device.DestroyTextureView(l.view)
		t.dev.device.DestroyTexture(l.tex)
	}
}

var _ ggui.TextureProvider = (*Textures)(nil)

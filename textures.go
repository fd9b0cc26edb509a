package ggui

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gputypes"
)

// TextureHandle identifies a texture created by a TextureProvider.
// Zero is never a valid handle.
type TextureHandle uint64

// TextureProvider creates atlas layer textures and fills regions of them.
//
// The canvas calls CreateAtlasLayer once per atlas layer and UploadRegion
// once per newly placed entry. Pixels are tightly packed RGBA8 rows.
type TextureProvider interface {
	CreateAtlasLayer(width, height int, format gputypes.TextureFormat) (TextureHandle, error)
	UploadRegion(tex TextureHandle, rect image.Rectangle, pixels []byte) error
	DestroyTexture(tex TextureHandle)
}

// MemoryTextures is a TextureProvider that keeps layers in CPU memory.
// It backs headless runs and tests, and lets callers read layers back for
// inspection.
//
// MemoryTextures is safe for concurrent use.
type MemoryTextures struct {
	mu      sync.Mutex
	next    TextureHandle
	layers  map[TextureHandle]*image.RGBA
	uploads int
}

// NewMemoryTextures creates an empty in-memory texture provider.
func NewMemoryTextures() *MemoryTextures {
	return &MemoryTextures{layers: make(map[TextureHandle]*image.RGBA)}
}

// CreateAtlasLayer allocates a transparent layer.
func (m *MemoryTextures) CreateAtlasLayer(width, height int, format gputypes.TextureFormat) (TextureHandle, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("%w: %dx%d", ErrInvalidTexture, width, height)
	}
	if format != gputypes.TextureFormatRGBA8Unorm {
		return 0, fmt.Errorf("%w: format %v", ErrUnsupportedFormat, format)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.layers[m.next] = image.NewRGBA(image.Rect(0, 0, width, height))
	return m.next, nil
}

// UploadRegion copies RGBA8 pixels into rect.
func (m *MemoryTextures) UploadRegion(tex TextureHandle, rect image.Rectangle, pixels []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	img, ok := m.layers[tex]
	if !ok {
		return fmt.Errorf("%w: handle %d", ErrInvalidTexture, tex)
	}
	if err := checkRegion(img.Bounds(), rect, pixels); err != nil {
		return err
	}

	stride := rect.Dx() * 4
	for y := 0; y < rect.Dy(); y++ {
		dst := img.PixOffset(rect.Min.X, rect.Min.Y+y)
		copy(img.Pix[dst:dst+stride], pixels[y*stride:(y+1)*stride])
	}
	m.uploads++
	return nil
}

// DestroyTexture releases a layer. Unknown handles are ignored.
func (m *MemoryTextures) DestroyTexture(tex TextureHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.layers, tex)
}

// Image returns a copy of the layer contents.
func (m *MemoryTextures) Image(tex TextureHandle) (*image.RGBA, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	img, ok := m.layers[tex]
	if !ok {
		return nil, false
	}
	out := image.NewRGBA(img.Rect)
	copy(out.Pix, img.Pix)
	return out, true
}

// Uploads returns the number of successful UploadRegion calls.
func (m *MemoryTextures) Uploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploads
}

// Len returns the number of live layers.
func (m *MemoryTextures) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.layers)
}

func checkRegion(bounds, rect image.Rectangle, pixels []byte) error {
	if rect.Empty() || !rect.In(bounds) {
		return fmt.Errorf("%w: %v outside %v", ErrInvalidRegion, rect, bounds)
	}
	if want := rect.Dx() * rect.Dy() * 4; len(pixels) != want {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidRegion, len(pixels), want)
	}
	return nil
}

// CheckRegion validates an UploadRegion call against a layer of the given
// size. Providers other than MemoryTextures use it to reject bad uploads
// before touching the GPU.
func CheckRegion(width, height int, rect image.Rectangle, pixels []byte) error {
	return checkRegion(image.Rect(0, 0, width, height), rect, pixels)
}

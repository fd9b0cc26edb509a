package ui

import (
	"fmt"
	"image"

	"github.com/gogpu/ggui"
	"github.com/gogpu/ggui/atlas"
)

// whiteKey holds a small opaque white block that quads sample from its
// centre, so solid views batch with textured ones.
const whiteKey atlas.Key = "ui:white"

type contentState uint8

const (
	// contentMissing is referenced by a view but nothing was registered.
	contentMissing contentState = iota
	contentPending
	contentReady
	contentFailed
	// contentGlyph is rasterized by the glyph source on first placement.
	contentGlyph
)

// content is the pixel source of one atlas key.
type content struct {
	state  contentState
	img    *image.RGBA
	path   string
	refs   int
	pinned bool

	// registered content came from RegisterImage or LoadImage and
	// outlives the views that show it until UnregisterImage.
	registered bool

	// gen is the placement generation last uploaded; a different
	// generation means the pixels are not in the atlas where the cache
	// says they are.
	gen uint64
}

// RegisterImage stores img under key. The pixels are copied. A previous
// image or pending load under the same key is replaced.
//
// Registered pixels stay with the canvas while no view shows them, so a
// view can switch away from key and back. UnregisterImage drops them.
func (c *Canvas) RegisterImage(key atlas.Key, img *image.RGBA) error {
	if img == nil || img.Rect.Empty() {
		return fmt.Errorf("%w: key %q", ErrInvalidImage, key)
	}
	if key == whiteKey {
		return fmt.Errorf("%w: key %q is reserved", ErrInvalidImage, key)
	}
	e := c.entry(key, contentMissing)
	if e.state == contentPending {
		c.cancelLoad(key)
	}
	e.state = contentReady
	e.img = copyRGBA(img)
	e.path = ""
	e.registered = true
	c.replaced(key, e)
	return nil
}

// UnregisterImage drops the pixels registered or loaded under key, cancels
// a pending load and frees its atlas space. Views still showing key are
// skipped until it is registered again. It reports whether key was known.
func (c *Canvas) UnregisterImage(key atlas.Key) bool {
	e, ok := c.contents[key]
	if !ok || !e.registered {
		return false
	}
	if e.state == contentPending {
		c.cancelLoad(key)
	}
	e.registered = false
	e.path = ""
	e.state = contentMissing
	e.img = nil
	c.replaced(key, e)
	if e.refs <= 0 {
		delete(c.contents, key)
	}
	return true
}

// LoadImage starts an asynchronous load of path into key. Until the load
// completes, views showing key are skipped. A failed load leaves them
// skipped and logs a warning.
func (c *Canvas) LoadImage(key atlas.Key, path string) error {
	l := c.ctx.Loader()
	if l == nil {
		return ErrNoLoader
	}
	e := c.entry(key, contentMissing)
	if e.state == contentPending && e.path == path {
		return nil
	}
	if e.state == contentPending {
		c.cancelLoad(key)
	}
	e.state = contentPending
	e.img = nil
	e.path = path
	e.registered = true
	c.replaced(key, e)

	if !l.Request(string(key), path) {
		e.state = contentFailed
		return fmt.Errorf("%w: key %q path %s", ErrLoadRejected, key, path)
	}
	c.stats.LoadsStarted++
	return nil
}

// entry returns the content for key, creating it in state if missing.
func (c *Canvas) entry(key atlas.Key, state contentState) *content {
	e, ok := c.contents[key]
	if !ok {
		e = &content{state: state}
		c.contents[key] = e
	}
	return e
}

// replaced drops any placement of key so the next rebuild uploads the new
// pixels at their own size.
func (c *Canvas) replaced(key atlas.Key, e *content) {
	e.gen = 0
	if c.atlas.Evict(key) {
		c.packChanged = true
	}
	if e.refs > 0 {
		c.markDirty()
	}
}

func (c *Canvas) cancelLoad(key atlas.Key) {
	if l := c.ctx.Loader(); l != nil {
		l.Cancel(string(key))
	}
}

// onAsset applies a load completion. Completions for keys that were
// dropped or re-registered meanwhile are discarded.
func (c *Canvas) onAsset(res ggui.AssetResult) {
	key := atlas.Key(res.Key)
	e, ok := c.contents[key]
	if !ok || e.state != contentPending || e.path != res.Path {
		ggui.Logger().Debug("ui: discarding stale load", "key", res.Key, "path", res.Path)
		return
	}
	if res.Err != nil || res.Image == nil || res.Image.Rect.Empty() {
		e.state = contentFailed
		c.stats.LoadFailures++
		ggui.Logger().Warn("ui: image load failed", "key", res.Key, "path", res.Path, "err", res.Err)
		return
	}
	e.state = contentReady
	e.img = tightRGBA(res.Image)
	c.replaced(key, e)
}

// acquire takes a reference on every key.
func (c *Canvas) acquire(keys []atlas.Key, state contentState) {
	for _, k := range keys {
		c.entry(k, state).refs++
	}
}

// release drops a reference on every key. Keys nobody references any more
// lose their atlas space. Registered and loaded keys keep their pixels;
// glyphs and unregistered references are dropped entirely.
func (c *Canvas) release(keys []atlas.Key) {
	for _, k := range keys {
		e, ok := c.contents[k]
		if !ok {
			continue
		}
		e.refs--
		if e.refs > 0 || e.pinned {
			continue
		}
		if c.atlas.Evict(k) {
			c.packChanged = true
		}
		e.gen = 0
		if e.registered {
			continue
		}
		if e.state == contentPending {
			c.cancelLoad(k)
		}
		delete(c.contents, k)
	}
}

// pixels returns the image for e, rasterizing glyphs on first use.
func (c *Canvas) pixels(key atlas.Key, e *content) (*image.RGBA, bool) {
	switch e.state {
	case contentReady:
		return e.img, true
	case contentGlyph:
		gs := c.ctx.Glyphs()
		if gs == nil {
			e.state = contentFailed
			return nil, false
		}
		mask, ok := gs.Mask(string(key))
		if !ok || mask.Rect.Empty() {
			e.state = contentFailed
			return nil, false
		}
		e.img = alphaToRGBA(mask)
		e.state = contentReady
		return e.img, true
	}
	return nil, false
}

// padded returns img surrounded by pad pixels copied from its nearest
// edge, so that filtering at the content border never reads a neighbour.
func padded(img *image.RGBA, pad int) *image.RGBA {
	if pad <= 0 {
		return img
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w+2*pad, h+2*pad))
	for y := 0; y < h+2*pad; y++ {
		sy := min(max(y-pad, 0), h-1)
		for x := 0; x < w+2*pad; x++ {
			sx := min(max(x-pad, 0), w-1)
			si := img.PixOffset(img.Rect.Min.X+sx, img.Rect.Min.Y+sy)
			di := out.PixOffset(x, y)
			copy(out.Pix[di:di+4], img.Pix[si:si+4])
		}
	}
	return out
}

// tightRGBA returns img with origin bounds and no row padding, copying
// only when needed.
func tightRGBA(img *image.RGBA) *image.RGBA {
	if img.Rect.Min == (image.Point{}) && img.Stride == 4*img.Rect.Dx() {
		return img
	}
	return copyRGBA(img)
}

func copyRGBA(img *image.RGBA) *image.RGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		si := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(out.Pix[y*out.Stride:(y+1)*out.Stride], img.Pix[si:si+4*w])
	}
	return out
}

// alphaToRGBA turns a coverage mask into premultiplied white.
func alphaToRGBA(mask *image.Alpha) *image.RGBA {
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := mask.Pix[mask.PixOffset(mask.Rect.Min.X+x, mask.Rect.Min.Y+y)]
			i := out.PixOffset(x, y)
			out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = a, a, a, a
		}
	}
	return out
}

func whiteBlock() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

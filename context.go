package ggui

import "github.com/gogpu/gputypes"

// Context carries the collaborators shared by a canvas and its GPU
// resource synchronization: where textures live, how assets are loaded,
// how label text is shaped, and how strictly binding errors are treated.
//
// A Context is immutable after NewContext and may be shared by several
// canvases.
type Context struct {
	textures TextureProvider
	loader   AssetLoader
	glyphs   GlyphSource
	mode     BuildMode
	format   gputypes.TextureFormat
}

// NewContext creates a Context. Without WithTextureProvider, layers are kept
// in a fresh MemoryTextures.
//
// Example:
//
//	loader := assets.NewLoader(assets.DefaultConfig())
//	ctx := ggui.NewContext(
//	    ggui.WithTextureProvider(native.NewTextures(device, queue)),
//	    ggui.WithAssetLoader(loader),
//	    ggui.WithBuildMode(ggui.BuildRelease),
//	)
func NewContext(opts ...Option) *Context {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.textures == nil {
		o.textures = NewMemoryTextures()
	}
	return &Context{
		textures: o.textures,
		loader:   o.loader,
		glyphs:   o.glyphs,
		mode:     o.mode,
		format:   o.format,
	}
}

// Textures returns the texture provider.
func (c *Context) Textures() TextureProvider { return c.textures }

// Loader returns the asset loader, or nil if assets must be registered
// directly.
func (c *Context) Loader() AssetLoader { return c.loader }

// Glyphs returns the glyph source, or nil if labels are unsupported.
func (c *Context) Glyphs() GlyphSource { return c.glyphs }

// BuildMode returns the binding error mode.
func (c *Context) BuildMode() BuildMode { return c.mode }

// AtlasFormat returns the pixel format used for atlas layers.
func (c *Context) AtlasFormat() gputypes.TextureFormat { return c.format }

package ggui

import "github.com/gogpu/gputypes"

// Option configures a Context during creation.
type Option func(*options)

type options struct {
	textures TextureProvider
	loader   AssetLoader
	glyphs   GlyphSource
	mode     BuildMode
	format   gputypes.TextureFormat
}

func defaultOptions() options {
	return options{
		mode:   BuildDebug,
		format: gputypes.TextureFormatRGBA8Unorm,
	}
}

// WithTextureProvider sets where atlas layers are created and uploaded.
func WithTextureProvider(p TextureProvider) Option {
	return func(o *options) {
		o.textures = p
	}
}

// WithAssetLoader sets the asynchronous image loader used by
// Canvas.LoadImage.
func WithAssetLoader(l AssetLoader) Option {
	return func(o *options) {
		o.loader = l
	}
}

// WithGlyphSource sets the shaper and rasterizer used by label views.
func WithGlyphSource(g GlyphSource) Option {
	return func(o *options) {
		o.glyphs = g
	}
}

// WithBuildMode selects debug (panic) or release (log) handling of binding
// contract violations. The default is BuildDebug.
func WithBuildMode(m BuildMode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithAtlasFormat overrides the atlas layer pixel format.
// Default: gputypes.TextureFormatRGBA8Unorm
func WithAtlasFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		o.format = f
	}
}

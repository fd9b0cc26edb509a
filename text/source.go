package text

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/bidi"

	"github.com/gogpu/ggui"
	"github.com/gogpu/ggui/internal/cache"
)

const keyPrefix = "glyph:"

// Source shapes label text with HarfBuzz (go-text/typesetting) and
// rasterizes glyph coverage masks from the font outlines. It implements
// ggui.GlyphSource.
//
// Every distinct (face, size, glyph) triple has its own content key, so a
// glyph shared by many labels occupies one atlas slot.
//
// Source is safe for concurrent use.
type Source struct {
	cfg  Config
	font *font.Font
	sf   *sfnt.Font
	lang language.Language

	mu     sync.Mutex
	buf    sfnt.Buffer
	shaper shaping.HarfbuzzShaper

	masks *cache.Cache[string, *image.Alpha]
}

// New parses the configured font and creates a Source.
func New(cfg Config) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	face, err := font.ParseTTF(bytes.NewReader(cfg.FontData))
	if err != nil {
		return nil, &FontError{Name: cfg.Name, Err: err}
	}
	sf, err := sfnt.Parse(cfg.FontData)
	if err != nil {
		return nil, &FontError{Name: cfg.Name, Err: err}
	}

	return &Source{
		cfg:   cfg,
		font:  face.Font,
		sf:    sf,
		lang:  language.NewLanguage(cfg.Language),
		masks: cache.New[string, *image.Alpha](cfg.MaskCacheSize),
	}, nil
}

// Name returns the face name used in glyph keys.
func (s *Source) Name() string { return s.cfg.Name }

// Layout shapes text at size pixels per em. Lines are split on '\n'; the
// origin is the top-left corner of the first line box.
func (s *Source) Layout(text string, size float32) (ggui.TextLayout, error) {
	if size <= 0 || math.IsNaN(float64(size)) {
		return ggui.TextLayout{}, fmt.Errorf("%w: %g", ErrInvalidSize, size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ppem := fixed.Int26_6(size * 64)
	m, err := s.sf.Metrics(&s.buf, ppem, xfont.HintingNone)
	if err != nil {
		return ggui.TextLayout{}, &FontError{Name: s.cfg.Name, Err: err}
	}
	ascent := fixedToFloat(m.Ascent)
	lineHeight := fixedToFloat(m.Height) * s.cfg.LineSpacing

	out := ggui.TextLayout{RTL: isRTL(text)}
	face := font.NewFace(s.font)

	for i, line := range strings.Split(text, "\n") {
		baseline := float32(i)*lineHeight + ascent
		lm := ggui.LineMetrics{First: len(out.Glyphs)}
		lm.Width = s.shapeLine(&out, face, line, size, ppem, baseline, out.RTL)
		lm.Last = len(out.Glyphs)

		out.Lines = append(out.Lines, lm)
		out.Width = max(out.Width, lm.Width)
	}
	out.Height = float32(len(out.Lines)) * lineHeight
	return out, nil
}

// shapeLine appends the positioned glyphs of one line and returns its
// advance width. Must be called with s.mu held.
func (s *Source) shapeLine(out *ggui.TextLayout, face *font.Face, line string, size float32, ppem fixed.Int26_6, baseline float32, rtl bool) float32 {
	runes := []rune(line)
	if len(runes) == 0 {
		return 0
	}

	dir := di.DirectionLTR
	if rtl {
		dir = di.DirectionRTL
	}
	shaped := s.shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: dir,
		Face:      face,
		Size:      ppem,
		Script:    detectScript(runes),
		Language:  s.lang,
	})

	var pen float32
	for _, g := range shaped.Glyphs {
		gid := sfnt.GlyphIndex(g.GlyphID) //nolint:gosec // glyph ids fit in 16 bits for sfnt fonts
		if r, ok := s.pixelBounds(gid, ppem); ok {
			out.Glyphs = append(out.Glyphs, ggui.Glyph{
				Key:    GlyphKey(s.cfg.Name, size, uint16(gid)),
				X:      pen + fixedToFloat(g.XOffset) + float32(r.Min.X),
				Y:      baseline - fixedToFloat(g.YOffset) + float32(r.Min.Y),
				Width:  r.Dx(),
				Height: r.Dy(),
			})
		}
		pen += fixedToFloat(g.Advance)
	}
	return pen
}

// Mask rasterizes the coverage mask for a key produced by Layout. Keys of
// other faces report false.
func (s *Source) Mask(key string) (*image.Alpha, bool) {
	if m, ok := s.masks.Get(key); ok {
		return m, true
	}

	name, size, gid, ok := ParseGlyphKey(key)
	if !ok || name != s.cfg.Name {
		return nil, false
	}

	s.mu.Lock()
	mask, ok := s.rasterize(sfnt.GlyphIndex(gid), fixed.Int26_6(size*64))
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	s.masks.Set(key, mask)
	return mask, true
}

// CacheStats returns the glyph mask cache counters.
func (s *Source) CacheStats() cache.Stats {
	return s.masks.Stats()
}

// pixelBounds returns the glyph's pixel-aligned ink box relative to its
// origin on the baseline, y down. Must be called with s.mu held.
func (s *Source) pixelBounds(gid sfnt.GlyphIndex, ppem fixed.Int26_6) (image.Rectangle, bool) {
	b, _, err := s.sf.GlyphBounds(&s.buf, gid, ppem, xfont.HintingNone)
	if err != nil {
		return image.Rectangle{}, false
	}
	r := image.Rect(b.Min.X.Floor(), b.Min.Y.Floor(), b.Max.X.Ceil(), b.Max.Y.Ceil())
	return r, !r.Empty()
}

// GlyphKey returns the atlas content key of a glyph.
func GlyphKey(face string, size float32, gid uint16) string {
	return keyPrefix + face + ":" + strconv.FormatFloat(float64(size), 'g', -1, 32) + ":" + strconv.Itoa(int(gid))
}

// ParseGlyphKey splits a key produced by GlyphKey.
func ParseGlyphKey(key string) (face string, size float32, gid uint16, ok bool) {
	rest, found := strings.CutPrefix(key, keyPrefix)
	if !found {
		return "", 0, 0, false
	}
	i := strings.LastIndexByte(rest, ':')
	if i < 0 {
		return "", 0, 0, false
	}
	g, err := strconv.ParseUint(rest[i+1:], 10, 16)
	if err != nil {
		return "", 0, 0, false
	}
	rest = rest[:i]
	j := strings.LastIndexByte(rest, ':')
	if j <= 0 {
		return "", 0, 0, false
	}
	sz, err := strconv.ParseFloat(rest[j+1:], 32)
	if err != nil || sz <= 0 {
		return "", 0, 0, false
	}
	return rest[:j], float32(sz), uint16(g), true
}

// isRTL reports whether the first strongly directional run is right to
// left.
func isRTL(text string) bool {
	var p bidi.Paragraph
	if _, err := p.SetString(text, bidi.DefaultDirection(bidi.Neutral)); err != nil {
		return false
	}
	ordering, err := p.Order()
	if err != nil || ordering.NumRuns() == 0 {
		return false
	}
	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		switch run.Direction() {
		case bidi.RightToLeft:
			return true
		case bidi.LeftToRight:
			return false
		}
	}
	return false
}

func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if r == ' ' || r == '\t' || r == '\r' {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}

func fixedToFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64
}

var _ ggui.GlyphSource = (*Source)(nil)

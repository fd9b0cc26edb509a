package ui

import (
	"cmp"
	"errors"
	"fmt"
	"image"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggui"
	"github.com/gogpu/ggui/atlas"
)

// CanvasStats holds Canvas counters.
type CanvasStats struct {
	Views   int
	Visible int
	Meshes  int
	Quads   int

	Rebuilds     uint64
	Repacks      uint64
	Uploads      uint64
	LoadsStarted uint64
	LoadFailures uint64

	// Per-frame counters, reset by OnFrameEnd.
	FrameUploads int
	Dropped      int
	Skipped      int

	Atlas atlas.CacheStats
}

type node struct {
	view     View
	gen      uint32
	alive    bool
	seq      uint64
	parent   ViewID
	children []ViewID

	rect    Rect
	visible bool

	keys  []atlas.Key
	label *ggui.TextLayout
}

// Canvas batches a tree of views into one mesh per atlas layer.
//
// The canvas tracks dirtiness coarsely: any change to a view, the view tree,
// the canvas size or the content of a referenced key invalidates the whole
// batch, and the next Rebuild regenerates every mesh. Content is placed
// through an atlas.Cache and uploaded through the context's
// TextureProvider the first time each placement is drawn.
//
// Canvas is owned by the render goroutine and is not safe for concurrent
// use.
type Canvas struct {
	ctx   *ggui.Context
	cfg   CanvasConfig
	atlas *atlas.Cache

	nodes []node
	free  []uint32
	roots []ViewID
	seq   uint64

	contents map[atlas.Key]*content
	layers   []ggui.TextureHandle

	dirty       bool
	layoutValid bool
	order       []ViewID
	meshes      []ViewMesh

	frame       uint64
	lastRepack  uint64
	packChanged bool

	stats CanvasStats
}

// NewCanvas creates an empty canvas. A nil ctx uses ggui.NewContext().
func NewCanvas(ctx *ggui.Context, cfg CanvasConfig) (*Canvas, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = ggui.NewContext()
	}
	cache, err := atlas.NewCache(cfg.Atlas)
	if err != nil {
		return nil, err
	}

	c := &Canvas{
		ctx:      ctx,
		cfg:      cfg,
		atlas:    cache,
		contents: make(map[atlas.Key]*content),
		dirty:    true,
	}
	c.contents[whiteKey] = &content{state: contentReady, img: whiteBlock(), pinned: true}
	return c, nil
}

// Context returns the canvas context.
func (c *Canvas) Context() *ggui.Context { return c.ctx }

// Atlas returns the canvas atlas cache.
func (c *Canvas) Atlas() *atlas.Cache { return c.atlas }

// Filter returns the sampling filter for atlas layers.
func (c *Canvas) Filter() FilterMode { return c.cfg.Filter }

// Size returns the canvas size in pixels.
func (c *Canvas) Size() (width, height int) { return c.cfg.Width, c.cfg.Height }

// Projection maps canvas pixels (y down) to clip space.
func (c *Canvas) Projection() mgl32.Mat4 {
	return mgl32.Ortho2D(0, float32(c.cfg.Width), float32(c.cfg.Height), 0)
}

// Texture returns the texture of an atlas layer, or zero if the layer has
// not been drawn yet.
func (c *Canvas) Texture(layer int) ggui.TextureHandle {
	if layer < 0 || layer >= len(c.layers) {
		return 0
	}
	return c.layers[layer]
}

// Frame returns the frame index of the last Update.
func (c *Canvas) Frame() uint64 { return c.frame }

// AddView adds a root view, laid out against the canvas rect.
func (c *Canvas) AddView(v View) ViewID {
	return c.insert(v, ViewID{})
}

// AddChild adds v under parent, laid out against the parent's rect.
func (c *Canvas) AddChild(parent ViewID, v View) (ViewID, error) {
	if c.lookup(parent) == nil {
		return ViewID{}, fmt.Errorf("%w: parent %v", ErrUnknownView, parent)
	}
	return c.insert(v, parent), nil
}

func (c *Canvas) insert(v View, parent ViewID) ViewID {
	var idx uint32
	if n := len(c.free); n > 0 {
		idx = c.free[n-1]
		c.free = c.free[:n-1]
	} else {
		idx = uint32(len(c.nodes))
		c.nodes = append(c.nodes, node{})
	}

	n := &c.nodes[idx]
	gen := n.gen + 1
	if gen == 0 {
		gen = 1
	}
	c.seq++
	*n = node{view: v, gen: gen, alive: true, seq: c.seq, parent: parent}
	id := ViewID{index: idx, gen: gen}

	c.bindContent(n)
	if parent.Valid() {
		p := c.lookup(parent)
		p.children = append(p.children, id)
	} else {
		c.roots = append(c.roots, id)
	}
	c.markDirty()
	return id
}

// RemoveView removes a view and all of its descendants. Their content
// references are released; content no view shows loses its atlas space.
// Registered images and loads stay until UnregisterImage.
func (c *Canvas) RemoveView(id ViewID) error {
	n := c.lookup(id)
	if n == nil {
		return fmt.Errorf("%w: %v", ErrUnknownView, id)
	}
	if p := c.lookup(n.parent); p != nil {
		p.children = removeID(p.children, id)
	} else {
		c.roots = removeID(c.roots, id)
	}
	c.removeTree(id)
	c.markDirty()
	return nil
}

func (c *Canvas) removeTree(id ViewID) {
	n := c.lookup(id)
	if n == nil {
		return
	}
	for _, ch := range n.children {
		c.removeTree(ch)
	}
	n = &c.nodes[id.index]
	c.release(n.keys)
	gen := n.gen
	*n = node{gen: gen}
	c.free = append(c.free, id.index)
}

// RemoveAllViews removes every view.
func (c *Canvas) RemoveAllViews() {
	for _, id := range c.roots {
		c.removeTree(id)
	}
	c.roots = c.roots[:0]
	c.markDirty()
}

// View returns a copy of a view.
func (c *Canvas) View(id ViewID) (View, bool) {
	n := c.lookup(id)
	if n == nil {
		return View{}, false
	}
	return n.view, true
}

// Views returns every live view in insertion order.
func (c *Canvas) Views() []ViewID {
	type live struct {
		id  ViewID
		seq uint64
	}
	var all []live
	for i := range c.nodes {
		if n := &c.nodes[i]; n.alive {
			all = append(all, live{ViewID{index: uint32(i), gen: n.gen}, n.seq})
		}
	}
	slices.SortFunc(all, func(a, b live) int { return cmp.Compare(a.seq, b.seq) })
	ids := make([]ViewID, len(all))
	for i, l := range all {
		ids[i] = l.id
	}
	return ids
}

// Children returns the direct children of a view.
func (c *Canvas) Children(id ViewID) []ViewID {
	n := c.lookup(id)
	if n == nil {
		return nil
	}
	return slices.Clone(n.children)
}

// Parent returns the parent of a view; it is invalid for root views.
func (c *Canvas) Parent(id ViewID) (ViewID, bool) {
	n := c.lookup(id)
	if n == nil {
		return ViewID{}, false
	}
	return n.parent, true
}

// Rect returns the laid out rect of a view in canvas pixels.
func (c *Canvas) Rect(id ViewID) (Rect, bool) {
	n := c.lookup(id)
	if n == nil {
		return Rect{}, false
	}
	c.layout()
	return n.rect, true
}

// Modify applies fn to a view and marks the canvas dirty. Content changes
// take references on the new keys before releasing the old ones, so
// content shared between the two stays resident.
func (c *Canvas) Modify(id ViewID, fn func(v *View)) error {
	n := c.lookup(id)
	if n == nil {
		return fmt.Errorf("%w: %v", ErrUnknownView, id)
	}
	old := n.view.Content
	fn(&n.view)
	if n.view.Content != old {
		prev := n.keys
		c.bindContent(n)
		c.release(prev)
	}
	c.markDirty()
	return nil
}

// SetHidden hides or shows a view and its descendants.
func (c *Canvas) SetHidden(id ViewID, hidden bool) error {
	return c.Modify(id, func(v *View) { v.Hidden = hidden })
}

// SetOffset moves a view.
func (c *Canvas) SetOffset(id ViewID, offset mgl32.Vec2) error {
	return c.Modify(id, func(v *View) { v.Offset = offset })
}

// SetSize resizes a view.
func (c *Canvas) SetSize(id ViewID, size mgl32.Vec2) error {
	return c.Modify(id, func(v *View) { v.Size = size })
}

// SetDrawOrder changes where a view sorts among its siblings and cousins.
func (c *Canvas) SetDrawOrder(id ViewID, order int) error {
	return c.Modify(id, func(v *View) { v.DrawOrder = order })
}

// SetContent replaces what a view draws.
func (c *Canvas) SetContent(id ViewID, content Content) error {
	return c.Modify(id, func(v *View) { v.Content = content })
}

// MarkDirty forces the next Rebuild to regenerate every mesh.
func (c *Canvas) MarkDirty() { c.markDirty() }

// IsDirty reports whether the next Rebuild regenerates the meshes.
func (c *Canvas) IsDirty() bool { return c.dirty }

func (c *Canvas) markDirty() {
	c.dirty = true
	c.layoutValid = false
}

// OnResize changes the canvas size. Anchored views follow on the next
// layout.
func (c *Canvas) OnResize(width, height int) {
	if width <= 0 || height <= 0 || (width == c.cfg.Width && height == c.cfg.Height) {
		return
	}
	c.cfg.Width, c.cfg.Height = width, height
	c.markDirty()
}

// Update drives one frame: it applies finished asset loads, repacks the
// atlas if the rebuild policy asks for it, and rebuilds.
func (c *Canvas) Update(frame uint64) []ViewMesh {
	c.frame = frame
	if l := c.ctx.Loader(); l != nil {
		l.Poll(c.onAsset)
	}
	if c.shouldRepack(frame) {
		c.Repack()
	}
	return c.Rebuild()
}

// OnFrameEnd resets the per-frame counters.
func (c *Canvas) OnFrameEnd() {
	c.stats.FrameUploads = 0
	c.stats.Dropped = 0
	c.stats.Skipped = 0
}

func (c *Canvas) shouldRepack(frame uint64) bool {
	p := c.cfg.Rebuild
	if p.EveryFrames > 0 && frame >= c.lastRepack+p.EveryFrames {
		return true
	}
	if p.FragmentationThreshold > 0 && c.packChanged {
		pk := c.atlas.Packer()
		return pk.LayerCount() > 1 && pk.Fragmentation() > p.FragmentationThreshold
	}
	return false
}

// Repack rebuilds the atlas from scratch and re-uploads every surviving
// key on the next Rebuild. Keys that no longer fit are evicted.
func (c *Canvas) Repack() {
	dropped := c.atlas.Repack()
	c.lastRepack = c.frame
	c.packChanged = false
	c.stats.Repacks++
	ggui.Logger().Info("ui: atlas repacked",
		"layers", c.atlas.Packer().LayerCount(),
		"entries", c.atlas.Len(),
		"dropped", len(dropped))
	c.markDirty()
}

// Stats returns a snapshot of the counters.
func (c *Canvas) Stats() CanvasStats {
	s := c.stats
	s.Views = 0
	for i := range c.nodes {
		if c.nodes[i].alive {
			s.Views++
		}
	}
	s.Visible = len(c.order)
	s.Meshes = len(c.meshes)
	s.Quads = 0
	for i := range c.meshes {
		s.Quads += c.meshes[i].Quads()
	}
	s.Atlas = c.atlas.Stats()
	return s
}

// Close releases the atlas layer textures and cancels pending loads. The
// atlas is emptied with them, so a canvas used after Close uploads every
// visible content again into fresh layers. Loads canceled here are marked
// failed; LoadImage starts them again.
func (c *Canvas) Close() {
	for k, e := range c.contents {
		if e.state == contentPending {
			c.cancelLoad(k)
			e.state = contentFailed
		}
		e.gen = 0
	}
	for _, tex := range c.layers {
		if tex != 0 {
			c.ctx.Textures().DestroyTexture(tex)
		}
	}
	c.atlas.Reset()
	c.layers = nil
	c.meshes = nil
	c.packChanged = false
	c.lastRepack = c.frame
	c.dirty = true
}

// Rebuild returns one mesh per atlas layer in use, ordered by the first
// view drawn from each layer. A clean canvas returns the previous meshes.
//
// Views whose content is still loading are skipped. Views whose content
// cannot be placed even after the atlas policy ran are dropped for this
// frame with a warning.
func (c *Canvas) Rebuild() []ViewMesh {
	if !c.dirty {
		return c.meshes
	}
	c.layout()
	c.atlas.BeginFrame()

	var meshes []ViewMesh
	byLayer := make(map[int]int)
	for _, id := range c.order {
		n := &c.nodes[id.index]
		if n.view.Content == nil {
			continue
		}
		quads, ok := c.viewQuads(n)
		if !ok {
			continue
		}
		col := premultiply(n.view.Color)
		for _, q := range quads {
			i, found := byLayer[q.layer]
			if !found {
				i = len(meshes)
				byLayer[q.layer] = i
				meshes = append(meshes, ViewMesh{Layer: q.layer, Texture: c.Texture(q.layer)})
			}
			meshes[i].addQuad(id, q.texQuad, col)
		}
	}

	if evicted := c.atlas.TakeEvicted(); len(evicted) > 0 {
		c.packChanged = true
		ggui.Logger().Debug("ui: atlas evicted entries", "count", len(evicted))
	}

	c.meshes = meshes
	c.dirty = false
	c.stats.Rebuilds++
	return meshes
}

type layerQuad struct {
	layer int
	texQuad
}

type placeStatus uint8

const (
	placed placeStatus = iota
	notReady
	dropped
)

// viewQuads places a view's content and expands it into quads. It returns
// false if the view must not be drawn this frame.
func (c *Canvas) viewQuads(n *node) ([]layerQuad, bool) {
	switch ct := n.view.Content.(type) {
	case Sprite:
		pl, img, st := c.place(ct.Key)
		if !c.drawable(n, st) {
			return nil, false
		}
		qs := spriteQuads(ct, n.rect, img.Rect.Dx(), img.Rect.Dy(), c.uv(pl))
		return onLayer(pl.Layer, qs), true

	case Quad:
		pl, _, st := c.place(whiteKey)
		if !c.drawable(n, st) {
			return nil, false
		}
		lw, lh := c.layerSize()
		u := (float32(pl.Rect.X) + float32(pl.Rect.Width)/2) / lw
		v := (float32(pl.Rect.Y) + float32(pl.Rect.Height)/2) / lh
		return []layerQuad{{pl.Layer, texQuad{dst: n.rect, uv: uvRect{u, v, u, v}}}}, true

	case Label:
		return c.labelQuads(n, ct)
	}
	return nil, false
}

func (c *Canvas) labelQuads(n *node, l Label) ([]layerQuad, bool) {
	lay := n.label
	if lay == nil {
		c.stats.Skipped++
		return nil, false
	}

	var oy float32
	switch l.VAlign {
	case TextMiddle:
		oy = (n.rect.H - lay.Height) / 2
	case TextBottom:
		oy = n.rect.H - lay.Height
	}

	quads := make([]layerQuad, 0, len(lay.Glyphs))
	for _, line := range lay.Lines {
		var ox float32
		switch l.Align {
		case TextCenter:
			ox = (n.rect.W - line.Width) / 2
		case TextRight:
			ox = n.rect.W - line.Width
		}
		for _, g := range lay.Glyphs[line.First:line.Last] {
			pl, _, st := c.place(atlas.Key(g.Key))
			if !c.drawable(n, st) {
				return nil, false
			}
			dst := Rect{
				X: round(n.rect.X + ox + g.X),
				Y: round(n.rect.Y + oy + g.Y),
				W: float32(g.Width),
				H: float32(g.Height),
			}
			quads = append(quads, layerQuad{pl.Layer, texQuad{dst: dst, uv: c.uv(pl)}})
		}
	}
	return quads, true
}

// drawable records the outcome of a placement for the view.
func (c *Canvas) drawable(n *node, st placeStatus) bool {
	switch st {
	case notReady:
		c.stats.Skipped++
		return false
	case dropped:
		c.stats.Dropped++
		ggui.Logger().Warn("ui: view dropped from frame", "view", n.view.Name)
		return false
	}
	return true
}

// place makes sure key is in the atlas with its current pixels.
func (c *Canvas) place(key atlas.Key) (atlas.Placement, *image.RGBA, placeStatus) {
	e, ok := c.contents[key]
	if !ok {
		return atlas.Placement{}, nil, notReady
	}
	img, ok := c.pixels(key, e)
	if !ok {
		return atlas.Placement{}, nil, notReady
	}

	pl, inserted, err := c.atlas.GetOrInsert(key, img.Rect.Dx(), img.Rect.Dy())
	if err != nil {
		if !errors.Is(err, atlas.ErrAtlasFull) {
			ggui.Logger().Warn("ui: content cannot be placed", "key", key, "err", err)
		} else {
			ggui.Logger().Warn("ui: atlas full", "key", key, "err", err)
		}
		return atlas.Placement{}, nil, dropped
	}
	if inserted {
		c.packChanged = true
	}
	if inserted || e.gen != pl.Generation {
		if err := c.upload(pl, img); err != nil {
			ggui.Logger().Warn("ui: upload failed", "key", key, "err", err)
			c.atlas.Evict(key)
			return atlas.Placement{}, nil, dropped
		}
		e.gen = pl.Generation
	}
	return pl, img, placed
}

func (c *Canvas) upload(pl atlas.Placement, img *image.RGBA) error {
	tex, err := c.layerTexture(pl.Layer)
	if err != nil {
		return err
	}
	pad := c.cfg.Atlas.Padding
	src := padded(img, pad)
	if err := c.ctx.Textures().UploadRegion(tex, pl.Rect.Inset(-pad).Image(), src.Pix); err != nil {
		return err
	}
	c.stats.Uploads++
	c.stats.FrameUploads++
	return nil
}

func (c *Canvas) layerTexture(layer int) (ggui.TextureHandle, error) {
	for len(c.layers) <= layer {
		c.layers = append(c.layers, 0)
	}
	if tex := c.layers[layer]; tex != 0 {
		return tex, nil
	}
	tex, err := c.ctx.Textures().CreateAtlasLayer(c.cfg.Atlas.LayerWidth, c.cfg.Atlas.LayerHeight, c.ctx.AtlasFormat())
	if err != nil {
		return 0, fmt.Errorf("ui: create atlas layer %d: %w", layer, err)
	}
	ggui.Logger().Debug("ui: atlas layer created", "layer", layer, "texture", tex)
	c.layers[layer] = tex
	return tex, nil
}

func (c *Canvas) layerSize() (float32, float32) {
	return float32(c.cfg.Atlas.LayerWidth), float32(c.cfg.Atlas.LayerHeight)
}

func (c *Canvas) uv(pl atlas.Placement) uvRect {
	u0, v0, u1, v1 := pl.Rect.UV(c.cfg.Atlas.LayerWidth, c.cfg.Atlas.LayerHeight)
	return uvRect{u0, v0, u1, v1}
}

// layout resolves every rect and the draw order of visible views.
func (c *Canvas) layout() {
	if c.layoutValid {
		return
	}
	c.order = c.order[:0]
	root := Rect{W: float32(c.cfg.Width), H: float32(c.cfg.Height)}
	for _, id := range c.roots {
		c.layoutTree(id, root, true)
	}
	slices.SortStableFunc(c.order, func(a, b ViewID) int {
		na, nb := &c.nodes[a.index], &c.nodes[b.index]
		if na.view.DrawOrder != nb.view.DrawOrder {
			return cmp.Compare(na.view.DrawOrder, nb.view.DrawOrder)
		}
		return cmp.Compare(na.seq, nb.seq)
	})
	c.layoutValid = true
}

func (c *Canvas) layoutTree(id ViewID, parent Rect, visible bool) {
	n := &c.nodes[id.index]
	n.rect = layoutRect(&n.view, parent)
	n.visible = visible && !n.view.Hidden
	if n.visible {
		c.order = append(c.order, id)
	}
	for _, ch := range n.children {
		c.layoutTree(ch, n.rect, n.visible)
	}
}

// bindContent resolves the keys a view draws and references them.
func (c *Canvas) bindContent(n *node) {
	n.keys, n.label = nil, nil
	switch ct := n.view.Content.(type) {
	case Sprite:
		n.keys = []atlas.Key{ct.Key}
		c.acquire(n.keys, contentMissing)
	case Quad:
		n.keys = []atlas.Key{whiteKey}
		c.acquire(n.keys, contentReady)
	case Label:
		gs := c.ctx.Glyphs()
		if gs == nil {
			ggui.Logger().Warn("ui: label without glyph source", "view", n.view.Name)
			return
		}
		lay, err := gs.Layout(ct.Text, ct.Size)
		if err != nil {
			ggui.Logger().Warn("ui: label layout failed", "view", n.view.Name, "err", err)
			return
		}
		n.label = &lay
		seen := make(map[atlas.Key]bool, len(lay.Glyphs))
		for _, g := range lay.Glyphs {
			k := atlas.Key(g.Key)
			if !seen[k] {
				seen[k] = true
				n.keys = append(n.keys, k)
			}
		}
		c.acquire(n.keys, contentGlyph)
	}
}

// lookup returns the live node for id, or nil.
func (c *Canvas) lookup(id ViewID) *node {
	if !id.Valid() || int(id.index) >= len(c.nodes) {
		return nil
	}
	n := &c.nodes[id.index]
	if !n.alive || n.gen != id.gen {
		return nil
	}
	return n
}

// hitOrder returns visible views front to back.
func (c *Canvas) hitOrder() []ViewID {
	c.layout()
	out := slices.Clone(c.order)
	slices.Reverse(out)
	return out
}

func onLayer(layer int, qs []texQuad) []layerQuad {
	out := make([]layerQuad, len(qs))
	for i, q := range qs {
		out[i] = layerQuad{layer, q}
	}
	return out
}

func removeID(ids []ViewID, id ViewID) []ViewID {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(ids, i, i+1)
	}
	return ids
}

func round(v float32) float32 {
	return float32(math.Round(float64(v)))
}

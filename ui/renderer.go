package ui

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggui"
	"github.com/gogpu/ggui/gpusync"
)

// Uniform names of the canvas pass.
const (
	UniformProjection = "projection"
	UniformTint       = "tint"
)

// CanvasPassLayout returns the binding contract of the canvas pass: a
// projection matrix and a global tint, plus the atlas layer in texture
// slot 0.
func CanvasPassLayout() *gpusync.PassLayout {
	return gpusync.NewPassLayout("canvas", 1,
		gpusync.Field{Name: UniformProjection, Type: gpusync.Mat4},
		gpusync.Field{Name: UniformTint, Type: gpusync.Vec4},
	)
}

// DrawCall is one batch ready to draw: the mesh and the bindings to use.
type DrawCall struct {
	Mesh    *ViewMesh
	Binding gpusync.BindingSet
}

// DrawSink consumes the draw calls of a frame, in order. A sink that returns
// an error must not have submitted the frame: the renderer then stops
// waiting on the fence for it.
type DrawSink interface {
	Draw(ctx context.Context, frame uint64, calls []DrawCall) error
}

// Renderer turns canvas meshes into draw calls. Each atlas layer is its own
// material, with its own gpusync.ResourceSync, so a layer's bindings are
// only rewritten when its texture or the shared uniforms change.
type Renderer struct {
	canvas  *Canvas
	sink    DrawSink
	backend gpusync.Backend
	fence   gpusync.Fence
	cfg     gpusync.Config
	layout  *gpusync.PassLayout

	passes map[int]*gpusync.ResourceSync
	tint   mgl32.Vec4
	calls  []DrawCall
}

// NewRenderer creates a renderer drawing canvas into sink.
func NewRenderer(canvas *Canvas, sink DrawSink, backend gpusync.Backend, fence gpusync.Fence, cfg gpusync.Config) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if canvas == nil || sink == nil || backend == nil || fence == nil {
		return nil, fmt.Errorf("ui: renderer needs a canvas, sink, backend and fence")
	}
	return &Renderer{
		canvas:  canvas,
		sink:    sink,
		backend: backend,
		fence:   fence,
		cfg:     cfg,
		layout:  CanvasPassLayout(),
		passes:  make(map[int]*gpusync.ResourceSync),
		tint:    mgl32.Vec4{1, 1, 1, 1},
	}, nil
}

// SetTint multiplies every view color by tint, premultiplied.
func (r *Renderer) SetTint(tint mgl32.Vec4) { r.tint = tint }

// Render updates the canvas for frame and submits its batches to the sink.
func (r *Renderer) Render(ctx context.Context, frame uint64) error {
	meshes := r.canvas.Update(frame)
	proj := r.canvas.Projection()

	r.calls = r.calls[:0]
	for i := range meshes {
		m := &meshes[i]
		rs, err := r.pass(m.Layer)
		if err != nil {
			r.abandon()
			return err
		}
		if err := rs.BeginFrame(ctx, frame); err != nil {
			r.abandon()
			return fmt.Errorf("ui: layer %d: %w", m.Layer, err)
		}
		rs.SetMat4(UniformProjection, proj)
		rs.SetVec4(UniformTint, r.tint)
		rs.SetTexture(0, m.Texture)
		set, err := rs.EndFrame()
		if err != nil {
			r.abandon()
			return fmt.Errorf("ui: layer %d: %w", m.Layer, err)
		}
		r.calls = append(r.calls, DrawCall{Mesh: m, Binding: set})
	}

	err := r.sink.Draw(ctx, frame, r.calls)
	if err != nil {
		r.abandon()
	}
	r.canvas.OnFrameEnd()
	return err
}

// abandon releases the slots stamped for the calls of a frame that was not
// submitted.
func (r *Renderer) abandon() {
	for _, c := range r.calls {
		if rs, ok := r.passes[c.Mesh.Layer]; ok {
			rs.Abandon(c.Binding)
		}
	}
	r.calls = r.calls[:0]
}

// SyncStats returns the binding counters of every layer pass combined.
func (r *Renderer) SyncStats() gpusync.Stats {
	var total gpusync.Stats
	for _, rs := range r.passes {
		s := rs.Stats()
		total.Frames += s.Frames
		total.UniformWrites += s.UniformWrites
		total.TextureWrites += s.TextureWrites
		total.Elided += s.Elided
		total.Waits += s.Waits
		total.Ignored += s.Ignored
		total.Abandoned += s.Abandoned
	}
	return total
}

// Destroy releases every pass, waiting for in-flight frames unless ctx is
// done.
func (r *Renderer) Destroy(ctx context.Context) {
	for layer, rs := range r.passes {
		rs.Destroy(ctx)
		delete(r.passes, layer)
	}
}

func (r *Renderer) pass(layer int) (*gpusync.ResourceSync, error) {
	if rs, ok := r.passes[layer]; ok {
		return rs, nil
	}
	rs, err := gpusync.New(r.canvas.Context(), r.layout, r.backend, r.fence, r.cfg)
	if err != nil {
		return nil, err
	}
	r.passes[layer] = rs
	ggui.Logger().Debug("ui: layer pass created", "layer", layer)
	return rs, nil
}

//go:build !nogpu

package native

import (
	"context"
	_ "embed"
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/gogpu/ggui"
	"github.com/gogpu/ggui/ui"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/canvas.wgsl
var canvasShaderSource string

// TargetFormat is the format of the presenter's render target.
const TargetFormat = gputypes.TextureFormatRGBA8Unorm

// snapshotTimeout bounds the wait for a readback copy.
const snapshotTimeout = 5 * time.Second

// copyPitchAlignment is the row alignment required by texture to buffer
// copies.
const copyPitchAlignment = 256

// PresenterStats counts the work submitted by a Presenter.
type PresenterStats struct {
	Frames    uint64
	DrawCalls uint64
	Indices   uint64
}

type inflight struct {
	frame uint64
	cmd   hal.CommandBuffer
}

// Presenter is a ui.DrawSink that renders canvas draw calls into an
// offscreen RGBA8 target. Every frame is a single render pass over one
// shared vertex buffer and one shared index buffer.
//
// Presenter is not safe for concurrent use.
type Presenter struct {
	dev      *Device
	bindings *Bindings
	fence    *Fence

	shader     hal.ShaderModule
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline

	width, height uint32
	target        hal.Texture
	targetView    hal.TextureView
	clear         gputypes.Color

	vertBuf hal.Buffer
	vertCap uint64
	idxBuf  hal.Buffer
	idxCap  uint64
	vertex  []byte
	index   []byte

	pending []inflight
	stats   PresenterStats
}

// NewPresenter creates a presenter with a width by height target. Slots
// drawn through it must come from bindings, and frames are submitted on
// fence.
func NewPresenter(bindings *Bindings, fence *Fence, width, height int) (*Presenter, error) {
	if bindings == nil || fence == nil {
		return nil, fmt.Errorf("native: presenter needs bindings and a fence")
	}
	p := &Presenter{dev: bindings.dev, bindings: bindings, fence: fence}
	if err := p.createPipeline(); err != nil {
		p.Destroy()
		return nil, err
	}
	if err := p.Resize(width, height); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

func (p *Presenter) createPipeline() error {
	device := p.dev.device

	spirv, err := compileSPIRV(canvasShaderSource)
	if err != nil {
		return err
	}
	p.shader, err = device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "ggui_canvas_shader",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("native: canvas shader module: %w", err)
	}

	bgl, err := p.bindings.BindGroupLayout(ui.CanvasPassLayout())
	if err != nil {
		return err
	}
	p.pipeLayout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "ggui_canvas_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{bgl},
	})
	if err != nil {
		return fmt.Errorf("native: canvas pipeline layout: %w", err)
	}

	premul := gputypes.BlendStatePremultiplied()
	p.pipeline, err = device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "ggui_canvas_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers: []gputypes.VertexBufferLayout{{
				ArrayStride: ui.VertexSize,
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes: []gputypes.VertexAttribute{
					{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
					{Format: gputypes.VertexFormatUnorm8x4, Offset: 16, ShaderLocation: 2},
				},
			}},
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    TargetFormat,
				Blend:     &premul,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return fmt.Errorf("native: canvas pipeline: %w", err)
	}
	return nil
}

// compileSPIRV compiles WGSL to little-endian SPIR-V words.
func compileSPIRV(source string) ([]uint32, error) {
	code, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("native: compile shader: %w", err)
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return words, nil
}

// Resize recreates the render target. Frames already submitted keep
// drawing into the old target until they finish.
func (p *Presenter) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: target %dx%d", ggui.ErrInvalidTexture, width, height)
	}
	w, h := uint32(width), uint32(height) //nolint:gosec // positive, checked above
	if p.target != nil && w == p.width && h == p.height {
		return nil
	}
	if err := p.drain(context.Background()); err != nil {
		return err
	}
	p.destroyTarget()

	device := p.dev.device
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "ggui_canvas_target",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        TargetFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("native: canvas target: %w", err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "ggui_canvas_target_view",
		Format:        TargetFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		device.DestroyTexture(tex)
		return fmt.Errorf("native: canvas target view: %w", err)
	}
	p.target, p.targetView = tex, view
	p.width, p.height = w, h
	return nil
}

// SetClearColor sets the color the target is cleared to each frame.
func (p *Presenter) SetClearColor(c gputypes.Color) { p.clear = c }

// Size returns the target size in pixels.
func (p *Presenter) Size() (width, height int) { return int(p.width), int(p.height) }

// Stats returns the submission counters.
func (p *Presenter) Stats() PresenterStats { return p.stats }

// Draw encodes calls into one render pass and submits it as frame.
func (p *Presenter) Draw(ctx context.Context, frame uint64, calls []ui.DrawCall) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.reclaim()

	slots := make([]*Slot, len(calls))
	for i, call := range calls {
		s, ok := call.Binding.Slot.(*Slot)
		if !ok || s.BindGroup() == nil {
			return fmt.Errorf("%w: call %d (%T)", ErrForeignSlot, i, call.Binding.Slot)
		}
		slots[i] = s
	}

	if err := p.upload(calls); err != nil {
		return err
	}

	device := p.dev.device
	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "ggui_canvas_encoder"})
	if err != nil {
		return fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("ggui_canvas_frame"); err != nil {
		return fmt.Errorf("native: begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "ggui_canvas_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       p.targetView,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: p.clear,
		}},
	})
	if len(p.index) > 0 {
		rp.SetPipeline(p.pipeline)
		rp.SetVertexBuffer(0, p.vertBuf, 0)
		rp.SetIndexBuffer(p.idxBuf, gputypes.IndexFormatUint32, 0)
	}
	var firstIndex uint32
	var baseVertex int32
	for i, call := range calls {
		count := uint32(len(call.Mesh.Indices)) //nolint:gosec // bounded by buffer size
		if count > 0 && len(p.index) > 0 {
			rp.SetBindGroup(0, slots[i].BindGroup(), nil)
			rp.DrawIndexed(count, 1, firstIndex, baseVertex, 0)
		}
		firstIndex += count
		baseVertex += int32(len(call.Mesh.Vertices)) //nolint:gosec // bounded by buffer size
	}
	rp.End()

	cmd, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("native: end encoding: %w", err)
	}
	if err := p.fence.Submit(cmd, frame); err != nil {
		device.FreeCommandBuffer(cmd)
		return err
	}
	p.pending = append(p.pending, inflight{frame: frame, cmd: cmd})

	p.stats.Frames++
	p.stats.DrawCalls += uint64(len(calls))
	p.stats.Indices += uint64(firstIndex)
	return nil
}

// upload packs every mesh into the shared buffers.
func (p *Presenter) upload(calls []ui.DrawCall) error {
	p.vertex = p.vertex[:0]
	p.index = p.index[:0]
	for _, call := range calls {
		p.vertex = appendVertices(p.vertex, call.Mesh.Vertices)
		p.index = appendIndices(p.index, call.Mesh.Indices)
	}
	if len(p.index) == 0 {
		return nil
	}

	var err error
	p.vertBuf, p.vertCap, err = p.ensureBuffer(p.vertBuf, p.vertCap, uint64(len(p.vertex)),
		"ggui_canvas_vertices", gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	p.idxBuf, p.idxCap, err = p.ensureBuffer(p.idxBuf, p.idxCap, uint64(len(p.index)),
		"ggui_canvas_indices", gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	p.dev.queue.WriteBuffer(p.vertBuf, 0, p.vertex)
	p.dev.queue.WriteBuffer(p.idxBuf, 0, p.index)
	return nil
}

// ensureBuffer grows buf to at least size bytes, doubling its capacity.
func (p *Presenter) ensureBuffer(buf hal.Buffer, capacity, size uint64, label string, usage gputypes.BufferUsage) (hal.Buffer, uint64, error) {
	if buf != nil && capacity >= size {
		return buf, capacity, nil
	}
	newCap := max(capacity, 1024)
	for newCap < size {
		newCap *= 2
	}
	// Growing replaces a buffer that in-flight frames may still read.
	if buf != nil {
		if err := p.drain(context.Background()); err != nil {
			return buf, capacity, err
		}
		p.dev.device.DestroyBuffer(buf)
	}
	nb, err := p.dev.device.CreateBuffer(&hal.BufferDescriptor{Label: label, Size: newCap, Usage: usage})
	if err != nil {
		return nil, 0, fmt.Errorf("native: create %s (%d bytes): %w", label, newCap, err)
	}
	return nb, newCap, nil
}

// appendVertices packs vertices in the canvas vertex layout.
func appendVertices(dst []byte, vertices []ui.Vertex) []byte {
	for _, v := range vertices {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v.Pos[0]))
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v.Pos[1]))
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v.UV[0]))
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v.UV[1]))
		dst = append(dst, v.Color[:]...)
	}
	return dst
}

func appendIndices(dst []byte, indices []uint32) []byte {
	for _, i := range indices {
		dst = binary.LittleEndian.AppendUint32(dst, i)
	}
	return dst
}

// reclaim frees the command buffers of finished frames.
func (p *Presenter) reclaim() {
	done := p.fence.Completed()
	n := 0
	for _, f := range p.pending {
		if f.frame < done {
			p.dev.device.FreeCommandBuffer(f.cmd)
			continue
		}
		p.pending[n] = f
		n++
	}
	p.pending = p.pending[:n]
}

// drain waits for every submitted frame.
func (p *Presenter) drain(ctx context.Context) error {
	for _, f := range p.pending {
		if err := p.fence.Wait(ctx, f.frame); err != nil {
			return err
		}
	}
	p.reclaim()
	return nil
}

// Snapshot waits for submitted frames and copies the target back to the
// CPU.
func (p *Presenter) Snapshot(ctx context.Context) (*image.RGBA, error) {
	if err := p.drain(ctx); err != nil {
		return nil, err
	}
	device, queue := p.dev.device, p.dev.queue
	w, h := p.width, p.height

	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	size := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "ggui_canvas_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create staging buffer: %w", err)
	}
	defer device.DestroyBuffer(staging)

	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "ggui_snapshot_encoder"})
	if err != nil {
		return nil, fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("ggui_snapshot"); err != nil {
		return nil, fmt.Errorf("native: begin encoding: %w", err)
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: p.target,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(p.target, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: p.target, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: p.target,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("native: end encoding: %w", err)
	}
	defer device.FreeCommandBuffer(cmd)

	fence, err := device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("native: create fence: %w", err)
	}
	defer device.DestroyFence(fence)
	if err := queue.Submit([]hal.CommandBuffer{cmd}, fence, 1); err != nil {
		return nil, fmt.Errorf("native: submit snapshot: %w", err)
	}
	ok, err := device.Wait(fence, 1, snapshotTimeout)
	if err != nil || !ok {
		return nil, fmt.Errorf("native: wait for snapshot: ok=%v err=%w", ok, err)
	}

	readback := make([]byte, size)
	if err := queue.ReadBuffer(staging, 0, readback); err != nil {
		return nil, fmt.Errorf("native: read snapshot: %w", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for row := 0; row < int(h); row++ {
		src := readback[row*int(alignedBytesPerRow):]
		copy(img.Pix[row*img.Stride:(row+1)*img.Stride], src[:bytesPerRow])
	}
	return img, nil
}

func (p *Presenter) destroyTarget() {
	device := p.dev.device
	if p.targetView != nil {
		device.DestroyTextureView(p.targetView)
		p.targetView = nil
	}
	if p.target != nil {
		device.DestroyTexture(p.target)
		p.target = nil
	}
}

// Destroy waits for submitted frames and releases every GPU object the
// presenter owns. The bindings and fence are left to their owner.
func (p *Presenter) Destroy() {
	if err := p.drain(context.Background()); err != nil {
		ggui.Logger().Warn("native: presenter destroyed with frames in flight", "err", err)
		for _, f := range p.pending {
			p.dev.device.FreeCommandBuffer(f.cmd)
		}
		p.pending = nil
	}
	device := p.dev.device
	p.destroyTarget()
	if p.vertBuf != nil {
		device.DestroyBuffer(p.vertBuf)
		p.vertBuf, p.vertCap = nil, 0
	}
	if p.idxBuf != nil {
		device.DestroyBuffer(p.idxBuf)
		p.idxBuf, p.idxCap = nil, 0
	}
	if p.pipeline != nil {
		device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.shader != nil {
		device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

var _ ui.DrawSink = (*Presenter)(nil)

//go:build !nogpu

package native

import (
	"fmt"
	"sync"

	"github.com/gogpu/ggui"
	"github.com/gogpu/ggui/gpusync"
	"github.com/gogpu/ggui/ui"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Bindings is a gpusync.Backend that turns descriptor slots into a uniform
// buffer plus a bind group.
//
// A pass layout with n texture slots maps to one bind group layout:
// binding 0 is the uniform block, bindings 1..n are the textures and
// binding n+1 is the shared sampler.
type Bindings struct {
	dev      *Device
	textures *Textures
	filter   ui.FilterMode

	mu      sync.Mutex
	sampler hal.Sampler
	layouts map[string]hal.BindGroupLayout
}

// NewBindings creates a binding backend sampling textures with filter.
func NewBindings(dev *Device, textures *Textures, filter ui.FilterMode) *Bindings {
	return &Bindings{
		dev:      dev,
		textures: textures,
		filter:   filter,
		layouts:  make(map[string]hal.BindGroupLayout),
	}
}

// BindGroupLayout returns the bind group layout for a pass, creating it on
// first use. Layouts are shared by pass name.
func (b *Bindings) BindGroupLayout(layout *gpusync.PassLayout) (hal.BindGroupLayout, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bindGroupLayout(layout)
}

func (b *Bindings) bindGroupLayout(layout *gpusync.PassLayout) (hal.BindGroupLayout, error) {
	if bgl, ok := b.layouts[layout.Name()]; ok {
		return bgl, nil
	}

	n := layout.TextureSlots()
	entries := make([]gputypes.BindGroupLayoutEntry, 0, n+2)
	entries = append(entries, gputypes.BindGroupLayoutEntry{
		Binding:    0,
		Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	})
	for i := 0; i < n; i++ {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(1 + i), //nolint:gosec // slot count is small
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	entries = append(entries, gputypes.BindGroupLayoutEntry{
		Binding:    uint32(1 + n), //nolint:gosec // slot count is small
		Visibility: gputypes.ShaderStageFragment,
		Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
	})

	bgl, err := b.dev.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   layout.Name() + "_layout",
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("native: bind group layout %q: %w", layout.Name(), err)
	}
	b.layouts[layout.Name()] = bgl
	return bgl, nil
}

func (b *Bindings) ensureSampler() (hal.Sampler, error) {
	if b.sampler != nil {
		return b.sampler, nil
	}
	mode := gputypes.FilterModeLinear
	if b.filter == ui.FilterNearest {
		mode = gputypes.FilterModeNearest
	}
	s, err := b.dev.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "ggui_atlas_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    mode,
		MinFilter:    mode,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create sampler: %w", err)
	}
	b.sampler = s
	return s, nil
}

// CreateSlot allocates the uniform buffer of one descriptor slot. The bind
// group is created on the first texture write.
func (b *Bindings) CreateSlot(layout *gpusync.PassLayout, index int) (gpusync.Slot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bgl, err := b.bindGroupLayout(layout)
	if err != nil {
		return nil, err
	}
	sampler, err := b.ensureSampler()
	if err != nil {
		return nil, err
	}
	size := uint64(max(layout.Size(), 16)) //nolint:gosec // layout sizes are small
	buf, err := b.dev.device.CreateBuffer(&hal.BufferDescriptor{
		Label: fmt.Sprintf("%s_uniform_%d", layout.Name(), index),
		Size:  size,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: uniform buffer for %q slot %d: %w", layout.Name(), index, err)
	}
	return &Slot{
		bindings: b,
		label:    fmt.Sprintf("%s_bind_%d", layout.Name(), index),
		bgl:      bgl,
		sampler:  sampler,
		uniform:  buf,
		size:     size,
	}, nil
}

// Destroy releases the sampler and bind group layouts. Slots must be
// destroyed first.
func (b *Bindings) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, bgl := range b.layouts {
		b.dev.device.DestroyBindGroupLayout(bgl)
		delete(b.layouts, name)
	}
	if b.sampler != nil {
		b.dev.device.DestroySampler(b.sampler)
		b.sampler = nil
	}
}

// Slot is one descriptor slot: a uniform buffer and the bind group that
// points at it and at the slot's textures.
type Slot struct {
	bindings *Bindings
	label    string
	bgl      hal.BindGroupLayout
	sampler  hal.Sampler
	uniform  hal.Buffer
	size     uint64
	group    hal.BindGroup
}

// WriteUniforms uploads the uniform block.
func (s *Slot) WriteUniforms(data []byte) error {
	if uint64(len(data)) > s.size {
		return fmt.Errorf("native: %d uniform bytes for a %d byte buffer", len(data), s.size)
	}
	s.bindings.dev.queue.WriteBuffer(s.uniform, 0, data)
	return nil
}

// WriteTextures rebuilds the bind group for a new set of textures.
func (s *Slot) WriteTextures(textures []ggui.TextureHandle) error {
	entries := make([]gputypes.BindGroupEntry, 0, len(textures)+2)
	entries = append(entries, gputypes.BindGroupEntry{
		Binding:  0,
		Resource: gputypes.BufferBinding{Buffer: s.uniform.NativeHandle(), Offset: 0, Size: s.size},
	})
	for i, tex := range textures {
		view, ok := s.bindings.textures.View(tex)
		if !ok {
			return fmt.Errorf("%w: slot %d handle %d", ErrUnknownTexture, i, tex)
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  uint32(1 + i), //nolint:gosec // slot count is small
			Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()},
		})
	}
	entries = append(entries, gputypes.BindGroupEntry{
		Binding:  uint32(1 + len(textures)), //nolint:gosec // slot count is small
		Resource: gputypes.SamplerBinding{Sampler: s.sampler.NativeHandle()},
	})

	device := s.bindings.dev.device
	group, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   s.label,
		Layout:  s.bgl,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("native: bind group %s: %w", s.label, err)
	}
	if s.group != nil {
		device.DestroyBindGroup(s.group)
	}
	s.group = group
	return nil
}

// BindGroup returns the current bind group, or nil before the first
// texture write.
func (s *Slot) BindGroup() hal.BindGroup { return s.group }

// Destroy releases the bind group and uniform buffer.
func (s *Slot) Destroy() {
	device := s.bindings.dev.device
	if s.group != nil {
		device.DestroyBindGroup(s.group)
		s.group = nil
	}
	if s.uniform != nil {
		device.DestroyBuffer(s.uniform)
		s.uniform = nil
	}
}

var _ gpusync.Backend = (*Bindings)(nil)

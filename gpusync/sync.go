package gpusync

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggui"
)

// Slot is the GPU-visible half of a descriptor slot: a uniform buffer
// region and its texture bindings. Each write is a driver call that
// ResourceSync tries to avoid.
type Slot interface {
	WriteUniforms(data []byte) error
	WriteTextures(textures []ggui.TextureHandle) error
	Destroy()
}

// Backend creates slots for a pass layout.
type Backend interface {
	CreateSlot(layout *PassLayout, index int) (Slot, error)
}

// Config holds ResourceSync configuration.
type Config struct {
	// FramesInFlight is the number of slots per pass.
	// Default: 2
	FramesInFlight int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{FramesInFlight: 2}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.FramesInFlight < 1 || c.FramesInFlight > 4 {
		return fmt.Errorf("gpusync: FramesInFlight must be in 1..4, got %d", c.FramesInFlight)
	}
	return nil
}

// BindingSet is the ready-to-submit output of EndFrame.
type BindingSet struct {
	Pass  string
	Frame uint64
	Index int
	Slot  Slot

	// UniformsWritten and TexturesWritten report which parts were pushed
	// to the GPU this frame; both false means the slot was reused as is.
	UniformsWritten bool
	TexturesWritten bool
}

// Stats holds ResourceSync counters.
type Stats struct {
	Frames        uint64
	UniformWrites uint64
	TextureWrites uint64
	Elided        uint64
	Waits         uint64
	Ignored       uint64
	Abandoned     uint64
}

// Writes returns the number of GPU-visible writes.
func (s Stats) Writes() uint64 {
	return s.UniformWrites + s.TextureWrites
}

type slot struct {
	res       Slot
	used      bool
	lastFrame uint64

	uniforms   []byte
	textures   []ggui.TextureHandle
	uniformsOK bool
	texturesOK bool
}

// ResourceSync keeps one pass's bindings N-way buffered.
//
// Frame f uses slot f mod N. Before a slot is reused, BeginFrame waits on
// the fence for the frame that last used it; this is the only blocking
// call. Uniform values and textures persist across frames, and EndFrame
// only writes the parts that differ from what that slot last received.
//
// ResourceSync is owned by the render goroutine and is not safe for
// concurrent use.
type ResourceSync struct {
	layout  *PassLayout
	backend Backend
	fence   Fence
	mode    ggui.BuildMode

	slots    []slot
	uniforms []byte
	textures []ggui.TextureHandle

	cur   int
	frame uint64
	stats Stats
}

// New creates a ResourceSync for one pass. The build mode is taken from ctx.
func New(ctx *ggui.Context, layout *PassLayout, backend Backend, fence Fence, cfg Config) (*ResourceSync, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if layout == nil || backend == nil || fence == nil {
		return nil, fmt.Errorf("gpusync: layout, backend and fence are required")
	}
	mode := ggui.BuildDebug
	if ctx != nil {
		mode = ctx.BuildMode()
	}
	return &ResourceSync{
		layout:   layout,
		backend:  backend,
		fence:    fence,
		mode:     mode,
		slots:    make([]slot, cfg.FramesInFlight),
		uniforms: make([]byte, layout.Size()),
		textures: make([]ggui.TextureHandle, layout.TextureSlots()),
		cur:      -1,
	}, nil
}

// Layout returns the pass layout.
func (s *ResourceSync) Layout() *PassLayout { return s.layout }

// Stats returns the counters.
func (s *ResourceSync) Stats() Stats { return s.stats }

// BeginFrame selects the slot for frameIndex, waiting for the GPU to
// release it if needed.
func (s *ResourceSync) BeginFrame(ctx context.Context, frameIndex uint64) error {
	if s.cur >= 0 {
		return ErrFrameInProgress
	}
	idx := int(frameIndex % uint64(len(s.slots)))
	sl := &s.slots[idx]

	if sl.used && s.fence.Completed() <= sl.lastFrame {
		s.stats.Waits++
		ggui.Logger().Debug("gpusync: waiting for slot",
			"pass", s.layout.name, "slot", idx, "frame", sl.lastFrame)
		if err := s.fence.Wait(ctx, sl.lastFrame); err != nil {
			return fmt.Errorf("gpusync: wait for frame %d: %w", sl.lastFrame, err)
		}
	}

	if sl.res == nil {
		res, err := s.backend.CreateSlot(s.layout, idx)
		if err != nil {
			return fmt.Errorf("gpusync: create slot %d of %q: %w", idx, s.layout.name, err)
		}
		sl.res = res
	}

	s.cur = idx
	s.frame = frameIndex
	return nil
}

// SetUniform stores data for a named uniform. The value persists until it
// is set again.
func (s *ResourceSync) SetUniform(name string, data []byte) {
	f, ok := s.layout.Lookup(name)
	if !ok {
		s.violation(name, ErrUnknownUniform)
		return
	}
	if len(data) != f.Type.Size() {
		s.violation(name, ErrUniformSize)
		return
	}
	copy(s.uniforms[f.Offset:], data)
}

// SetFloat32 stores an f32 uniform.
func (s *ResourceSync) SetFloat32(name string, v float32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	s.SetUniform(name, b[:])
}

// SetVec4 stores a vec4<f32> uniform.
func (s *ResourceSync) SetVec4(name string, v mgl32.Vec4) {
	s.SetUniform(name, floatBytes(v[:]))
}

// SetMat4 stores a column-major mat4x4<f32> uniform.
func (s *ResourceSync) SetMat4(name string, m mgl32.Mat4) {
	s.SetUniform(name, floatBytes(m[:]))
}

// SetTexture binds tex to a texture slot.
func (s *ResourceSync) SetTexture(slot int, tex ggui.TextureHandle) {
	if slot < 0 || slot >= len(s.textures) {
		s.violation(fmt.Sprintf("texture[%d]", slot), ErrTextureSlot)
		return
	}
	s.textures[slot] = tex
}

// EndFrame writes whatever differs from the slot's last snapshot and
// returns the binding set for submission.
func (s *ResourceSync) EndFrame() (BindingSet, error) {
	if s.cur < 0 {
		return BindingSet{}, ErrNoFrame
	}
	idx := s.cur
	s.cur = -1
	sl := &s.slots[idx]

	set := BindingSet{Pass: s.layout.name, Frame: s.frame, Index: idx, Slot: sl.res}

	if sl.uniformsOK && bytes.Equal(sl.uniforms, s.uniforms) {
		s.stats.Elided++
	} else {
		if err := sl.res.WriteUniforms(s.uniforms); err != nil {
			return BindingSet{}, fmt.Errorf("gpusync: write uniforms of %q: %w", s.layout.name, err)
		}
		sl.uniforms = append(sl.uniforms[:0], s.uniforms...)
		sl.uniformsOK = true
		s.stats.UniformWrites++
		set.UniformsWritten = true
	}

	if sl.texturesOK && slices.Equal(sl.textures, s.textures) {
		s.stats.Elided++
	} else {
		if err := sl.res.WriteTextures(s.textures); err != nil {
			return BindingSet{}, fmt.Errorf("gpusync: write textures of %q: %w", s.layout.name, err)
		}
		sl.textures = append(sl.textures[:0], s.textures...)
		sl.texturesOK = true
		s.stats.TextureWrites++
		set.TexturesWritten = true
	}

	sl.used = true
	sl.lastFrame = s.frame
	s.stats.Frames++
	return set, nil
}

// Abandon tells s that set was never submitted, so its frame will not
// signal the fence and nothing waits for it. Whatever the slot held before
// finished when BeginFrame selected it. Sets from older frames are ignored.
func (s *ResourceSync) Abandon(set BindingSet) {
	if set.Pass != s.layout.name || set.Index < 0 || set.Index >= len(s.slots) {
		return
	}
	sl := &s.slots[set.Index]
	if !sl.used || sl.lastFrame != set.Frame {
		return
	}
	sl.used = false
	s.stats.Abandoned++
	ggui.Logger().Debug("gpusync: frame abandoned", "pass", s.layout.name, "slot", set.Index, "frame", set.Frame)
}

// Destroy releases every slot. It waits for in-flight frames first unless
// ctx is done.
func (s *ResourceSync) Destroy(ctx context.Context) {
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.res == nil {
			continue
		}
		if sl.used && s.fence.Completed() <= sl.lastFrame {
			if err := s.fence.Wait(ctx, sl.lastFrame); err != nil {
				ggui.Logger().Warn("gpusync: destroying slot in flight",
					"pass", s.layout.name, "slot", i, "err", err)
			}
		}
		sl.res.Destroy()
		*sl = slot{}
	}
	s.cur = -1
}

func (s *ResourceSync) violation(name string, kind error) {
	err := &BindingError{Pass: s.layout.name, Name: name, Err: kind}
	if s.mode == ggui.BuildDebug {
		panic(err)
	}
	s.stats.Ignored++
	ggui.Logger().Warn("gpusync: binding ignored", "pass", err.Pass, "name", err.Name, "err", kind)
}

func floatBytes(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

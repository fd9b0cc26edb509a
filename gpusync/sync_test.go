package gpusync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggui"
)

type recordingSlot struct {
	index         int
	uniformWrites int
	textureWrites int
	last          []byte
	lastTex       []ggui.TextureHandle
	destroyed     bool
}

func (s *recordingSlot) WriteUniforms(data []byte) error {
	s.uniformWrites++
	s.last = append(s.last[:0], data...)
	return nil
}

func (s *recordingSlot) WriteTextures(tex []ggui.TextureHandle) error {
	s.textureWrites++
	s.lastTex = append(s.lastTex[:0], tex...)
	return nil
}

func (s *recordingSlot) Destroy() { s.destroyed = true }

type recordingBackend struct {
	slots []*recordingSlot
}

func (b *recordingBackend) CreateSlot(_ *PassLayout, index int) (Slot, error) {
	s := &recordingSlot{index: index}
	b.slots = append(b.slots, s)
	return s, nil
}

func (b *recordingBackend) uniformWrites() int {
	n := 0
	for _, s := range b.slots {
		n += s.uniformWrites
	}
	return n
}

func canvasLayout() *PassLayout {
	return NewPassLayout("canvas", 1,
		Field{Name: "projection", Type: Mat4},
		Field{Name: "tint", Type: Vec4},
		Field{Name: "opacity", Type: F32},
	)
}

func newTestSync(t *testing.T, mode ggui.BuildMode, frames int) (*ResourceSync, *recordingBackend, *ManualFence) {
	t.Helper()
	b := &recordingBackend{}
	f := NewManualFence()
	s, err := New(ggui.NewContext(ggui.WithBuildMode(mode)), canvasLayout(), b, f, Config{FramesInFlight: frames})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, b, f
}

func runFrame(t *testing.T, s *ResourceSync, f *ManualFence, frame uint64, set func()) BindingSet {
	t.Helper()
	if err := s.BeginFrame(context.Background(), frame); err != nil {
		t.Fatalf("BeginFrame(%d): %v", frame, err)
	}
	set()
	bs, err := s.EndFrame()
	if err != nil {
		t.Fatalf("EndFrame(%d): %v", frame, err)
	}
	f.Signal(frame)
	return bs
}

func TestSameUniformTwiceWritesOnce(t *testing.T) {
	s, b, _ := newTestSync(t, ggui.BuildDebug, 2)

	if err := s.BeginFrame(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	s.SetFloat32("opacity", 0.5)
	s.SetFloat32("opacity", 0.5)
	if _, err := s.EndFrame(); err != nil {
		t.Fatal(err)
	}
	if got := b.uniformWrites(); got != 1 {
		t.Errorf("uniform writes = %d, want 1", got)
	}
}

func TestElisionPerSlot(t *testing.T) {
	s, b, f := newTestSync(t, ggui.BuildDebug, 2)
	set := func() {
		s.SetFloat32("opacity", 1)
		s.SetTexture(0, 7)
	}

	for frame := uint64(0); frame < 6; frame++ {
		bs := runFrame(t, s, f, frame, set)
		if bs.Index != int(frame%2) {
			t.Errorf("frame %d used slot %d, want %d", frame, bs.Index, frame%2)
		}
		wantWrite := frame < 2
		if bs.UniformsWritten != wantWrite || bs.TexturesWritten != wantWrite {
			t.Errorf("frame %d written=%v/%v, want %v", frame, bs.UniformsWritten, bs.TexturesWritten, wantWrite)
		}
	}

	if len(b.slots) != 2 {
		t.Fatalf("created %d slots, want 2", len(b.slots))
	}
	for _, sl := range b.slots {
		if sl.uniformWrites != 1 || sl.textureWrites != 1 {
			t.Errorf("slot %d writes = %d/%d, want 1/1", sl.index, sl.uniformWrites, sl.textureWrites)
		}
	}
	st := s.Stats()
	if st.Frames != 6 || st.Writes() != 4 || st.Elided != 8 {
		t.Errorf("stats = %+v, want 6 frames, 4 writes, 8 elided", st)
	}
}

func TestChangeWritesOnlyChangedPart(t *testing.T) {
	s, b, f := newTestSync(t, ggui.BuildDebug, 1)
	runFrame(t, s, f, 0, func() { s.SetTexture(0, 1) })

	bs := runFrame(t, s, f, 1, func() { s.SetVec4("tint", mgl32.Vec4{1, 0, 0, 1}) })
	if !bs.UniformsWritten || bs.TexturesWritten {
		t.Errorf("written = %v/%v, want uniforms only", bs.UniformsWritten, bs.TexturesWritten)
	}

	bs = runFrame(t, s, f, 2, func() { s.SetTexture(0, 2) })
	if bs.UniformsWritten || !bs.TexturesWritten {
		t.Errorf("written = %v/%v, want textures only", bs.UniformsWritten, bs.TexturesWritten)
	}
	if got := b.slots[0].lastTex[0]; got != 2 {
		t.Errorf("slot texture = %d, want 2", got)
	}
}

func TestUniformLayoutOffsets(t *testing.T) {
	s, b, f := newTestSync(t, ggui.BuildDebug, 1)
	runFrame(t, s, f, 0, func() {
		s.SetMat4("projection", mgl32.Ident4())
		s.SetFloat32("opacity", 1)
	})
	data := b.slots[0].last
	if len(data) != 96 {
		t.Fatalf("uniform block = %d bytes, want 96", len(data))
	}
	// Identity diagonal: m[0] at byte 0, opacity at offset 80.
	if data[3] != 0x3f || data[83] != 0x3f {
		t.Errorf("unexpected block contents %x", data)
	}
}

func TestWaitsForSlotInFlight(t *testing.T) {
	s, _, f := newTestSync(t, ggui.BuildDebug, 2)
	ctx := context.Background()

	for frame := uint64(0); frame < 2; frame++ {
		if err := s.BeginFrame(ctx, frame); err != nil {
			t.Fatal(err)
		}
		if _, err := s.EndFrame(); err != nil {
			t.Fatal(err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- s.BeginFrame(ctx, 2) }()

	select {
	case err := <-done:
		t.Fatalf("BeginFrame(2) returned %v before frame 0 finished", err)
	case <-time.After(20 * time.Millisecond):
	}

	f.Signal(0)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("BeginFrame(2): %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("BeginFrame(2) still blocked after frame 0 finished")
	}
	if s.Stats().Waits != 1 {
		t.Errorf("Waits = %d, want 1", s.Stats().Waits)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	s, _, _ := newTestSync(t, ggui.BuildDebug, 1)
	if err := s.BeginFrame(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := s.EndFrame(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.BeginFrame(ctx, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("BeginFrame = %v, want context.Canceled", err)
	}
}

func TestUnknownUniformPanicsInDebug(t *testing.T) {
	s, _, _ := newTestSync(t, ggui.BuildDebug, 2)
	defer func() {
		r := recover()
		err, ok := r.(*BindingError)
		if !ok {
			t.Fatalf("recovered %v, want *BindingError", r)
		}
		if !errors.Is(err, ErrUnknownUniform) || err.Name != "colour" {
			t.Errorf("panic = %v", err)
		}
	}()
	s.SetFloat32("colour", 1)
}

func TestBindingErrorsIgnoredInRelease(t *testing.T) {
	s, b, f := newTestSync(t, ggui.BuildRelease, 1)
	runFrame(t, s, f, 0, func() {
		s.SetFloat32("colour", 1)
		s.SetUniform("tint", []byte{1, 2, 3})
		s.SetTexture(3, 9)
	})
	if got := s.Stats().Ignored; got != 3 {
		t.Errorf("Ignored = %d, want 3", got)
	}
	for _, v := range b.slots[0].last {
		if v != 0 {
			t.Fatalf("ignored bindings leaked into the uniform block: %x", b.slots[0].last)
		}
	}
}

func TestFrameMisuse(t *testing.T) {
	s, _, _ := newTestSync(t, ggui.BuildDebug, 2)
	if _, err := s.EndFrame(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("EndFrame without BeginFrame = %v, want ErrNoFrame", err)
	}
	if err := s.BeginFrame(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if err := s.BeginFrame(context.Background(), 1); !errors.Is(err, ErrFrameInProgress) {
		t.Errorf("nested BeginFrame = %v, want ErrFrameInProgress", err)
	}
}

func TestDestroyReleasesSlots(t *testing.T) {
	s, b, f := newTestSync(t, ggui.BuildDebug, 2)
	runFrame(t, s, f, 0, func() {})
	runFrame(t, s, f, 1, func() {})
	s.Destroy(context.Background())
	for _, sl := range b.slots {
		if !sl.destroyed {
			t.Errorf("slot %d not destroyed", sl.index)
		}
	}
}

func TestAbandonedFrameDoesNotBlock(t *testing.T) {
	s, _, _ := newTestSync(t, ggui.BuildDebug, 2)
	ctx := context.Background()
	if err := s.BeginFrame(ctx, 0); err != nil {
		t.Fatal(err)
	}
	set, err := s.EndFrame()
	if err != nil {
		t.Fatal(err)
	}
	s.Abandon(set)
	s.Abandon(set)
	if got := s.Stats().Abandoned; got != 1 {
		t.Errorf("Abandoned = %d, want 1", got)
	}

	// Frame 2 reuses slot 0; frame 0 never reached the GPU.
	done := make(chan error, 1)
	go func() { done <- s.BeginFrame(ctx, 2) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("BeginFrame(2): %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("BeginFrame(2) waited on an abandoned frame")
	}
	set2, err := s.EndFrame()
	if err != nil {
		t.Fatal(err)
	}
	s.Abandon(set)
	s.Abandon(set2)

	destroyed := make(chan struct{})
	go func() {
		s.Destroy(ctx)
		close(destroyed)
	}()
	select {
	case <-destroyed:
	case <-time.After(2 * time.Second):
		t.Fatal("Destroy waited on abandoned frames")
	}
	if got := s.Stats().Waits; got != 0 {
		t.Errorf("Waits = %d, want 0", got)
	}
}

func TestConfigValidate(t *testing.T) {
	for _, n := range []int{0, 5} {
		cfg := Config{FramesInFlight: n}
		if cfg.Validate() == nil {
			t.Errorf("FramesInFlight=%d accepted", n)
		}
	}
	def := DefaultConfig()
	if err := def.Validate(); err != nil {
		t.Errorf("DefaultConfig: %v", err)
	}
}

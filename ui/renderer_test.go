package ui

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggui"
	"github.com/gogpu/ggui/gpusync"
)

type countingSlot struct {
	uniforms, textures int
	destroyed          bool
}

func (s *countingSlot) WriteUniforms([]byte) error             { s.uniforms++; return nil }
func (s *countingSlot) WriteTextures([]ggui.TextureHandle) error { s.textures++; return nil }
func (s *countingSlot) Destroy()                               { s.destroyed = true }

type countingBackend struct {
	slots []*countingSlot
}

func (b *countingBackend) CreateSlot(*gpusync.PassLayout, int) (gpusync.Slot, error) {
	s := &countingSlot{}
	b.slots = append(b.slots, s)
	return s, nil
}

// syncSink draws nothing and retires each frame as soon as it is submitted.
type syncSink struct {
	fence *gpusync.ManualFence
	calls [][]DrawCall
}

func (s *syncSink) Draw(_ context.Context, frame uint64, calls []DrawCall) error {
	s.calls = append(s.calls, append([]DrawCall(nil), calls...))
	s.fence.Signal(frame)
	return nil
}

func newTestRenderer(t *testing.T, c *Canvas) (*Renderer, *countingBackend, *syncSink) {
	t.Helper()
	fence := gpusync.NewManualFence()
	backend := &countingBackend{}
	sink := &syncSink{fence: fence}
	r, err := NewRenderer(c, sink, backend, fence, gpusync.Config{FramesInFlight: 2})
	if err != nil {
		t.Fatal(err)
	}
	return r, backend, sink
}

func TestRendererElidesUnchangedBindings(t *testing.T) {
	c := newCanvas(t, nil, nil)
	mustRegister(t, c, "a", solid(4, 4, red))
	c.AddView(NewSprite("a", 20, 20))
	r, backend, sink := newTestRenderer(t, c)
	ctx := context.Background()

	for frame := uint64(0); frame < 4; frame++ {
		if err := r.Render(ctx, frame); err != nil {
			t.Fatalf("frame %d: %v", frame, err)
		}
	}
	if len(backend.slots) != 2 {
		t.Fatalf("slots = %d, want 2", len(backend.slots))
	}
	for i, s := range backend.slots {
		if s.uniforms != 1 || s.textures != 1 {
			t.Errorf("slot %d wrote uniforms %d times, textures %d times", i, s.uniforms, s.textures)
		}
	}
	st := r.SyncStats()
	if st.Frames != 4 || st.Writes() != 4 || st.Elided != 4 || st.Waits != 0 {
		t.Errorf("SyncStats = %+v", st)
	}

	if len(sink.calls) != 4 {
		t.Fatalf("sink saw %d frames", len(sink.calls))
	}
	call := sink.calls[3][0]
	if call.Binding.Pass != "canvas" || call.Binding.Index != 1 || call.Mesh.Quads() != 1 {
		t.Errorf("frame 3 call = %+v", call.Binding)
	}
	if call.Binding.UniformsWritten || call.Binding.TexturesWritten {
		t.Error("frame 3 rewrote unchanged bindings")
	}

	r.SetTint(mgl32.Vec4{1, 1, 1, 0.5})
	r.Render(ctx, 4)
	if backend.slots[0].uniforms != 2 || backend.slots[0].textures != 1 {
		t.Errorf("after tint: uniforms %d, textures %d", backend.slots[0].uniforms, backend.slots[0].textures)
	}
	if c.Stats().FrameUploads != 0 {
		t.Error("Render did not end the canvas frame")
	}

	r.Destroy(ctx)
	for i, s := range backend.slots {
		if !s.destroyed {
			t.Errorf("slot %d not destroyed", i)
		}
	}
}

func TestRendererPassPerLayer(t *testing.T) {
	c := newCanvas(t, nil, func(cfg *CanvasConfig) {
		cfg.Atlas.LayerWidth, cfg.Atlas.LayerHeight = 64, 64
		cfg.Atlas.Padding = 0
	})
	mustRegister(t, c, "x", solid(48, 48, red))
	mustRegister(t, c, "y", solid(48, 48, blue))
	c.AddView(NewSprite("x", 48, 48))
	c.AddView(NewSprite("y", 48, 48))
	r, backend, sink := newTestRenderer(t, c)

	if err := r.Render(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	calls := sink.calls[0]
	if len(calls) != 2 {
		t.Fatalf("draw calls = %d, want one per layer", len(calls))
	}
	if calls[0].Mesh.Layer != 0 || calls[1].Mesh.Layer != 1 {
		t.Errorf("layers = %d, %d", calls[0].Mesh.Layer, calls[1].Mesh.Layer)
	}
	if calls[0].Mesh.Texture == calls[1].Mesh.Texture {
		t.Error("layers share a texture")
	}
	if len(backend.slots) != 2 {
		t.Errorf("slots = %d, want one per layer for frame 0", len(backend.slots))
	}
}

// failingSink rejects every frame without submitting it.
type failingSink struct{ draws int }

func (s *failingSink) Draw(context.Context, uint64, []DrawCall) error {
	s.draws++
	return errors.New("device lost")
}

func TestRendererFailedDrawDoesNotBlock(t *testing.T) {
	c := newCanvas(t, nil, func(cfg *CanvasConfig) {
		cfg.Atlas.LayerWidth, cfg.Atlas.LayerHeight = 64, 64
		cfg.Atlas.Padding = 0
	})
	mustRegister(t, c, "x", solid(48, 48, red))
	mustRegister(t, c, "y", solid(48, 48, blue))
	c.AddView(NewSprite("x", 48, 48))
	c.AddView(NewSprite("y", 48, 48))

	fence := gpusync.NewManualFence()
	sink := &failingSink{}
	r, err := NewRenderer(c, sink, &countingBackend{}, fence, gpusync.Config{FramesInFlight: 1})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		for frame := uint64(0); frame < 3; frame++ {
			if err := r.Render(context.Background(), frame); err == nil {
				done <- fmt.Errorf("frame %d: Render succeeded with a failing sink", frame)
				return
			}
		}
		r.Destroy(context.Background())
		done <- nil
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("renderer waited on frames that were never submitted")
	}
	if sink.draws != 3 {
		t.Errorf("draws = %d, want 3", sink.draws)
	}
	if got := r.SyncStats().Abandoned; got != 6 {
		t.Errorf("Abandoned = %d, want 6 over two layers", got)
	}
}

func TestNewRendererValidates(t *testing.T) {
	c := newCanvas(t, nil, nil)
	fence := gpusync.NewManualFence()
	if _, err := NewRenderer(c, &syncSink{fence: fence}, &countingBackend{}, fence, gpusync.Config{}); err == nil {
		t.Error("zero FramesInFlight accepted")
	}
	if _, err := NewRenderer(c, nil, &countingBackend{}, fence, gpusync.DefaultConfig()); err == nil {
		t.Error("nil sink accepted")
	}
}

func TestCanvasPassLayout(t *testing.T) {
	l := CanvasPassLayout()
	if l.Size() != 80 || l.TextureSlots() != 1 {
		t.Errorf("layout size %d, textures %d", l.Size(), l.TextureSlots())
	}
	if f, ok := l.Lookup(UniformTint); !ok || f.Offset != 64 {
		t.Errorf("tint at %+v", f)
	}
}

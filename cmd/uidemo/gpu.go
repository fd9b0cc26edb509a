//go:build !nogpu

package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gogpu/ggui"
	"github.com/gogpu/ggui/backend/native"
	"github.com/gogpu/ggui/gpusync"
	"github.com/gogpu/ggui/text"
	"github.com/gogpu/ggui/ui"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"
)

// runGPU renders the scene through the native backend on a noop HAL
// device and reports the submission and binding counters.
func runGPU(opts options) error {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return fmt.Errorf("noop instance: %w", err)
	}
	defer instance.Destroy()
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("noop instance has no adapter")
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open noop device: %w", err)
	}
	defer open.Device.Destroy()

	dev, err := native.New(open.Device, open.Queue)
	if err != nil {
		return err
	}
	textures := native.NewTextures(dev)
	defer textures.Close()
	glyphs, err := text.New(text.DefaultConfig())
	if err != nil {
		return err
	}
	canvas, err := ui.NewCanvas(ggui.NewContext(
		ggui.WithTextureProvider(textures),
		ggui.WithGlyphSource(glyphs),
	), canvasConfig(opts))
	if err != nil {
		return err
	}
	defer canvas.Close()
	scene, err := buildScene(canvas, nil)
	if err != nil {
		return err
	}

	bindings := native.NewBindings(dev, textures, canvas.Filter())
	defer bindings.Destroy()
	fence, err := native.NewFence(dev)
	if err != nil {
		return err
	}
	defer fence.Destroy()
	presenter, err := native.NewPresenter(bindings, fence, opts.width, opts.height)
	if err != nil {
		return err
	}
	defer presenter.Destroy()

	renderer, err := ui.NewRenderer(canvas, presenter, bindings, fence, gpusync.DefaultConfig())
	if err != nil {
		return err
	}
	ctx := context.Background()
	defer renderer.Destroy(ctx)

	for frame := 0; frame < opts.frames; frame++ {
		scene.animate(canvas, frame, nil)
		if err := renderer.Render(ctx, uint64(frame)); err != nil { //nolint:gosec // frame is non-negative
			return fmt.Errorf("frame %d: %w", frame, err)
		}
	}
	if _, err := presenter.Snapshot(ctx); err != nil {
		return err
	}

	ps, ss := presenter.Stats(), renderer.SyncStats()
	log.Printf("gpu: %d frames, %d draw calls, %d indices", ps.Frames, ps.DrawCalls, ps.Indices)
	log.Printf("gpu: %d binding writes, %d elided, %d fence waits", ss.Writes(), ss.Elided, ss.Waits)
	return nil
}

// Command uidemo builds a small canvas headlessly, drives it for a number
// of frames and writes the atlas layers out as PNG files.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gogpu/ggui"
	"github.com/gogpu/ggui/assets"
	"github.com/gogpu/ggui/input"
	"github.com/gogpu/ggui/text"
	"github.com/gogpu/ggui/ui"
)

// loadTimeout bounds the wait for asset loads after the last frame.
const loadTimeout = 5 * time.Second

type options struct {
	width, height int
	atlasSize     int
	frames        int
	assetsDir     string
	outDir        string
	gpu           bool
}

func main() {
	var (
		opts    options
		verbose = flag.Bool("v", false, "log canvas activity to stderr")
	)
	flag.IntVar(&opts.width, "width", 480, "canvas width")
	flag.IntVar(&opts.height, "height", 320, "canvas height")
	flag.IntVar(&opts.atlasSize, "atlas", 256, "atlas layer size")
	flag.IntVar(&opts.frames, "frames", 60, "frames to run")
	flag.StringVar(&opts.assetsDir, "assets", "", "directory of images to show as sprites")
	flag.StringVar(&opts.outDir, "out", "uidemo_out", "output directory")
	flag.BoolVar(&opts.gpu, "gpu", false, "also render the scene through the native backend on a noop device")
	flag.Parse()

	if *verbose {
		ggui.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func run(opts options) error {
	glyphs, err := text.New(text.DefaultConfig())
	if err != nil {
		return err
	}
	textures := ggui.NewMemoryTextures()
	ctxOpts := []ggui.Option{
		ggui.WithTextureProvider(textures),
		ggui.WithGlyphSource(glyphs),
	}

	var loader *assets.Loader
	if opts.assetsDir != "" {
		cfg := assets.DefaultConfig()
		cfg.FS = os.DirFS(opts.assetsDir)
		cfg.MaxSize = opts.atlasSize / 2
		loader, err = assets.NewLoader(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = loader.Close(context.Background()) }()
		ctxOpts = append(ctxOpts, ggui.WithAssetLoader(loader))
	}

	canvas, err := ui.NewCanvas(ggui.NewContext(ctxOpts...), canvasConfig(opts))
	if err != nil {
		return err
	}
	defer canvas.Close()

	files, err := imageFiles(opts.assetsDir)
	if err != nil {
		return err
	}
	scene, err := buildScene(canvas, files)
	if err != nil {
		return err
	}

	router := ui.NewTouchRouter(canvas)
	touches := input.NewQueue()
	for frame := 0; frame < opts.frames; frame++ {
		scene.animate(canvas, frame, touches)
		touches.Drain(router.Dispatch)
		canvas.Update(uint64(frame)) //nolint:gosec // frame is non-negative
		canvas.OnFrameEnd()
	}
	if loader != nil {
		waitForLoads(canvas, loader, uint64(opts.frames)) //nolint:gosec // frames is non-negative
	}

	st := canvas.Stats()
	log.Printf("canvas: %d views, %d visible, %d meshes, %d quads, %d uploads, %d repacks, %d taps",
		st.Views, st.Visible, st.Meshes, st.Quads, st.Uploads, st.Repacks, scene.taps)
	ts := router.Stats()
	log.Printf("touch: %d dispatched, %d consumed, %d stale", ts.Dispatched, ts.Consumed, ts.StaleEvents)

	if err := dumpLayers(canvas, textures, opts.outDir); err != nil {
		return err
	}
	if opts.gpu {
		return runGPU(opts)
	}
	return nil
}

func canvasConfig(opts options) ui.CanvasConfig {
	cfg := ui.DefaultCanvasConfig()
	cfg.Width, cfg.Height = opts.width, opts.height
	cfg.Atlas.LayerWidth, cfg.Atlas.LayerHeight = opts.atlasSize, opts.atlasSize
	return cfg
}

// waitForLoads keeps updating until the loader is idle or loadTimeout
// passes.
func waitForLoads(canvas *ui.Canvas, loader *assets.Loader, frame uint64) {
	deadline := time.Now().Add(loadTimeout)
	for loader.Stats().Pending > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		canvas.Update(frame)
		canvas.OnFrameEnd()
		frame++
	}
	canvas.Update(frame)
	canvas.OnFrameEnd()
	ls := loader.Stats()
	log.Printf("assets: %d requested, %d decoded, %d failed", ls.Requested, ls.Decoded, ls.Failed)
}

func dumpLayers(canvas *ui.Canvas, textures *ggui.MemoryTextures, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	layers := canvas.Atlas().Stats().Layers
	for i := 0; i < layers; i++ {
		img, ok := textures.Image(canvas.Texture(i))
		if !ok {
			continue
		}
		name := filepath.Join(dir, fmt.Sprintf("atlas_%d.png", i))
		f, err := os.Create(name)
		if err != nil {
			return err
		}
		if err := png.Encode(f, img); err != nil {
			_ = f.Close()
			return fmt.Errorf("encode %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Printf("wrote %s", name)
	}
	return nil
}

// Package ggui packs, batches and binds retained-mode UI for the GoGPU
// ecosystem.
//
// # Overview
//
// A ggui canvas owns a tree of views (sprites, labels and solid quads).
// Their images and glyphs are packed into a small number of texture atlas
// layers, and every frame the canvas produces one mesh per layer so the
// whole UI draws in a handful of draw calls. A separate synchronization
// layer keeps per-frame uniform and texture bindings N-way buffered so the
// CPU never overwrites data a frame in flight is still reading.
//
// # Quick Start
//
//	ctx := ggui.NewContext()
//	canvas, _ := ui.NewCanvas(ctx, ui.DefaultCanvasConfig())
//	canvas.OnResize(800, 600)
//
//	canvas.RegisterImage("button", img)
//	canvas.AddView(ui.NewSprite("button").SetSize(120, 40))
//
//	meshes := canvas.Rebuild()
//
// # Architecture
//
//   - atlas: rectangle packer and content-keyed atlas cache
//   - ui: canvas batcher, views, touch router, canvas renderer
//   - gpusync: frames-in-flight descriptor slots and write elision
//   - input: touch events and the coalescing input queue
//   - assets: worker-pool image decoding with a completion queue
//   - text: label shaping and glyph rasterization
//   - backend/native: wgpu HAL implementation of the GPU contracts
//
// This package holds what they share: the Context, the texture provider,
// asset loader and glyph source contracts, and the logger.
//
// # Logging
//
// Nothing is logged by default. Use SetLogger to route diagnostics to a
// slog.Logger.
package ggui

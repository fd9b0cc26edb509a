// Package ui batches a tree of views into per-layer atlas meshes and routes
// touches to them.
//
// A Canvas owns the views. Each view lays out against its parent through
// anchors, a pivot and an offset, and draws a Sprite, a Label or a Quad.
// Rebuild places every visible view's content in the canvas' atlas,
// uploads what is new, and emits one ViewMesh per atlas layer in use, so
// each layer costs one draw call:
//
//	canvas, _ := ui.NewCanvas(ctx, ui.DefaultCanvasConfig())
//	canvas.RegisterImage("button", buttonRGBA)
//	id := canvas.AddView(ui.NewSprite("button", 120, 40))
//	for frame := uint64(0); ; frame++ {
//		meshes := canvas.Update(frame)
//		// draw meshes
//		canvas.OnFrameEnd()
//	}
//
// Renderer pairs the meshes with GPU bindings kept by package gpusync, and
// TouchRouter resolves input.Touch events against the same view tree.
package ui

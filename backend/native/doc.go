// Package native draws ggui canvases with the wgpu HAL.
//
// The package does not open a device. A host application hands over its
// hal.Device and hal.Queue, either directly through New or through a
// gpucontext.DeviceProvider that also exposes its HAL objects:
//
//	dev, err := native.NewFromProvider(app.DeviceProvider())
//	textures := native.NewTextures(dev)
//	ctx := ggui.NewContext(ggui.WithTextureProvider(textures))
//
//	bindings := native.NewBindings(dev, textures, canvas.Filter())
//	fence, err := native.NewFence(dev)
//	presenter, err := native.NewPresenter(bindings, fence, w, h)
//	renderer, err := ui.NewRenderer(canvas, presenter, bindings, fence, gpusync.DefaultConfig())
//
// Textures uploads atlas layers, Bindings turns gpusync descriptor slots
// into uniform buffers and bind groups, Fence tracks frames with a HAL
// timeline fence and Presenter encodes each frame as one render pass.
package native

// Package assets loads images for canvas content off the render goroutine.
//
// A Loader decodes PNG, JPEG, GIF, BMP, TIFF and WebP files on a worker pool
// and converts them to RGBA. Results are queued and handed to the owner by
// Poll, which the canvas calls once per frame before rebuilding:
//
//	loader, err := assets.NewLoader(assets.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	ctx := ggui.NewContext(ggui.WithAssetLoader(loader))
//	canvas, err := ui.NewCanvas(ctx, ui.DefaultCanvasConfig())
//	canvas.LoadImage("icons/play", "assets/play.png")
//
// Canceled requests never reach Poll.
package assets

// Package gpusync keeps per-pass GPU bindings safe to update while earlier
// frames are still executing.
//
// A ResourceSync owns N descriptor slots for one render pass, where N is the
// number of frames in flight. Frame f writes slot f mod N. The CPU only
// blocks when it is about to reuse a slot whose previous frame the GPU has
// not finished, and each slot remembers the uniform bytes and textures it
// last received so unchanged bindings cost no driver call.
//
// Typical frame:
//
//	if err := rs.BeginFrame(ctx, frame); err != nil {
//		return err
//	}
//	rs.SetMat4("projection", proj)
//	rs.SetTexture(0, atlasLayer)
//	set, err := rs.EndFrame()
//
// Binding mistakes (unknown names, wrong sizes, bad texture slots) panic
// with a *BindingError in ggui.BuildDebug and are logged and skipped in
// ggui.BuildRelease.
package gpusync

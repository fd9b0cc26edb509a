// Package atlas packs UI images and glyphs into fixed-size texture layers.
//
// The package has two layers:
//
//   - Packer is a pure guillotine rectangle packer. Each layer is a binary
//     split tree stored in one node arena; free leaves are found best-fit,
//     depth first, and split along the shorter leftover axis.
//   - Cache maps stable content keys to placements so that static sprites
//     and cached glyphs keep their texels across frames. When the packer is
//     full, the configured Policy evicts, grows or fails.
//
// Neither type talks to a GPU: callers upload pixels into the rect returned
// with inserted == true.
//
// # Usage
//
//	c, err := atlas.NewCache(atlas.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	c.BeginFrame()
//	pl, inserted, err := c.GetOrInsert("icons/close", 24, 24)
//	if errors.Is(err, atlas.ErrAtlasFull) {
//	    // drop the view for this frame
//	}
//	if inserted {
//	    upload(pl.Layer, pl.Rect, pixels)
//	}
//
// Fragmentation only goes down through Cache.Repack, which clears every
// layer and re-inserts the live entries.
package atlas

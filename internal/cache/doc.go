// Package cache provides the recency list and the bounded LRU map shared by
// the atlas cache, the glyph rasterizer and the asset loader.
//
// List is the raw building block: callers that need custom eviction rules
// (the atlas cache skips entries used in the current frame) keep their own
// map and walk the list from the back.
//
//	l := cache.NewList[string]()
//	n := l.PushFront("a")
//	l.Touch(n)
//	oldest, _ := l.Back()
//
// Cache wraps a List with a map and a size limit and is safe for concurrent
// use:
//
//	c := cache.New[string, *image.Alpha](512)
//	mask := c.GetOrCreate(key, rasterize)
package cache

package assets

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"runtime"
	"slices"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gogpu/ggui"
)

func encodePNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func testFS(t *testing.T) fstest.MapFS {
	return fstest.MapFS{
		"red.png":  {Data: encodePNG(t, 8, 4, color.RGBA{R: 255, A: 255})},
		"big.png":  {Data: encodePNG(t, 64, 32, color.RGBA{B: 255, A: 255})},
		"junk.png": {Data: []byte("not an image")},
	}
}

func newTestLoader(t *testing.T, mutate func(*Config)) *Loader {
	t.Helper()
	cfg := DefaultConfig()
	cfg.FS = testFS(t)
	if mutate != nil {
		mutate(&cfg)
	}
	l, err := NewLoader(cfg)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	t.Cleanup(func() { _ = l.Close(context.Background()) })
	return l
}

// pollUntil polls until want results arrived or the deadline passed.
func pollUntil(t *testing.T, l *Loader, want int) map[string]ggui.AssetResult {
	t.Helper()
	got := make(map[string]ggui.AssetResult)
	deadline := time.Now().Add(5 * time.Second)
	for len(got) < want && time.Now().Before(deadline) {
		l.Poll(func(r ggui.AssetResult) { got[r.Key] = r })
		time.Sleep(time.Millisecond)
	}
	if len(got) < want {
		t.Fatalf("got %d results, want %d", len(got), want)
	}
	return got
}

func TestLoaderDecodes(t *testing.T) {
	l := newTestLoader(t, nil)
	if !l.Request("red", "red.png") {
		t.Fatal("Request rejected")
	}
	res := pollUntil(t, l, 1)["red"]
	if res.Err != nil {
		t.Fatalf("load error: %v", res.Err)
	}
	if b := res.Image.Bounds(); b.Dx() != 8 || b.Dy() != 4 {
		t.Errorf("bounds = %v, want 8x4", b)
	}
	if c := res.Image.RGBAAt(3, 2); c.R != 255 || c.A != 255 {
		t.Errorf("pixel = %v, want opaque red", c)
	}
	if l.Pending("red") {
		t.Error("key still pending after delivery")
	}
}

func TestLoaderRejectsDuplicatePending(t *testing.T) {
	l := newTestLoader(t, nil)
	if !l.Request("red", "red.png") {
		t.Fatal("first Request rejected")
	}
	if l.Request("red", "red.png") {
		t.Error("second Request for a pending key accepted")
	}
	pollUntil(t, l, 1)
	if !l.Request("red", "red.png") {
		t.Error("Request after delivery rejected")
	}
}

func TestLoaderFailure(t *testing.T) {
	l := newTestLoader(t, nil)
	l.Request("junk", "junk.png")
	l.Request("gone", "missing.png")

	got := pollUntil(t, l, 2)
	for _, key := range []string{"junk", "gone"} {
		res := got[key]
		if res.Image != nil {
			t.Errorf("%s: image set on failure", key)
		}
		if !errors.Is(res.Err, ggui.ErrAssetLoadFailed) {
			t.Errorf("%s: err = %v, want ErrAssetLoadFailed", key, res.Err)
		}
		var ae *ggui.AssetError
		if !errors.As(res.Err, &ae) || ae.Key != key {
			t.Errorf("%s: err = %#v, want *AssetError for the key", key, res.Err)
		}
	}
	if s := l.Stats(); s.Failed != 2 {
		t.Errorf("Failed = %d, want 2", s.Failed)
	}
}

func TestLoaderCancel(t *testing.T) {
	l := newTestLoader(t, nil)
	l.Request("red", "red.png")
	l.Cancel("red")
	l.Request("big", "big.png")

	got := pollUntil(t, l, 1)
	// Give a late completion of the canceled load a chance to show up.
	time.Sleep(20 * time.Millisecond)
	l.Poll(func(r ggui.AssetResult) { got[r.Key] = r })

	if _, ok := got["red"]; ok {
		t.Error("canceled load was delivered")
	}
	if s := l.Stats(); s.Canceled != 1 {
		t.Errorf("Canceled = %d, want 1", s.Canceled)
	}
}

func TestLoaderBacklog(t *testing.T) {
	l := newTestLoader(t, func(c *Config) {
		c.Workers = 1
		c.MaxInFlight = 1
		c.CacheSize = 0
	})
	keys := []string{"a", "b", "c", "d"}
	for _, k := range keys {
		if !l.Request(k, "red.png") {
			t.Fatalf("Request(%s) rejected", k)
		}
	}
	got := pollUntil(t, l, len(keys))
	for _, k := range keys {
		if got[k].Err != nil {
			t.Errorf("%s: %v", k, got[k].Err)
		}
	}
	if s := l.Stats(); s.Backlog != 0 || s.Decoded != 4 {
		t.Errorf("stats = %+v, want empty backlog and 4 decodes", s)
	}
}

func TestLoaderSharesDecodedPaths(t *testing.T) {
	l := newTestLoader(t, nil)
	l.Request("first", "red.png")
	pollUntil(t, l, 1)

	l.Request("second", "red.png")
	res := pollUntil(t, l, 1)["second"]
	if res.Err != nil || res.Image == nil {
		t.Fatalf("second load = %+v", res)
	}
	if s := l.Stats(); s.CacheHits != 1 || s.Decoded != 1 {
		t.Errorf("stats = %+v, want 1 cache hit and 1 decode", s)
	}
}

func TestLoaderMaxSize(t *testing.T) {
	l := newTestLoader(t, func(c *Config) { c.MaxSize = 16 })
	l.Request("big", "big.png")
	res := pollUntil(t, l, 1)["big"]
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if b := res.Image.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Errorf("bounds = %v, want 16x8", b)
	}
}

func TestLoaderClosed(t *testing.T) {
	l := newTestLoader(t, nil)
	if err := l.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if l.Request("red", "red.png") {
		t.Error("Request accepted after Close")
	}
}

func TestLoaderCloseStopsWorkers(t *testing.T) {
	before := runtime.NumGoroutine()
	for range 5 {
		cfg := DefaultConfig()
		cfg.FS = testFS(t)
		cfg.Workers = 4
		l, err := NewLoader(cfg)
		if err != nil {
			t.Fatal(err)
		}
		l.Request("red", "red.png")
		l.Request("big", "big.png")
		pollUntil(t, l, 2)
		if err := l.Close(context.Background()); err != nil {
			t.Fatal(err)
		}
		if err := l.Close(context.Background()); err != nil {
			t.Fatalf("second Close: %v", err)
		}
	}

	// Stopped workers exit asynchronously.
	deadline := time.Now().Add(5 * time.Second)
	for runtime.NumGoroutine() > before && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := runtime.NumGoroutine(); got > before {
		t.Errorf("goroutines = %d after Close, want at most %d", got, before)
	}
}

func TestLoaderSpreadsWork(t *testing.T) {
	l := newTestLoader(t, func(c *Config) {
		c.Workers = 3
		c.CacheSize = 0
	})
	l.mu.Lock()
	for i := range 3 {
		l.sem.TryAcquire(1)
		l.submit(&request{id: i, key: "k", path: "red.png", canceled: true})
	}
	busy := slices.Clone(l.busy)
	l.mu.Unlock()
	for i, n := range busy {
		if n > 1 {
			t.Errorf("worker %d got %d of 3 tasks", i, n)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"workers", func(c *Config) { c.Workers = 0 }},
		{"in flight", func(c *Config) { c.MaxInFlight = 0 }},
		{"in flight above queue", func(c *Config) { c.MaxInFlight = maxQueued + 1 }},
		{"max size", func(c *Config) { c.MaxSize = -1 }},
		{"cache", func(c *Config) { c.CacheSize = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if cfg.Validate() == nil {
				t.Error("Validate accepted invalid config")
			}
		})
	}
}

func TestFitSize(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{100, 50, 0, 100, 50},
		{100, 50, 200, 100, 50},
		{100, 50, 20, 20, 10},
		{50, 100, 20, 10, 20},
		{1000, 1, 10, 10, 1},
	}
	for _, tt := range tests {
		w, h := fitSize(tt.w, tt.h, tt.max)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("fitSize(%d, %d, %d) = %d, %d; want %d, %d", tt.w, tt.h, tt.max, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestToRGBAOffsetBounds(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 10, 14, 12))
	src.Set(10, 10, color.NRGBA{G: 255, A: 255})
	dst := ToRGBA(src, 0)
	if dst.Bounds() != image.Rect(0, 0, 4, 2) {
		t.Fatalf("bounds = %v", dst.Bounds())
	}
	if c := dst.RGBAAt(0, 0); c.G != 255 {
		t.Errorf("origin pixel = %v", c)
	}
}

package assets

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"golang.org/x/sync/semaphore"

	"github.com/gogpu/ggui"
	"github.com/gogpu/ggui/internal/cache"
)

// Stats holds Loader counters.
type Stats struct {
	Requested uint64
	Decoded   uint64
	Failed    uint64
	Canceled  uint64
	CacheHits uint64
	Pending   int
	Backlog   int
}

type request struct {
	id       int
	key      string
	path     string
	shard    int
	canceled bool
}

type completion struct {
	req    *request
	result ggui.AssetResult
}

// Loader decodes images on a worker pool and hands results back through
// Poll. It implements ggui.AssetLoader.
//
// Each of the Config.Workers decode goroutines is its own single-worker
// pool, so Close can stop every one of them; a task goes to the worker with
// the fewest tasks. At most Config.MaxInFlight decodes run at once. Request never blocks: when
// the bound is reached the request waits in a backlog that the next Poll
// resubmits.
//
// Loader is safe for concurrent use.
type Loader struct {
	cfg     Config
	workers []worker.DynamicWorkerPool
	sem     *semaphore.Weighted
	decoded *cache.Cache[string, *image.RGBA]

	mu      sync.Mutex
	pending map[string]*request
	backlog []*request
	done    []completion
	nextID  int
	busy    []int
	closed  bool
	stopped bool
	stats   Stats
}

// NewLoader creates a loader and starts its worker pool.
func NewLoader(cfg Config) (*Loader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := &Loader{
		cfg:     cfg,
		workers: make([]worker.DynamicWorkerPool, cfg.Workers),
		sem:     semaphore.NewWeighted(int64(cfg.MaxInFlight)),
		pending: make(map[string]*request),
		busy:    make([]int, cfg.Workers),
	}
	for i := range l.workers {
		l.workers[i] = worker.NewDynamicWorkerPool(1, maxQueued, 1*time.Second)
	}
	if cfg.CacheSize > 0 {
		l.decoded = cache.New[string, *image.RGBA](cfg.CacheSize)
	}
	return l, nil
}

// Request schedules a decode of path for key. It returns false if the loader
// is closed or key already has a load pending.
func (l *Loader) Request(key, path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	if _, ok := l.pending[key]; ok {
		return false
	}

	l.nextID++
	req := &request{id: l.nextID, key: key, path: path}
	l.pending[key] = req
	l.stats.Requested++

	if l.decoded != nil {
		if img, ok := l.decoded.Get(path); ok {
			l.stats.CacheHits++
			l.done = append(l.done, completion{req: req, result: ggui.AssetResult{Key: key, Path: path, Image: img}})
			return true
		}
	}

	if l.sem.TryAcquire(1) {
		l.submit(req)
	} else {
		l.backlog = append(l.backlog, req)
	}
	return true
}

// Cancel drops the pending load for key. A decode already running finishes,
// but its result is discarded.
func (l *Loader) Cancel(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	req, ok := l.pending[key]
	if !ok {
		return
	}
	req.canceled = true
	delete(l.pending, key)
	l.stats.Canceled++
}

// Poll resubmits backlogged requests, then delivers every completed result
// to fn in completion order. fn runs on the caller's goroutine without the
// loader lock held.
func (l *Loader) Poll(fn func(ggui.AssetResult)) int {
	l.mu.Lock()
	l.drainBacklog()

	done := l.done
	l.done = nil
	ready := done[:0]
	for _, c := range done {
		if c.req.canceled {
			continue
		}
		if l.pending[c.req.key] == c.req {
			delete(l.pending, c.req.key)
		}
		ready = append(ready, c)
	}
	l.mu.Unlock()

	for _, c := range ready {
		fn(c.result)
	}
	return len(ready)
}

// Pending reports whether key has a load in progress.
func (l *Loader) Pending(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.pending[key]
	return ok
}

// Stats returns a snapshot of the counters.
func (l *Loader) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.stats
	s.Pending = len(l.pending)
	s.Backlog = len(l.backlog)
	return s
}

// Close rejects further requests, waits until running decodes finish or ctx
// is done, and stops the decode goroutines. Undelivered results are dropped.
// If ctx ends first the goroutines keep running until a later Close
// succeeds.
func (l *Loader) Close(ctx context.Context) error {
	l.mu.Lock()
	l.closed = true
	for _, req := range l.backlog {
		req.canceled = true
	}
	l.backlog = nil
	l.mu.Unlock()

	if err := l.sem.Acquire(ctx, int64(l.cfg.MaxInFlight)); err != nil {
		return fmt.Errorf("assets: close: %w", err)
	}
	l.sem.Release(int64(l.cfg.MaxInFlight))

	l.mu.Lock()
	defer l.mu.Unlock()
	l.done = nil
	clear(l.pending)
	if !l.stopped {
		l.stopped = true
		for _, w := range l.workers {
			w.Stop()
		}
	}
	return nil
}

// drainBacklog must be called with l.mu held.
func (l *Loader) drainBacklog() {
	n := 0
	for n < len(l.backlog) {
		req := l.backlog[n]
		if req.canceled {
			n++
			continue
		}
		if !l.sem.TryAcquire(1) {
			break
		}
		l.submit(req)
		n++
	}
	l.backlog = append(l.backlog[:0], l.backlog[n:]...)
}

// submit must be called with l.mu held and one unit of the semaphore acquired.
func (l *Loader) submit(req *request) {
	req.shard = 0
	for i, n := range l.busy {
		if n < l.busy[req.shard] {
			req.shard = i
		}
	}
	l.busy[req.shard]++
	l.workers[req.shard].SubmitTask(worker.Task{
		ID: req.id,
		Do: func() (any, error) {
			defer l.sem.Release(1)
			img, err := l.load(req.path)
			l.finish(req, img, err)
			return nil, nil
		},
	})
}

func (l *Loader) finish(req *request, img *image.RGBA, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.busy[req.shard]--
	res := ggui.AssetResult{Key: req.key, Path: req.path, Image: img}
	if err != nil {
		l.stats.Failed++
		res.Image = nil
		res.Err = &ggui.AssetError{Key: req.key, Path: req.path, Err: err}
		ggui.Logger().Warn("assets: load failed", "key", req.key, "path", req.path, "err", err)
	} else {
		l.stats.Decoded++
	}
	if l.closed || req.canceled {
		return
	}
	l.done = append(l.done, completion{req: req, result: res})
}

func (l *Loader) load(path string) (*image.RGBA, error) {
	if l.decoded != nil {
		if img, ok := l.decoded.Get(path); ok {
			return img, nil
		}
	}

	f, err := l.open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := Decode(f, l.cfg.MaxSize)
	if err != nil {
		return nil, err
	}
	if l.decoded != nil {
		l.decoded.Set(path, img)
	}
	return img, nil
}

func (l *Loader) open(path string) (io.ReadCloser, error) {
	if l.cfg.FS != nil {
		return l.cfg.FS.Open(path)
	}
	return os.Open(path)
}

var _ ggui.AssetLoader = (*Loader)(nil)

package gpusync

import (
	"context"
	"sync"
)

// Fence reports GPU progress in frame indices. Frame f has finished once
// Completed() > f.
type Fence interface {
	Completed() uint64
	Wait(ctx context.Context, frame uint64) error
}

// ManualFence is a Fence signalled by the caller. It serves software
// presenters and tests.
//
// ManualFence is safe for concurrent use.
type ManualFence struct {
	mu        sync.Mutex
	completed uint64
	changed   chan struct{}
}

// NewManualFence creates a fence with no completed frames.
func NewManualFence() *ManualFence {
	return &ManualFence{changed: make(chan struct{})}
}

// Signal marks frame and every earlier frame as finished.
func (f *ManualFence) Signal(frame uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if frame+1 <= f.completed {
		return
	}
	f.completed = frame + 1
	close(f.changed)
	f.changed = make(chan struct{})
}

// Completed returns one past the last finished frame.
func (f *ManualFence) Completed() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

// Wait blocks until frame has finished or ctx is done.
func (f *ManualFence) Wait(ctx context.Context, frame uint64) error {
	for {
		f.mu.Lock()
		if f.completed > frame {
			f.mu.Unlock()
			return nil
		}
		ch := f.changed
		f.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

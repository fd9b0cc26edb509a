//go:build !nogpu

package native

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/ggui/gpusync"
	"github.com/gogpu/wgpu/hal"
)

// fencePoll bounds each blocking wait so that context cancellation is
// noticed.
const fencePoll = 2 * time.Millisecond

// Fence is a gpusync.Fence over one HAL timeline fence. Frame f is
// submitted with fence value f+1.
//
// Fence is safe for concurrent use.
type Fence struct {
	dev   *Device
	fence hal.Fence

	mu        sync.Mutex
	submitted uint64
	completed uint64
}

// NewFence creates a fence on dev.
func NewFence(dev *Device) (*Fence, error) {
	f, err := dev.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("native: create fence: %w", err)
	}
	return &Fence{dev: dev, fence: f}, nil
}

// Submit submits cmd as frame.
func (f *Fence) Submit(cmd hal.CommandBuffer, frame uint64) error {
	if err := f.dev.queue.Submit([]hal.CommandBuffer{cmd}, f.fence, frame+1); err != nil {
		return fmt.Errorf("native: submit frame %d: %w", frame, err)
	}
	f.mu.Lock()
	f.submitted = max(f.submitted, frame+1)
	f.mu.Unlock()
	return nil
}

// Completed returns one past the last finished frame.
func (f *Fence) Completed() uint64 {
	f.mu.Lock()
	submitted, completed := f.submitted, f.completed
	f.mu.Unlock()
	if submitted == completed {
		return completed
	}
	if ok, err := f.dev.device.Wait(f.fence, submitted, 0); err == nil && ok {
		f.advance(submitted)
		return submitted
	}
	return completed
}

// Wait blocks until frame has finished or ctx is done.
func (f *Fence) Wait(ctx context.Context, frame uint64) error {
	for {
		f.mu.Lock()
		done := f.completed > frame
		f.mu.Unlock()
		if done {
			return nil
		}
		ok, err := f.dev.device.Wait(f.fence, frame+1, fencePoll)
		if err != nil {
			return fmt.Errorf("native: wait for frame %d: %w", frame, err)
		}
		if ok {
			f.advance(frame + 1)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (f *Fence) advance(v uint64) {
	f.mu.Lock()
	f.completed = max(f.completed, v)
	f.mu.Unlock()
}

// Destroy releases the HAL fence.
func (f *Fence) Destroy() {
	if f.fence != nil {
		f.dev.device.DestroyFence(f.fence)
		f.fence = nil
	}
}

var _ gpusync.Fence = (*Fence)(nil)

package input

import "sync"

// Queue buffers touches between the platform goroutine (Push) and the
// render goroutine (Drain). A Moved touch replaces the previous Moved touch
// of the same finger if nothing else was pushed for that finger in between,
// so a burst of motion reaches the router as its latest position.
//
// Queue is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	pending []Touch
	spare   []Touch
	merged  uint64
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends t, coalescing consecutive Moved events per finger.
func (q *Queue) Push(t Touch) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if t.Phase == Moved {
		for i := len(q.pending) - 1; i >= 0; i-- {
			prev := q.pending[i]
			if prev.FingerID != t.FingerID {
				continue
			}
			if prev.Phase == Moved {
				q.pending[i] = t
				q.merged++
				return
			}
			break
		}
	}
	q.pending = append(q.pending, t)
}

// Drain passes every buffered touch to fn in arrival order and empties the
// queue. fn runs without the queue lock held, so it may Push.
func (q *Queue) Drain(fn func(Touch) bool) int {
	q.mu.Lock()
	batch := q.pending
	q.pending = q.spare[:0]
	q.mu.Unlock()

	for _, t := range batch {
		fn(t)
	}

	q.mu.Lock()
	q.spare = batch[:0]
	q.mu.Unlock()
	return len(batch)
}

// Len returns the number of buffered touches.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Coalesced returns how many Moved events were merged away.
func (q *Queue) Coalesced() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.merged
}

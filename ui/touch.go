package ui

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggui"
	"github.com/gogpu/ggui/input"
)

// TouchStats holds TouchRouter counters.
type TouchStats struct {
	Dispatched  uint64
	Consumed    uint64
	StaleEvents uint64
}

// TouchRouter resolves touches against a canvas' views.
//
// A Began touch goes to the front-most visible view under the point that
// has a handler and does not ignore input; views beneath it are not told.
// That view captures the finger: later phases go to it wherever the finger
// moves, until Ended or Canceled releases the capture.
//
// TouchRouter is owned by the render goroutine. Feed it from an
// input.Queue:
//
//	queue.Drain(router.Dispatch)
type TouchRouter struct {
	canvas   *Canvas
	captures map[int]ViewID
	touched  map[int][]ViewID
	stats    TouchStats
}

// NewTouchRouter creates a router for canvas.
func NewTouchRouter(canvas *Canvas) *TouchRouter {
	return &TouchRouter{
		canvas:   canvas,
		captures: make(map[int]ViewID),
		touched:  make(map[int][]ViewID),
	}
}

// Dispatch routes t and reports whether a view consumed it. Stale touches
// are dropped and logged at debug level.
func (r *TouchRouter) Dispatch(t input.Touch) bool {
	ok, err := r.DispatchErr(t)
	if err != nil {
		ggui.Logger().Debug("ui: touch dropped", "touch", t.String(), "err", err)
	}
	return ok
}

// DispatchErr is Dispatch that returns ErrStaleInput for a touch whose
// finger has no live capture.
func (r *TouchRouter) DispatchErr(t input.Touch) (bool, error) {
	r.stats.Dispatched++

	if t.Phase == input.Began {
		return r.begin(t), nil
	}

	id, ok := r.captures[t.FingerID]
	if !ok {
		r.stats.StaleEvents++
		return false, fmt.Errorf("%w: %s finger %d without Began", ErrStaleInput, t.Phase, t.FingerID)
	}
	if t.Phase.Terminal() {
		delete(r.captures, t.FingerID)
	}
	n := r.canvas.lookup(id)
	if n == nil {
		delete(r.captures, t.FingerID)
		r.stats.StaleEvents++
		return false, fmt.Errorf("%w: %s finger %d captured by removed %v", ErrStaleInput, t.Phase, t.FingerID, id)
	}
	if n.view.OnTouch != nil {
		n.view.OnTouch(id, t)
	}
	r.stats.Consumed++
	return true, nil
}

func (r *TouchRouter) begin(t input.Touch) bool {
	p := mgl32.Vec2{t.X, t.Y}
	for _, id := range r.canvas.hitOrder() {
		n := r.canvas.lookup(id)
		if n == nil || n.view.OnTouch == nil || n.view.IgnoreInput || !n.rect.Contains(p) {
			continue
		}
		r.captures[t.FingerID] = id
		r.touched[t.FingerID] = append(r.touched[t.FingerID][:0], id)
		r.stats.Consumed++
		n.view.OnTouch(id, t)
		return true
	}
	delete(r.captures, t.FingerID)
	delete(r.touched, t.FingerID)
	return false
}

// Captured returns the view holding a finger.
func (r *TouchRouter) Captured(finger int) (ViewID, bool) {
	id, ok := r.captures[finger]
	return id, ok
}

// TouchedViews returns the views a finger went down on in its latest
// touch sequence.
func (r *TouchRouter) TouchedViews(finger int) []ViewID {
	return append([]ViewID(nil), r.touched[finger]...)
}

// Stats returns the counters.
func (r *TouchRouter) Stats() TouchStats { return r.stats }

// Reset drops every capture, as on canvas teardown.
func (r *TouchRouter) Reset() {
	clear(r.captures)
	clear(r.touched)
}

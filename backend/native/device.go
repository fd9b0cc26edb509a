//go:build !nogpu

package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

// Errors returned by the native backend.
var (
	// ErrNoHAL is returned when a device provider does not expose HAL
	// objects.
	ErrNoHAL = errors.New("native: provider does not expose hal.Device and hal.Queue")

	// ErrUnknownTexture is returned for handles this backend did not create.
	ErrUnknownTexture = errors.New("native: unknown texture")

	// ErrForeignSlot is returned when a binding set was not created by
	// Bindings.
	ErrForeignSlot = errors.New("native: binding slot from another backend")
)

// Device is the shared HAL device and queue every native component draws
// on. The backend never creates a device of its own; the host application
// owns it.
type Device struct {
	device hal.Device
	queue  hal.Queue
}

// New wraps a HAL device and queue.
func New(device hal.Device, queue hal.Queue) (*Device, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("native: nil device or queue")
	}
	return &Device{device: device, queue: queue}, nil
}

// NewFromProvider takes the device and queue of a host framework such as
// gogpu. The provider must also implement HalDevice() any and HalQueue() any.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNoHAL, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNoHAL, hp.HalQueue())
	}
	return New(device, queue)
}

// HAL returns the wrapped device and queue.
func (d *Device) HAL() (hal.Device, hal.Queue) { return d.device, d.queue }

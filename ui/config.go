package ui

import (
	"fmt"

	"github.com/gogpu/ggui/atlas"
)

// FilterMode selects how the canvas samples atlas layers.
type FilterMode uint8

const (
	FilterLinear FilterMode = iota
	FilterNearest
)

func (f FilterMode) String() string {
	if f == FilterNearest {
		return "nearest"
	}
	return "linear"
}

// RebuildPolicy decides when Update repacks the atlas from scratch, which
// is the only way freed space is merged back together.
type RebuildPolicy struct {
	// EveryFrames repacks once this many frames have passed since the last
	// repack. Zero disables the periodic repack.
	EveryFrames uint64

	// FragmentationThreshold repacks when the packer spans more than one
	// layer and its fragmentation exceeds this value. Zero disables it.
	FragmentationThreshold float64
}

// CanvasConfig holds Canvas configuration.
type CanvasConfig struct {
	// Width and Height are the canvas size in pixels.
	Width, Height int

	Atlas   atlas.Config
	Rebuild RebuildPolicy
	Filter  FilterMode
}

// DefaultCanvasConfig returns a 1280x720 canvas with the default atlas and
// a fragmentation-driven rebuild at 0.5.
func DefaultCanvasConfig() CanvasConfig {
	return CanvasConfig{
		Width:   1280,
		Height:  720,
		Atlas:   atlas.DefaultConfig(),
		Rebuild: RebuildPolicy{FragmentationThreshold: 0.5},
	}
}

// Validate checks the configuration.
func (c *CanvasConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("ui: canvas size must be positive, got %dx%d", c.Width, c.Height)
	}
	if t := c.Rebuild.FragmentationThreshold; t < 0 || t > 1 {
		return fmt.Errorf("ui: FragmentationThreshold must be in [0, 1], got %g", t)
	}
	if c.Filter > FilterNearest {
		return fmt.Errorf("ui: unknown filter mode %d", c.Filter)
	}
	return c.Atlas.Validate()
}

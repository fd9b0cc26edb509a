package atlas

import "fmt"

// Policy selects what Cache does when the packer reports a full atlas.
type Policy uint8

const (
	// PolicyEvictLRU evicts the least recently used entry that was not used
	// in the current frame and whose space can hold the request.
	PolicyEvictLRU Policy = iota

	// PolicyGrowLayer raises the layer limit by one, up to HardMaxLayers.
	PolicyGrowLayer

	// PolicyFail returns the full error to the caller.
	PolicyFail
)

func (p Policy) String() string {
	switch p {
	case PolicyEvictLRU:
		return "evict-lru"
	case PolicyGrowLayer:
		return "grow-layer"
	case PolicyFail:
		return "fail"
	default:
		return fmt.Sprintf("Policy(%d)", uint8(p))
	}
}

// ParsePolicy converts a policy name as printed by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "evict-lru", "lru":
		return PolicyEvictLRU, nil
	case "grow-layer", "grow":
		return PolicyGrowLayer, nil
	case "fail":
		return PolicyFail, nil
	}
	return 0, &ConfigError{Field: "Policy", Reason: fmt.Sprintf("unknown policy %q", s)}
}

// maxLayerSize matches the common maxTextureDimension2D limit.
const maxLayerSize = 8192

// Config holds atlas cache configuration.
type Config struct {
	// LayerWidth and LayerHeight are the dimensions of every layer.
	// Default: 1024x1024
	LayerWidth  int
	LayerHeight int

	// MaxLayers is the number of layers the packer may allocate on its own.
	// Default: 4
	MaxLayers int

	// HardMaxLayers caps PolicyGrowLayer. Zero means MaxLayers.
	// Default: 16
	HardMaxLayers int

	// Policy applied when no layer has room.
	// Default: PolicyEvictLRU
	Policy Policy

	// Padding is the gutter kept around every entry, in texels.
	// Default: 1
	Padding int
}

// DefaultConfig returns the default atlas configuration.
func DefaultConfig() Config {
	return Config{
		LayerWidth:    1024,
		LayerHeight:   1024,
		MaxLayers:     4,
		HardMaxLayers: 16,
		Policy:        PolicyEvictLRU,
		Padding:       1,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.LayerWidth <= 0 || c.LayerWidth > maxLayerSize {
		return &ConfigError{Field: "LayerWidth", Reason: fmt.Sprintf("must be in 1..%d", maxLayerSize)}
	}
	if c.LayerHeight <= 0 || c.LayerHeight > maxLayerSize {
		return &ConfigError{Field: "LayerHeight", Reason: fmt.Sprintf("must be in 1..%d", maxLayerSize)}
	}
	if c.MaxLayers < 1 {
		return &ConfigError{Field: "MaxLayers", Reason: "must be at least 1"}
	}
	if c.HardMaxLayers != 0 && c.HardMaxLayers < c.MaxLayers {
		return &ConfigError{Field: "HardMaxLayers", Reason: "must not be below MaxLayers"}
	}
	if c.Padding < 0 || 2*c.Padding >= min(c.LayerWidth, c.LayerHeight) {
		return &ConfigError{Field: "Padding", Reason: "must be non-negative and leave room for content"}
	}
	if c.Policy > PolicyFail {
		return &ConfigError{Field: "Policy", Reason: c.Policy.String()}
	}
	return nil
}

func (c *Config) hardMax() int {
	if c.HardMaxLayers == 0 {
		return c.MaxLayers
	}
	return c.HardMaxLayers
}

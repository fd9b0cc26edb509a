package assets

import (
	"fmt"
	"io/fs"
)

// Config holds Loader configuration.
type Config struct {
	// Workers is the number of decode goroutines kept by the worker pool.
	// Default: 4
	Workers int

	// MaxInFlight bounds the number of loads decoding at once. Requests
	// beyond it wait in a backlog that Poll resubmits.
	// Default: 8
	MaxInFlight int

	// MaxSize downscales images whose width or height exceeds it, keeping
	// the aspect ratio. Zero keeps the decoded size.
	// Default: 0
	MaxSize int

	// CacheSize is the number of decoded images kept by path, so that the
	// same file requested under several keys decodes once.
	// Default: 32
	CacheSize int

	// FS, when set, resolves paths instead of the host file system.
	FS fs.FS
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Workers:     4,
		MaxInFlight: 8,
		CacheSize:   32,
	}
}

// maxQueued is the task queue capacity of the worker pool.
const maxQueued = 256

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("assets: Workers must be positive, got %d", c.Workers)
	}
	if c.MaxInFlight < 1 || c.MaxInFlight > maxQueued {
		return fmt.Errorf("assets: MaxInFlight must be in 1..%d, got %d", maxQueued, c.MaxInFlight)
	}
	if c.MaxSize < 0 {
		return fmt.Errorf("assets: MaxSize must not be negative, got %d", c.MaxSize)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("assets: CacheSize must not be negative, got %d", c.CacheSize)
	}
	return nil
}

package vm

// Config bounds contract execution.
type Config struct {
	// MaxCallDepth is the maximum number of nested contract frames
	MaxCallDepth int

	// MaxMemoryPages caps a wasm module's linear memory, in 64KiB pages
	MaxMemoryPages uint32

	// MaxCodeSize is the maximum size of contract code in bytes
	MaxCodeSize int
}

// DefaultConfig returns the limits used when none are configured
func DefaultConfig() Config {
	return Config{
		MaxCallDepth:   8,
		MaxMemoryPages: 256,         // 16MiB
		MaxCodeSize:    1024 * 1024, // 1MB
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxCallDepth <= 0 {
		c.MaxCallDepth = d.MaxCallDepth
	}
	if c.MaxMemoryPages == 0 {
		c.MaxMemoryPages = d.MaxMemoryPages
	}
	if c.MaxCodeSize <= 0 {
		c.MaxCodeSize = d.MaxCodeSize
	}
	return c
}

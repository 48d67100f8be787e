// Package config loads process configuration from a file and WASMRPC_*
// environment variables.
package config

import (
	"strings"

	"github.com/govm-net/wasmrpc/storage"
	"github.com/govm-net/wasmrpc/vm"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. WASMRPC_STORAGE_BACKEND
const EnvPrefix = "WASMRPC"

type Storage struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	// CacheSize is the number of cells kept in the read cache, 0 disables it
	CacheSize int `mapstructure:"cache_size"`
}

type VM struct {
	MaxCallDepth   int    `mapstructure:"max_call_depth"`
	MaxMemoryPages uint32 `mapstructure:"max_memory_pages"`
	MaxCodeSize    int    `mapstructure:"max_code_size"`
}

type Log struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type Config struct {
	Storage Storage `mapstructure:"storage"`
	VM      VM      `mapstructure:"vm"`
	Log     Log     `mapstructure:"log"`
}

// VMConfig converts the vm section to executor limits
func (c *Config) VMConfig() vm.Config {
	return vm.Config{
		MaxCallDepth:   c.VM.MaxCallDepth,
		MaxMemoryPages: c.VM.MaxMemoryPages,
		MaxCodeSize:    c.VM.MaxCodeSize,
	}
}

func setDefaults(v *viper.Viper) {
	d := vm.DefaultConfig()
	// deployed code has to outlive the process between cli invocations
	v.SetDefault("storage.backend", string(storage.DBBackend))
	v.SetDefault("storage.path", "./state.db")
	v.SetDefault("storage.cache_size", 1024)
	v.SetDefault("vm.max_call_depth", d.MaxCallDepth)
	v.SetDefault("vm.max_memory_pages", d.MaxMemoryPages)
	v.SetDefault("vm.max_code_size", d.MaxCodeSize)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads path, if not empty, over the defaults and applies environment
// overrides. The file format follows its extension.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values Load cannot default
func (c *Config) Validate() error {
	backend := storage.BackendType(c.Storage.Backend)
	switch backend {
	case storage.MemoryBackend, storage.DBBackend, storage.BadgerBackend:
	default:
		return errors.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.CacheSize < 0 {
		return errors.Errorf("storage.cache_size must not be negative, got %d", c.Storage.CacheSize)
	}
	if c.VM.MaxCallDepth < 1 {
		return errors.Errorf("vm.max_call_depth must be at least 1, got %d", c.VM.MaxCallDepth)
	}
	if c.VM.MaxMemoryPages < 1 || c.VM.MaxMemoryPages > 65536 {
		return errors.Errorf("vm.max_memory_pages must be in [1, 65536], got %d", c.VM.MaxMemoryPages)
	}
	if c.VM.MaxCodeSize < 1 {
		return errors.Errorf("vm.max_code_size must be positive, got %d", c.VM.MaxCodeSize)
	}
	return nil
}

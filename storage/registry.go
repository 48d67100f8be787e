package storage

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// BackendType names a Store implementation
type BackendType string

const (
	// MemoryBackend keeps state in process memory
	MemoryBackend BackendType = "memory"
	// DBBackend keeps state in a SQLite database
	DBBackend BackendType = "db"
	// BadgerBackend keeps state in a Badger key-value directory
	BadgerBackend BackendType = "badger"
)

// Params configures a backend. Path is ignored by in-memory backends.
type Params struct {
	Path string
}

// Constructor creates a Store of one backend type
type Constructor func(params Params) (Store, error)

// Registry defines the interface for managing Store implementations
type Registry interface {
	// Register adds a new backend to the registry
	Register(bt BackendType, constructor Constructor) error
	// SetDefault sets the default backend type
	SetDefault(bt BackendType) error
	// Open returns a new store of the specified backend type
	Open(bt BackendType, params Params) (Store, error)
	// DefaultBackendType returns the current default backend type
	DefaultBackendType() BackendType
	// ListRegistered returns the registered backend types in sorted order
	ListRegistered() []BackendType
}

// registry implements the Registry interface
type registry struct {
	mu        sync.RWMutex
	backends  map[BackendType]Constructor
	defaultBt BackendType
}

var defaultRegistry Registry = NewRegistry()

// NewRegistry returns an empty registry
func NewRegistry() Registry {
	return &registry{backends: make(map[BackendType]Constructor)}
}

// GetRegistry returns the global Registry instance
func GetRegistry() Registry {
	return defaultRegistry
}

func (r *registry) Register(bt BackendType, constructor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[bt]; exists {
		return errors.Errorf("storage backend %s already registered", bt)
	}
	r.backends[bt] = constructor
	return nil
}

func (r *registry) SetDefault(bt BackendType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[bt]; !exists {
		return errors.Errorf("storage backend %s not registered", bt)
	}
	r.defaultBt = bt
	return nil
}

func (r *registry) Open(bt BackendType, params Params) (Store, error) {
	if bt == "" {
		bt = r.DefaultBackendType()
	}
	r.mu.RLock()
	constructor, exists := r.backends[bt]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Errorf("storage backend %s not found", bt)
	}
	return constructor(params)
}

func (r *registry) DefaultBackendType() BackendType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultBt == "" {
		return MemoryBackend
	}
	return r.defaultBt
}

func (r *registry) ListRegistered() []BackendType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]BackendType, 0, len(r.backends))
	for bt := range r.backends {
		types = append(types, bt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Package level functions that delegate to defaultRegistry

// Register adds a backend to the global registry
func Register(bt BackendType, constructor Constructor) error {
	return GetRegistry().Register(bt, constructor)
}

// SetDefault sets the default backend of the global registry
func SetDefault(bt BackendType) error {
	return GetRegistry().SetDefault(bt)
}

// Open returns a new store from the global registry. An empty type opens
// the default backend.
func Open(bt BackendType, params Params) (Store, error) {
	return GetRegistry().Open(bt, params)
}

// ListRegistered returns the backends of the global registry
func ListRegistered() []BackendType {
	return GetRegistry().ListRegistered()
}

// Package storage defines the key-value store contracts persist their state in.
package storage

import (
	"github.com/govm-net/wasmrpc/logging"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Get for a key that was never written
var ErrNotFound = errors.New("key not found")

// Store is an opaque key to byte-array mapping.
type Store interface {
	// Get returns the value under key, or ErrNotFound
	Get(key []byte) ([]byte, error)
	// Put stores value under key, replacing any previous value
	Put(key, value []byte) error
	// Close releases resources held by the store
	Close() error
}

// Cached is a write-through LRU cache in front of a Store. Contract code is
// read on every call, so repeated calls to the same contract hit the cache.
type Cached struct {
	Store
	cache *lru.Cache[string, []byte]
}

// NewCached wraps store with a cache holding up to size values.
func NewCached(store Store, size int) (*Cached, error) {
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, errors.Wrapf(err, "create cache of size %d", size)
	}
	return &Cached{Store: store, cache: cache}, nil
}

func (c *Cached) Get(key []byte) ([]byte, error) {
	if v, ok := c.cache.Get(string(key)); ok {
		return clone(v), nil
	}
	v, err := c.Store.Get(key)
	if err != nil {
		return nil, err
	}
	c.cache.Add(string(key), clone(v))
	return v, nil
}

func (c *Cached) Put(key, value []byte) error {
	if err := c.Store.Put(key, value); err != nil {
		c.cache.Remove(string(key))
		return err
	}
	c.cache.Add(string(key), clone(value))
	return nil
}

func (c *Cached) Close() error {
	logging.Logger().Debug("closing cached store", zap.Int("entries", c.cache.Len()))
	c.cache.Purge()
	return c.Store.Close()
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

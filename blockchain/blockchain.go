// Package blockchain defines the capabilities a contract receives from the
// chain it runs on, and the production implementation backed by a Store.
package blockchain

import (
	"github.com/govm-net/wasmrpc/codec"
	"github.com/govm-net/wasmrpc/logging"
	"github.com/govm-net/wasmrpc/storage"
	"github.com/govm-net/wasmrpc/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// BlockChain is everything contract logic and the registry may ask of the chain.
type BlockChain interface {
	// ReadU32 returns the 32-bit integer stored under key, 0 if absent
	ReadU32(key []byte) (uint32, error)
	// ReadU64 returns the 64-bit integer stored under key, 0 if absent
	ReadU64(key []byte) (uint64, error)
	// WriteU64 stores a 64-bit integer under key
	WriteU64(key []byte, value uint64) error
	// Read returns the bytes stored under key, empty if absent
	Read(key []byte) ([]byte, error)
	// Write stores value under key
	Write(key, value []byte) error
	// Sender returns the account that made the current call
	Sender() types.Address
	// Throw aborts the current invocation. It does not return.
	Throw(message string)
	// Call runs code and returns the bytes it produced
	Call(code []byte, method string, params []byte, address []byte) ([]byte, error)
}

// Executor runs contract code on behalf of a BlockChain.
type Executor interface {
	Execute(chain BlockChain, code []byte, method string, params []byte, address []byte) ([]byte, error)
}

// Chain implements BlockChain on a Store.
type Chain struct {
	store    storage.Store
	sender   types.Address
	executor Executor
}

// New creates a chain for calls made by sender
func New(store storage.Store, sender types.Address, executor Executor) *Chain {
	return &Chain{store: store, sender: sender, executor: executor}
}

// WithSender returns a chain sharing store and executor but acting for another account
func (c *Chain) WithSender(sender types.Address) *Chain {
	return &Chain{store: c.store, sender: sender, executor: c.executor}
}

func (c *Chain) Read(key []byte) ([]byte, error) {
	return ReadCell(c.store, key)
}

func (c *Chain) Write(key, value []byte) error {
	return errors.Wrapf(c.store.Put(key, value), "write %x", key)
}

func (c *Chain) ReadU32(key []byte) (uint32, error) {
	return ReadU32Cell(c.store, key)
}

func (c *Chain) ReadU64(key []byte) (uint64, error) {
	return ReadU64Cell(c.store, key)
}

func (c *Chain) WriteU64(key []byte, value uint64) error {
	return c.Write(key, codec.EncodeU64(value, codec.StorageU64BigEndian))
}

func (c *Chain) Sender() types.Address {
	return c.sender
}

func (c *Chain) Throw(message string) {
	logging.Logger().Warn("contract threw", zap.String("message", message), zap.Stringer("sender", c.sender))
	panic(&Fault{Message: message})
}

func (c *Chain) Call(code []byte, method string, params []byte, address []byte) ([]byte, error) {
	if c.executor == nil {
		return nil, errors.New("chain has no executor")
	}
	return c.executor.Execute(c, code, method, params, address)
}

// ReadCell reads a cell, treating a missing key as empty.
func ReadCell(store storage.Store, key []byte) ([]byte, error) {
	v, err := store.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return []byte{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %x", key)
	}
	return v, nil
}

// ReadU32Cell reads a big-endian 32-bit cell. Missing cells and cells of
// another width read as 0.
func ReadU32Cell(store storage.Store, key []byte) (uint32, error) {
	v, err := ReadCell(store, key)
	if err != nil || len(v) != 4 {
		return 0, err
	}
	return codec.DecodeU32(v, codec.StorageU32BigEndian), nil
}

// ReadU64Cell reads a 64-bit cell in storage order. Missing cells and cells
// of another width read as 0.
func ReadU64Cell(store storage.Store, key []byte) (uint64, error) {
	v, err := ReadCell(store, key)
	if err != nil || len(v) != 8 {
		return 0, err
	}
	return codec.DecodeU64(v, codec.StorageU64BigEndian), nil
}

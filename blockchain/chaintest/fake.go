// Package chaintest provides a BlockChain for tests
package chaintest

import (
	"github.com/govm-net/wasmrpc/blockchain"
	"github.com/govm-net/wasmrpc/codec"
	"github.com/govm-net/wasmrpc/logging"
	"github.com/govm-net/wasmrpc/storage"
	"github.com/govm-net/wasmrpc/storage/memory"
	"github.com/govm-net/wasmrpc/types"
	"go.uber.org/zap"
)

// Well known test accounts
var (
	Sender = types.Address{19: 1}
	Alice  = types.Address{19: 2}
	Bob    = types.Address{19: 3}
)

// Invocation records one Call made on a FakeBlockChain without an executor
type Invocation struct {
	Code    []byte
	Method  string
	Params  []byte
	Address []byte
}

// FakeBlockChain is a BlockChain over an in-memory store with a settable
// sender and a hook observing every Throw.
type FakeBlockChain struct {
	Store         storage.Store
	SenderAccount types.Address
	Executor      blockchain.Executor
	// Response is returned by Call when no Executor is set
	Response []byte
	Calls    []Invocation
	Thrown   []string

	throwCallback func(message string)
}

// New creates a fake chain acting for Sender
func New() *FakeBlockChain {
	return &FakeBlockChain{
		Store:         memory.NewStore(),
		SenderAccount: Sender,
		throwCallback: func(message string) {
			logging.Logger().Info("contract threw", zap.String("message", message))
		},
	}
}

// SetThrowCallback replaces the hook run before Throw halts the invocation
func (f *FakeBlockChain) SetThrowCallback(cb func(message string)) {
	f.throwCallback = cb
}

func (f *FakeBlockChain) ReadU32(key []byte) (uint32, error) {
	return blockchain.ReadU32Cell(f.Store, key)
}

func (f *FakeBlockChain) ReadU64(key []byte) (uint64, error) {
	return blockchain.ReadU64Cell(f.Store, key)
}

func (f *FakeBlockChain) WriteU64(key []byte, value uint64) error {
	return f.Store.Put(key, codec.EncodeU64(value, codec.StorageU64BigEndian))
}

func (f *FakeBlockChain) Read(key []byte) ([]byte, error) {
	return blockchain.ReadCell(f.Store, key)
}

func (f *FakeBlockChain) Write(key, value []byte) error {
	return f.Store.Put(key, value)
}

func (f *FakeBlockChain) Sender() types.Address {
	return f.SenderAccount
}

func (f *FakeBlockChain) Throw(message string) {
	f.Thrown = append(f.Thrown, message)
	if f.throwCallback != nil {
		f.throwCallback(message)
	}
	panic(&blockchain.Fault{Message: message})
}

func (f *FakeBlockChain) Call(code []byte, method string, params []byte, address []byte) ([]byte, error) {
	if f.Executor != nil {
		return f.Executor.Execute(f, code, method, params, address)
	}
	f.Calls = append(f.Calls, Invocation{Code: code, Method: method, Params: params, Address: address})
	return f.Response, nil
}

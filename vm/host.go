package vm

import (
	"context"

	"github.com/govm-net/wasmrpc/blockchain"
	"github.com/govm-net/wasmrpc/memory"
	"github.com/govm-net/wasmrpc/registry"
	"github.com/govm-net/wasmrpc/types"
	"github.com/pkg/errors"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// guestAllocator allocates through the module's exported allocate and
// deallocate functions.
type guestAllocator struct {
	ctx        context.Context
	allocate   api.Function
	deallocate api.Function
}

func newGuestAllocator(ctx context.Context, mod api.Module) (*guestAllocator, error) {
	allocate := mod.ExportedFunction(types.GuestAllocate)
	if allocate == nil {
		return nil, errors.Wrap(ErrMissingExport, types.GuestAllocate)
	}
	return &guestAllocator{
		ctx:        ctx,
		allocate:   allocate,
		deallocate: mod.ExportedFunction(types.GuestDeallocate),
	}, nil
}

func (a *guestAllocator) Allocate(size uint32) (uint32, error) {
	res, err := a.allocate.Call(a.ctx, uint64(size))
	if err != nil {
		return 0, errors.Wrapf(memory.ErrAllocation, "guest allocate(%d): %v", size, err)
	}
	ptr := uint32(res[0])
	if ptr == 0 {
		return 0, errors.Wrapf(memory.ErrAllocation, "guest allocate(%d) returned 0", size)
	}
	return ptr, nil
}

// Deallocate is a no-op for modules that do not export deallocate
func (a *guestAllocator) Deallocate(ptr, size uint32) error {
	if a.deallocate == nil {
		return nil
	}
	if _, err := a.deallocate.Call(a.ctx, uint64(ptr), uint64(size)); err != nil {
		return errors.Wrapf(err, "guest deallocate(%d, %d)", ptr, size)
	}
	return nil
}

// session holds the state of one wasm invocation as seen by its host imports.
type session struct {
	chain   blockchain.BlockChain
	address []byte
	fault   *blockchain.Fault
}

// guard runs a host import, recording a thrown fault before it unwinds the guest.
func (s *session) guard(fn func()) {
	if fault := blockchain.Catch(fn); fault != nil {
		s.fault = fault
		panic(fault)
	}
}

func (s *session) check(err error, what string) {
	if err != nil {
		message := errors.Wrap(err, what).Error()
		s.chain.Throw(message)
		panic(&blockchain.Fault{Message: message})
	}
}

func (s *session) read(m *memory.Marshaler, keyPtr uint32) uint32 {
	key, err := m.ReadRaw(keyPtr)
	s.check(err, "read key")
	value, err := s.chain.Read(key)
	s.check(err, "read storage")
	ptr, err := m.Write(value)
	s.check(err, "write value")
	return ptr
}

func (s *session) write(m *memory.Marshaler, keyPtr, valuePtr uint32) {
	key, err := m.ReadRaw(keyPtr)
	s.check(err, "read key")
	value, err := m.ReadRaw(valuePtr)
	s.check(err, "read value")
	s.check(s.chain.Write(key, value), "write storage")
}

func (s *session) readU32(m *memory.Marshaler, keyPtr uint32) uint32 {
	key, err := m.ReadRaw(keyPtr)
	s.check(err, "read key")
	n, err := s.chain.ReadU32(key)
	s.check(err, "read storage")
	return n
}

func (s *session) readU64(m *memory.Marshaler, keyPtr uint32) uint64 {
	key, err := m.ReadRaw(keyPtr)
	s.check(err, "read key")
	n, err := s.chain.ReadU64(key)
	s.check(err, "read storage")
	return n
}

func (s *session) writeU64(m *memory.Marshaler, keyPtr uint32, value uint64) {
	key, err := m.ReadRaw(keyPtr)
	s.check(err, "read key")
	s.check(s.chain.WriteU64(key, value), "write storage")
}

func (s *session) sender(m *memory.Marshaler) uint32 {
	ptr, err := m.Write(s.chain.Sender().Bytes())
	s.check(err, "write sender")
	return ptr
}

func (s *session) contractAddress(m *memory.Marshaler) uint32 {
	ptr, err := m.Write(s.address)
	s.check(err, "write address")
	return ptr
}

func (s *session) throw(m *memory.Marshaler, messagePtr uint32) {
	message, err := m.ReadText(messagePtr)
	s.check(err, "read message")
	s.chain.Throw(message)
	panic(&blockchain.Fault{Message: message})
}

func (s *session) call(m *memory.Marshaler, accountPtr, namePtr, methodPtr, paramsPtr uint32) uint32 {
	return registry.NewHandler(s.chain, m).Call(accountPtr, namePtr, methodPtr, paramsPtr)
}

// hostModule defines the env imports bound to s. Every import runs against
// the memory and allocator of the calling module.
func (s *session) hostModule(r wazero.Runtime) wazero.HostModuleBuilder {
	bind := func(ctx context.Context, mod api.Module) *memory.Marshaler {
		alloc, err := newGuestAllocator(ctx, mod)
		s.check(err, "bind guest")
		mem := mod.Memory()
		if mem == nil {
			s.check(errors.Wrap(ErrMissingExport, types.GuestMemory), "bind guest")
		}
		return memory.NewMarshaler(mem, alloc)
	}

	b := r.NewHostModuleBuilder(types.HostModule)
	b.NewFunctionBuilder().
		WithParameterNames("key").
		WithFunc(func(ctx context.Context, mod api.Module, key uint32) (ptr uint32) {
			s.guard(func() { ptr = s.read(bind(ctx, mod), key) })
			return
		}).Export(types.HostRead)
	b.NewFunctionBuilder().
		WithParameterNames("key", "value").
		WithFunc(func(ctx context.Context, mod api.Module, key, value uint32) {
			s.guard(func() { s.write(bind(ctx, mod), key, value) })
		}).Export(types.HostWrite)
	b.NewFunctionBuilder().
		WithParameterNames("key").
		WithFunc(func(ctx context.Context, mod api.Module, key uint32) (n uint32) {
			s.guard(func() { n = s.readU32(bind(ctx, mod), key) })
			return
		}).Export(types.HostReadU32)
	b.NewFunctionBuilder().
		WithParameterNames("key").
		WithFunc(func(ctx context.Context, mod api.Module, key uint32) (n uint64) {
			s.guard(func() { n = s.readU64(bind(ctx, mod), key) })
			return
		}).Export(types.HostReadU64)
	b.NewFunctionBuilder().
		WithParameterNames("key", "value").
		WithFunc(func(ctx context.Context, mod api.Module, key uint32, value uint64) {
			s.guard(func() { s.writeU64(bind(ctx, mod), key, value) })
		}).Export(types.HostWriteU64)
	b.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module) (ptr uint32) {
			s.guard(func() { ptr = s.sender(bind(ctx, mod)) })
			return
		}).Export(types.HostSender)
	b.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module) (ptr uint32) {
			s.guard(func() { ptr = s.contractAddress(bind(ctx, mod)) })
			return
		}).Export(types.HostAddress)
	b.NewFunctionBuilder().
		WithParameterNames("message").
		WithFunc(func(ctx context.Context, mod api.Module, message uint32) {
			s.guard(func() { s.throw(bind(ctx, mod), message) })
		}).Export(types.HostThrow)
	b.NewFunctionBuilder().
		WithParameterNames("account", "name", "method", "params").
		WithFunc(func(ctx context.Context, mod api.Module, account, name, method, params uint32) (ptr uint32) {
			s.guard(func() { ptr = s.call(bind(ctx, mod), account, name, method, params) })
			return
		}).Export(types.HostCall)
	return b
}

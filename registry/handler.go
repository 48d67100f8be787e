package registry

import (
	"github.com/govm-net/wasmrpc/blockchain"
	"github.com/govm-net/wasmrpc/codec"
	"github.com/govm-net/wasmrpc/memory"
	"github.com/govm-net/wasmrpc/rpc"
	"github.com/govm-net/wasmrpc/types"
	"github.com/pkg/errors"
)

// Handler exposes the registry as pointer-based entry points: arguments are
// value-encoded buffers in linear memory and the result is a pointer to a
// return buffer. Unreadable arguments are thrown.
type Handler struct {
	registry *Registry
	chain    blockchain.BlockChain
	m        *memory.Marshaler
}

func NewHandler(chain blockchain.BlockChain, m *memory.Marshaler) *Handler {
	return &Handler{registry: New(chain), chain: chain, m: m}
}

// Deploy takes a name string and a code byte string.
func (h *Handler) Deploy(namePtr, codePtr uint32) uint32 {
	name, err := h.m.ReadString(namePtr)
	h.check(err, "read contract name")
	code, err := h.m.ReadBytes(codePtr)
	h.check(err, "read contract code")

	v, err := h.registry.Deploy(name, code)
	return h.ret(rpc.Return(h.m, v, err))
}

// Call takes an account byte string, name and method strings and a params
// byte string. On success it returns the callee's return buffer unchanged.
func (h *Handler) Call(accountPtr, namePtr, methodPtr, paramsPtr uint32) uint32 {
	rawAccount, err := h.m.ReadBytes(accountPtr)
	h.check(err, "read account")
	account, err := types.AddressFromBytes(rawAccount)
	h.check(err, "read account")
	name, err := h.m.ReadString(namePtr)
	h.check(err, "read contract name")
	method, err := h.m.ReadString(methodPtr)
	h.check(err, "read method")
	params, err := h.m.ReadBytes(paramsPtr)
	h.check(err, "read params")

	out, err := h.registry.Call(account, name, method, params)
	if err != nil {
		callErr := rpc.NewError(rpc.CodeCallFailed, err.Error())
		return h.ret(rpc.Return(h.m, codec.Null(), callErr))
	}
	return h.ret(h.m.Write(out))
}

func (h *Handler) ret(ptr uint32, err error) uint32 {
	h.check(err, "write result")
	return ptr
}

func (h *Handler) check(err error, what string) {
	if err != nil {
		h.chain.Throw(errors.Wrap(err, what).Error())
	}
}

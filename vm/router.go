package vm

import (
	"bytes"

	"github.com/govm-net/wasmrpc/blockchain"
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

// Router dispatches code to the wasm executor or the native one. Nested
// calls from either kind of contract go back through the router.
type Router struct {
	Wasm   *Executor
	Native *Native
	config Config
}

// NewRouter creates a router over both executors
func NewRouter(wasm *Executor, native *Native, config Config) *Router {
	return &Router{Wasm: wasm, Native: native, config: config.withDefaults()}
}

// IsWasm reports whether code starts with the wasm binary magic
func IsWasm(code []byte) bool {
	return bytes.HasPrefix(code, wasmMagic)
}

// Execute implements blockchain.Executor
func (r *Router) Execute(chain blockchain.BlockChain, code []byte, method string, params []byte, address []byte) ([]byte, error) {
	if len(code) == 0 {
		return nil, ErrNoCode
	}
	tc := trace(chain, r, r.config.MaxCallDepth)
	if IsWasm(code) {
		if r.Wasm == nil {
			return nil, ErrUnknownCode
		}
		return r.Wasm.Execute(tc, code, method, params, address)
	}
	if r.Native == nil {
		return nil, ErrUnknownCode
	}
	return r.Native.Execute(tc, code, method, params, address)
}

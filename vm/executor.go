// Package vm runs contract code for a chain: wasm modules in a wazero sandbox
// and Go contracts compiled into the host.
package vm

import (
	"context"

	"github.com/govm-net/wasmrpc/blockchain"
	"github.com/govm-net/wasmrpc/logging"
	"github.com/govm-net/wasmrpc/memory"
	"github.com/govm-net/wasmrpc/types"
	"github.com/pkg/errors"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

const wasmPageSize = 65536

var (
	// ErrNoCode is returned when there is no contract at the called address
	ErrNoCode = errors.New("no contract code")
	// ErrUnknownCode is returned for code no executor understands
	ErrUnknownCode = errors.New("unknown contract code")
	// ErrCodeTooLarge is returned for code above MaxCodeSize
	ErrCodeTooLarge = errors.New("contract code too large")
	// ErrMethodNotFound is returned when the contract does not export the method
	ErrMethodNotFound = errors.New("method not found")
	// ErrMissingExport is returned when a module lacks a required export
	ErrMissingExport = errors.New("missing export")
)

// Executor runs wasm contracts with wazero. Each invocation gets its own
// runtime, so no state survives between calls except through the chain.
type Executor struct {
	ctx    context.Context
	config Config
}

// NewExecutor creates a wasm executor. ctx bounds every invocation.
func NewExecutor(ctx context.Context, config Config) *Executor {
	return &Executor{ctx: ctx, config: config.withDefaults()}
}

// Execute implements blockchain.Executor. A method is an export taking the
// params buffer pointer and returning a pointer to a Return buffer.
func (e *Executor) Execute(chain blockchain.BlockChain, code []byte, method string, params []byte, address []byte) ([]byte, error) {
	if len(code) == 0 {
		return nil, ErrNoCode
	}
	if len(code) > e.config.MaxCodeSize {
		return nil, errors.Wrapf(ErrCodeTooLarge, "%d bytes, limit %d", len(code), e.config.MaxCodeSize)
	}

	tc := trace(chain, e, e.config.MaxCallDepth)
	if err := tc.tracer.BeginCall(address, method); err != nil {
		return nil, err
	}
	defer tc.tracer.EndCall()

	r := wazero.NewRuntimeWithConfig(e.ctx, wazero.NewRuntimeConfig().
		WithMemoryLimitPages(e.config.MaxMemoryPages))
	defer r.Close(e.ctx)

	s := &session{chain: tc, address: address}
	mod, err := e.instantiate(r, s, code)
	if err != nil {
		if s.fault != nil {
			return nil, s.fault
		}
		return nil, err
	}

	fn, err := exportedMethod(mod, method)
	if err != nil {
		return nil, err
	}
	alloc, err := newGuestAllocator(e.ctx, mod)
	if err != nil {
		return nil, err
	}
	m := memory.NewMarshaler(mod.Memory(), alloc)

	paramsPtr, err := m.Write(params)
	if err != nil {
		return nil, errors.Wrap(err, "write params")
	}

	logging.Logger().Debug("executing contract",
		zap.String("method", method),
		zap.Int("depth", tc.tracer.Depth()),
		zap.Int("params_size", len(params)))

	res, err := fn.Call(e.ctx, uint64(paramsPtr))
	if err != nil {
		if s.fault != nil {
			return nil, s.fault
		}
		return nil, errors.Wrapf(err, "execute %s", method)
	}

	out, err := m.ReadRaw(uint32(res[0]))
	if err != nil {
		return nil, errors.Wrapf(err, "read result of %s", method)
	}
	if err := m.Release(paramsPtr); err != nil {
		logging.Logger().Debug("release params", zap.Error(err))
	}
	return out, nil
}

func (e *Executor) instantiate(r wazero.Runtime, s *session, code []byte) (api.Module, error) {
	if _, err := s.hostModule(r).Instantiate(e.ctx); err != nil {
		return nil, errors.Wrap(err, "instantiate host module")
	}
	if _, err := wasi_snapshot_preview1.Instantiate(e.ctx, r); err != nil {
		return nil, errors.Wrap(err, "instantiate wasi")
	}

	compiled, err := r.CompileModule(e.ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "compile contract")
	}
	mod, err := r.InstantiateModule(e.ctx, compiled, wazero.NewModuleConfig().
		WithName("contract").
		WithStartFunctions("_initialize"))
	if err != nil {
		return nil, errors.Wrap(err, "instantiate contract")
	}
	if mod.Memory() == nil {
		return nil, errors.Wrap(ErrMissingExport, types.GuestMemory)
	}
	return mod, nil
}

func exportedMethod(mod api.Module, method string) (api.Function, error) {
	fn := mod.ExportedFunction(method)
	if fn == nil {
		return nil, errors.Wrap(ErrMethodNotFound, method)
	}
	def := fn.Definition()
	params, results := def.ParamTypes(), def.ResultTypes()
	if len(params) != 1 || params[0] != api.ValueTypeI32 ||
		len(results) != 1 || results[0] != api.ValueTypeI32 {
		return nil, errors.Wrapf(ErrMethodNotFound, "%s has signature %s", method, signature(def))
	}
	return fn, nil
}

package vm

import (
	"sort"
	"strings"
	"sync"

	"github.com/govm-net/wasmrpc/blockchain"
	"github.com/govm-net/wasmrpc/logging"
	"github.com/govm-net/wasmrpc/memory"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// NativePrefix marks code that names a contract compiled into the host
const NativePrefix = "native:"

// Method is a contract method written in Go. It gets the params buffer
// pointer in m and returns a pointer to a Return buffer in m.
type Method func(chain blockchain.BlockChain, m *memory.Marshaler, params uint32) uint32

// Contract maps method names to implementations
type Contract map[string]Method

// NativeCode returns the code that selects the native contract name
func NativeCode(name string) []byte {
	return []byte(NativePrefix + name)
}

// Native runs Go contracts over a fresh Arena per invocation.
type Native struct {
	config Config

	mu        sync.RWMutex
	contracts map[string]Contract
}

// NewNative creates an executor with no contracts registered
func NewNative(config Config) *Native {
	return &Native{
		config:    config.withDefaults(),
		contracts: make(map[string]Contract),
	}
}

// Register makes contract available as code NativeCode(name)
func (n *Native) Register(name string, contract Contract) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.contracts[name] = contract
}

// Names lists registered contracts in sorted order
func (n *Native) Names() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	names := make([]string, 0, len(n.contracts))
	for name := range n.contracts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (n *Native) lookup(code []byte, method string) (Method, error) {
	if len(code) == 0 {
		return nil, ErrNoCode
	}
	name, ok := strings.CutPrefix(string(code), NativePrefix)
	if !ok {
		return nil, errors.Wrap(ErrUnknownCode, "not a native contract")
	}

	n.mu.RLock()
	contract, ok := n.contracts[name]
	n.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownCode, "native contract %q", name)
	}
	fn, ok := contract[method]
	if !ok {
		return nil, errors.Wrapf(ErrMethodNotFound, "%s.%s", name, method)
	}
	return fn, nil
}

// Execute implements blockchain.Executor
func (n *Native) Execute(chain blockchain.BlockChain, code []byte, method string, params []byte, address []byte) ([]byte, error) {
	fn, err := n.lookup(code, method)
	if err != nil {
		return nil, err
	}

	tc := trace(chain, n, n.config.MaxCallDepth)
	if err := tc.tracer.BeginCall(address, method); err != nil {
		return nil, err
	}
	defer tc.tracer.EndCall()

	arena := memory.NewArena(n.config.MaxMemoryPages * wasmPageSize)
	m := memory.NewMarshaler(arena, arena)
	paramsPtr, err := m.Write(params)
	if err != nil {
		return nil, errors.Wrap(err, "write params")
	}

	var ret uint32
	if fault := blockchain.Catch(func() { ret = fn(tc, m, paramsPtr) }); fault != nil {
		logging.Logger().Debug("native contract threw",
			zap.String("method", method),
			zap.String("message", fault.Message))
		return nil, fault
	}

	out, err := m.ReadRaw(ret)
	if err != nil {
		return nil, errors.Wrapf(err, "read result of %s", method)
	}
	return out, nil
}

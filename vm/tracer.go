package vm

import (
	"encoding/hex"

	"github.com/govm-net/wasmrpc/blockchain"
	"github.com/pkg/errors"
)

// ErrCallDepth is returned when a call would nest deeper than MaxCallDepth
var ErrCallDepth = errors.New("call depth exceeded")

// CallFrame is one contract invocation on the call stack
type CallFrame struct {
	Address []byte
	Method  string
}

func (f CallFrame) String() string {
	return hex.EncodeToString(f.Address) + "." + f.Method
}

// CallTracer tracks the chain of contract calls of one top-level invocation
type CallTracer struct {
	maxDepth  int
	callStack []CallFrame
}

// NewCallTracer creates a tracer allowing at most maxDepth nested frames
func NewCallTracer(maxDepth int) *CallTracer {
	return &CallTracer{maxDepth: maxDepth}
}

// BeginCall pushes a frame, failing with ErrCallDepth when the stack is full
func (t *CallTracer) BeginCall(address []byte, method string) error {
	if len(t.callStack) >= t.maxDepth {
		return errors.Wrapf(ErrCallDepth, "%d frames, entering %s", len(t.callStack),
			CallFrame{Address: address, Method: method})
	}
	t.callStack = append(t.callStack, CallFrame{Address: address, Method: method})
	return nil
}

// EndCall pops the innermost frame
func (t *CallTracer) EndCall() {
	if len(t.callStack) > 0 {
		t.callStack = t.callStack[:len(t.callStack)-1]
	}
}

// Depth returns the number of open frames
func (t *CallTracer) Depth() int {
	return len(t.callStack)
}

// Stack returns a copy of the open frames, outermost first
func (t *CallTracer) Stack() []CallFrame {
	return append([]CallFrame(nil), t.callStack...)
}

// tracedChain is the BlockChain handed to contract code. Nested calls made
// through it go back to the executor that started the invocation and share
// its tracer.
type tracedChain struct {
	blockchain.BlockChain
	tracer *CallTracer
	exec   blockchain.Executor
}

func (c *tracedChain) Call(code []byte, method string, params []byte, address []byte) ([]byte, error) {
	return c.exec.Execute(c, code, method, params, address)
}

// trace wraps chain for an invocation started by exec. A chain that is
// already traced keeps its tracer and executor.
func trace(chain blockchain.BlockChain, exec blockchain.Executor, maxDepth int) *tracedChain {
	if tc, ok := chain.(*tracedChain); ok {
		return tc
	}
	return &tracedChain{BlockChain: chain, tracer: NewCallTracer(maxDepth), exec: exec}
}

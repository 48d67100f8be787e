package vm

import (
	"context"
	"testing"

	"github.com/govm-net/wasmrpc/blockchain"
	"github.com/govm-net/wasmrpc/blockchain/chaintest"
	"github.com/govm-net/wasmrpc/rpc"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// testModule imports _throw, _read_u64, _write_u64 and _sender from env and
// exports a bump allocator plus these methods:
//
//	echo(p)   returns p
//	ping(p)   returns a Return buffer for Ok(Null)
//	fail(p)   throws "boom"
//	bump(p)   increments the u64 cell keyed by the params bytes, returns Ok(Null)
//	whoami(p) returns the sender bytes
var testModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x01, 0x1d, 0x06, 0x60,
	0x01, 0x7f, 0x01, 0x7f, 0x60, 0x02, 0x7f, 0x7f, 0x00, 0x60, 0x01, 0x7f,
	0x00, 0x60, 0x01, 0x7f, 0x01, 0x7e, 0x60, 0x02, 0x7f, 0x7e, 0x00, 0x60,
	0x00, 0x01, 0x7f, 0x02, 0x3d, 0x04, 0x03, 0x65, 0x6e, 0x76, 0x06, 0x5f,
	0x74, 0x68, 0x72, 0x6f, 0x77, 0x00, 0x02, 0x03, 0x65, 0x6e, 0x76, 0x09,
	0x5f, 0x72, 0x65, 0x61, 0x64, 0x5f, 0x75, 0x36, 0x34, 0x00, 0x03, 0x03,
	0x65, 0x6e, 0x76, 0x0a, 0x5f, 0x77, 0x72, 0x69, 0x74, 0x65, 0x5f, 0x75,
	0x36, 0x34, 0x00, 0x04, 0x03, 0x65, 0x6e, 0x76, 0x07, 0x5f, 0x73, 0x65,
	0x6e, 0x64, 0x65, 0x72, 0x00, 0x05, 0x03, 0x08, 0x07, 0x00, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x05, 0x03, 0x01, 0x00, 0x01, 0x06, 0x07, 0x01,
	0x7f, 0x01, 0x41, 0x80, 0x08, 0x0b, 0x07, 0x47, 0x08, 0x06, 0x6d, 0x65,
	0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00, 0x08, 0x61, 0x6c, 0x6c, 0x6f, 0x63,
	0x61, 0x74, 0x65, 0x00, 0x04, 0x0a, 0x64, 0x65, 0x61, 0x6c, 0x6c, 0x6f,
	0x63, 0x61, 0x74, 0x65, 0x00, 0x05, 0x04, 0x65, 0x63, 0x68, 0x6f, 0x00,
	0x06, 0x04, 0x70, 0x69, 0x6e, 0x67, 0x00, 0x07, 0x04, 0x66, 0x61, 0x69,
	0x6c, 0x00, 0x08, 0x04, 0x62, 0x75, 0x6d, 0x70, 0x00, 0x09, 0x06, 0x77,
	0x68, 0x6f, 0x61, 0x6d, 0x69, 0x00, 0x0a, 0x0a, 0x38, 0x07, 0x0b, 0x00,
	0x23, 0x00, 0x23, 0x00, 0x20, 0x00, 0x6a, 0x24, 0x00, 0x0b, 0x02, 0x00,
	0x0b, 0x04, 0x00, 0x20, 0x00, 0x0b, 0x04, 0x00, 0x41, 0x10, 0x0b, 0x08,
	0x00, 0x41, 0x18, 0x10, 0x00, 0x41, 0x00, 0x0b, 0x0f, 0x00, 0x20, 0x00,
	0x20, 0x00, 0x10, 0x01, 0x42, 0x01, 0x7c, 0x10, 0x02, 0x41, 0x10, 0x0b,
	0x04, 0x00, 0x10, 0x03, 0x0b, 0x0b, 0x16, 0x01, 0x00, 0x41, 0x10, 0x0b,
	0x10, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x04, 0x62, 0x6f, 0x6f, 0x6d,
}

// memoryOnlyModule exports a memory and nothing else
var memoryOnlyModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x05, 0x03, 0x01, 0x00, 0x01,
	0x07, 0x0a, 0x01, 0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00,
}

var testAddress = []byte("contract")

func newExecutor() *Executor {
	return NewExecutor(context.Background(), DefaultConfig())
}

func TestExecutePing(t *testing.T) {
	out, err := newExecutor().Execute(chaintest.New(), testModule, "ping", nil, testAddress)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, out)

	v, rpcErr, err := rpc.Decode(out)
	require.NoError(t, err)
	assert.Nil(t, rpcErr)
	assert.True(t, v.IsNull())
}

func TestExecuteEcho(t *testing.T) {
	exec := newExecutor()
	for _, params := range [][]byte{[]byte("hello"), {}, make([]byte, 4096)} {
		out, err := exec.Execute(chaintest.New(), testModule, "echo", params, testAddress)
		require.NoError(t, err)
		assert.Equal(t, params, out)
	}
}

func TestExecuteThrow(t *testing.T) {
	fake := chaintest.New()
	_, err := newExecutor().Execute(fake, testModule, "fail", nil, testAddress)
	require.Error(t, err)

	var fault *blockchain.Fault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, "boom", fault.Message)
	assert.Equal(t, []string{"boom"}, fake.Thrown)
}

func TestExecuteStorage(t *testing.T) {
	fake := chaintest.New()
	exec := newExecutor()
	for i := 0; i < 3; i++ {
		_, err := exec.Execute(fake, testModule, "bump", []byte("counter"), testAddress)
		require.NoError(t, err)
	}
	n, err := fake.ReadU64([]byte("counter"))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}

func TestExecuteSender(t *testing.T) {
	fake := chaintest.New()
	fake.SenderAccount = chaintest.Alice
	out, err := newExecutor().Execute(fake, testModule, "whoami", nil, testAddress)
	require.NoError(t, err)
	assert.Equal(t, chaintest.Alice.Bytes(), out)
}

func TestExecuteErrors(t *testing.T) {
	exec := newExecutor()
	fake := chaintest.New()

	_, err := exec.Execute(fake, nil, "ping", nil, testAddress)
	assert.ErrorIs(t, err, ErrNoCode)

	_, err = exec.Execute(fake, testModule, "missing", nil, testAddress)
	assert.ErrorIs(t, err, ErrMethodNotFound)

	_, err = exec.Execute(fake, testModule, "deallocate", nil, testAddress)
	assert.ErrorIs(t, err, ErrMethodNotFound)

	_, err = exec.Execute(fake, memoryOnlyModule, "memory", nil, testAddress)
	assert.ErrorIs(t, err, ErrMethodNotFound)

	_, err = exec.Execute(fake, []byte("\x00asm garbage"), "ping", nil, testAddress)
	assert.ErrorContains(t, err, "compile contract")

	small := NewExecutor(context.Background(), Config{MaxCodeSize: 16})
	_, err = small.Execute(fake, testModule, "ping", nil, testAddress)
	assert.ErrorIs(t, err, ErrCodeTooLarge)
}

func TestExecuteCallDepth(t *testing.T) {
	exec := NewExecutor(context.Background(), Config{MaxCallDepth: 1})
	tc := trace(chaintest.New(), exec, 1)
	require.NoError(t, tc.tracer.BeginCall([]byte("outer"), "run"))

	_, err := exec.Execute(tc, testModule, "ping", nil, testAddress)
	assert.ErrorIs(t, err, ErrCallDepth)

	tc.tracer.EndCall()
	_, err = exec.Execute(tc, testModule, "ping", nil, testAddress)
	assert.NoError(t, err)
	assert.Zero(t, tc.tracer.Depth())
}

func TestInspect(t *testing.T) {
	info, err := Inspect(context.Background(), testModule)
	require.NoError(t, err)

	assert.Equal(t, []string{"memory"}, info.Memories)
	assert.ElementsMatch(t, []string{"bump", "echo", "fail", "ping", "whoami"}, info.Methods())

	require.Len(t, info.Imports, 4)
	assert.Equal(t, Function{Module: "env", Name: "_read_u64", Signature: "(i32) -> (i64)"}, info.Imports[0])
	assert.Equal(t, Function{Module: "env", Name: "_write_u64", Signature: "(i32, i64) -> ()"}, info.Imports[3])

	_, err = Inspect(context.Background(), []byte("not wasm"))
	assert.Error(t, err)
}

package vm

import (
	"context"
	"testing"

	"github.com/govm-net/wasmrpc/blockchain"
	"github.com/govm-net/wasmrpc/blockchain/chaintest"
	"github.com/govm-net/wasmrpc/codec"
	"github.com/govm-net/wasmrpc/memory"
	"github.com/govm-net/wasmrpc/registry"
	"github.com/govm-net/wasmrpc/rpc"
	"github.com/govm-net/wasmrpc/types"
	storemem "github.com/govm-net/wasmrpc/storage/memory"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const codeInsufficientFunds = 10

func ret(chain blockchain.BlockChain, m *memory.Marshaler, v codec.Value, err error) uint32 {
	ptr, werr := rpc.Return(m, v, err)
	if werr != nil {
		chain.Throw(werr.Error())
	}
	return ptr
}

func args(chain blockchain.BlockChain, m *memory.Marshaler, params uint32) []codec.Value {
	items, err := m.ReadArray(params)
	if err != nil {
		chain.Throw(err.Error())
	}
	return items
}

// tokenContract keeps balances in u64 cells keyed by account.
var tokenContract = Contract{
	"initialize": func(chain blockchain.BlockChain, m *memory.Marshaler, params uint32) uint32 {
		err := chain.WriteU64(chain.Sender().Bytes(), 100)
		return ret(chain, m, codec.Null(), err)
	},
	"balance_of": func(chain blockchain.BlockChain, m *memory.Marshaler, params uint32) uint32 {
		account, _ := args(chain, m, params)[0].AsBytes()
		n, err := chain.ReadU64(account)
		return ret(chain, m, codec.Int(int64(n)), err)
	},
	"transfer": func(chain blockchain.BlockChain, m *memory.Marshaler, params uint32) uint32 {
		a := args(chain, m, params)
		to, _ := a[0].AsBytes()
		amount, _ := a[1].AsInt()
		from := chain.Sender().Bytes()

		balance, err := chain.ReadU64(from)
		if err != nil {
			return ret(chain, m, codec.Null(), err)
		}
		if balance < uint64(amount) {
			return ret(chain, m, codec.Null(), rpc.NewError(codeInsufficientFunds, "insufficient funds"))
		}
		target, err := chain.ReadU64(to)
		if err != nil {
			return ret(chain, m, codec.Null(), err)
		}
		if err := chain.WriteU64(from, balance-uint64(amount)); err != nil {
			return ret(chain, m, codec.Null(), err)
		}
		return ret(chain, m, codec.Null(), chain.WriteU64(to, target+uint64(amount)))
	},
	"burn": func(chain blockchain.BlockChain, m *memory.Marshaler, params uint32) uint32 {
		chain.Throw("burning is disabled")
		return 0
	},
}

func callToken(t *testing.T, chain blockchain.BlockChain, method string, params ...codec.Value) (codec.Value, *rpc.Error) {
	out, err := registry.New(chain).Call(chaintest.Sender, "token", method, codec.MustEncode(codec.Array(params...)))
	require.NoError(t, err)
	v, rpcErr, err := rpc.Decode(out)
	require.NoError(t, err)
	return v, rpcErr
}

func newTokenChain(t *testing.T) (*blockchain.Chain, *Native) {
	native := NewNative(DefaultConfig())
	native.Register("token", tokenContract)
	chain := blockchain.New(storemem.NewStore(), chaintest.Sender, native)
	_, err := registry.New(chain).Deploy("token", NativeCode("token"))
	require.NoError(t, err)
	return chain, native
}

func TestNativeToken(t *testing.T) {
	chain, _ := newTokenChain(t)

	_, rpcErr := callToken(t, chain, "initialize")
	require.Nil(t, rpcErr)

	v, rpcErr := callToken(t, chain, "balance_of", codec.Bytes(chaintest.Sender.Bytes()))
	require.Nil(t, rpcErr)
	assert.True(t, v.Equal(codec.Int(100)))

	_, rpcErr = callToken(t, chain, "transfer", codec.Bytes(chaintest.Alice.Bytes()), codec.Int(30))
	require.Nil(t, rpcErr)

	v, _ = callToken(t, chain, "balance_of", codec.Bytes(chaintest.Alice.Bytes()))
	assert.True(t, v.Equal(codec.Int(30)))
	v, _ = callToken(t, chain, "balance_of", codec.Bytes(chaintest.Sender.Bytes()))
	assert.True(t, v.Equal(codec.Int(70)))

	_, rpcErr = callToken(t, chain, "transfer", codec.Bytes(chaintest.Alice.Bytes()), codec.Int(1000))
	require.NotNil(t, rpcErr)
	assert.Equal(t, uint32(codeInsufficientFunds), rpcErr.Code)
	assert.Equal(t, "insufficient funds", rpcErr.Message)
}

func TestNativeThrow(t *testing.T) {
	chain, _ := newTokenChain(t)
	_, err := registry.New(chain).Call(chaintest.Sender, "token", "burn", nil)

	var fault *blockchain.Fault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, "burning is disabled", fault.Message)
}

func TestNativeLookupErrors(t *testing.T) {
	chain, native := newTokenChain(t)
	assert.Equal(t, []string{"token"}, native.Names())

	_, err := native.Execute(chain, nil, "m", nil, nil)
	assert.ErrorIs(t, err, ErrNoCode)
	_, err = native.Execute(chain, NativeCode("nope"), "m", nil, nil)
	assert.ErrorIs(t, err, ErrUnknownCode)
	_, err = native.Execute(chain, []byte("something else"), "m", nil, nil)
	assert.ErrorIs(t, err, ErrUnknownCode)
	_, err = native.Execute(chain, NativeCode("token"), "mint", nil, nil)
	assert.ErrorIs(t, err, ErrMethodNotFound)

	_, err = registry.New(chain).Call(chaintest.Bob, "token", "initialize", nil)
	assert.ErrorIs(t, err, ErrNoCode)
}

func TestRouterNestedCalls(t *testing.T) {
	native := NewNative(DefaultConfig())
	router := NewRouter(NewExecutor(context.Background(), DefaultConfig()), native, DefaultConfig())

	var depth int
	native.Register("proxy", Contract{
		"ping": func(chain blockchain.BlockChain, m *memory.Marshaler, params uint32) uint32 {
			depth = chain.(*tracedChain).tracer.Depth()
			out, err := registry.New(chain).Call(chaintest.Sender, "pinger", "ping", nil)
			if err != nil {
				return ret(chain, m, codec.Null(), err)
			}
			ptr, err := m.Write(out)
			if err != nil {
				chain.Throw(err.Error())
			}
			return ptr
		},
	})

	chain := blockchain.New(storemem.NewStore(), chaintest.Sender, router)
	reg := registry.New(chain)
	_, err := reg.Deploy("pinger", testModule)
	require.NoError(t, err)
	_, err = reg.Deploy("proxy", NativeCode("proxy"))
	require.NoError(t, err)

	out, err := reg.Call(chaintest.Sender, "proxy", "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, out)
	assert.Equal(t, 1, depth)

	_, err = router.Execute(chain, []byte("unknown"), "ping", nil, nil)
	assert.ErrorIs(t, err, ErrUnknownCode)
	assert.True(t, IsWasm(testModule))
	assert.False(t, IsWasm(NativeCode("proxy")))
}

func TestCyclicCallsEndAtMaxDepth(t *testing.T) {
	config := Config{MaxCallDepth: 4}
	native := NewNative(config)
	router := NewRouter(nil, native, config)

	var frames int
	var lastErr error
	native.Register("loop", Contract{
		"spin": func(chain blockchain.BlockChain, m *memory.Marshaler, params uint32) uint32 {
			frames++
			out, err := chain.Call(NativeCode("loop"), "spin", nil, []byte("loop"))
			if err != nil {
				lastErr = err
				return ret(chain, m, codec.Null(), err)
			}
			ptr, err := m.Write(out)
			if err != nil {
				chain.Throw(err.Error())
			}
			return ptr
		},
	})

	chain := chaintest.New()
	chain.Executor = router
	out, err := chain.Call(NativeCode("loop"), "spin", nil, []byte("loop"))
	require.NoError(t, err)

	assert.Equal(t, 4, frames)
	assert.ErrorIs(t, lastErr, ErrCallDepth)

	_, rpcErr, err := rpc.Decode(out)
	require.NoError(t, err)
	require.NotNil(t, rpcErr)
	assert.Equal(t, uint32(rpc.CodeInternal), rpcErr.Code)
	assert.Contains(t, rpcErr.Message, ErrCallDepth.Error())
}

func TestCallTracer(t *testing.T) {
	tracer := NewCallTracer(2)
	require.NoError(t, tracer.BeginCall([]byte{0xab}, "a"))
	require.NoError(t, tracer.BeginCall([]byte{0xcd}, "b"))
	assert.ErrorIs(t, tracer.BeginCall([]byte{0xef}, "c"), ErrCallDepth)

	assert.Equal(t, []CallFrame{{Address: []byte{0xab}, Method: "a"}, {Address: []byte{0xcd}, Method: "b"}}, tracer.Stack())
	assert.Equal(t, "cd.b", tracer.Stack()[1].String())

	tracer.EndCall()
	tracer.EndCall()
	tracer.EndCall()
	assert.Zero(t, tracer.Depth())
}

func TestSessionHostFunctions(t *testing.T) {
	fake := chaintest.New()
	arena := memory.NewArena(0)
	m := memory.NewMarshaler(arena, arena)
	s := &session{chain: fake, address: []byte("me")}

	key, err := m.Write([]byte("k"))
	require.NoError(t, err)
	value, err := m.Write([]byte("v"))
	require.NoError(t, err)

	s.write(m, key, value)
	got, err := m.ReadRaw(s.read(m, key))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	s.writeU64(m, key, 7)
	assert.Equal(t, uint64(7), s.readU64(m, key))
	assert.Zero(t, s.readU32(m, key))

	sender, err := m.ReadRaw(s.sender(m))
	require.NoError(t, err)
	assert.Equal(t, chaintest.Sender.Bytes(), sender)

	address, err := m.ReadRaw(s.contractAddress(m))
	require.NoError(t, err)
	assert.Equal(t, []byte("me"), address)

	message, err := m.WriteText("stop")
	require.NoError(t, err)
	fault := blockchain.Catch(func() { s.throw(m, message) })
	require.NotNil(t, fault)
	assert.Equal(t, "stop", fault.Message)

	fault = blockchain.Catch(func() { s.read(m, 1<<30) })
	require.NotNil(t, fault)
	assert.Contains(t, fault.Message, "read key")
	assert.Equal(t, []string{"stop", fault.Message}, fake.Thrown)
}

func TestSessionCall(t *testing.T) {
	fake := chaintest.New()
	fake.Response = []byte{0, 0, 0, 0}
	arena := memory.NewArena(0)
	m := memory.NewMarshaler(arena, arena)
	s := &session{chain: fake}

	write := func(v codec.Value) uint32 {
		ptr, err := m.WriteValue(v)
		require.NoError(t, err)
		return ptr
	}
	ptr := s.call(m,
		write(codec.Bytes(chaintest.Bob.Bytes())),
		write(codec.String("token")),
		write(codec.String("balance_of")),
		write(codec.Bytes([]byte{0x80})))

	out, err := m.ReadRaw(ptr)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, out)
	require.Len(t, fake.Calls, 1)
	assert.Equal(t, registry.Address(chaintest.Bob, "token"), fake.Calls[0].Address)
	assert.Equal(t, "balance_of", fake.Calls[0].Method)
	assert.Equal(t, types.Address{19: 3}, chaintest.Bob)
}

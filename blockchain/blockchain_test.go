package blockchain_test

import (
	"testing"

	"github.com/govm-net/wasmrpc/blockchain"
	"github.com/govm-net/wasmrpc/blockchain/chaintest"
	"github.com/govm-net/wasmrpc/codec"
	"github.com/govm-net/wasmrpc/storage/memory"
	"github.com/govm-net/wasmrpc/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoExecutor struct {
	chain blockchain.BlockChain
}

func (e *echoExecutor) Execute(chain blockchain.BlockChain, code []byte, method string, params []byte, address []byte) ([]byte, error) {
	e.chain = chain
	return append(append([]byte(method+":"), code...), params...), nil
}

func TestMissingKeysReadZero(t *testing.T) {
	chains := map[string]blockchain.BlockChain{
		"chain": blockchain.New(memory.NewStore(), chaintest.Sender, nil),
		"fake":  chaintest.New(),
	}
	for name, chain := range chains {
		t.Run(name, func(t *testing.T) {
			n32, err := chain.ReadU32([]byte("missing"))
			require.NoError(t, err)
			assert.Equal(t, uint32(0), n32)

			n64, err := chain.ReadU64([]byte("missing"))
			require.NoError(t, err)
			assert.Equal(t, uint64(0), n64)

			b, err := chain.Read([]byte("missing"))
			require.NoError(t, err)
			assert.Empty(t, b)
		})
	}
}

func TestU64StorageOrder(t *testing.T) {
	store := memory.NewStore()
	chain := blockchain.New(store, chaintest.Sender, nil)

	require.NoError(t, chain.WriteU64([]byte("balance"), 100))
	raw, err := store.Get([]byte("balance"))
	require.NoError(t, err)
	assert.Equal(t, codec.EncodeU64(100, codec.StorageU64BigEndian), raw)

	n, err := chain.ReadU64([]byte("balance"))
	require.NoError(t, err)
	assert.Equal(t, uint64(100), n)
}

func TestU32StorageOrder(t *testing.T) {
	store := memory.NewStore()
	chain := blockchain.New(store, chaintest.Sender, nil)

	require.NoError(t, store.Put([]byte("supply"), []byte{0, 0, 1, 0}))
	n, err := chain.ReadU32([]byte("supply"))
	require.NoError(t, err)
	assert.Equal(t, uint32(256), n)
}

func TestWrongWidthReadsZero(t *testing.T) {
	store := memory.NewStore()
	chain := blockchain.New(store, chaintest.Sender, nil)
	require.NoError(t, store.Put([]byte("k"), []byte{1, 2, 3}))

	n32, err := chain.ReadU32([]byte("k"))
	require.NoError(t, err)
	assert.Zero(t, n32)
	n64, err := chain.ReadU64([]byte("k"))
	require.NoError(t, err)
	assert.Zero(t, n64)
}

func TestThrowRaisesFault(t *testing.T) {
	chain := blockchain.New(memory.NewStore(), chaintest.Sender, nil)

	fault := blockchain.Catch(func() { chain.Throw("insufficient funds") })
	require.NotNil(t, fault)
	assert.Equal(t, "insufficient funds", fault.Message)
	assert.EqualError(t, fault, "contract fault: insufficient funds")

	assert.Nil(t, blockchain.Catch(func() {}))
	assert.PanicsWithValue(t, "other", func() {
		blockchain.Catch(func() { panic("other") })
	})
}

func TestFakeThrowCallback(t *testing.T) {
	fake := chaintest.New()
	var seen []string
	fake.SetThrowCallback(func(msg string) { seen = append(seen, msg) })

	fault := blockchain.Catch(func() { fake.Throw("boom") })
	require.NotNil(t, fault)
	assert.Equal(t, []string{"boom"}, seen)
	assert.Equal(t, []string{"boom"}, fake.Thrown)
}

func TestCallUsesExecutor(t *testing.T) {
	exec := &echoExecutor{}
	chain := blockchain.New(memory.NewStore(), chaintest.Alice, exec)

	out, err := chain.Call([]byte("code"), "run", []byte("!"), []byte("addr"))
	require.NoError(t, err)
	assert.Equal(t, []byte("run:code!"), out)
	assert.Same(t, chain, exec.chain)

	_, err = blockchain.New(memory.NewStore(), chaintest.Alice, nil).Call(nil, "run", nil, nil)
	assert.Error(t, err)
}

func TestWithSender(t *testing.T) {
	store := memory.NewStore()
	chain := blockchain.New(store, chaintest.Sender, nil)
	bob := chain.WithSender(chaintest.Bob)

	require.NoError(t, chain.Write([]byte("k"), []byte("v")))
	got, err := bob.Read([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
	assert.Equal(t, chaintest.Bob, bob.Sender())
	assert.Equal(t, types.Address{19: 1}, chain.Sender())
}

func TestFakeRecordsCalls(t *testing.T) {
	fake := chaintest.New()
	fake.Response = []byte{0, 0, 0, 0}

	out, err := fake.Call([]byte("c"), "m", []byte("p"), []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, out)
	require.Len(t, fake.Calls, 1)
	assert.Equal(t, "m", fake.Calls[0].Method)
}

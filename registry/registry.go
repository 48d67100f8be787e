// Package registry stores contract code under addresses derived from an
// account and a contract name, and dispatches calls to it.
package registry

import (
	"github.com/govm-net/wasmrpc/blockchain"
	"github.com/govm-net/wasmrpc/codec"
	"github.com/govm-net/wasmrpc/logging"
	"github.com/govm-net/wasmrpc/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Address returns the storage key of a contract: the account bytes followed
// by the UTF-8 bytes of the name, with no delimiter.
func Address(account types.Address, name string) []byte {
	out := make([]byte, 0, types.AddressLength+len(name))
	out = append(out, account[:]...)
	return append(out, name...)
}

// Registry deploys and calls contracts on a chain.
type Registry struct {
	chain blockchain.BlockChain
}

func New(chain blockchain.BlockChain) *Registry {
	return &Registry{chain: chain}
}

// Deploy stores code under the caller's address for name, replacing any
// code already there.
func (r *Registry) Deploy(name string, code []byte) (codec.Value, error) {
	sender := r.chain.Sender()
	address := Address(sender, name)

	if err := r.chain.Write(address, code); err != nil {
		return codec.Null(), errors.Wrapf(err, "deploy %s for %s", name, sender)
	}
	logging.Logger().Info("deployed contract",
		zap.Stringer("account", sender),
		zap.String("name", name),
		zap.Int("size", len(code)))
	return codec.Null(), nil
}

// Call runs method of the contract deployed by account under name. The
// result is whatever the chain's executor produced. Missing code is passed
// on as an empty buffer.
func (r *Registry) Call(account types.Address, name, method string, params []byte) ([]byte, error) {
	address := Address(account, name)
	code, err := r.chain.Read(address)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s of %s", name, account)
	}
	logging.Logger().Debug("calling contract",
		zap.Stringer("account", account),
		zap.String("name", name),
		zap.String("method", method),
		zap.Int("code_size", len(code)))
	return r.chain.Call(code, method, params, address)
}

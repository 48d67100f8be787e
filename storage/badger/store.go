// Package badger provides an on-disk storage backend built on Badger.
package badger

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/govm-net/wasmrpc/logging"
	"github.com/govm-net/wasmrpc/storage"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Store implements storage.Store on a Badger database
type Store struct {
	db *badger.DB
}

func init() {
	storage.Register(storage.BadgerBackend, func(params storage.Params) (storage.Store, error) {
		return NewStore(params.Path)
	})
}

// NewStore opens the database in dir. An empty dir keeps everything in memory.
func NewStore(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open badger at %q", dir)
	}
	logging.Logger().Debug("opened badger store", zap.String("dir", dir))
	return &Store{db: db}, nil
}

func (s *Store) Get(key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get cell")
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

func (s *Store) Put(key, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	return errors.Wrap(err, "put cell")
}

func (s *Store) Close() error {
	return s.db.Close()
}

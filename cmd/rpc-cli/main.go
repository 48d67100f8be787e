package main

import (
	"context"
	"fmt"
	"os"

	"github.com/govm-net/wasmrpc/blockchain"
	"github.com/govm-net/wasmrpc/config"
	"github.com/govm-net/wasmrpc/logging"
	"github.com/govm-net/wasmrpc/storage"
	_ "github.com/govm-net/wasmrpc/storage/badger"
	_ "github.com/govm-net/wasmrpc/storage/db"
	_ "github.com/govm-net/wasmrpc/storage/memory"
	"github.com/govm-net/wasmrpc/types"
	"github.com/govm-net/wasmrpc/vm"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	senderHex  string
)

var rootCmd = &cobra.Command{
	Use:   "rpc-cli",
	Short: "Contract registry command line tool",
	Long: `Contract registry command line tool for deploying, calling and inspecting
wasm contracts against a local state store.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().StringVarP(&senderHex, "sender", "s", "0x0000000000000000000000000000000000000001", "account making the call")

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(inspectCmd)
}

// session is the chain a command runs against
type session struct {
	cfg   *config.Config
	store storage.Store
	chain *blockchain.Chain
}

func (s *session) Close() error {
	_ = logging.Logger().Sync()
	return s.store.Close()
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}
	logging.SetLogger(logger)

	sender, err := types.AddressFromString(senderHex)
	if err != nil {
		return nil, errors.Wrap(err, "parse --sender")
	}

	var store storage.Store
	store, err = storage.Open(storage.BackendType(cfg.Storage.Backend), storage.Params{Path: cfg.Storage.Path})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s storage", cfg.Storage.Backend)
	}
	if cfg.Storage.CacheSize > 0 {
		cached, err := storage.NewCached(store, cfg.Storage.CacheSize)
		if err != nil {
			store.Close()
			return nil, err
		}
		store = cached
	}

	vmConfig := cfg.VMConfig()
	router := vm.NewRouter(vm.NewExecutor(ctx, vmConfig), vm.NewNative(vmConfig), vmConfig)
	logger.Debug("session opened",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("path", cfg.Storage.Path),
		zap.Stringer("sender", sender))

	return &session{
		cfg:   cfg,
		store: store,
		chain: blockchain.New(store, sender, router),
	}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

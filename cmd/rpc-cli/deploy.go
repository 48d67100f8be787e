package main

import (
	"fmt"
	"os"

	"github.com/govm-net/wasmrpc/registry"
	"github.com/govm-net/wasmrpc/vm"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	deployName string
	deployFile string
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy a contract under the sender's account",
	Long: `Deploy a wasm contract under the sender's account. Deploying again under
the same name replaces the code. The code only survives for later calls
with a persistent storage backend, the default db at ./state.db or badger.
Example: rpc-cli deploy --name token --file token.wasm`,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := os.ReadFile(deployFile)
		if err != nil {
			return errors.Wrap(err, "read contract file")
		}
		if vm.IsWasm(code) {
			if _, err := vm.Inspect(cmd.Context(), code); err != nil {
				return err
			}
		}

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		if _, err := registry.New(s.chain).Deploy(deployName, code); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deployed %s (%d bytes) at %x\n",
			deployName, len(code), registry.Address(s.chain.Sender(), deployName))
		return nil
	},
}

func init() {
	deployCmd.Flags().StringVarP(&deployName, "name", "n", "", "contract name")
	deployCmd.Flags().StringVarP(&deployFile, "file", "f", "", "wasm file")
	_ = deployCmd.MarkFlagRequired("name")
	_ = deployCmd.MarkFlagRequired("file")
}

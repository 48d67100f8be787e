package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/govm-net/wasmrpc/registry"
	"github.com/govm-net/wasmrpc/rpc"
	"github.com/govm-net/wasmrpc/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	callAccount string
	callName    string
	callMethod  string
	callParams  string
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Call a method of a deployed contract",
	Long: `Call a method of the contract deployed by account under name and print the
decoded result.
Example: rpc-cli call --account 0x...01 --name token --method balance_of --params 8141...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		account, err := types.AddressFromString(callAccount)
		if err != nil {
			return errors.Wrap(err, "parse --account")
		}
		params, err := hex.DecodeString(strings.TrimPrefix(callParams, "0x"))
		if err != nil {
			return errors.Wrap(err, "parse --params")
		}

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		out, err := registry.New(s.chain).Call(account, callName, callMethod, params)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), out)
	},
}

func printResult(w io.Writer, out []byte) error {
	v, rpcErr, err := rpc.Decode(out)
	if err != nil {
		_, werr := fmt.Fprintf(w, "raw: %x\n", out)
		return werr
	}
	if rpcErr != nil {
		_, err = fmt.Fprintf(w, "error %d: %s\n", rpcErr.Code, rpcErr.Message)
		return err
	}
	_, err = fmt.Fprintf(w, "ok: %s\n", v)
	return err
}

func init() {
	callCmd.Flags().StringVarP(&callAccount, "account", "a", "", "account that deployed the contract, defaults to --sender")
	callCmd.Flags().StringVarP(&callName, "name", "n", "", "contract name")
	callCmd.Flags().StringVarP(&callMethod, "method", "m", "", "method to call")
	callCmd.Flags().StringVarP(&callParams, "params", "p", "", "params buffer as hex")
	_ = callCmd.MarkFlagRequired("name")
	_ = callCmd.MarkFlagRequired("method")
	callCmd.PreRun = func(cmd *cobra.Command, args []string) {
		if callAccount == "" {
			callAccount = senderHex
		}
	}
}

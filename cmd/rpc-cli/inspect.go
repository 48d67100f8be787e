package main

import (
	"fmt"
	"os"

	"github.com/govm-net/wasmrpc/vm"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var inspectFile string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List a wasm module's exports and imports",
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := os.ReadFile(inspectFile)
		if err != nil {
			return errors.Wrap(err, "read wasm file")
		}
		info, err := vm.Inspect(cmd.Context(), code)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "exported functions:")
		for _, f := range info.Functions {
			fmt.Fprintf(w, "  - %s %s\n", f.Name, f.Signature)
		}
		fmt.Fprintln(w, "exported memories:")
		for _, name := range info.Memories {
			fmt.Fprintf(w, "  - %s\n", name)
		}
		fmt.Fprintln(w, "imports:")
		for _, f := range info.Imports {
			fmt.Fprintf(w, "  - %s.%s %s\n", f.Module, f.Name, f.Signature)
		}
		fmt.Fprintln(w, "methods:")
		for _, name := range info.Methods() {
			fmt.Fprintf(w, "  - %s\n", name)
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectFile, "file", "f", "", "wasm file")
	_ = inspectCmd.MarkFlagRequired("file")
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sweeter-byte/extended-pl0-compiler/internal/compile"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/source"
)

var debugCmd = &cobra.Command{
	Use:   "debug <file>",
	Short: "Compile a PL/0 source file and enter the debugger REPL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := source.LoadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "pl0c: %v\n", err)
			os.Exit(3)
		}

		opts := buildOptions(cmd)
		res, err := compile.Debug(src, opts, os.Stdout)
		if !res.OK {
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "pl0c: %v\n", err)
			os.Exit(2)
		}
		return nil
	},
}

func init() {
	debugCmd.Flags().BoolVarP(&flagOptimize, "optimize", "O", false, "run the basic-block optimizer")
}

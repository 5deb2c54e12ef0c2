package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sweeter-byte/extended-pl0-compiler/internal/compile"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/interp"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/source"
)

var flagTrace bool

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Compile and execute a PL/0 source file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := source.LoadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "pl0c: %v\n", err)
			os.Exit(3)
		}

		opts := buildOptions(cmd)
		res, in := compile.NewInterpreter(src, opts)
		if !res.OK {
			os.Exit(1)
		}
		in.SetTrace(flagTrace, os.Stdout)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt)
		defer signal.Stop(sigCh)
		done := make(chan struct{})
		go func() {
			select {
			case <-sigCh:
				in.Stop()
			case <-done:
			}
		}()

		in.Run()
		close(done)

		if in.State() == interp.Errored {
			log.Error().Str("file", args[0]).Str("reason", in.ErrorMessage()).Msg("program errored")
			os.Exit(2)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&flagTrace, "trace", false, "trace each instruction's {P, op, L, A, B, T, H} before execution")
	runCmd.Flags().BoolVarP(&flagOptimize, "optimize", "O", false, "run the basic-block optimizer")
}

package cmd

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	noColor bool
	log     zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:     "pl0c",
	Short:   "A compiler, interpreter, and debugger for the PL/0 extended dialect",
	Version: version,
	Long: `pl0c compiles PL/0 source to P-Code, runs it on a stack-machine interpreter,
and can drop into an interactive debugger.

Commands:
  build  compile a source file to P-Code
  run    compile and execute a source file
  debug  compile a source file and enter the debugger REPL
  test   run the batch test suite under a directory
`,
}

// Execute runs the root command, returning any error cobra surfaces.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "suppress ANSI colors in diagnostics output")
	rootCmd.SetVersionTemplate("pl0c version {{.Version}}\n")

	rootCmd.AddCommand(buildCmd, runCmd, debugCmd, testCmd)

	// The logger is built once flags are parsed, so --no-color takes effect.
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		w := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: noColor || !isatty.IsTerminal(os.Stderr.Fd())}
		log = zerolog.New(w).With().Timestamp().Logger()
	}
}

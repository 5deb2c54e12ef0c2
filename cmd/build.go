package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sweeter-byte/extended-pl0-compiler/internal/compile"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/source"
)

var (
	flagOptimize bool
	flagTokens   bool
	flagAST      bool
	flagSym      bool
	flagCode     bool
	flagAll      bool
)

var buildCmd = &cobra.Command{
	Use:   "build <file>",
	Short: "Compile a PL/0 source file to P-Code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := buildOptions(cmd)
		_, ok, err := buildOnly(args[0], opts)
		if err != nil {
			return err
		}
		if !ok {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().BoolVarP(&flagOptimize, "optimize", "O", false, "run the basic-block optimizer")
	buildCmd.Flags().BoolVar(&flagTokens, "tokens", false, "dump the lexer's token stream")
	buildCmd.Flags().BoolVar(&flagAST, "ast", false, "dump the parser's AST echo")
	buildCmd.Flags().BoolVar(&flagSym, "sym", false, "dump the symbol table")
	buildCmd.Flags().BoolVar(&flagCode, "code", false, "dump generated P-Code")
	buildCmd.Flags().BoolVar(&flagAll, "all", false, "dump tokens, AST, symbol table, and P-Code")
}

func buildOptions(cmd *cobra.Command) compile.Options {
	dump := compile.DumpOptions{
		Tokens: flagTokens || flagAll,
		AST:    flagAST || flagAll,
		Sym:    flagSym || flagAll,
		Code:   flagCode || flagAll,
	}
	return compile.Options{
		Optimize: flagOptimize,
		NoColor:  noColor,
		Dump:     dump,
		Out:      os.Stdout,
	}
}

// buildOnly loads path and compiles it, returning the result without
// executing. It exits the process with code 3 if the file can't be read.
func buildOnly(path string, opts compile.Options) (compile.Result, bool, error) {
	src, err := source.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pl0c: %v\n", err)
		os.Exit(3)
	}

	res := compile.Compile(src, opts)
	log.Info().Str("file", path).Int("errors", res.Diag.ErrorCount()).Msg("compile finished")
	return res, res.OK, nil
}

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sweeter-byte/extended-pl0-compiler/internal/compile"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/interp"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/source"
)

var testCmd = &cobra.Command{
	Use:   "test [dir]",
	Short: "Run every *.pl0 file under dir as a batch test",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "./tests"
		if len(args) == 1 {
			dir = args[0]
		}

		files, err := collectTestFiles(dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pl0c: %v\n", err)
			os.Exit(3)
		}

		passed, failed := 0, 0
		for _, f := range files {
			ok, reason := runOneTest(f)
			if ok {
				passed++
				pterm.Success.Printfln("%s", f)
			} else {
				failed++
				pterm.Error.Printfln("%s: %s", f, reason)
			}
		}

		pterm.Info.Printfln("%d passed, %d failed, %d total", passed, failed, passed+failed)
		log.Info().Int("passed", passed).Int("failed", failed).Str("dir", dir).Msg("batch test run finished")

		if failed > 0 {
			os.Exit(1)
		}
		return nil
	},
}

func collectTestFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".pl0") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// runOneTest compiles and, if that succeeds, runs f. A path containing an
// "error" path segment is expected to fail (at compile or run time); every
// other path is expected to succeed.
func runOneTest(f string) (bool, string) {
	expectFailure := pathHasSegment(f, "error")

	src, err := source.LoadFile(f)
	if err != nil {
		return false, err.Error()
	}

	res := compile.Compile(src, compile.Options{Out: io.Discard, NoColor: true})
	if !res.OK {
		if expectFailure {
			return true, ""
		}
		return false, fmt.Sprintf("unexpected compile failure (%d errors)", res.Diag.ErrorCount())
	}

	in := interp.New(res.Code, res.Sym)
	in.SetOutputWriter(io.Discard)
	in.Run()

	failed := in.State() == interp.Errored
	if failed == expectFailure {
		return true, ""
	}
	if expectFailure {
		return false, "expected failure but program ran to completion"
	}
	return false, fmt.Sprintf("unexpected runtime error: %s", in.ErrorMessage())
}

func pathHasSegment(path, segment string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == segment {
			return true
		}
	}
	return false
}

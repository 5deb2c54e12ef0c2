// Package debugger implements the interactive REPL that drives an
// interp.Interpreter's execution-control interface one command at a time.
package debugger

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pterm/pterm"

	"github.com/sweeter-byte/extended-pl0-compiler/internal/interp"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/symtab"
)

// REPL wraps an interpreter with a readline-driven command loop.
type REPL struct {
	interp *interp.Interpreter
	sym    *symtab.Table
	out    io.Writer
}

// New returns a REPL over in, printing to out. sym backs the 'sym' command;
// it may be nil.
func New(in *interp.Interpreter, sym *symtab.Table, out io.Writer) *REPL {
	return &REPL{interp: in, sym: sym, out: out}
}

// Run reads commands from the terminal until 'q' or Ctrl-D.
func (r *REPL) Run() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "(debug) ",
		HistoryFile: "",
	})
	if err != nil {
		return fmt.Errorf("debugger: init readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if r.dispatch(strings.TrimSpace(line)) {
			return nil
		}
	}
}

// dispatch executes one command line and reports whether the session should
// end.
func (r *REPL) dispatch(line string) bool {
	if line == "" {
		return false
	}
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "b":
		r.cmdBreak(args)
	case "d":
		r.cmdDelete(args)
	case "bl":
		r.cmdBreakList()
	case "r", "c":
		r.cmdResume()
	case "s":
		r.interp.Step()
		r.printState()
	case "n":
		r.interp.StepOver()
		r.printState()
	case "p":
		r.cmdPrint(args)
	case "bt":
		r.cmdBacktrace()
	case "sym":
		r.cmdSymbols()
	case "q":
		return true
	default:
		r.usage()
	}
	return false
}

func (r *REPL) usage() {
	pterm.Warning.WithWriter(r.out).Println("usage: b <line> | r | c | s | n | p <var> | bt | bl | d <line> | sym | q")
}

func (r *REPL) cmdBreak(args []string) {
	line, ok := parseLine(args, r.out)
	if !ok {
		return
	}
	r.interp.SetBreakpoint(line)
	pterm.Success.WithWriter(r.out).Printfln("breakpoint set at line %d", line)
}

func (r *REPL) cmdDelete(args []string) {
	line, ok := parseLine(args, r.out)
	if !ok {
		return
	}
	r.interp.RemoveBreakpoint(line)
	pterm.Success.WithWriter(r.out).Printfln("breakpoint cleared at line %d", line)
}

func (r *REPL) cmdBreakList() {
	bps := r.interp.Breakpoints()
	if len(bps) == 0 {
		fmt.Fprintln(r.out, "no breakpoints set")
		return
	}
	for _, l := range bps {
		fmt.Fprintf(r.out, "  line %d\n", l)
	}
}

func (r *REPL) cmdResume() {
	if r.interp.State() == interp.Halted {
		r.interp.Start()
	}
	r.interp.Resume()
	r.printState()
}

func (r *REPL) cmdPrint(args []string) {
	if len(args) != 1 {
		r.usage()
		return
	}
	v := r.interp.GetValue(args[0])
	switch v {
	case -999999:
		pterm.Error.WithWriter(r.out).Println("no symbol table available")
	case -888888:
		pterm.Error.WithWriter(r.out).Printfln("undefined variable: %s", args[0])
	case -777777:
		pterm.Error.WithWriter(r.out).Printfln("address out of range for: %s", args[0])
	default:
		fmt.Fprintf(r.out, "%s = %d\n", args[0], v)
	}
}

func (r *REPL) cmdBacktrace() {
	frames := r.interp.CallStack()
	if len(frames) == 0 {
		fmt.Fprintln(r.out, "at top level")
		return
	}
	for i, f := range frames {
		fmt.Fprintf(r.out, "#%d base=%d return=%d\n", i, f.BaseAddress, f.ReturnAddress)
	}
}

func (r *REPL) cmdSymbols() {
	if r.sym == nil {
		pterm.Info.WithWriter(r.out).Println("no symbol table available")
		return
	}
	r.sym.Dump(r.out)
}

func (r *REPL) printState() {
	switch r.interp.State() {
	case interp.Paused:
		fmt.Fprintf(r.out, "paused at line %d\n", r.interp.CurrentLine())
	case interp.Halted:
		pterm.Success.WithWriter(r.out).Println("program halted")
	case interp.Errored:
		pterm.Error.WithWriter(r.out).Println(r.interp.ErrorMessage())
	case interp.WaitingInput:
		fmt.Fprintln(r.out, "waiting for input; use 'p' after providing it via the running program")
	}
}

func parseLine(args []string, out io.Writer) (int, bool) {
	if len(args) != 1 {
		pterm.Warning.WithWriter(out).Println("usage: b <line>")
		return 0, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		pterm.Warning.WithWriter(out).Println("expected a line number")
		return 0, false
	}
	return n, true
}

// Package compile wires the source manager, lexer, symbol table, code
// generator, parser, and optimizer together into the entry points the CLI
// and test harness call: Compile builds an instruction sequence,
// NewInterpreter builds an interpreter over it, Debug builds and drops into
// the debugger REPL.
package compile

import (
	"fmt"
	"io"

	"github.com/sweeter-byte/extended-pl0-compiler/internal/code"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/debugger"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/diag"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/interp"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/lexer"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/optimizer"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/parser"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/source"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/symtab"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/token"
)

// DumpOptions selects which intermediate representations Compile echoes.
type DumpOptions struct {
	Tokens bool
	AST    bool
	Sym    bool
	Code   bool
}

// Options controls one Compile/Run/Debug invocation.
type Options struct {
	Optimize bool
	NoColor  bool
	Dump     DumpOptions
	Out      io.Writer // destination for --tokens/--ast/--sym/--code dumps
}

// Result is everything a caller might need after a compilation attempt.
type Result struct {
	Src  *source.Manager
	Diag *diag.Engine
	Sym  *symtab.Table
	Gen  *code.Generator
	Code []code.Instruction
	OK   bool
}

// Compile runs the full front end (lex → parse → optionally optimize) over
// src and returns whatever it produced along with whether it succeeded.
func Compile(src *source.Manager, opts Options) Result {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	dg := diag.NewEngine(src)
	dg.SetColor(!opts.NoColor)

	if opts.Dump.Tokens {
		dumpTokens(src, dg, out)
	}

	lex := lexer.New(src.Source(), dg)
	sym := symtab.New()
	gen := code.NewGenerator()

	p := parser.New(lex, sym, gen, dg)
	if opts.Dump.AST {
		p.EnableASTDump(true, out)
	}

	ok := p.Parse()

	instrs := gen.Code()
	if ok && opts.Optimize {
		instrs = optimizer.New().Optimize(instrs)
		gen.SetCode(instrs)
	}

	if opts.Dump.Sym {
		sym.Dump(out)
	}
	if opts.Dump.Code {
		gen.Dump(out)
	}

	return Result{Src: src, Diag: dg, Sym: sym, Gen: gen, Code: instrs, OK: ok}
}

func dumpTokens(src *source.Manager, dg *diag.Engine, out io.Writer) {
	lx := lexer.New(src.Source(), dg)
	for {
		tok := lx.Next()
		fmt.Fprintf(out, "%-12s %-15q line=%d col=%d\n", tok.Type.String(), tok.Literal, tok.Line, tok.Column)
		if tok.Type == token.EOF {
			break
		}
	}
}

// NewInterpreter compiles src and, if successful, builds an interpreter
// over the result without running it yet — giving the caller a chance to
// install a breakpoint/signal handler/REPL before the first instruction
// executes.
func NewInterpreter(src *source.Manager, opts Options) (Result, *interp.Interpreter) {
	res := Compile(src, opts)
	if !res.OK {
		return res, nil
	}
	return res, interp.New(res.Code, res.Sym)
}

// Debug compiles src then drops into an interactive debugger REPL over the
// result, reading commands from stdin and writing to out.
func Debug(src *source.Manager, opts Options, out io.Writer) (Result, error) {
	res := Compile(src, opts)
	if !res.OK {
		return res, fmt.Errorf("compile: %d error(s)", res.Diag.ErrorCount())
	}

	in := interp.New(res.Code, res.Sym)
	in.SetDebugMode(true)
	in.Start()

	repl := debugger.New(in, res.Sym, out)
	return res, repl.Run()
}

package debugger

import (
	"strings"
	"testing"

	"github.com/sweeter-byte/extended-pl0-compiler/internal/code"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/interp"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/symtab"
)

func newREPL(t *testing.T) (*REPL, *strings.Builder, *interp.Interpreter) {
	t.Helper()
	prog := []code.Instruction{
		{Op: code.LIT, A: 2, SourceLine: 1},
		{Op: code.LIT, A: 3, SourceLine: 2},
		{Op: code.OPR, A: int(code.ADD), SourceLine: 3},
		{Op: code.OPR, A: int(code.RET), SourceLine: 4},
	}
	in := interp.New(prog, symtab.New())
	in.SetDebugMode(true)
	in.Start()

	var buf strings.Builder
	return New(in, symtab.New(), &buf), &buf, in
}

func TestDispatchSetsAndListsBreakpoints(t *testing.T) {
	r, buf, _ := newREPL(t)

	if quit := r.dispatch("b 2"); quit {
		t.Fatalf("dispatch(%q) expected quit=false", "b 2")
	}
	buf.Reset()
	r.dispatch("bl")
	if !strings.Contains(buf.String(), "line 2") {
		t.Errorf("dispatch(%q) expected breakpoint list to mention line 2, got:\n%s", "bl", buf.String())
	}
}

func TestDispatchDeleteRemovesBreakpoint(t *testing.T) {
	r, buf, _ := newREPL(t)

	r.dispatch("b 2")
	r.dispatch("d 2")
	buf.Reset()
	r.dispatch("bl")
	if !strings.Contains(buf.String(), "no breakpoints") {
		t.Errorf("dispatch(%q) after deleting the only breakpoint expected an empty list, got:\n%s", "bl", buf.String())
	}
}

func TestDispatchResumeRunsToHalt(t *testing.T) {
	r, buf, in := newREPL(t)

	if quit := r.dispatch("r"); quit {
		t.Fatalf("dispatch(%q) expected quit=false", "r")
	}
	if in.State() != interp.Halted {
		t.Fatalf("expected State()=%s after resuming to completion, got=%s", interp.Halted, in.State())
	}
	if !strings.Contains(buf.String(), "halted") {
		t.Errorf("expected the REPL to print a halted message, got:\n%s", buf.String())
	}
}

func TestDispatchStepAdvancesOneInstruction(t *testing.T) {
	r, buf, in := newREPL(t)

	r.dispatch("s")
	if in.CurrentLine() != 2 {
		t.Fatalf("expected CurrentLine()=2 after one step, got=%d", in.CurrentLine())
	}
	if !strings.Contains(buf.String(), "paused at line") {
		t.Errorf("expected a 'paused at line' message, got:\n%s", buf.String())
	}
}

func TestDispatchPrintReportsMissingSymbolTable(t *testing.T) {
	prog := []code.Instruction{{Op: code.OPR, A: int(code.RET), SourceLine: 1}}
	in := interp.New(prog, nil)
	var buf strings.Builder
	r := New(in, nil, &buf)

	r.dispatch("p x")
	if !strings.Contains(buf.String(), "no symbol table") {
		t.Errorf("expected a no-symbol-table message, got:\n%s", buf.String())
	}
}

func TestDispatchQuitReturnsTrue(t *testing.T) {
	r, _, _ := newREPL(t)
	if quit := r.dispatch("q"); !quit {
		t.Fatalf("dispatch(%q) expected quit=true", "q")
	}
}

func TestDispatchEmptyLineIsNoOp(t *testing.T) {
	r, buf, _ := newREPL(t)
	if quit := r.dispatch(""); quit {
		t.Fatalf("dispatch(\"\") expected quit=false")
	}
	if buf.Len() != 0 {
		t.Errorf("dispatch(\"\") expected no output, got:\n%s", buf.String())
	}
}

func TestDispatchUnknownCommandPrintsUsage(t *testing.T) {
	r, buf, _ := newREPL(t)
	r.dispatch("bogus")
	if !strings.Contains(buf.String(), "usage:") {
		t.Errorf("expected a usage message for an unknown command, got:\n%s", buf.String())
	}
}

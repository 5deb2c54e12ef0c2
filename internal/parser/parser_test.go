package parser

import (
	"strings"
	"testing"

	"github.com/sweeter-byte/extended-pl0-compiler/internal/code"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/diag"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/lexer"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/source"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/symtab"
)

type fixture struct {
	parser *Parser
	dg     *diag.Engine
	gen    *code.Generator
	sym    *symtab.Table
}

func newFixture(src string) *fixture {
	s := source.New(src, "t.pl0")
	dg := diag.NewEngine(s)
	dg.SetOutput(&strings.Builder{})
	l := lexer.New(src, dg)
	gen := code.NewGenerator()
	sym := symtab.New()
	return &fixture{parser: New(l, sym, gen, dg), dg: dg, gen: gen, sym: sym}
}

func checkNoParseErrors(t *testing.T, dg *diag.Engine) {
	t.Helper()
	if dg.ErrorCount() != 0 {
		t.Fatalf("expected no parser errors, got %d", dg.ErrorCount())
	}
}

func TestParsesMinimalProgram(t *testing.T) {
	f := newFixture("program p; begin end.")
	ok := f.parser.Parse()
	checkNoParseErrors(t, f.dg)
	if !ok {
		t.Fatalf("Parse() expected=true, got=false")
	}
}

func TestUndefinedIdentifierReportsError(t *testing.T) {
	f := newFixture("program p; var x; begin y := 1 end.")
	ok := f.parser.Parse()
	if ok {
		t.Fatalf("Parse() expected=false for an undefined identifier, got=true")
	}
	if f.dg.ErrorCount() == 0 {
		t.Errorf("expected at least one diagnostic for the undefined identifier")
	}
}

func TestConstDeclRegistersSignedValue(t *testing.T) {
	f := newFixture("program p; const n := -5; begin end.")
	f.parser.Parse()
	checkNoParseErrors(t, f.dg)

	idx := f.sym.Lookup("n")
	if idx < 0 {
		t.Fatalf("expected constant %q to be registered", "n")
	}
	sym := f.sym.GetSymbol(idx)
	if sym.Kind != symtab.Constant || sym.Value != -5 {
		t.Fatalf("expected CONSTANT n=-5, got kind=%s value=%d", sym.Kind, sym.Value)
	}
}

func TestDuplicateIdentifierInSameScopeIsAnError(t *testing.T) {
	f := newFixture("program p; var x, x; begin end.")
	ok := f.parser.Parse()
	if ok {
		t.Fatalf("Parse() expected=false for a duplicate declaration, got=true")
	}
}

func TestAssignmentEmitsStoToDeclaredOffset(t *testing.T) {
	f := newFixture("program p; var x; begin x := 1 end.")
	f.parser.Parse()
	checkNoParseErrors(t, f.dg)

	idx := f.sym.Lookup("x")
	sym := f.sym.GetSymbol(idx)

	var sawSto bool
	for _, ins := range f.gen.Code() {
		if ins.Op == code.STO && ins.A == sym.Address {
			sawSto = true
		}
	}
	if !sawSto {
		t.Errorf("expected an STO targeting x's address %d, got=%v", sym.Address, f.gen.Code())
	}
}

func TestIfStatementBackpatchesJpcPastTheBranch(t *testing.T) {
	f := newFixture("program p; var x; begin if x = 0 then x := 1 end.")
	f.parser.Parse()
	checkNoParseErrors(t, f.dg)

	insts := f.gen.Code()
	var jpc *code.Instruction
	for i := range insts {
		if insts[i].Op == code.JPC {
			jpc = &insts[i]
			break
		}
	}
	if jpc == nil {
		t.Fatalf("expected a JPC instruction for the if-condition, got=%v", insts)
	}
	if jpc.A < 0 || jpc.A >= len(insts) || insts[jpc.A].Op != code.OPR {
		t.Errorf("expected the JPC backpatched past the then-branch to the final RET, got target=%d in %v", jpc.A, insts)
	}
}

func TestWhileLoopEmitsBackwardJumpToConditionStart(t *testing.T) {
	f := newFixture("program p; var x; begin while x = 0 do x := 1 end.")
	f.parser.Parse()
	checkNoParseErrors(t, f.dg)

	insts := f.gen.Code()
	var jmp *code.Instruction
	for i := range insts {
		if insts[i].Op == code.JMP && insts[i].A <= i {
			jmp = &insts[i]
			break
		}
	}
	if jmp == nil {
		t.Fatalf("expected a backward JMP closing the while loop, got=%v", insts)
	}
	if jmp.A < 0 || jmp.A >= len(insts) {
		t.Fatalf("backward JMP target %d out of range", jmp.A)
	}
	if insts[jmp.A].Op != code.LOD {
		t.Fatalf("expected backward JMP to land on the condition's LOD, got=%v", insts[jmp.A])
	}
}

func TestCallArgumentCountMismatchIsAnError(t *testing.T) {
	src := "program p; procedure q(a, b); begin end; begin call q(1) end."
	f := newFixture(src)
	ok := f.parser.Parse()
	if ok {
		t.Fatalf("Parse() expected=false for an argument count mismatch, got=true")
	}
}

func TestCallWithMatchingArgumentCountSucceeds(t *testing.T) {
	src := "program p; procedure q(a, b); begin end; begin call q(1, 2) end."
	f := newFixture(src)
	ok := f.parser.Parse()
	checkNoParseErrors(t, f.dg)
	if !ok {
		t.Fatalf("Parse() expected=true, got=false")
	}
}

func TestArrayIndexingEmitsBoundsCheckTrap(t *testing.T) {
	src := "program p; var a[10]; begin a[0] := 1 end."
	f := newFixture(src)
	f.parser.Parse()
	checkNoParseErrors(t, f.dg)

	insts := f.gen.Code()
	var sawForcedDiv bool
	for i := 0; i+2 < len(insts); i++ {
		if insts[i].Op == code.LIT && insts[i].A == 0 &&
			insts[i+1].Op == code.LIT && insts[i+1].A == 0 &&
			insts[i+2].Op == code.OPR && code.OprCode(insts[i+2].A) == code.DIV {
			sawForcedDiv = true
		}
	}
	if !sawForcedDiv {
		t.Errorf("expected the array bounds-check trap (LIT 0; LIT 0; OPR DIV), got=%v", insts)
	}
}

func TestArrayDeclarationEmitsHeapInitialization(t *testing.T) {
	src := "program p; var a[4]; begin end."
	f := newFixture(src)
	f.parser.Parse()
	checkNoParseErrors(t, f.dg)

	insts := f.gen.Code()
	var sawNew bool
	for _, ins := range insts {
		if ins.Op == code.NEW {
			sawNew = true
		}
	}
	if !sawNew {
		t.Errorf("expected a NEW instruction initializing the array's heap block, got=%v", insts)
	}
}

func TestForLoopEmitsIncrementAndComparison(t *testing.T) {
	src := "program p; var i; begin for i := 1 to 10 do i := i end."
	f := newFixture(src)
	f.parser.Parse()
	checkNoParseErrors(t, f.dg)

	insts := f.gen.Code()
	var sawLeq, sawAdd bool
	for _, ins := range insts {
		if ins.Op == code.OPR && code.OprCode(ins.A) == code.LEQ {
			sawLeq = true
		}
		if ins.Op == code.OPR && code.OprCode(ins.A) == code.ADD {
			sawAdd = true
		}
	}
	if !sawLeq {
		t.Errorf("expected an ascending for-loop to compare with LEQ, got=%v", insts)
	}
	if !sawAdd {
		t.Errorf("expected an ascending for-loop to increment with ADD, got=%v", insts)
	}
}

func TestDowntoForLoopUsesGeqAndSub(t *testing.T) {
	src := "program p; var i; begin for i := 10 downto 1 do i := i end."
	f := newFixture(src)
	f.parser.Parse()
	checkNoParseErrors(t, f.dg)

	insts := f.gen.Code()
	var sawGeq, sawSub bool
	for _, ins := range insts {
		if ins.Op == code.OPR && code.OprCode(ins.A) == code.GEQ {
			sawGeq = true
		}
		if ins.Op == code.OPR && code.OprCode(ins.A) == code.SUB {
			sawSub = true
		}
	}
	if !sawGeq || !sawSub {
		t.Errorf("expected a downto loop to use GEQ and SUB, got=%v", insts)
	}
}

func TestPointerAddressOfAndDereferenceRoundTrip(t *testing.T) {
	src := "program p; var x, p: pointer; begin p := &x; *p := 3 end."
	f := newFixture(src)
	f.parser.Parse()
	checkNoParseErrors(t, f.dg)

	insts := f.gen.Code()
	var sawLad bool
	for _, ins := range insts {
		if ins.Op == code.LAD {
			sawLad = true
		}
	}
	if !sawLad {
		t.Errorf("expected '&x' to emit LAD, got=%v", insts)
	}
}

func TestSynchronizeRecoversAfterUndefinedIdentifierInAssignment(t *testing.T) {
	src := "program p; var x; begin y := 1; x := 2 end."
	f := newFixture(src)
	f.parser.Parse()

	// The second, valid statement should still reach code generation after
	// synchronize() skips past the first statement's error.
	idx := f.sym.Lookup("x")
	sym := f.sym.GetSymbol(idx)
	var sawSecondSto bool
	for _, ins := range f.gen.Code() {
		if ins.Op == code.STO && ins.A == sym.Address {
			sawSecondSto = true
		}
	}
	if !sawSecondSto {
		t.Errorf("expected synchronize() to let parsing continue to 'x := 2', got=%v", f.gen.Code())
	}
}

func TestEnableASTDumpWritesIndentedTrace(t *testing.T) {
	f := newFixture("program p; begin end.")
	var buf strings.Builder
	f.parser.EnableASTDump(true, &buf)
	f.parser.Parse()

	out := buf.String()
	if !strings.Contains(out, "Program") || !strings.Contains(out, "Block") {
		t.Errorf("expected the AST dump to mention Program and Block nodes, got:\n%s", out)
	}
}

package code

import (
	"strings"
	"testing"
)

func TestEmitReturnsSequentialAddresses(t *testing.T) {
	g := NewGenerator()
	a0 := g.Emit(LIT, 0, 7, 1)
	a1 := g.Emit(OPR, 0, int(RET), 1)
	if a0 != 0 || a1 != 1 {
		t.Fatalf("Emit() expected addresses 0,1, got %d,%d", a0, a1)
	}
	if got := g.NextAddr(); got != 2 {
		t.Fatalf("NextAddr() expected=2, got=%d", got)
	}
}

func TestBackpatchRewritesOperandA(t *testing.T) {
	g := NewGenerator()
	jmp := g.Emit(JMP, 0, 0, 1)
	target := g.Emit(OPR, 0, int(RET), 2)
	g.Backpatch(jmp, target)

	code := g.Code()
	if code[jmp].A != target {
		t.Fatalf("Backpatch() expected A=%d, got=%d", target, code[jmp].A)
	}
}

func TestSetCodeReplacesSequenceWholesale(t *testing.T) {
	g := NewGenerator()
	g.Emit(LIT, 0, 1, 1)
	replacement := []Instruction{{Op: OPR, L: 0, A: int(RET), SourceLine: 1}}
	g.SetCode(replacement)

	if got := g.Code(); len(got) != 1 || got[0].Op != OPR {
		t.Fatalf("SetCode() expected a single OPR instruction, got=%v", got)
	}
}

func TestOpCodeStringKnownAndUnknown(t *testing.T) {
	if got := LIT.String(); got != "LIT" {
		t.Errorf("LIT.String() expected=%q, got=%q", "LIT", got)
	}
	if got := LAD.String(); got != "LAD" {
		t.Errorf("LAD.String() expected=%q, got=%q", "LAD", got)
	}
	var bogus OpCode = 99
	if got := bogus.String(); got != "???" {
		t.Errorf("unregistered OpCode.String() expected=%q, got=%q", "???", got)
	}
}

func TestOprCodeNumericPinning(t *testing.T) {
	pinned := map[OprCode]int{
		RET: 0, NEG: 1, ADD: 2, SUB: 3, MUL: 4, DIV: 5, ODD: 6,
		MOD: 7, EQL: 8, NEQ: 9, LSS: 10, GEQ: 11, GTR: 12, LEQ: 13,
	}
	for op, want := range pinned {
		if int(op) != want {
			t.Errorf("OprCode %s expected numeric value=%d, got=%d", op, want, int(op))
		}
	}
}

func TestOprCodeStringKnownAndUnknown(t *testing.T) {
	if got := ADD.String(); got != "ADD" {
		t.Errorf("ADD.String() expected=%q, got=%q", "ADD", got)
	}
	var bogus OprCode = 999
	if got := bogus.String(); got != "???" {
		t.Errorf("unregistered OprCode.String() expected=%q, got=%q", "???", got)
	}
}

func TestDumpRendersOprOperandByName(t *testing.T) {
	g := NewGenerator()
	g.Emit(LIT, 0, 5, 1)
	g.Emit(OPR, 0, int(ADD), 1)

	var buf strings.Builder
	g.Dump(&buf)
	out := buf.String()

	if !strings.Contains(out, "LIT") || !strings.Contains(out, "5") {
		t.Errorf("Dump() expected a LIT line with operand 5, got:\n%s", out)
	}
	if !strings.Contains(out, "ADD") {
		t.Errorf("Dump() expected OPR's A rendered as %q, got:\n%s", "ADD", out)
	}
	if strings.Contains(out, ",2 ") {
		t.Errorf("Dump() expected OPR's numeric operand replaced by its name, got:\n%s", out)
	}
}

// Package interp implements the P-Code interpreter: a stack machine over a
// single store shared between an upward-growing evaluation stack and a
// downward-growing heap, with a first-fit coalescing free list and a
// debugger state machine (breakpoints, step, step-over, async input).
package interp

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/emirpasic/gods/sets/treeset"
	gutils "github.com/emirpasic/gods/utils"

	"github.com/sweeter-byte/extended-pl0-compiler/internal/code"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/symtab"
)

const defaultStoreSize = 10000

// State is one of the interpreter's debug states.
type State int

const (
	Halted State = iota
	Running
	Paused
	WaitingInput
	Errored
)

func (s State) String() string {
	switch s {
	case Halted:
		return "halted"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case WaitingInput:
		return "waiting-input"
	case Errored:
		return "error"
	default:
		return "???"
	}
}

// StackFrame is one entry of a call-stack walk.
type StackFrame struct {
	BaseAddress   int
	StaticLink    int
	DynamicLink   int
	ReturnAddress int
}

// Interpreter executes a finished P-Code program.
type Interpreter struct {
	code []code.Instruction

	store     []int
	storeSize int
	P, B, T, H int
	freeListHead int

	running bool
	state   State

	trace    bool
	traceOut io.Writer

	debugMode       bool
	waitingForInput bool
	pendingAddress  int

	breakpoints *treeset.Set

	symTable *symtab.Table

	inputCb  func() int
	outputCb func(int)
	in       *bufio.Reader
	out      io.Writer

	errorMessage string
}

// New builds an Interpreter over prog. symTable, if non-nil, backs
// variable-watch queries from the debugger.
func New(prog []code.Instruction, symTable *symtab.Table) *Interpreter {
	return &Interpreter{
		code:        prog,
		storeSize:   defaultStoreSize,
		state:       Halted,
		traceOut:    os.Stdout,
		breakpoints: treeset.NewWith(gutils.IntComparator),
		symTable:    symTable,
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}
}

// SetStoreSize overrides the default store capacity of 10000 words.
func (in *Interpreter) SetStoreSize(n int) { in.storeSize = n }

// SetTrace enables per-instruction {P,op,L,A,B,T,H} tracing to w.
func (in *Interpreter) SetTrace(enabled bool, w io.Writer) {
	in.trace = enabled
	if w != nil {
		in.traceOut = w
	}
}

// SetDebugMode toggles whether a RED with no input callback parks the
// machine in WaitingInput (debug mode) or blocks on the configured input
// reader (CLI mode).
func (in *Interpreter) SetDebugMode(v bool) { in.debugMode = v }

// SetInputCallback installs a callback RED pulls from in preference to any
// other input source.
func (in *Interpreter) SetInputCallback(cb func() int) { in.inputCb = cb }

// SetOutputCallback installs a callback WRT routes to in preference to the
// configured writer.
func (in *Interpreter) SetOutputCallback(cb func(int)) { in.outputCb = cb }

// SetInputReader overrides the CLI-mode blocking input source (default
// os.Stdin).
func (in *Interpreter) SetInputReader(r io.Reader) { in.in = bufio.NewReader(r) }

// SetOutputWriter overrides the CLI-mode output sink (default os.Stdout).
func (in *Interpreter) SetOutputWriter(w io.Writer) { in.out = w }

// State returns the interpreter's current debug state.
func (in *Interpreter) State() State { return in.state }

// ErrorMessage returns the message set by the last runtime error, if any.
func (in *Interpreter) ErrorMessage() string { return in.errorMessage }

// Run starts the program and runs it to completion, a breakpoint, or error.
func (in *Interpreter) Run() {
	in.Start()
	in.Resume()
}

// Start initializes all registers and the store for a fresh execution.
func (in *Interpreter) Start() {
	in.store = make([]int, in.storeSize)
	in.P, in.B, in.T = 0, 0, 0
	in.H = in.storeSize
	in.freeListHead = -1
	in.running = true
	in.state = Paused

	if in.trace {
		fmt.Fprintln(in.traceOut, "\n[Interpreter Trace]")
		fmt.Fprintln(in.traceOut, "------------------------------------------------------------")
	}
}

// Resume runs from Paused until a breakpoint, halt, or error. A resume loop
// checks the breakpoint set against the current instruction's source line
// before executing it.
func (in *Interpreter) Resume() {
	if in.state == Halted || in.state == Errored {
		return
	}
	in.state = Running

	for in.running && in.P >= 0 && in.P < len(in.code) {
		line := in.code[in.P].SourceLine
		if in.breakpoints.Contains(line) {
			in.state = Paused
			fmt.Fprintf(in.out, "Breakpoint hit at line %d\n", line)
			return
		}
		if !in.executeOne() {
			return
		}
	}

	if in.running {
		in.running = false
		in.state = Halted
	}
}

// Step executes exactly one instruction.
func (in *Interpreter) Step() {
	if in.state == Halted || in.state == Errored {
		return
	}
	if in.running && in.P >= 0 && in.P < len(in.code) {
		in.state = Running
		if in.executeOne() {
			in.state = Paused
		}
	}
}

// StepOver executes until the source line changes from the line at entry,
// ignoring line 0 (instructions with no attributable source line).
func (in *Interpreter) StepOver() {
	if in.state == Halted || in.state == Errored {
		return
	}
	initialLine := in.CurrentLine()
	in.state = Running

	for in.running && in.P >= 0 && in.P < len(in.code) {
		if !in.executeOne() {
			return
		}
		if in.P < 0 || in.P >= len(in.code) {
			break
		}
		currentLine := in.code[in.P].SourceLine
		if currentLine != initialLine && currentLine != 0 {
			break
		}
	}

	if in.running {
		in.state = Paused
	}
}

// Stop transitions immediately to Halted, discarding any pending input.
func (in *Interpreter) Stop() {
	in.running = false
	in.waitingForInput = false
	in.state = Halted
}

func (in *Interpreter) executeOne() bool {
	instr := in.code[in.P]

	if in.trace {
		fmt.Fprintf(in.traceOut, "%4d: L%3d %4s %2d,%4d  | B=%4d T=%4d H=%4d\n",
			in.P, instr.SourceLine, instr.Op, instr.L, instr.A, in.B, in.T, in.H)
	}

	in.P++

	switch instr.Op {
	case code.LIT:
		in.T++
		in.store[in.T] = instr.A
		in.checkCollision()

	case code.LOD:
		if instr.A == 0 {
			addr := in.store[in.T]
			in.T--
			if addr < 0 || addr >= in.storeSize {
				in.runtimeError(fmt.Sprintf("access violation: invalid address %d", addr))
				return false
			}
			in.T++
			in.store[in.T] = in.store[addr]
		} else {
			in.T++
			in.store[in.T] = in.store[in.base(instr.L, in.B)+instr.A]
		}
		in.checkCollision()

	case code.STO:
		if instr.A == 0 {
			value := in.store[in.T]
			in.T--
			addr := in.store[in.T]
			in.T--
			if addr < 0 || addr >= in.storeSize {
				in.runtimeError(fmt.Sprintf("access violation: invalid address %d", addr))
				return false
			}
			in.store[addr] = value
		} else {
			in.store[in.base(instr.L, in.B)+instr.A] = in.store[in.T]
			in.T--
		}

	case code.CAL:
		paramCount := in.store[in.T]
		in.T--
		newBase := in.T - paramCount - 2
		if newBase < 0 {
			in.runtimeError("stack underflow during call")
			return false
		}
		in.store[newBase] = in.base(instr.L, in.B)
		in.store[newBase+1] = in.B
		in.store[newBase+2] = in.P
		in.B = newBase
		in.P = instr.A

	case code.INT:
		in.T += instr.A
		in.checkCollision()

	case code.JMP:
		in.P = instr.A

	case code.JPC:
		v := in.store[in.T]
		in.T--
		if v == 0 {
			in.P = instr.A
		}

	case code.OPR:
		if !in.executeOpr(code.OprCode(instr.A)) {
			return false
		}

	case code.RED:
		if !in.executeRed(instr) {
			return false
		}

	case code.WRT:
		value := in.store[in.T]
		in.T--
		if in.outputCb != nil {
			in.outputCb(value)
		} else {
			fmt.Fprintln(in.out, value)
		}

	case code.NEW:
		size := in.store[in.T]
		in.T--
		if size <= 0 {
			in.runtimeError("invalid allocation size")
			return false
		}
		addr := in.allocate(size)
		if addr == -1 {
			in.runtimeError("out of memory (heap exhausted)")
			return false
		}
		in.T++
		in.store[in.T] = addr

	case code.DEL:
		addr := in.store[in.T]
		in.T--
		in.deallocate(addr)

	case code.LAD:
		in.T++
		in.store[in.T] = in.base(instr.L, in.B) + instr.A

	default:
		in.runtimeError("unknown opcode")
		return false
	}

	if !in.running {
		in.state = Halted
		return false
	}
	return true
}

func (in *Interpreter) executeRed(instr code.Instruction) bool {
	isIndirect := instr.A == 0
	var targetAddr int
	if isIndirect {
		targetAddr = in.store[in.T]
		in.T--
		if targetAddr < 0 || targetAddr >= in.storeSize {
			in.runtimeError(fmt.Sprintf("access violation: invalid address %d", targetAddr))
			return false
		}
	} else {
		targetAddr = in.base(instr.L, in.B) + instr.A
	}

	switch {
	case in.inputCb != nil:
		in.store[targetAddr] = in.inputCb()
	case in.debugMode && !in.waitingForInput:
		// P already advanced past this RED in executeOne, so Resume picks
		// up at the following instruction once ProvideInput delivers the
		// value directly into store[targetAddr] — RED itself never reruns.
		in.pendingAddress = targetAddr
		in.waitingForInput = true
		in.state = WaitingInput
		return false
	default:
		var value int
		fmt.Fprint(in.out, "? ")
		if _, err := fmt.Fscan(in.in, &value); err != nil {
			var skipped string
			fmt.Fscan(in.in, &skipped)
			value = 0
		}
		in.store[targetAddr] = value
	}
	return true
}

// ProvideInput supplies the value a parked RED is waiting on and returns the
// machine to Paused. The value is written straight to the address RED
// recorded; P already points past RED, so execution resumes after it.
func (in *Interpreter) ProvideInput(value int) {
	if !in.waitingForInput {
		return
	}
	in.store[in.pendingAddress] = value
	in.waitingForInput = false
	in.pendingAddress = 0
	in.state = Paused
}

// SetBreakpoint arms a breakpoint at a 1-based source line.
func (in *Interpreter) SetBreakpoint(line int) { in.breakpoints.Add(line) }

// RemoveBreakpoint disarms a breakpoint.
func (in *Interpreter) RemoveBreakpoint(line int) { in.breakpoints.Remove(line) }

// Breakpoints returns the active breakpoint lines in ascending order.
func (in *Interpreter) Breakpoints() []int {
	vals := in.breakpoints.Values()
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i] = v.(int)
	}
	return out
}

// CurrentLine returns the source line of the instruction at P, or -1 if P is
// out of range.
func (in *Interpreter) CurrentLine() int {
	if in.P >= 0 && in.P < len(in.code) {
		return in.code[in.P].SourceLine
	}
	return -1
}

// CallStack walks the dynamic-link chain from B, innermost frame first,
// capped at 1000 hops to survive a corrupted stack.
func (in *Interpreter) CallStack() []StackFrame {
	var frames []StackFrame
	b := in.B
	for safety := 0; b > 0 && safety < 1000; safety++ {
		frames = append(frames, StackFrame{
			BaseAddress:   b,
			StaticLink:    in.store[b],
			DynamicLink:   in.store[b+1],
			ReturnAddress: in.store[b+2],
		})
		b = in.store[b+1]
	}
	return frames
}

// GetValue resolves name in the symbol table and reads store[B+offset].
//
// This deliberately does not walk static links, so it only resolves
// symbols declared in the current frame — a non-local variable one level up
// returns the wrong slot's contents. This is a known, preserved limitation
// of the interpreter this implementation is grounded on, not an oversight;
// see DESIGN.md for why it was kept rather than fixed.
func (in *Interpreter) GetValue(name string) int {
	if in.symTable == nil {
		return -999999
	}
	symbols := in.symTable.AllSymbols()
	var found *symtab.Symbol
	for i := len(symbols) - 1; i >= 0; i-- {
		s := symbols[i]
		if s.Name == name && (s.Kind == symtab.Variable || s.Kind == symtab.Pointer) {
			found = &symbols[i]
			break
		}
	}
	if found == nil {
		return -888888
	}
	addr := in.B + found.Address
	if addr >= 0 && addr < in.storeSize {
		return in.store[addr]
	}
	return -777777
}

// GetValueAt reads an already-resolved absolute address directly.
func (in *Interpreter) GetValueAt(address int) int {
	if address >= 0 && address < in.storeSize {
		return in.store[address]
	}
	return 0
}

func (in *Interpreter) executeOpr(opr code.OprCode) bool {
	switch opr {
	case code.RET:
		oldBase := in.B
		in.T = in.B - 1
		in.P = in.store[in.B+2]
		in.B = in.store[in.B+1]
		if oldBase == 0 {
			in.running = false
		}
	case code.NEG:
		in.store[in.T] = -in.store[in.T]
	case code.ADD:
		in.T--
		in.store[in.T] = in.store[in.T] + in.store[in.T+1]
	case code.SUB:
		in.T--
		in.store[in.T] = in.store[in.T] - in.store[in.T+1]
	case code.MUL:
		in.T--
		in.store[in.T] = in.store[in.T] * in.store[in.T+1]
	case code.DIV:
		in.T--
		if in.store[in.T+1] == 0 {
			in.runtimeError("division by zero")
			return false
		}
		in.store[in.T] = in.store[in.T] / in.store[in.T+1]
	case code.ODD:
		in.store[in.T] = in.store[in.T] % 2
	case code.MOD:
		in.T--
		if in.store[in.T+1] == 0 {
			in.runtimeError("modulo by zero")
			return false
		}
		in.store[in.T] = in.store[in.T] % in.store[in.T+1]
	case code.EQL:
		in.T--
		in.store[in.T] = boolToInt(in.store[in.T] == in.store[in.T+1])
	case code.NEQ:
		in.T--
		in.store[in.T] = boolToInt(in.store[in.T] != in.store[in.T+1])
	case code.LSS:
		in.T--
		in.store[in.T] = boolToInt(in.store[in.T] < in.store[in.T+1])
	case code.GEQ:
		in.T--
		in.store[in.T] = boolToInt(in.store[in.T] >= in.store[in.T+1])
	case code.GTR:
		in.T--
		in.store[in.T] = boolToInt(in.store[in.T] > in.store[in.T+1])
	case code.LEQ:
		in.T--
		in.store[in.T] = boolToInt(in.store[in.T] <= in.store[in.T+1])
	}
	return true
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (in *Interpreter) base(l, b int) int {
	cur := b
	for l > 0 {
		cur = in.store[cur]
		l--
	}
	return cur
}

func (in *Interpreter) runtimeError(msg string) {
	in.errorMessage = fmt.Sprintf("%s (PC=%d)", msg, in.P-1)
	fmt.Fprintf(os.Stderr, "Runtime Error: %s\n", in.errorMessage)
	in.running = false
	in.state = Errored
}

func (in *Interpreter) checkCollision() {
	if in.T >= in.H {
		in.runtimeError("stack overflow (stack/heap collision)")
	}
}

// allocate implements first-fit over the sorted free list, splitting a
// block when the remainder can host its own header (size + next, 2 words),
// else consuming it whole. Falls back to growing H downward when no free
// block fits.
func (in *Interpreter) allocate(size int) int {
	prev := -1
	curr := in.freeListHead
	totalSize := size + 1

	for curr != -1 {
		blockSize := in.store[curr]
		if blockSize >= totalSize {
			remaining := blockSize - totalSize
			if remaining >= 2 {
				nextFree := in.store[curr+1]
				newFreeNode := curr + totalSize
				in.store[newFreeNode] = remaining
				in.store[newFreeNode+1] = nextFree
				if prev == -1 {
					in.freeListHead = newFreeNode
				} else {
					in.store[prev+1] = newFreeNode
				}
				in.store[curr] = size
				return curr + 1
			}
			nextFree := in.store[curr+1]
			if prev == -1 {
				in.freeListHead = nextFree
			} else {
				in.store[prev+1] = nextFree
			}
			in.store[curr] = size
			return curr + 1
		}
		prev = curr
		curr = in.store[curr+1]
	}

	in.H -= totalSize
	if in.H <= in.T {
		return -1
	}
	in.store[in.H] = size
	return in.H + 1
}

// deallocate inserts the block at address back into the sorted free list,
// coalescing with its successor and/or predecessor when they're adjacent.
func (in *Interpreter) deallocate(address int) {
	if address <= 0 || address >= in.storeSize {
		return
	}
	blockHeader := address - 1
	size := in.store[blockHeader]
	totalSize := size + 1

	prev := -1
	curr := in.freeListHead
	for curr != -1 && curr < blockHeader {
		prev = curr
		curr = in.store[curr+1]
	}

	if curr != -1 && blockHeader+totalSize == curr {
		totalSize += in.store[curr]
		nextNext := in.store[curr+1]
		in.store[blockHeader] = totalSize
		in.store[blockHeader+1] = nextNext
	} else {
		in.store[blockHeader] = totalSize
		in.store[blockHeader+1] = curr
	}

	if prev != -1 {
		prevSize := in.store[prev]
		if prev+prevSize == blockHeader {
			in.store[prev] = prevSize + totalSize
			in.store[prev+1] = in.store[blockHeader+1]
		} else {
			in.store[prev+1] = blockHeader
		}
	} else {
		in.freeListHead = blockHeader
	}
}

// Package symtab implements the parser's name-resolution structure: a stack
// of symbols in insertion order, a hash map from name to a list of stack
// indices (innermost first), and a scope-start stack — the "hash of stacks"
// layout that gives lookup O(1) expected time while keeping leaveScope a
// cheap truncation.
//
// A second, never-truncated history slice records every symbol ever
// registered, so a post-compilation Dump can render the whole program's
// declarations even though their live entries were long since popped.
package symtab

import (
	"fmt"
	"io"

	"github.com/sweeter-byte/extended-pl0-compiler/internal/lib"
)

// Kind discriminates what a Symbol names.
type Kind int

const (
	Constant Kind = iota
	Variable
	Procedure
	Array
	Pointer
)

func (k Kind) String() string {
	switch k {
	case Constant:
		return "CONSTANT"
	case Variable:
		return "VARIABLE"
	case Procedure:
		return "PROCEDURE"
	case Array:
		return "ARRAY"
	case Pointer:
		return "POINTER"
	default:
		return "???"
	}
}

// Symbol is one symbol-table entry. Field meaning depends on Kind: see the
// package doc and the Kind constants above.
type Symbol struct {
	Name  string
	Kind  Kind
	Level int
	Address int // VARIABLE/POINTER: frame offset; ARRAY: descriptor offset; PROCEDURE: entry PC

	Value      int // CONSTANT
	Size       int // ARRAY
	ParamCount int // PROCEDURE

	TableIndex   int // index in the live stack at registration
	HistoryIndex int // index into the history slice, for dump-sync mutation
}

type hashEntry struct {
	indices []int // front = innermost/newest
}

// Table is the symbol table for one compilation unit.
type Table struct {
	stack   []Symbol
	history []Symbol
	byName  map[string]*hashEntry
	scopes  []int // start index of each open scope, into stack
	level   int
}

// New returns an empty Table at level 0.
func New() *Table {
	return &Table{byName: make(map[string]*hashEntry)}
}

// EnterScope opens a new nested scope, incrementing the current level.
func (t *Table) EnterScope() {
	t.level++
	t.scopes = append(t.scopes, len(t.stack))
}

// LeaveScope closes the innermost open scope, popping every symbol
// registered since the matching EnterScope and unlinking each from the hash
// map. A no-op at level 0.
func (t *Table) LeaveScope() {
	if t.level == 0 {
		return
	}
	base := t.scopes[len(t.scopes)-1]
	t.scopes = t.scopes[:len(t.scopes)-1]
	for i := len(t.stack) - 1; i >= base; i-- {
		t.removeFromHash(t.stack[i].Name, i)
	}
	t.stack = t.stack[:base]
	t.level--
}

// CurrentLevel returns the nesting depth of the innermost open scope.
func (t *Table) CurrentLevel() int { return t.level }

// RegisterSymbol adds a new symbol at the current level. It fails (returns
// -1) if a symbol with the same name already exists in the current scope;
// symbols with the same name at different levels may coexist, the inner one
// shadowing the outer.
func (t *Table) RegisterSymbol(name string, kind Kind, address int) int {
	if t.lookupCurrentScopeIndex(name) != -1 {
		return -1
	}
	sym := Symbol{Name: name, Kind: kind, Level: t.level, Address: address}
	sym.TableIndex = len(t.stack)
	sym.HistoryIndex = len(t.history)
	t.stack = append(t.stack, sym)
	t.history = append(t.history, sym)
	t.addToHash(name, sym.TableIndex)
	return sym.TableIndex
}

// Lookup returns the stack index of the innermost visible symbol named
// name, or -1 if none is visible.
func (t *Table) Lookup(name string) int {
	e, ok := t.byName[name]
	if !ok || len(e.indices) == 0 {
		return -1
	}
	return e.indices[0]
}

// LookupCurrentScope is like Lookup but only succeeds if the innermost
// visible symbol is also declared at the current level — used to detect
// duplicate definitions within one scope.
func (t *Table) LookupCurrentScope(name string) int {
	return t.lookupCurrentScopeIndex(name)
}

func (t *Table) lookupCurrentScopeIndex(name string) int {
	e, ok := t.byName[name]
	if !ok || len(e.indices) == 0 {
		return -1
	}
	idx := e.indices[0]
	if t.stack[idx].Level != t.level {
		return -1
	}
	return idx
}

// Exists reports whether name resolves to any visible symbol.
func (t *Table) Exists(name string) bool { return t.Lookup(name) != -1 }

// GetSymbol returns the live symbol at stack index idx.
func (t *Table) GetSymbol(idx int) *Symbol { return &t.stack[idx] }

// UpdateAddress rewrites a symbol's address, in both the live entry and its
// historical copy, so dumps taken after the owning scope closes still show
// the final, patched value.
func (t *Table) UpdateAddress(idx, address int) {
	t.stack[idx].Address = address
	t.history[t.stack[idx].HistoryIndex].Address = address
}

// UpdateParamCount is the ParamCount analogue of UpdateAddress.
func (t *Table) UpdateParamCount(idx, count int) {
	t.stack[idx].ParamCount = count
	t.history[t.stack[idx].HistoryIndex].ParamCount = count
}

// UpdateSize is the Size analogue of UpdateAddress.
func (t *Table) UpdateSize(idx, size int) {
	t.stack[idx].Size = size
	t.history[t.stack[idx].HistoryIndex].Size = size
}

// UpdateValue is the Value analogue of UpdateAddress.
func (t *Table) UpdateValue(idx, value int) {
	t.stack[idx].Value = value
	t.history[t.stack[idx].HistoryIndex].Value = value
}

// TableSize returns the number of symbols currently visible.
func (t *Table) TableSize() int { return len(t.stack) }

// AllSymbols returns every symbol ever registered, in registration order.
func (t *Table) AllSymbols() []Symbol { return t.history }

func (t *Table) addToHash(name string, idx int) {
	e, ok := t.byName[name]
	if !ok {
		e = &hashEntry{}
		t.byName[name] = e
	}
	e.indices = append([]int{idx}, e.indices...)
}

func (t *Table) removeFromHash(name string, idx int) {
	e, ok := t.byName[name]
	if !ok {
		return
	}
	for i, v := range e.indices {
		if v == idx {
			e.indices = append(e.indices[:i], e.indices[i+1:]...)
			break
		}
	}
}

// Dump renders a box-drawn table over the full registration history: every
// symbol ever declared, with the columns that matter for its kind. Column
// widths grow to fit the widest entry instead of truncating long names.
func (t *Table) Dump(w io.Writer) {
	names := make([]string, len(t.history))
	addrVals := make([]string, len(t.history))
	sizeParams := make([]string, len(t.history))
	for i, s := range t.history {
		names[i] = s.Name
		switch s.Kind {
		case Constant:
			addrVals[i] = fmt.Sprintf("value=%d", s.Value)
			sizeParams[i] = "-"
		case Array:
			addrVals[i] = fmt.Sprintf("addr=%d", s.Address)
			sizeParams[i] = fmt.Sprintf("size=%d", s.Size)
		case Procedure:
			addrVals[i] = fmt.Sprintf("entry=%d", s.Address)
			sizeParams[i] = fmt.Sprintf("params=%d", s.ParamCount)
		default:
			addrVals[i] = fmt.Sprintf("addr=%d", s.Address)
			sizeParams[i] = "-"
		}
	}
	nameW := lib.CalculateColumnWidth(names, len("Name"))
	addrW := lib.CalculateColumnWidth(addrVals, len("Addr/Value"))
	sizeW := lib.CalculateColumnWidth(sizeParams, len("Size/Params"))

	border := fmt.Sprintf("+-------+-%s-+------------+-------+-%s-+-%s-+",
		dashes(nameW), dashes(addrW), dashes(sizeW))
	fmt.Fprintln(w, border)
	fmt.Fprintf(w, "| Index | %-*s | Kind       | Level | %-*s | %-*s |\n", nameW, "Name", addrW, "Addr/Value", sizeW, "Size/Params")
	fmt.Fprintln(w, border)
	for i, s := range t.history {
		fmt.Fprintf(w, "| %-5d | %-*s | %-10s | %-5d | %-*s | %-*s |\n",
			i, nameW, s.Name, s.Kind.String(), s.Level, addrW, addrVals[i], sizeW, sizeParams[i])
	}
	fmt.Fprintln(w, border)
}

func dashes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '-'
	}
	return string(b)
}

// DumpHashTable renders each name's bucket as an ordered chain of
// idx(Llevel) entries, innermost first — the live view backing Lookup.
func (t *Table) DumpHashTable(w io.Writer) {
	for name, e := range t.byName {
		if len(e.indices) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s -> ", name)
		for i, idx := range e.indices {
			if i > 0 {
				fmt.Fprint(w, " -> ")
			}
			fmt.Fprintf(w, "%d(L%d)", idx, t.stack[idx].Level)
		}
		fmt.Fprintln(w)
	}
}

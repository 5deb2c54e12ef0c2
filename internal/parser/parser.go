// Package parser implements the recursive-descent parser: one function per
// grammar production, each driving the symbol table and code generator
// directly as it walks the token stream (no intermediate AST is built).
package parser

import (
	"fmt"
	"io"

	"github.com/sweeter-byte/extended-pl0-compiler/internal/code"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/diag"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/lexer"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/symtab"
	"github.com/sweeter-byte/extended-pl0-compiler/internal/token"
)

const (
	astColorGreen = "\033[32m"
	astColorReset = "\033[0m"
)

// Parser consumes a lexer's token stream and emits P-Code directly, with no
// intermediate AST — the grammar productions call into the symbol table and
// code generator as they recognize each construct.
type Parser struct {
	lex *lexer.Lexer
	sym *symtab.Table
	gen *code.Generator
	dg  *diag.Engine

	current, previous token.Token

	dumpAST   bool
	astOut    io.Writer
	astIndent int

	currentTempOffset int
}

// New returns a Parser ready to consume lex's token stream, primed with its
// first token.
func New(lex *lexer.Lexer, sym *symtab.Table, gen *code.Generator, dg *diag.Engine) *Parser {
	p := &Parser{lex: lex, sym: sym, gen: gen, dg: dg}
	p.advance()
	return p
}

// EnableASTDump turns on the "+ NodeName" indented trace of every grammar
// production entered, written to w.
func (p *Parser) EnableASTDump(enable bool, w io.Writer) {
	p.dumpAST = enable
	p.astOut = w
}

func (p *Parser) advance() {
	p.previous = p.current
	p.current = p.lex.Next()
	for p.current.Type == token.UNKNOWN {
		p.current = p.lex.Next()
	}
}

func (p *Parser) check(t token.Type) bool { return p.current.Type == t }

func (p *Parser) match(t token.Type) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(t token.Type, msg string) {
	if p.check(t) {
		p.advance()
		return
	}
	p.errorAt(msg, p.current)
}

func (p *Parser) errorAt(msg string, tok token.Token) {
	length := tok.Length
	if length == 0 {
		length = 1
	}
	p.dg.Error(msg, tok.Line, tok.Column, length)
}

func (p *Parser) emit(op code.OpCode, l, a int) int {
	return p.gen.Emit(op, l, a, p.previous.Line)
}

// synchronize discards tokens until the next token is a statement
// terminator or starts a new declaration/statement, so one bad production
// doesn't cascade into a wall of follow-on errors. It stops short of
// consuming the semicolon itself, leaving it for the caller's own
// match(DL_SEMICOLON) to advance past — otherwise the statement immediately
// following the error would be silently skipped along with it.
func (p *Parser) synchronize() {
	for !p.check(token.EOF) {
		if p.check(token.DL_SEMICOLON) {
			return
		}
		switch p.current.Type {
		case token.KW_BEGIN, token.KW_END, token.KW_IF, token.KW_WHILE, token.KW_FOR,
			token.KW_CALL, token.KW_READ, token.KW_WRITE, token.KW_CONST, token.KW_VAR,
			token.KW_PROCEDURE, token.KW_NEW, token.KW_DELETE:
			return
		default:
			p.advance()
		}
	}
}

func (p *Parser) astEnter(name string) {
	if !p.dumpAST {
		return
	}
	for i := 0; i < p.astIndent; i++ {
		fmt.Fprint(p.astOut, "  ")
	}
	fmt.Fprintf(p.astOut, "%s+ %s%s\n", astColorGreen, name, astColorReset)
	p.astIndent++
}

func (p *Parser) astLeave() {
	if !p.dumpAST {
		return
	}
	p.astIndent--
}

// Parse runs the grammar from the top and returns whether the program is
// free of errors.
func (p *Parser) Parse() bool {
	p.parseProgram()

	if p.check(token.DL_PERIOD) {
		p.errorAt("unexpected '.' after end of program", p.current)
	} else if !p.check(token.EOF) {
		p.errorAt("expected end of file", p.current)
	}

	return p.dg.ErrorCount() == 0
}

func (p *Parser) parseProgram() {
	p.astEnter("Program")
	defer p.astLeave()

	p.expect(token.KW_PROGRAM, "expected 'program'")
	p.expect(token.IDENT, "expected program name")
	p.expect(token.DL_SEMICOLON, "expected ';'")

	p.parseBlock(-1)

	// The terminating '.' is optional; Parse reports anything left after it.
	p.match(token.DL_PERIOD)
}

// parseBlock parses one block (the main program, or a procedure body).
// procIndex is the symbol-table index of the owning procedure, or -1 for
// the main program; its entry address gets backpatched once the block's
// declarations are done and code generation is about to start.
func (p *Parser) parseBlock(procIndex int) {
	p.astEnter("Block")
	defer p.astLeave()

	dataOffset := 4
	oldTemp := p.currentTempOffset
	p.currentTempOffset = 3
	defer func() { p.currentTempOffset = oldTemp }()

	jmpAddr := p.emit(code.JMP, 0, 0)

	if p.check(token.KW_CONST) {
		p.parseConstDecl()
	}

	var arrayIndices []int
	if p.check(token.KW_VAR) {
		p.parseVarDecl(&dataOffset, &arrayIndices)
	}

	for p.check(token.KW_PROCEDURE) {
		p.parseProcDecl()
		if p.check(token.DL_SEMICOLON) {
			p.advance()
		}
	}

	p.gen.Backpatch(jmpAddr, p.gen.NextAddr())

	if procIndex >= 0 {
		p.sym.UpdateAddress(procIndex, p.gen.NextAddr())
	}

	p.emit(code.INT, 0, dataOffset)
	p.emitArrayInit(arrayIndices)

	p.parseBody()

	p.emit(code.OPR, 0, int(code.RET))
}

func (p *Parser) emitArrayInit(arrayIndices []int) {
	for _, idx := range arrayIndices {
		sym := p.sym.GetSymbol(idx)
		p.gen.Emit(code.LIT, 0, sym.Size, p.previous.Line)
		p.gen.Emit(code.NEW, 0, 0, p.previous.Line)
		p.gen.Emit(code.STO, 0, sym.Address, p.previous.Line)
		p.gen.Emit(code.LIT, 0, sym.Size, p.previous.Line)
		p.gen.Emit(code.STO, 0, sym.Address+1, p.previous.Line)
	}
}

func (p *Parser) parseConstDecl() {
	p.astEnter("ConstDecl")
	defer p.astLeave()

	p.advance() // 'const'

	for {
		p.expect(token.IDENT, "expected constant name")
		name := p.previous.Literal
		nameTok := p.previous

		p.expect(token.OP_ASSIGN, "expected ':='")

		sign := 1
		if p.match(token.OP_PLUS) {
			sign = 1
		} else if p.match(token.OP_MINUS) {
			sign = -1
		}

		p.expect(token.NUMBER, "expected integer")
		value := sign * int(p.previous.Value)

		idx := p.sym.RegisterSymbol(name, symtab.Constant, 0)
		if idx < 0 {
			p.errorAt("duplicate identifier: "+name, nameTok)
		} else {
			p.sym.UpdateValue(idx, value)
		}

		if !p.match(token.DL_COMMA) {
			break
		}
	}

	p.expect(token.DL_SEMICOLON, "expected ';'")
}

func (p *Parser) parseVarDecl(dataOffset *int, arrayIndices *[]int) {
	p.astEnter("VarDecl")
	defer p.astLeave()

	p.advance() // 'var'

	for {
		p.expect(token.IDENT, "expected variable name")
		name := p.previous.Literal
		nameTok := p.previous

		switch {
		case p.match(token.DL_COLON):
			switch {
			case p.current.Type == token.IDENT && p.current.Literal == "pointer":
				p.advance()
				if idx := p.sym.RegisterSymbol(name, symtab.Pointer, *dataOffset); idx < 0 {
					p.errorAt("duplicate identifier: "+name, nameTok)
				}
				*dataOffset++
			case p.current.Type == token.IDENT && p.current.Literal == "integer":
				p.advance()
				if idx := p.sym.RegisterSymbol(name, symtab.Variable, *dataOffset); idx < 0 {
					p.errorAt("duplicate identifier: "+name, nameTok)
				}
				*dataOffset++
			default:
				p.errorAt("expected type 'pointer' or 'integer'", p.current)
			}
		case p.match(token.DL_LBRACKET):
			p.expect(token.NUMBER, "expected array size")
			size := int(p.previous.Value)
			if size <= 0 {
				p.errorAt("array size must be positive", p.previous)
				size = 1
			}
			p.expect(token.DL_RBRACKET, "expected ']'")

			idx := p.sym.RegisterSymbol(name, symtab.Array, *dataOffset)
			if idx < 0 {
				p.errorAt("duplicate identifier: "+name, nameTok)
			} else {
				p.sym.UpdateSize(idx, size)
				*arrayIndices = append(*arrayIndices, idx)
			}
			*dataOffset += 2
		default:
			if idx := p.sym.RegisterSymbol(name, symtab.Variable, *dataOffset); idx < 0 {
				p.errorAt("duplicate identifier: "+name, nameTok)
			}
			*dataOffset++
		}

		if !p.match(token.DL_COMMA) {
			break
		}
	}

	p.expect(token.DL_SEMICOLON, "expected ';'")
}

func (p *Parser) parseProcDecl() {
	p.astEnter("ProcDecl")
	defer p.astLeave()

	p.advance() // 'procedure'

	p.expect(token.IDENT, "expected procedure name")
	name := p.previous.Literal
	nameTok := p.previous

	procIdx := p.sym.RegisterSymbol(name, symtab.Procedure, 0)
	if procIdx < 0 {
		p.errorAt("duplicate identifier: "+name, nameTok)
		procIdx = p.sym.TableSize() - 1
	}

	p.expect(token.DL_LPAREN, "expected '('")

	var paramNames []string
	if !p.check(token.DL_RPAREN) {
		for {
			p.expect(token.IDENT, "expected parameter name")
			paramNames = append(paramNames, p.previous.Literal)
			if !p.match(token.DL_COMMA) {
				break
			}
		}
	}
	paramCount := len(paramNames)

	p.expect(token.DL_RPAREN, "expected ')'")

	if procIdx >= 0 && procIdx < p.sym.TableSize() {
		p.sym.UpdateParamCount(procIdx, paramCount)
	}

	p.expect(token.DL_SEMICOLON, "expected ';'")

	jmpAddr := p.emit(code.JMP, 0, 0)

	p.sym.EnterScope()
	defer p.sym.LeaveScope()

	for i, pn := range paramNames {
		if idx := p.sym.RegisterSymbol(pn, symtab.Variable, 3+i); idx < 0 {
			p.errorAt("duplicate parameter: "+pn, nameTok)
		}
	}

	oldTemp := p.currentTempOffset
	p.currentTempOffset = 3 + paramCount
	defer func() { p.currentTempOffset = oldTemp }()
	dataOffset := p.currentTempOffset + 1

	if p.check(token.KW_CONST) {
		p.parseConstDecl()
	}

	var arrayIndices []int
	if p.check(token.KW_VAR) {
		p.parseVarDecl(&dataOffset, &arrayIndices)
	}

	for p.check(token.KW_PROCEDURE) {
		p.parseProcDecl()
		if p.check(token.DL_SEMICOLON) {
			p.advance()
		}
	}

	if procIdx >= 0 && procIdx < p.sym.TableSize() {
		p.sym.UpdateAddress(procIdx, p.gen.NextAddr())
	}
	p.gen.Backpatch(jmpAddr, p.gen.NextAddr())

	p.emit(code.INT, 0, dataOffset)
	p.emitArrayInit(arrayIndices)

	p.parseBody()

	p.emit(code.OPR, 0, int(code.RET))
}

func (p *Parser) parseBody() {
	p.astEnter("Body")
	defer p.astLeave()

	p.expect(token.KW_BEGIN, "expected 'begin'")

	p.parseStatement()
	for p.match(token.DL_SEMICOLON) {
		p.parseStatement()
	}

	p.expect(token.KW_END, "expected 'end'")
}

func (p *Parser) parseStatement() {
	p.astEnter("Statement")
	defer p.astLeave()

	switch {
	case p.check(token.IDENT):
		p.advance()
		p.parseAssignOrArrayAssign()
	case p.check(token.KW_IF):
		p.parseIfStatement()
	case p.check(token.KW_WHILE):
		p.parseWhileStatement()
	case p.check(token.KW_FOR):
		p.parseForStatement()
	case p.check(token.KW_CALL):
		p.parseCallStatement()
	case p.check(token.KW_READ):
		p.parseReadStatement()
	case p.check(token.KW_WRITE):
		p.parseWriteStatement()
	case p.check(token.KW_NEW):
		p.parseNewStatement()
	case p.check(token.KW_DELETE):
		p.parseDeleteStatement()
	case p.check(token.OP_MUL):
		p.advance() // '*'
		p.parseExpression()
		p.expect(token.OP_ASSIGN, "expected ':='")
		p.parseExpression()
		p.emit(code.STO, 0, 0)
	case p.check(token.KW_BEGIN):
		p.parseBody()
	default:
		// empty statement: epsilon production
	}
}

func (p *Parser) parseIfStatement() {
	p.astEnter("IfStatement")
	defer p.astLeave()

	p.advance() // 'if'
	p.parseCondition()
	p.expect(token.KW_THEN, "expected 'then'")

	jpcAddr := p.emit(code.JPC, 0, 0)
	p.parseStatement()

	if p.match(token.KW_ELSE) {
		jmpAddr := p.emit(code.JMP, 0, 0)
		p.gen.Backpatch(jpcAddr, p.gen.NextAddr())
		p.parseStatement()
		p.gen.Backpatch(jmpAddr, p.gen.NextAddr())
	} else {
		p.gen.Backpatch(jpcAddr, p.gen.NextAddr())
	}
}

func (p *Parser) parseWhileStatement() {
	p.astEnter("WhileStatement")
	defer p.astLeave()

	p.advance() // 'while'
	loopStart := p.gen.NextAddr()

	p.parseCondition()
	p.expect(token.KW_DO, "expected 'do'")

	jpcAddr := p.emit(code.JPC, 0, 0)
	p.parseStatement()
	p.emit(code.JMP, 0, loopStart)

	p.gen.Backpatch(jpcAddr, p.gen.NextAddr())
}

func (p *Parser) parseForStatement() {
	p.astEnter("ForStatement")
	defer p.astLeave()

	p.advance() // 'for'

	p.expect(token.IDENT, "expected loop variable")
	varName := p.previous.Literal
	varTok := p.previous

	varIdx := p.sym.Lookup(varName)
	if varIdx < 0 {
		p.errorAt("undefined identifier: "+varName, varTok)
		p.synchronize()
		return
	}

	varSym := p.sym.GetSymbol(varIdx)
	if varSym.Kind != symtab.Variable {
		p.errorAt("loop variable must be a variable", varTok)
	}

	p.expect(token.OP_ASSIGN, "expected ':='")
	p.parseExpression()

	levelDiff := p.sym.CurrentLevel() - varSym.Level
	p.emit(code.STO, levelDiff, varSym.Address)

	isDownto := false
	switch {
	case p.match(token.KW_TO):
		isDownto = false
	case p.match(token.KW_DOWNTO):
		isDownto = true
	default:
		p.errorAt("expected 'to' or 'downto'", p.current)
		p.synchronize()
		return
	}

	loopStart := p.gen.NextAddr()
	p.emit(code.LOD, levelDiff, varSym.Address)
	p.parseExpression()

	if isDownto {
		p.emit(code.OPR, 0, int(code.GEQ))
	} else {
		p.emit(code.OPR, 0, int(code.LEQ))
	}
	exitJpc := p.emit(code.JPC, 0, 0)

	p.expect(token.KW_DO, "expected 'do'")
	p.parseStatement()

	p.emit(code.LOD, levelDiff, varSym.Address)
	p.emit(code.LIT, 0, 1)
	if isDownto {
		p.emit(code.OPR, 0, int(code.SUB))
	} else {
		p.emit(code.OPR, 0, int(code.ADD))
	}
	p.emit(code.STO, levelDiff, varSym.Address)
	p.emit(code.JMP, 0, loopStart)

	p.gen.Backpatch(exitJpc, p.gen.NextAddr())
}

func (p *Parser) parseCallStatement() {
	p.astEnter("CallStatement")
	defer p.astLeave()

	p.advance() // 'call'

	p.expect(token.IDENT, "expected procedure name")
	procName := p.previous.Literal
	procTok := p.previous

	idx := p.sym.Lookup(procName)
	if idx < 0 {
		p.errorAt("undefined procedure: "+procName, procTok)
		p.synchronize()
		return
	}

	procSym := p.sym.GetSymbol(idx)
	if procSym.Kind != symtab.Procedure {
		p.errorAt("'"+procName+"' is not a procedure", procTok)
		p.synchronize()
		return
	}

	p.expect(token.DL_LPAREN, "expected '('")

	p.emit(code.INT, 0, 3)

	argCount := 0
	if !p.check(token.DL_RPAREN) {
		for {
			p.parseExpression()
			argCount++
			if !p.match(token.DL_COMMA) {
				break
			}
		}
	}

	p.expect(token.DL_RPAREN, "expected ')'")

	if argCount != procSym.ParamCount {
		p.errorAt(fmt.Sprintf("argument count mismatch: expected %d, got %d", procSym.ParamCount, argCount), procTok)
	}

	p.emit(code.LIT, 0, argCount)

	levelDiff := p.sym.CurrentLevel() - procSym.Level
	p.emit(code.CAL, levelDiff, procSym.Address)
}

func (p *Parser) parseReadStatement() {
	p.astEnter("ReadStatement")
	defer p.astLeave()

	p.advance() // 'read'
	p.expect(token.DL_LPAREN, "expected '('")

	for {
		p.expect(token.IDENT, "expected variable name")
		name := p.previous.Literal
		nameTok := p.previous

		idx := p.sym.Lookup(name)
		if idx < 0 {
			p.errorAt("undefined identifier: "+name, nameTok)
			if !p.match(token.DL_COMMA) {
				break
			}
			continue
		}

		sym := p.sym.GetSymbol(idx)
		levelDiff := p.sym.CurrentLevel() - sym.Level

		if p.check(token.DL_LBRACKET) {
			if sym.Kind != symtab.Array {
				p.errorAt("'"+name+"' is not an array", nameTok)
			}
			p.parseArrayElementAddress(sym)
			p.emit(code.RED, 0, 0)
		} else {
			if sym.Kind != symtab.Variable && sym.Kind != symtab.Pointer {
				p.errorAt("'"+name+"' is not a variable", nameTok)
				if !p.match(token.DL_COMMA) {
					break
				}
				continue
			}
			p.emit(code.RED, levelDiff, sym.Address)
		}

		if !p.match(token.DL_COMMA) {
			break
		}
	}

	p.expect(token.DL_RPAREN, "expected ')'")
}

func (p *Parser) parseWriteStatement() {
	p.astEnter("WriteStatement")
	defer p.astLeave()

	p.advance() // 'write'
	p.expect(token.DL_LPAREN, "expected '('")

	for {
		p.parseExpression()
		p.emit(code.WRT, 0, 0)
		if !p.match(token.DL_COMMA) {
			break
		}
	}

	p.expect(token.DL_RPAREN, "expected ')'")
}

func (p *Parser) parseNewStatement() {
	p.astEnter("NewStatement")
	defer p.astLeave()

	p.advance() // 'new'
	p.expect(token.DL_LPAREN, "expected '('")

	p.expect(token.IDENT, "expected variable name")
	name := p.previous.Literal
	nameTok := p.previous

	idx := p.sym.Lookup(name)
	if idx < 0 {
		p.errorAt("undefined identifier: "+name, nameTok)
	}

	p.expect(token.DL_COMMA, "expected ','")
	p.parseExpression()
	p.expect(token.DL_RPAREN, "expected ')'")

	p.emit(code.NEW, 0, 0)

	if idx >= 0 {
		sym := p.sym.GetSymbol(idx)
		if sym.Kind != symtab.Variable && sym.Kind != symtab.Pointer {
			p.errorAt("'"+name+"' is not a variable or pointer", nameTok)
		} else {
			levelDiff := p.sym.CurrentLevel() - sym.Level
			p.emit(code.STO, levelDiff, sym.Address)
		}
	}
}

func (p *Parser) parseDeleteStatement() {
	p.astEnter("DeleteStatement")
	defer p.astLeave()

	p.advance() // 'delete'
	p.expect(token.DL_LPAREN, "expected '('")

	p.expect(token.IDENT, "expected variable name")
	name := p.previous.Literal
	nameTok := p.previous

	idx := p.sym.Lookup(name)
	if idx >= 0 {
		sym := p.sym.GetSymbol(idx)
		if sym.Kind != symtab.Variable && sym.Kind != symtab.Pointer {
			p.errorAt("'"+name+"' is not a variable or pointer", nameTok)
		} else {
			levelDiff := p.sym.CurrentLevel() - sym.Level
			p.emit(code.LOD, levelDiff, sym.Address)
			p.emit(code.DEL, 0, 0)
		}
	} else {
		p.errorAt("undefined identifier: "+name, nameTok)
	}

	p.expect(token.DL_RPAREN, "expected ')'")
}

func (p *Parser) parseAssignOrArrayAssign() {
	p.astEnter("AssignStatement")
	defer p.astLeave()

	name := p.previous.Literal
	idTok := p.previous

	idx := p.sym.Lookup(name)
	if idx < 0 {
		p.errorAt("undefined identifier: "+name, idTok)
		p.synchronize()
		return
	}

	sym := p.sym.GetSymbol(idx)
	levelDiff := p.sym.CurrentLevel() - sym.Level

	if p.check(token.DL_LBRACKET) {
		p.parseArrayElementAddress(sym)
		p.expect(token.OP_ASSIGN, "expected ':='")
		p.parseExpression()
		p.emit(code.STO, 0, 0)
	} else {
		if sym.Kind != symtab.Variable && sym.Kind != symtab.Pointer {
			p.errorAt("cannot assign to constant, procedure, or array (without index)", idTok)
		}
		p.expect(token.OP_ASSIGN, "expected ':='")
		p.parseExpression()
		p.emit(code.STO, levelDiff, sym.Address)
	}
}

// parseArrayElementAddress parses "[ <expr> ]" for sym and leaves the
// absolute store address of the indexed element on top of the stack.
// Declared arrays get a bounds check that traps via a forced division by
// zero on failure; pointers and bare variables get none.
func (p *Parser) parseArrayElementAddress(sym *symtab.Symbol) {
	if sym.Kind != symtab.Array && sym.Kind != symtab.Pointer && sym.Kind != symtab.Variable {
		p.errorAt("identifier cannot be indexed", p.current)
	}

	levelDiff := p.sym.CurrentLevel() - sym.Level

	p.emit(code.LOD, levelDiff, sym.Address)

	p.expect(token.DL_LBRACKET, "expected '['")
	p.parseExpression()
	p.expect(token.DL_RBRACKET, "expected ']'")

	if sym.Kind != symtab.Array {
		p.emit(code.OPR, 0, int(code.ADD))
		return
	}

	p.emit(code.STO, 0, p.currentTempOffset)

	p.emit(code.LOD, 0, p.currentTempOffset)
	p.emit(code.LIT, 0, 0)
	p.emit(code.OPR, 0, int(code.GEQ))
	jpcFail1 := p.emit(code.JPC, 0, 0)

	p.emit(code.LOD, 0, p.currentTempOffset)
	p.emit(code.LOD, levelDiff, sym.Address+1)
	p.emit(code.OPR, 0, int(code.LSS))
	jpcFail2 := p.emit(code.JPC, 0, 0)

	p.emit(code.LOD, 0, p.currentTempOffset)
	p.emit(code.OPR, 0, int(code.ADD))

	jumpOverError := p.emit(code.JMP, 0, 0)

	errorAddr := p.gen.NextAddr()
	p.gen.Backpatch(jpcFail1, errorAddr)
	p.gen.Backpatch(jpcFail2, errorAddr)

	p.emit(code.LIT, 0, 0)
	p.emit(code.LIT, 0, 0)
	p.emit(code.OPR, 0, int(code.DIV))

	p.gen.Backpatch(jumpOverError, p.gen.NextAddr())
}

func (p *Parser) parseCondition() {
	p.astEnter("Condition")
	defer p.astLeave()

	if p.match(token.KW_ODD) {
		p.parseExpression()
		p.emit(code.OPR, 0, int(code.ODD))
		return
	}

	p.parseExpression()

	var opr code.OprCode
	switch {
	case p.match(token.OP_EQ):
		opr = code.EQL
	case p.match(token.OP_NE):
		opr = code.NEQ
	case p.match(token.OP_LT):
		opr = code.LSS
	case p.match(token.OP_LE):
		opr = code.LEQ
	case p.match(token.OP_GT):
		opr = code.GTR
	case p.match(token.OP_GE):
		opr = code.GEQ
	default:
		p.errorAt("expected relational operator", p.current)
		return
	}

	p.parseExpression()
	p.emit(code.OPR, 0, int(opr))
}

func (p *Parser) parseExpression() {
	p.astEnter("Expression")
	defer p.astLeave()

	negate := false
	if p.match(token.OP_PLUS) {
		// no-op
	} else if p.match(token.OP_MINUS) {
		negate = true
	}

	p.parseTerm()
	if negate {
		p.emit(code.OPR, 0, int(code.NEG))
	}

	for p.check(token.OP_PLUS) || p.check(token.OP_MINUS) {
		op := p.current.Type
		p.advance()
		p.parseTerm()
		if op == token.OP_PLUS {
			p.emit(code.OPR, 0, int(code.ADD))
		} else {
			p.emit(code.OPR, 0, int(code.SUB))
		}
	}
}

func (p *Parser) parseTerm() {
	p.astEnter("Term")
	defer p.astLeave()

	p.parseFactor()

	for p.check(token.OP_MUL) || p.check(token.OP_DIV) || p.check(token.KW_MOD) {
		op := p.current.Type
		p.advance()
		p.parseFactor()
		switch op {
		case token.OP_MUL:
			p.emit(code.OPR, 0, int(code.MUL))
		case token.OP_DIV:
			p.emit(code.OPR, 0, int(code.DIV))
		default:
			p.emit(code.OPR, 0, int(code.MOD))
		}
	}
}

func (p *Parser) parseFactor() {
	p.astEnter("Factor")
	defer p.astLeave()

	switch {
	case p.current.Type == token.OP_MUL:
		p.advance()
		p.parseFactor()
		p.emit(code.LOD, 0, 0)

	case p.current.Type == token.OP_ADDR:
		p.advance()
		p.expect(token.IDENT, "expected identifier after '&'")
		name := p.previous.Literal
		nameTok := p.previous

		idx := p.sym.Lookup(name)
		if idx < 0 {
			p.errorAt("undefined identifier: "+name, nameTok)
			return
		}
		sym := p.sym.GetSymbol(idx)
		levelDiff := p.sym.CurrentLevel() - sym.Level

		if p.check(token.DL_LBRACKET) {
			p.parseArrayElementAddress(sym)
		} else {
			switch sym.Kind {
			case symtab.Variable, symtab.Pointer:
				p.emit(code.LAD, levelDiff, sym.Address)
			case symtab.Array:
				p.emit(code.LOD, levelDiff, sym.Address)
			default:
				p.errorAt("cannot take address of this symbol", nameTok)
			}
		}

	case p.match(token.IDENT):
		name := p.previous.Literal
		idTok := p.previous

		idx := p.sym.Lookup(name)
		if idx < 0 {
			p.errorAt("undefined identifier: "+name, idTok)
			return
		}
		sym := p.sym.GetSymbol(idx)
		levelDiff := p.sym.CurrentLevel() - sym.Level

		if p.check(token.DL_LBRACKET) {
			p.parseArrayElementAddress(sym)
			p.emit(code.LOD, 0, 0)
		} else {
			switch sym.Kind {
			case symtab.Constant:
				p.emit(code.LIT, 0, sym.Value)
			case symtab.Variable, symtab.Pointer:
				p.emit(code.LOD, levelDiff, sym.Address)
			case symtab.Array:
				p.errorAt("cannot use array '"+name+"' without subscript", idTok)
			default:
				p.errorAt("invalid identifier type", idTok)
			}
		}

	case p.match(token.NUMBER):
		p.emit(code.LIT, 0, int(p.previous.Value))

	case p.match(token.DL_LPAREN):
		p.parseExpression()
		p.expect(token.DL_RPAREN, "expected ')'")

	default:
		p.errorAt("unexpected token in expression", p.current)
		p.advance()
	}
}

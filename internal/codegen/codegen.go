// Package codegen walks the typed AST and emits RISC-V 64 assembly
// text, handling the calling convention, stack-frame layout, and all
// lvalue/rvalue machinery.
//
// The overall shape is a stack machine using a0 as "top", with
// push/pop helpers that always move 8-byte slots, genAddr/genExpr/
// genStmt as three mutually recursive passes, and a monotonic label
// counter for fresh control-flow labels.
package codegen

import (
	"bufio"
	"fmt"
	"io"

	"github.com/gmofishsauce/rv64cc/internal/ast"
	"github.com/gmofishsauce/rv64cc/internal/ctype"
	"github.com/gmofishsauce/rv64cc/internal/srcmap"
	"github.com/gmofishsauce/rv64cc/internal/token"
)

// argRegs names the integer argument/return registers used by the
// calling convention: a0..a7 for arguments, a0 for the return value.
var argRegs = [8]string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7"}

// Generator emits assembly for a whole program (every top-level
// Object) to one writer. The AST it walks must already be fully typed
// (see internal/typecheck.Inferrer.Infer): codegen reads Node.CType
// but never computes it.
type Generator struct {
	e  *Emitter
	sm *srcmap.SourceMap

	locals  map[*ast.Object]int // fp-relative offset, negative
	curFunc string
}

func NewGenerator(w io.Writer, sm *srcmap.SourceMap) *Generator {
	return &Generator{e: NewEmitter(bufio.NewWriter(w)), sm: sm}
}

// Emit walks every top-level object in declaration order, writing the
// data section for every non-function object first, then per-function
// text sections in declaration order.
func (g *Generator) Emit(objs []*ast.Object) error {
	g.e.Directive(".section .data")
	for _, o := range objs {
		if o.Kind == ast.ObjVariable && !o.IsLocal {
			g.emitGlobalVar(o)
		}
		if o.Kind == ast.ObjStringLiteral {
			g.emitStringLiteral(o)
		}
	}

	g.e.Directive(".section .text")
	for _, o := range objs {
		if o.Kind == ast.ObjFunction && o.Body != nil {
			g.emitFunction(o)
		}
	}

	return g.e.Flush()
}

func (g *Generator) emitGlobalVar(o *ast.Object) {
	g.e.Directive(".global %s", o.Name)
	g.e.Label(o.Name)
	g.e.Directive(".zero %d", o.Type.Size)
}

func (g *Generator) emitStringLiteral(o *ast.Object) {
	label := o.Label()
	g.e.Directive(".global %s", label)
	g.e.Label(label)
	g.e.Directive(".string \"%s\"", token.EncodeEscapes(o.Payload))
}

// alignUp rounds n up to the next multiple of align.
func alignUp(n, align int) int {
	return ctype.AlignUp(n, align)
}

// layoutFrame assigns every local (including parameters) a negative
// fp-relative offset, walking the locals list in reverse, and returns
// the 16-byte-aligned frame size.
func (g *Generator) layoutFrame(fn *ast.Object) int {
	g.locals = make(map[*ast.Object]int)
	current := 0
	for i := len(fn.Locals) - 1; i >= 0; i-- {
		local := fn.Locals[i]
		offset := alignUp(current, local.Type.Align)
		current = offset + local.Type.Size
		g.locals[local] = -current
		local.Offset = -current
	}
	return alignUp(current, 16)
}

func (g *Generator) emitFunction(fn *ast.Object) {
	g.curFunc = fn.Name
	frameSize := g.layoutFrame(fn)

	if len(fn.Params) > len(argRegs) {
		g.sm.ErrorAt(fn.Body.Span, "too many parameters: %s takes %d, at most %d are supported", fn.Name, len(fn.Params), len(argRegs))
	}

	g.e.Directive(".global %s", fn.Name)
	g.e.Label(fn.Name)

	// Prologue.
	g.push("ra")
	g.push("fp")
	g.e.Instr("mv fp, sp")
	g.safeAddi("sp", "sp", -frameSize)

	for i, p := range fn.Params {
		g.storeParam(i, g.locals[p], p.Type.Size)
	}

	g.genStmt(fn.Body)

	// Epilogue.
	g.e.Label(".L.return." + fn.Name)
	g.e.Instr("mv sp, fp")
	g.pop("fp")
	g.pop("ra")
	g.e.Instr("ret")
	g.e.Blank()
}

func (g *Generator) storeParam(index, offset, size int) {
	reg := argRegs[index]
	switch size {
	case 1:
		g.safeStore("sb", reg, offset)
	case 4:
		g.safeStore("sw", reg, offset)
	default:
		g.safeStore("sd", reg, offset)
	}
}

// safeAddi handles RISC-V's 12-bit signed immediate limit ([-2048,
// 2047]); when imm falls outside that range, materialise it through
// t0 instead.
func (g *Generator) safeAddi(dst, src string, imm int) {
	if imm >= -2048 && imm <= 2047 {
		g.e.Instr("addi %s, %s, %d", dst, src, imm)
		return
	}
	g.e.Instr("li t0, %d", imm)
	g.e.Instr("add %s, %s, t0", dst, src)
}

func (g *Generator) safeLoadAddr(dst, base string, offset int) {
	g.safeAddi(dst, base, offset)
}

func (g *Generator) safeStore(op, reg string, offset int) {
	if offset >= -2048 && offset <= 2047 {
		g.e.Instr("%s %s, %d(fp)", op, reg, offset)
		return
	}
	g.e.Instr("li t0, %d", offset)
	g.e.Instr("add t0, fp, t0")
	g.e.Instr("%s %s, 0(t0)", op, reg)
}

func (g *Generator) push(reg string) {
	g.e.Instr("addi sp, sp, -8")
	g.e.Instr("sd %s, 0(sp)", reg)
}

func (g *Generator) pop(reg string) {
	g.e.Instr("ld %s, 0(sp)", reg)
	g.e.Instr("addi sp, sp, 8")
}

// genAddr computes the effective address of an lvalue into a0.
func (g *Generator) genAddr(node *ast.Node) {
	switch node.Kind {
	case ast.KindVar:
		o := node.Obj
		switch {
		case o.Kind == ast.ObjVariable && o.IsLocal:
			g.safeLoadAddr("a0", "fp", g.locals[o])
		default:
			g.e.Instr("la a0, %s", o.Label())
		}
	case ast.KindDeref:
		g.genExpr(node.X)
	case ast.KindMember:
		g.genAddr(node.X)
		g.safeAddi("a0", "a0", node.Member.Offset)
	case ast.KindBinOp:
		if node.Op == ast.Comma {
			g.genExpr(node.LHS)
			g.genAddr(node.RHS)
			return
		}
		g.sm.ErrorAt(node.Span, "not an lvalue")
	default:
		g.sm.ErrorAt(node.Span, "not an lvalue")
	}
}

func loadStoreOp(t *ctype.Type) (load, store string) {
	switch t.Size {
	case 1:
		return "lb", "sb"
	case 4:
		return "lw", "sw"
	default:
		return "ld", "sd"
	}
}

// genExpr evaluates node and leaves the result in a0.
func (g *Generator) genExpr(node *ast.Node) {
	switch node.Kind {
	case ast.KindNum:
		g.e.Instr("li a0, %d", node.NumVal)

	case ast.KindVar:
		if node.CType.Kind == ctype.Array {
			// Array-to-pointer decay: the address is the value.
			g.genAddr(node)
			return
		}
		g.genAddr(node)
		load, _ := loadStoreOp(node.CType)
		g.e.Instr("%s a0, 0(a0)", load)

	case ast.KindDeref:
		g.genExpr(node.X)
		load, _ := loadStoreOp(node.CType)
		g.e.Instr("%s a0, 0(a0)", load)

	case ast.KindAddr:
		g.genAddr(node.X)

	case ast.KindMember:
		g.genAddr(node)
		if node.CType.Kind != ctype.Array {
			load, _ := loadStoreOp(node.CType)
			g.e.Instr("%s a0, 0(a0)", load)
		}

	case ast.KindFuncCall:
		g.genCall(node)

	case ast.KindBinOp:
		g.genBinOp(node)

	default:
		g.sm.ErrorAt(node.Span, "invalid expression")
	}
}

func (g *Generator) genBinOp(node *ast.Node) {
	if node.Op == ast.Assign {
		g.genAddr(node.LHS)
		g.push("a0")
		g.genExpr(node.RHS)
		g.pop("t0")
		_, store := loadStoreOp(node.CType)
		g.e.Instr("%s a0, 0(t0)", store)
		return
	}

	if node.Op == ast.Comma {
		g.genExpr(node.LHS)
		g.genExpr(node.RHS)
		return
	}

	if node.Op == ast.LogAnd || node.Op == ast.LogOr {
		g.genShortCircuit(node)
		return
	}

	g.genExpr(node.LHS)
	g.push("a0")
	g.genExpr(node.RHS)
	g.pop("t0")
	g.e.Instr("mv t1, a0")

	w := ""
	if node.LHS.CType != nil && node.RHS.CType != nil &&
		node.LHS.CType.Size == 4 && node.RHS.CType.Size == 4 {
		w = "w"
	}

	switch node.Op {
	case ast.Add:
		g.e.Instr("add%s a0, t0, t1", w)
	case ast.Sub:
		g.e.Instr("sub%s a0, t0, t1", w)
	case ast.Mul:
		g.e.Instr("mul%s a0, t0, t1", w)
	case ast.Div:
		g.e.Instr("div%s a0, t0, t1", w)
	case ast.Mod:
		g.e.Instr("rem%s a0, t0, t1", w)
	case ast.Eq:
		g.e.Instr("xor a0, t0, t1")
		g.e.Instr("seqz a0, a0")
	case ast.Ne:
		g.e.Instr("xor a0, t0, t1")
		g.e.Instr("snez a0, a0")
	case ast.Lt:
		g.e.Instr("slt a0, t0, t1")
	case ast.Le:
		g.e.Instr("slt a0, t1, t0")
		g.e.Instr("xori a0, a0, 1")
	}
}

// genShortCircuit implements true short-circuit evaluation of &&/||:
// the right operand is only evaluated when its result can still change
// the outcome. Label .L.<id> is the short-set branch target, and
// .L.<id>.end is the join point.
func (g *Generator) genShortCircuit(node *ast.Node) {
	id := g.e.NewLabelID()
	shortBranch, result := "beq", 0
	if node.Op == ast.LogOr {
		shortBranch, result = "bne", 1
	}

	g.genExpr(node.LHS)
	g.e.Instr("%s a0, zero, .L.%d", shortBranch, id)
	g.genExpr(node.RHS)
	g.e.Instr("%s a0, zero, .L.%d", shortBranch, id)
	g.e.Instr("li a0, %d", 1-result)
	g.e.Instr("j .L.%d.end", id)
	g.e.Label(labelf(".L.%d", id))
	g.e.Instr("li a0, %d", result)
	g.e.Label(labelf(".L.%d.end", id))
}

// genCall evaluates arguments right-to-left (pushing each), then pops
// into a0..a<n-1> in forward order so the leftmost argument ends in
// a0.
func (g *Generator) genCall(node *ast.Node) {
	if len(node.Args) > len(argRegs) {
		g.sm.ErrorAt(node.Span, "too many arguments to %s: %d given, at most %d are supported", node.FuncName, len(node.Args), len(argRegs))
	}
	for i := len(node.Args) - 1; i >= 0; i-- {
		g.genExpr(node.Args[i])
		g.push("a0")
	}
	for i := 0; i < len(node.Args); i++ {
		g.pop(argRegs[i])
	}
	g.e.Instr("call %s", node.FuncName)
}

func (g *Generator) genStmt(node *ast.Node) {
	switch node.Kind {
	case ast.KindBlock:
		for _, s := range node.Stmts {
			g.genStmt(s)
		}
	case ast.KindExprStmt:
		g.genExpr(node.X)
	case ast.KindReturn:
		g.genExpr(node.X)
		g.e.Instr("j .L.return.%s", g.curFunc)
	case ast.KindIf:
		id := g.e.NewLabelID()
		g.genExpr(node.Cond)
		g.e.Instr("beq a0, zero, .L.else.%d", id)
		g.genStmt(node.Then)
		g.e.Instr("j .L.end.%d", id)
		g.e.Label(labelf(".L.else.%d", id))
		if node.Else != nil {
			g.genStmt(node.Else)
		}
		g.e.Label(labelf(".L.end.%d", id))
	case ast.KindFor:
		id := g.e.NewLabelID()
		if node.Init != nil {
			g.genStmt(node.Init)
		}
		g.e.Label(labelf(".L.begin.%d", id))
		if node.Cond != nil {
			g.genExpr(node.Cond)
			g.e.Instr("beq a0, zero, .L.end.%d", id)
		}
		g.genStmt(node.Then)
		if node.Inc != nil {
			g.genExpr(node.Inc)
		}
		g.e.Instr("j .L.begin.%d", id)
		g.e.Label(labelf(".L.end.%d", id))
	default:
		g.sm.ErrorAt(node.Span, "invalid statement")
	}
}

func labelf(format string, id int) string {
	return fmt.Sprintf(format, id)
}

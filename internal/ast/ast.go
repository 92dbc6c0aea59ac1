// Package ast defines the untyped abstract syntax tree the parser
// produces (Node/NodeKind) and the program-level Object bindings
// (variables, string literals, functions) that Node.Var nodes and the
// parser's symbol tables reference.
//
// Go has no closed sum type, so, consistent with internal/ctype.Type,
// each of Node and Object is one struct carrying a Kind tag plus the
// union of fields used by its variants.
package ast

import (
	"strconv"

	"github.com/gmofishsauce/rv64cc/internal/ctype"
	"github.com/gmofishsauce/rv64cc/internal/srcmap"
)

// BinOp enumerates the binary operators the parser can produce.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Mod
	Eq
	Ne
	Lt
	Le
	Assign
	Comma
	LogAnd
	LogOr
)

// NodeKind tags which variant of Node is populated.
type NodeKind int

const (
	KindNum NodeKind = iota
	KindVar
	KindAddr
	KindDeref
	KindFuncCall
	KindBinOp
	KindMember
	KindExprStmt
	KindReturn
	KindBlock
	KindIf
	KindFor
)

// Node is the sum type over every expression and statement shape the
// parser emits. Only the fields relevant to Kind are populated.
type Node struct {
	Kind NodeKind
	Span srcmap.Span

	// CType is the inferred result type of this node, empty (nil) for
	// statement kinds. It starts nil and is filled in, once, by
	// internal/typecheck.Infer: rather than building a parallel typed
	// tree, the inferred type is cached directly on the Node it was
	// computed for, avoiding a second traversal to re-derive it.
	CType *ctype.Type

	// KindNum
	NumVal int32

	// KindVar
	Obj *Object

	// KindAddr, KindDeref, KindExprStmt, KindReturn, KindMember
	X *Node

	// KindFuncCall
	FuncName   string
	Args       []*Node
	ReturnType *ctype.Type // declared return type of the callee

	// KindBinOp
	Op       BinOp
	LHS, RHS *Node

	// KindMember
	Member *ctype.Member

	// KindBlock
	Stmts []*Node

	// KindIf, KindFor
	Init *Node // KindFor only
	Cond *Node // KindIf, KindFor (nil means "no condition", i.e. always true)
	Then *Node
	Else *Node // KindIf only
	Inc  *Node // KindFor only
}

// ObjectKind tags which variant of Object is populated.
type ObjectKind int

const (
	ObjVariable ObjectKind = iota
	ObjStringLiteral
	ObjFunction
)

// Object is a top-level or local named binding: a variable, a unique
// string literal, or a function.
type Object struct {
	Kind ObjectKind
	Name string
	Type *ctype.Type

	// ObjVariable
	IsLocal bool
	// Offset from fp (locals) or nothing meaningful (globals, whose
	// address is taken by label, not offset). Filled in by codegen's
	// frame layout pass.
	Offset int

	// ObjStringLiteral
	StringID int
	Payload  string

	// ObjFunction
	Body       *Node // nil if declaration-only
	Params     []*Object
	Locals     []*Object
	ReturnType *ctype.Type
}

// Label returns the assembler label this object is known by: a
// source-given name for variables and functions, or the synthesised
// `.L..<id>` label for string literals.
func (o *Object) Label() string {
	if o.Kind == ObjStringLiteral {
		return stringLabel(o.StringID)
	}
	return o.Name
}

func stringLabel(id int) string {
	return ".L.." + strconv.Itoa(id)
}

// NewNum builds a KindNum node. Every Num has type int, enforced by
// the type inferrer, not here.
func NewNum(v int32, span srcmap.Span) *Node {
	return &Node{Kind: KindNum, NumVal: v, Span: span}
}

// Package typecheck synthesises the result type of every expression
// node on demand and performs the type-directed desugaring of pointer
// arithmetic: when one side of `+`/`-` is pointer-or-array and the
// other is an integral type, the integer side is scaled by the pointee
// size, and pointer-pointer subtraction divides the byte difference by
// the element size.
//
// Because internal/ast.Node caches its own inferred type (see
// Node.CType), this package mutates the BinOp subtree in place to
// splice in the scaling multiply/divide rather than building a second
// tree.
package typecheck

import (
	"github.com/gmofishsauce/rv64cc/internal/ast"
	"github.com/gmofishsauce/rv64cc/internal/ctype"
	"github.com/gmofishsauce/rv64cc/internal/srcmap"
)

// Inferrer carries the source map so it can report semantic errors
// (undefined lvalue, bad dereference, ...) with a span.
type Inferrer struct {
	sm *srcmap.SourceMap
}

func New(sm *srcmap.SourceMap) *Inferrer {
	return &Inferrer{sm: sm}
}

// Infer returns the result type of node, computing and caching it (and
// those of its subtree) if not already known. It returns nil for
// statement-kind nodes: a node's CType is non-nil if and only if the
// node is an expression.
func (inf *Inferrer) Infer(node *ast.Node) *ctype.Type {
	if node == nil {
		return nil
	}
	if node.CType != nil {
		return node.CType
	}

	switch node.Kind {
	case ast.KindNum:
		node.CType = ctype.NewInt()
	case ast.KindVar:
		node.CType = node.Obj.Type
	case ast.KindAddr:
		node.CType = inf.inferAddr(node)
	case ast.KindDeref:
		node.CType = inf.inferDeref(node)
	case ast.KindFuncCall:
		for _, a := range node.Args {
			inf.Infer(a)
		}
		node.CType = node.ReturnType
	case ast.KindMember:
		inf.Infer(node.X)
		node.CType = node.Member.Type
	case ast.KindBinOp:
		node.CType = inf.inferBinOp(node)
	// Statements carry no result type.
	case ast.KindExprStmt:
		inf.Infer(node.X)
	case ast.KindReturn:
		inf.Infer(node.X)
	case ast.KindBlock:
		for _, s := range node.Stmts {
			inf.Infer(s)
		}
	case ast.KindIf:
		inf.Infer(node.Cond)
		inf.Infer(node.Then)
		inf.Infer(node.Else)
	case ast.KindFor:
		inf.Infer(node.Init)
		inf.Infer(node.Cond)
		inf.Infer(node.Inc)
		inf.Infer(node.Then)
	}

	return node.CType
}

func (inf *Inferrer) inferAddr(node *ast.Node) *ctype.Type {
	operand := inf.Infer(node.X)
	if operand.Kind == ctype.Array {
		return ctype.NewPointer(operand.Base())
	}
	if node.X.Kind != ast.KindVar && node.X.Kind != ast.KindDeref && node.X.Kind != ast.KindMember {
		inf.sm.ErrorAt(node.Span, "invalid operand for &: not an lvalue")
	}
	return ctype.NewPointer(operand)
}

func (inf *Inferrer) inferDeref(node *ast.Node) *ctype.Type {
	operand := inf.Infer(node.X)
	if !operand.IsPointerLike() {
		inf.sm.ErrorAt(node.Span, "invalid pointer dereference")
	}
	return operand.Base()
}

func (inf *Inferrer) inferBinOp(node *ast.Node) *ctype.Type {
	lt := inf.Infer(node.LHS)
	rt := inf.Infer(node.RHS)

	switch node.Op {
	case ast.Eq, ast.Ne, ast.Lt, ast.Le, ast.LogAnd, ast.LogOr:
		return ctype.NewInt()
	case ast.Assign:
		if lt.Kind == ctype.Array {
			inf.sm.ErrorAt(node.Span, "array is not an lvalue")
		}
		return lt
	case ast.Comma:
		return rt
	}

	switch {
	case lt.IsIntegral() && rt.IsIntegral():
		return ctype.NewInt()

	case node.Op == ast.Add && lt.IsIntegral() && rt.IsPointerLike():
		// int + ptr -> ptr: scale the integer side, then swap so the
		// pointer ends up on the left for codegen's Addr/lvalue rules.
		elemSize := rt.Base().Size
		node.LHS = scaledMul(node.LHS, elemSize)
		node.LHS, node.RHS = swapToPointerFirst(node.LHS, node.RHS)
		return ctype.NewPointer(rt.Base())

	case (node.Op == ast.Add || node.Op == ast.Sub) && lt.IsPointerLike() && rt.IsIntegral():
		elemSize := lt.Base().Size
		node.RHS = scaledMul(node.RHS, elemSize)
		return ctype.NewPointer(lt.Base())

	case node.Op == ast.Sub && lt.IsPointerLike() && rt.IsPointerLike():
		elemSize := lt.Base().Size
		diff := &ast.Node{Kind: ast.KindBinOp, Op: ast.Sub, LHS: node.LHS, RHS: node.RHS, CType: ctype.NewInt()}
		node.LHS = diff
		node.RHS = ast.NewNum(int32(elemSize), node.Span)
		node.Op = ast.Div
		return ctype.NewInt()

	default:
		inf.sm.ErrorAt(node.Span, "invalid operand types for binary operator")
		return nil
	}
}

func scaledMul(n *ast.Node, factor int) *ast.Node {
	return &ast.Node{
		Kind:  ast.KindBinOp,
		Op:    ast.Mul,
		LHS:   n,
		RHS:   ast.NewNum(int32(factor), n.Span),
		CType: ctype.NewInt(),
	}
}

// swapToPointerFirst reorders an `int + ptr` pair (after the int side
// has been scaled) to `ptr + int`, matching how every other arithmetic
// rule in this function expects the pointer operand on the left.
func swapToPointerFirst(scaledInt, ptr *ast.Node) (*ast.Node, *ast.Node) {
	return ptr, scaledInt
}

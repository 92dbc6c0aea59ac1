// Package ctype implements the C type representation: a shared,
// interior-mutable handle so that a forward struct declaration's
// incomplete type node can be patched in place once its definition is
// seen, with every prior reference observing the patch. A *Type
// pointer is passed around directly; every holder of the pointer sees
// later mutations, the same way a Rc<RefCell<_>> would in a language
// with no bare mutable aliasing.
package ctype

import (
	"fmt"

	"github.com/gmofishsauce/rv64cc/internal/token"
)

// Kind identifies the shape of a type.
type Kind int

const (
	Void Kind = iota
	Char
	Int
	Ptr
	Array
	Function
	Struct
)

// Member is one field of a struct type: its type (a shared handle),
// source-sliced name, and byte offset within the struct.
type Member struct {
	Type   *Type
	Name   string
	Offset int
}

// Type is the shared, mutable type node. Struct fields beyond Kind are
// only meaningful for the matching Kind, following the usual Go
// tagged-struct-of-optional-fields style for small closed-kind ASTs.
type Type struct {
	Kind Kind

	// Ptr, Array
	Elem *Type

	// Array
	Len int

	// Function
	ReturnType *Type
	Params     []*Type

	// Struct
	Members      []*Member
	IsIncomplete bool

	Size  int
	Align int

	// Name is the declarator's identifier token, carried for
	// diagnostics and name extraction.
	Name *token.Token
}

func NewVoid() *Type { return &Type{Kind: Void, Size: 1, Align: 1} }
func NewChar() *Type { return &Type{Kind: Char, Size: 1, Align: 1} }
func NewInt() *Type  { return &Type{Kind: Int, Size: 4, Align: 4} }

// NewPointer returns a fresh pointer-to-base type.
func NewPointer(base *Type) *Type {
	return &Type{Kind: Ptr, Elem: base, Size: 8, Align: 8}
}

// NewArray returns a fresh array-of-base type with the given element
// count.
func NewArray(base *Type, length int) *Type {
	return &Type{Kind: Array, Elem: base, Len: length, Size: base.Size * length, Align: base.Align}
}

// NewIncompleteStruct returns a struct type with no known layout; it
// is an error (see IsIncomplete) to query its Size/Align until it has
// been patched by a later `struct Tag { ... }` definition.
func NewIncompleteStruct() *Type {
	return &Type{Kind: Struct, IsIncomplete: true}
}

// NewFunction returns a function type; functions carry no Size/Align
// of their own (they are never stored as values).
func NewFunction(returnType *Type, params []*Type) *Type {
	return &Type{Kind: Function, ReturnType: returnType, Params: params}
}

// IsPointerLike reports whether t decays to a pointer for arithmetic
// scaling purposes: array types appearing as rvalue operands of
// arithmetic decay to pointer-to(element).
func (t *Type) IsPointerLike() bool {
	return t.Kind == Ptr || t.Kind == Array
}

func (t *Type) IsIntegral() bool {
	return t.Kind == Int || t.Kind == Char
}

// Base returns the pointee/element type for Ptr and Array kinds.
func (t *Type) Base() *Type {
	return t.Elem
}

// AlignUp rounds n up to the next multiple of align.
func AlignUp(n, align int) int {
	return (n + align - 1) / align * align
}

// CompleteStruct finalises the layout of an incomplete or
// just-parsed struct type in place: each member's offset is assigned
// in declaration order, and the struct's own Size/Align are derived.
func (t *Type) CompleteStruct(members []*Member) {
	offset := 0
	align := 1
	for _, m := range members {
		offset = AlignUp(offset, m.Type.Align)
		m.Offset = offset
		offset += m.Type.Size
		if m.Type.Align > align {
			align = m.Type.Align
		}
	}
	t.Members = members
	t.IsIncomplete = false
	t.Align = align
	t.Size = AlignUp(offset, align)
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case Void:
		return "void"
	case Char:
		return "char"
	case Int:
		return "int"
	case Ptr:
		return "*" + t.Elem.String()
	case Array:
		return fmt.Sprintf("[%d]%s", t.Len, t.Elem.String())
	case Function:
		return "func(...)" + t.ReturnType.String()
	case Struct:
		if t.IsIncomplete {
			return "struct <incomplete>"
		}
		return "struct"
	default:
		return "<invalid>"
	}
}

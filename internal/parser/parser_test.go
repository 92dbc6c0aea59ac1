package parser

import (
	"testing"

	"github.com/gmofishsauce/rv64cc/internal/ast"
	"github.com/gmofishsauce/rv64cc/internal/ctype"
	"github.com/gmofishsauce/rv64cc/internal/lexer"
	"github.com/gmofishsauce/rv64cc/internal/srcmap"
)

func parse(src string) (objs []*ast.Object, sm *srcmap.SourceMap) {
	sm = srcmap.New("t.c", src)
	toks := lexer.New(sm).Lex()
	return New(sm, toks).Parse(), sm
}

func findFunc(objs []*ast.Object, name string) *ast.Object {
	for _, o := range objs {
		if o.Kind == ast.ObjFunction && o.Name == name {
			return o
		}
	}
	return nil
}

func TestParseSimpleFunction(t *testing.T) {
	objs, _ := parse("int main() { return 0; }")
	fn := findFunc(objs, "main")
	if fn == nil {
		t.Fatal("main not found")
	}
	if fn.Body == nil {
		t.Fatal("main has no body")
	}
	if fn.ReturnType.Kind != ctype.Int {
		t.Errorf("return type = %v, want Int", fn.ReturnType.Kind)
	}
}

func TestParseFunctionParams(t *testing.T) {
	objs, _ := parse("int add(int a, int b) { return a + b; }")
	fn := findFunc(objs, "add")
	if fn == nil {
		t.Fatal("add not found")
	}
	if len(fn.Params) != 2 {
		t.Fatalf("len(Params) = %d, want 2", len(fn.Params))
	}
	if fn.Params[0].Name != "a" || fn.Params[1].Name != "b" {
		t.Errorf("params = %q, %q, want a, b", fn.Params[0].Name, fn.Params[1].Name)
	}
}

func TestParseDeclarationUpdatesExistingEntry(t *testing.T) {
	objs, _ := parse("int f(int x); int f(int x) { return x; }")
	count := 0
	for _, o := range objs {
		if o.Kind == ast.ObjFunction && o.Name == "f" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("found %d entries named f, want exactly 1 (decl updates in place)", count)
	}
	fn := findFunc(objs, "f")
	if fn.Body == nil {
		t.Fatal("f's definition body was not recorded on the existing entry")
	}
}

func TestParseStructLayout(t *testing.T) {
	objs, _ := parse(`
		struct P { int x; char c; int y; };
		int main() { struct P p; return 0; }
	`)
	fn := findFunc(objs, "main")
	var pTy *ctype.Type
	for _, l := range fn.Locals {
		if l.Name == "p" {
			pTy = l.Type
		}
	}
	if pTy == nil {
		t.Fatal("local p not found")
	}
	if pTy.IsIncomplete {
		t.Fatal("struct P should be complete")
	}
	// {int x; char c; int y;}: x@0 size4, c@4 size1, y must align to 4 -> @8,
	// size 12, align 4.
	if len(pTy.Members) != 3 {
		t.Fatalf("len(Members) = %d, want 3", len(pTy.Members))
	}
	wantOffsets := []int{0, 4, 8}
	for i, m := range pTy.Members {
		if m.Offset != wantOffsets[i] {
			t.Errorf("member %d (%s) offset = %d, want %d", i, m.Name, m.Offset, wantOffsets[i])
		}
	}
	if pTy.Size != 12 {
		t.Errorf("struct size = %d, want 12", pTy.Size)
	}
	if pTy.Align != 4 {
		t.Errorf("struct align = %d, want 4", pTy.Align)
	}
}

func TestParseForwardStructTagSharesHandle(t *testing.T) {
	objs, _ := parse(`
		struct S { struct S *next; int v; };
		int main() { struct S s; return 0; }
	`)
	fn := findFunc(objs, "main")
	var sTy *ctype.Type
	for _, l := range fn.Locals {
		if l.Name == "s" {
			sTy = l.Type
		}
	}
	if sTy == nil || sTy.IsIncomplete {
		t.Fatal("struct S should be a complete, self-referential struct")
	}
	next := sTy.Members[0]
	if next.Type.Kind != ctype.Ptr || next.Type.Base().Kind != ctype.Struct {
		t.Fatalf("next member type = %+v, want pointer-to-struct", next.Type)
	}
	// The back-patch invariant: the pointee of `next` must be the exact
	// same shared handle as sTy itself, not a copy.
	if next.Type.Base() != sTy {
		t.Error("struct S*'s pointee is not the same shared handle as S")
	}
}

func TestParseStringLiteralAllocatesGlobal(t *testing.T) {
	objs, sm := parse(`int main() { return 0; } char *msg() { return "hi\n"; }`)
	var lit *ast.Object
	for _, o := range objs {
		if o.Kind == ast.ObjStringLiteral {
			lit = o
		}
	}
	if lit == nil {
		t.Fatal("no string literal object found")
	}
	if lit.Payload != "hi\n" {
		t.Errorf("payload = %q, want %q", lit.Payload, "hi\n")
	}
	if lit.Type.Size != 4 {
		t.Errorf("string literal type size = %d, want 4 (3 chars + NUL)", lit.Type.Size)
	}
	_ = sm
}

func TestParseCompoundAssignDesugarsViaAnonLocal(t *testing.T) {
	objs, _ := parse("int main() { int a; a = 1; a += 2; return a; }")
	fn := findFunc(objs, "main")
	foundAnon := false
	for _, l := range fn.Locals {
		if l.Name == "" {
			foundAnon = true
			if l.Type.Kind != ctype.Ptr {
				t.Errorf("anonymous compound-assign temp has type %v, want pointer", l.Type.Kind)
			}
		}
	}
	if !foundAnon {
		t.Error("a += 2 should mint an anonymous pointer-typed local")
	}
}

func TestParsePointerDeclarator(t *testing.T) {
	objs, _ := parse("int main() { int x; int *p; p = &x; return *p; }")
	fn := findFunc(objs, "main")
	var pTy *ctype.Type
	for _, l := range fn.Locals {
		if l.Name == "p" {
			pTy = l.Type
		}
	}
	if pTy == nil || pTy.Kind != ctype.Ptr || pTy.Base().Kind != ctype.Int {
		t.Fatalf("p's type = %+v, want *int", pTy)
	}
}

func TestParseArrayDeclarator(t *testing.T) {
	objs, _ := parse("int main() { int a[3]; a[0] = 1; return a[0]; }")
	fn := findFunc(objs, "main")
	var aTy *ctype.Type
	for _, l := range fn.Locals {
		if l.Name == "a" {
			aTy = l.Type
		}
	}
	if aTy == nil || aTy.Kind != ctype.Array || aTy.Len != 3 || aTy.Base().Kind != ctype.Int {
		t.Fatalf("a's type = %+v, want [3]int", aTy)
	}
	if aTy.Size != 12 {
		t.Errorf("array size = %d, want 12", aTy.Size)
	}
}

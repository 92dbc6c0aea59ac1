package lexer

import (
	"testing"

	"github.com/gmofishsauce/rv64cc/internal/srcmap"
	"github.com/gmofishsauce/rv64cc/internal/token"
)

func lex(src string) []token.Token {
	sm := srcmap.New("t.c", src)
	return New(sm).Lex()
}

func kinds(toks []token.Token) []token.Kind {
	ks := make([]token.Kind, len(toks))
	for i, t := range toks {
		ks[i] = t.Kind
	}
	return ks
}

func TestLexPunctuatorsLongestMatch(t *testing.T) {
	toks := lex("== != <= >= || && -> ++ -- += -= *= /= < > = & , ; . !")
	if toks[len(toks)-1].Kind != token.EOF {
		t.Fatalf("last token kind = %v, want EOF", toks[len(toks)-1].Kind)
	}
	// every non-EOF token must be exactly the punctuator it names, never a
	// short prefix match (e.g. "==" must not tokenize as two "=" tokens).
	want := []string{"==", "!=", "<=", ">=", "||", "&&", "->", "++", "--",
		"+=", "-=", "*=", "/=", "<", ">", "=", "&", ",", ";", ".", "!"}
	if len(toks)-1 != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks)-1, len(want))
	}
	sm := srcmap.New("t.c", "== != <= >= || && -> ++ -- += -= *= /= < > = & , ; . !")
	for i, w := range want {
		got := sm.SpanToStr(toks[i].Span)
		if got != w {
			t.Errorf("token %d = %q, want %q", i, got, w)
		}
	}
}

func TestLexKeywordVsIdentifier(t *testing.T) {
	toks := lex("int integer")
	if toks[0].Kind != token.Reserved {
		t.Errorf("\"int\" lexed as %v, want Reserved", toks[0].Kind)
	}
	if toks[1].Kind != token.Ident {
		t.Errorf("\"integer\" lexed as %v, want Ident (keyword must not match as a prefix)", toks[1].Kind)
	}
}

func TestLexComments(t *testing.T) {
	toks := lex("int /* block\ncomment */ x; // line comment\n")
	got := kinds(toks)
	want := []token.Kind{token.Reserved, token.Ident, token.Reserved, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d %v", len(got), got, len(want), want)
	}
}

func TestLexNumber(t *testing.T) {
	toks := lex("12345")
	if toks[0].Kind != token.Num || toks[0].IntVal != 12345 {
		t.Errorf("got %+v, want Num(12345)", toks[0])
	}
}

func TestLexStringLiteral(t *testing.T) {
	toks := lex(`"hi\n"`)
	if toks[0].Kind != token.Str || toks[0].StrVal != "hi\n" {
		t.Errorf("got %+v, want Str(\"hi\\n\")", toks[0])
	}
}

func TestLexCharLiteral(t *testing.T) {
	toks := lex(`'A'`)
	if toks[0].Kind != token.Char || toks[0].IntVal != 'A' {
		t.Errorf("got %+v, want Char('A')", toks[0])
	}
}

func TestLexEmptyInputProducesOnlyEOF(t *testing.T) {
	toks := lex("")
	if len(toks) != 1 || toks[0].Kind != token.EOF {
		t.Fatalf("got %+v, want single EOF token", toks)
	}
	if toks[0].Span.Lo != 0 || toks[0].Span.Hi != 0 {
		t.Errorf("EOF span = %+v, want zero-width at 0", toks[0].Span)
	}
}

// TestLexIdentifierReconcatenation is the spec.md §8 property: for
// source with no literals (identifiers only act as self-delimiting
// lexemes here), tokenizing and re-concatenating the lexemes with
// single spaces reproduces the source modulo whitespace/comments.
func TestLexIdentifierReconcatenation(t *testing.T) {
	src := "foo bar baz"
	sm := srcmap.New("t.c", src)
	toks := New(sm).Lex()
	got := ""
	for _, tk := range toks {
		if tk.Kind == token.EOF {
			continue
		}
		if got != "" {
			got += " "
		}
		got += sm.SpanToStr(tk.Span)
	}
	if got != src {
		t.Errorf("reconcatenated = %q, want %q", got, src)
	}
}

// Unterminated comments/strings call srcmap.ErrorAt, which exits the
// process directly, so those fatal paths are not exercised by these
// in-process tests.

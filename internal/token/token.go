// Package token defines the lexical token model shared by the lexer
// and parser, and the C string/char escape codec used by both literal
// scanning and `.string` directive emission.
//
// A Token carries a Span into the source buffer rather than a copied
// string, keeping lexeme recovery lazy and avoiding a string allocation
// per identifier.
package token

import "github.com/gmofishsauce/rv64cc/internal/srcmap"

// Kind identifies the category of a token.
type Kind int

const (
	Invalid Kind = iota
	Reserved     // punctuator or keyword; lexeme recovered via Span
	Ident
	Num    // integer literal
	Str    // string literal; decoded payload in StrVal
	Char   // character literal; decoded code point in IntVal
	EOF
)

// Token is a single lexical token.
type Token struct {
	Kind   Kind
	Span   srcmap.Span
	IntVal int32  // valid when Kind == Num or Kind == Char
	StrVal string // valid when Kind == Str (decoded payload, no NUL)
}

// Keywords is the set of reserved words recognised by the lexer. A
// keyword only matches when not followed by an identifier-continuation
// byte; see lexer.tryKeyword.
var Keywords = map[string]bool{
	"return": true, "if": true, "else": true, "for": true, "while": true,
	"int": true, "char": true, "void": true, "sizeof": true,
	"struct": true, "const": true,
}

// Puncts lists punctuators in longest-match-first order: the lexer
// scans this list in order, so multichar prefixes like "==" must come
// before their single-char prefix "=".
var Puncts = []string{
	"==", "!=", "<=", ">=", "||", "&&", "->", "++", "--",
	"+=", "-=", "*=", "/=",
	"+", "-", "*", "/", "%", "{", "}", "(", ")", "<", ">",
	";", "=", "&", ",", "[", "]", "!", ".", "|",
}

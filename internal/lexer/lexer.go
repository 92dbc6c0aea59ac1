// Package lexer converts source bytes into a positional token stream
// in one forward pass, with no backtracking.
//
// It exposes a small peek/peekN/advance cursor over the source buffer,
// with a scanXxx helper per lexeme shape (scanIdent, scanNumber,
// scanString, scanChar). It returns an in-memory []token.Token consumed
// directly by internal/parser, and reports fatal errors through
// internal/srcmap rather than exiting from inside the lexer itself.
package lexer

import (
	"strings"

	"github.com/gmofishsauce/rv64cc/internal/srcmap"
	"github.com/gmofishsauce/rv64cc/internal/token"
)

// Lexer holds lexing state over one source buffer.
type Lexer struct {
	sm     *srcmap.SourceMap
	src    string
	cursor int
}

// New creates a Lexer over the given source map's buffer.
func New(sm *srcmap.SourceMap) *Lexer {
	return &Lexer{sm: sm, src: sm.Source}
}

func (l *Lexer) peek() byte {
	return l.peekN(0)
}

func (l *Lexer) peekN(n int) byte {
	if l.cursor+n >= len(l.src) {
		return 0
	}
	return l.src[l.cursor+n]
}

func (l *Lexer) advance() byte {
	c := l.src[l.cursor]
	l.cursor++
	return c
}

func (l *Lexer) errorAt(lo, hi int, format string, args ...interface{}) {
	l.sm.ErrorAt(srcmap.Span{Lo: lo, Hi: hi}, format, args...)
}

// Lex runs the lexer to completion and returns the full token stream,
// terminated by a zero-width EOF token at len(source).
func (l *Lexer) Lex() []token.Token {
	var tokens []token.Token

	for l.cursor < len(l.src) {
		if l.skipWhitespaceAndComments() {
			continue
		}

		c := l.peek()

		if tok, ok := l.tryKeyword(); ok {
			tokens = append(tokens, tok)
			continue
		}

		if tok, ok := l.tryPunct(); ok {
			tokens = append(tokens, tok)
			continue
		}

		if isDigit(c) {
			tokens = append(tokens, l.scanNumber())
			continue
		}

		if c == '"' {
			tokens = append(tokens, l.scanString())
			continue
		}

		if c == '\'' {
			tokens = append(tokens, l.scanChar())
			continue
		}

		if isIdentFirst(c) {
			tokens = append(tokens, l.scanIdent())
			continue
		}

		l.errorAt(l.cursor, l.cursor+1, "cannot tokenize byte %q", c)
	}

	tokens = append(tokens, token.Token{
		Kind: token.EOF,
		Span: srcmap.Span{Lo: len(l.src), Hi: len(l.src)},
	})
	return tokens
}

// skipWhitespaceAndComments advances past whitespace and comments,
// reporting whether anything was skipped (so the caller can re-check
// for EOF / more whitespace before the next token attempt).
func (l *Lexer) skipWhitespaceAndComments() bool {
	advanced := false
	for l.cursor < len(l.src) {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
			advanced = true
		case c == '/' && l.peekN(1) == '/':
			for l.cursor < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
			advanced = true
		case c == '/' && l.peekN(1) == '*':
			start := l.cursor
			l.advance()
			l.advance()
			closed := false
			for l.cursor < len(l.src) {
				if l.peek() == '*' && l.peekN(1) == '/' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				l.advance()
			}
			if !closed {
				l.errorAt(start, start+2, "unterminated block comment")
			}
			advanced = true
		default:
			return advanced
		}
	}
	return advanced
}

func (l *Lexer) tryKeyword() (token.Token, bool) {
	for kw := range token.Keywords {
		if !strings.HasPrefix(l.src[l.cursor:], kw) {
			continue
		}
		rest := l.cursor + len(kw)
		if rest < len(l.src) && isIdentFollow(l.src[rest]) {
			continue
		}
		start := l.cursor
		l.cursor += len(kw)
		return token.Token{Kind: token.Reserved, Span: srcmap.Span{Lo: start, Hi: l.cursor}}, true
	}
	return token.Token{}, false
}

func (l *Lexer) tryPunct() (token.Token, bool) {
	for _, p := range token.Puncts {
		if strings.HasPrefix(l.src[l.cursor:], p) {
			start := l.cursor
			l.cursor += len(p)
			return token.Token{Kind: token.Reserved, Span: srcmap.Span{Lo: start, Hi: l.cursor}}, true
		}
	}
	return token.Token{}, false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentFirst(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentFollow(c byte) bool {
	return isIdentFirst(c) || isDigit(c)
}

func (l *Lexer) scanNumber() token.Token {
	start := l.cursor
	for l.cursor < len(l.src) && isDigit(l.peek()) {
		l.advance()
	}
	text := l.src[start:l.cursor]
	var value int64
	for i := 0; i < len(text); i++ {
		value = value*10 + int64(text[i]-'0')
	}
	return token.Token{
		Kind:   token.Num,
		Span:   srcmap.Span{Lo: start, Hi: l.cursor},
		IntVal: int32(value),
	}
}

func (l *Lexer) scanIdent() token.Token {
	start := l.cursor
	l.advance()
	for l.cursor < len(l.src) && isIdentFollow(l.peek()) {
		l.advance()
	}
	return token.Token{Kind: token.Ident, Span: srcmap.Span{Lo: start, Hi: l.cursor}}
}

// scanString handles `"..."`, honouring \\ and \" within (the scanner
// only needs to recognise where the escaped quote/backslash pairs are
// so it doesn't stop early; full escape semantics are decoded afterward
// by token.DecodeEscapes).
func (l *Lexer) scanString() token.Token {
	start := l.cursor
	l.advance() // opening quote
	rawStart := l.cursor
	for l.cursor < len(l.src) && l.peek() != '"' {
		if l.peek() == '\\' && l.cursor+1 < len(l.src) {
			l.advance()
		}
		l.advance()
	}
	if l.cursor >= len(l.src) {
		l.errorAt(start, start+1, "unterminated string literal")
	}
	raw := l.src[rawStart:l.cursor]
	l.advance() // closing quote

	decoded := token.DecodeEscapes(l.sm, raw, rawStart)
	return token.Token{
		Kind:   token.Str,
		Span:   srcmap.Span{Lo: start, Hi: l.cursor},
		StrVal: decoded,
	}
}

func (l *Lexer) scanChar() token.Token {
	start := l.cursor
	l.advance() // opening quote
	rawStart := l.cursor
	for l.cursor < len(l.src) && l.peek() != '\'' {
		if l.peek() == '\\' && l.cursor+1 < len(l.src) {
			l.advance()
		}
		l.advance()
	}
	if l.cursor >= len(l.src) {
		l.errorAt(start, start+1, "unterminated character literal")
	}
	raw := l.src[rawStart:l.cursor]
	l.advance() // closing quote

	decoded := token.DecodeEscapes(l.sm, raw, rawStart)
	if len(decoded) == 0 {
		l.errorAt(start, l.cursor, "empty character literal")
	}
	return token.Token{
		Kind:   token.Char,
		Span:   srcmap.Span{Lo: start, Hi: l.cursor},
		IntVal: int32(decoded[0]),
	}
}

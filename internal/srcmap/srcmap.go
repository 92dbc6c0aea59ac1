// Package srcmap maps byte offsets in a translation unit back to
// human-readable source locations and renders diagnostic pointers.
//
// One SourceMap instance is created per translation unit and shared by
// every stage of that compilation (lexer, parser, typecheck, codegen),
// so a fatal error at any stage can still render a caret against the
// original source text.
package srcmap

import (
	"fmt"
	"os"
	"strings"
)

// Span is a half-open byte range [Lo, Hi) into the source buffer.
type Span struct {
	Lo, Hi int
}

// SourceMap owns the original source bytes for one translation unit.
type SourceMap struct {
	Filename string
	Source   string
}

// New creates a SourceMap over the given file name and source text.
func New(filename, source string) *SourceMap {
	return &SourceMap{Filename: filename, Source: source}
}

// SpanToStr slices the source buffer by byte range. The parser uses
// this to recover lexeme text without ever copying identifier bytes.
func (sm *SourceMap) SpanToStr(span Span) string {
	return sm.Source[span.Lo:span.Hi]
}

// lineCol returns the 1-based line and column of a byte offset.
func (sm *SourceMap) lineCol(offset int) (line, col int) {
	line = 1
	lineStart := 0
	for i := 0; i < offset && i < len(sm.Source); i++ {
		if sm.Source[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	col = offset - lineStart + 1
	return
}

func (sm *SourceMap) lineText(offset int) string {
	start := strings.LastIndexByte(sm.Source[:offset], '\n') + 1
	end := strings.IndexByte(sm.Source[offset:], '\n')
	if end < 0 {
		return sm.Source[start:]
	}
	return sm.Source[start : offset+end]
}

// ErrorAt prints the offending source line with a caret under the span
// start, followed by the message, then aborts the process with a
// non-zero exit status. It never returns.
func (sm *SourceMap) ErrorAt(span Span, format string, args ...interface{}) {
	line, col := sm.lineCol(span.Lo)
	lineText := sm.lineText(span.Lo)

	fmt.Fprintf(os.Stderr, "%s:%d: %s\n", sm.Filename, line, lineText)
	fmt.Fprintf(os.Stderr, "%s^ %s\n", strings.Repeat(" ", col-1+len(sm.Filename)+len(fmt.Sprintf(":%d: ", line))), fmt.Sprintf(format, args...))
	os.Exit(1)
}

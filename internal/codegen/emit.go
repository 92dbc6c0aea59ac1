// Emitter wraps an io.Writer with the small set of helpers the code
// generator uses to produce GNU-style RISC-V assembly text:
// directives, labels, comments, and raw instruction lines.
//
// It is a thin, ISA-agnostic text-emission helper; label names follow
// the `.L.begin.N` / `.L.else.N` / `.L.return.<fn>` convention.
package codegen

import (
	"bufio"
	"fmt"
)

type Emitter struct {
	out        *bufio.Writer
	labelCount int
}

func NewEmitter(w *bufio.Writer) *Emitter {
	return &Emitter{out: w}
}

// NewLabelID returns a fresh, monotonically increasing id for building
// per-function-unique control-flow labels (.L.begin.N, .L.else.N, ...).
func (e *Emitter) NewLabelID() int {
	e.labelCount++
	return e.labelCount
}

func (e *Emitter) Directive(format string, args ...interface{}) {
	fmt.Fprintf(e.out, "  %s\n", fmt.Sprintf(format, args...))
}

func (e *Emitter) Label(name string) {
	fmt.Fprintf(e.out, "%s:\n", name)
}

func (e *Emitter) Instr(format string, args ...interface{}) {
	fmt.Fprintf(e.out, "  %s\n", fmt.Sprintf(format, args...))
}

func (e *Emitter) Comment(format string, args ...interface{}) {
	fmt.Fprintf(e.out, "  # %s\n", fmt.Sprintf(format, args...))
}

func (e *Emitter) Blank() {
	fmt.Fprintln(e.out)
}

func (e *Emitter) Flush() error {
	return e.out.Flush()
}

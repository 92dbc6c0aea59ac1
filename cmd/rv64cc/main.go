// Command rv64cc is the driver that wires the three pipeline stages
// together: it owns flag parsing and file I/O, then hands the source
// buffer to internal/lexer, internal/parser, internal/typecheck, and
// internal/codegen in sequence.
//
// Flag handling uses the standard flag package (one string flag, -o;
// `-` selects stdin for the input and stdout for the output, and the
// output defaults to stdout when -o is absent), extended with the
// attached `-ofoo` form that flag alone does not support. A missing
// input argument is a usage error.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gmofishsauce/rv64cc/internal/codegen"
	"github.com/gmofishsauce/rv64cc/internal/lexer"
	"github.com/gmofishsauce/rv64cc/internal/parser"
	"github.com/gmofishsauce/rv64cc/internal/srcmap"
	"github.com/gmofishsauce/rv64cc/internal/typecheck"
)

const usage = `usage: rv64cc [-o PATH | -oPATH] INPUT
       rv64cc --help

INPUT is a source file path, or - for standard input.
-o PATH or -oPATH writes assembly to PATH (- for standard output);
the default is standard output.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	for _, a := range args {
		if a == "--help" {
			fmt.Fprint(stdout, usage)
			return 0
		}
	}

	output, rest := extractOutputFlag(args)

	fs := flag.NewFlagSet("rv64cc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	outFlag := fs.String("o", "", "output path (- for stdout)")
	if err := fs.Parse(rest); err != nil {
		return 2
	}
	if *outFlag != "" {
		output = *outFlag
	}
	if output == "" {
		output = "-"
	}

	if fs.NArg() < 1 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	inputPath := fs.Arg(0)

	source, filename, err := readInput(inputPath, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "rv64cc: %v\n", err)
		return 1
	}

	out, closeOut, err := openOutput(output, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "rv64cc: %v\n", err)
		return 1
	}
	defer closeOut()

	compile(filename, source, out)
	return 0
}

// extractOutputFlag pre-scans args for the attached `-oPATH` form
// (which the standard `flag` package cannot parse, since it only
// understands `-o PATH` or `-o=PATH`) and strips it out, returning the
// value found (if any) and the remaining arguments for `flag.Parse`.
func extractOutputFlag(args []string) (value string, rest []string) {
	for _, a := range args {
		if strings.HasPrefix(a, "-o") && a != "-o" && !strings.HasPrefix(a, "-o=") {
			value = a[len("-o"):]
			continue
		}
		rest = append(rest, a)
	}
	return value, rest
}

func readInput(path string, stdin io.Reader) (source, filename string, err error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), "<stdin>", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), path, nil
}

func openOutput(path string, stdout io.Writer) (w io.Writer, closeFn func(), err error) {
	if path == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("writing %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

// compile runs the three-stage pipeline to completion. Every stage
// reports fatal errors via sm.ErrorAt, which prints a diagnostic and
// calls os.Exit(1) itself: there is no error return path here to
// unwind.
func compile(filename, source string, out io.Writer) {
	sm := srcmap.New(filename, source)

	tokens := lexer.New(sm).Lex()
	objs := parser.New(sm, tokens).Parse()

	inf := typecheck.New(sm)
	for _, o := range objs {
		inf.Infer(o.Body)
	}

	if err := codegen.NewGenerator(out, sm).Emit(objs); err != nil {
		fmt.Fprintf(os.Stderr, "rv64cc: writing output: %v\n", err)
		os.Exit(1)
	}
}

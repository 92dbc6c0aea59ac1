package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunHelpPrintsUsageAndExitsZero(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--help"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "usage: rv64cc")
}

func TestRunMissingInputExitsNonZero(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(nil, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "usage: rv64cc")
}

func TestRunReadsFromStdinAndWritesToStdout(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-"}, strings.NewReader("int main() { return 0; }"), &stdout, &stderr)
	require.Equal(t, 0, code, "stderr: %s", stderr.String())
	assert.Contains(t, stdout.String(), "main:")
	assert.Contains(t, stdout.String(), ".section .text")
}

func TestRunAttachedOutputFlagWritesFile(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.s")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-o" + outPath, "-"}, strings.NewReader("int main() { return 0; }"), &stdout, &stderr)
	require.Equal(t, 0, code, "stderr: %s", stderr.String())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "main:")
	assert.Empty(t, stdout.String(), "output should have gone to the file, not stdout")
}

func TestRunSpacedOutputFlagWritesFile(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.s")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-o", outPath, "-"}, strings.NewReader("int main() { return 0; }"), &stdout, &stderr)
	require.Equal(t, 0, code, "stderr: %s", stderr.String())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "main:")
}

func TestExtractOutputFlagAttachedForm(t *testing.T) {
	value, rest := extractOutputFlag([]string{"-ofoo.s", "input.c"})
	assert.Equal(t, "foo.s", value)
	assert.Equal(t, []string{"input.c"}, rest)
}

func TestExtractOutputFlagLeavesSpacedFormAlone(t *testing.T) {
	value, rest := extractOutputFlag([]string{"-o", "foo.s", "input.c"})
	assert.Equal(t, "", value, "spaced -o form is left for flag.Parse, not consumed here")
	assert.Equal(t, []string{"-o", "foo.s", "input.c"}, rest)
}

func TestExtractOutputFlagLeavesBareDashOAlone(t *testing.T) {
	value, rest := extractOutputFlag([]string{"-o"})
	assert.Equal(t, "", value)
	assert.Equal(t, []string{"-o"}, rest)
}

func TestReadInputFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.c")
	require.NoError(t, os.WriteFile(path, []byte("int main(){return 0;}"), 0o644))

	source, filename, err := readInput(path, strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "int main(){return 0;}", source)
	assert.Equal(t, path, filename)
}

func TestReadInputMissingFileErrors(t *testing.T) {
	_, _, err := readInput(filepath.Join(t.TempDir(), "missing.c"), strings.NewReader(""))
	assert.Error(t, err)
}

package main

import (
	"os"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertCanonicalFixedPoint fails with a unified diff, rather than a
// raw byte-slice dump, when re-rendering a canonical file changes it:
// canonical-form output is large enough in practice that a diff is
// the only readable way to see what moved.
func assertCanonicalFixedPoint(t *testing.T, path string, first, second []byte) {
	t.Helper()
	if string(first) == string(second) {
		return
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(first)),
		B:        difflib.SplitLines(string(second)),
		FromFile: path + " (first pass)",
		ToFile:   path + " (second pass)",
		Context:  2,
	})
	require.NoError(t, err)
	t.Errorf("fmt --write is not a fixed point for %s:\n%s", path, diff)
}

func TestRunFmtWritesCanonicalForm(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "z.wuffs", "pub func   pick ( x : u8 ) u8 {\n\treturn x\n}\n")

	got := runFmt([]string{path}, true)
	require.Equal(t, exitOK, got)

	rewritten, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, rewritten)

	// Re-running fmt --write against its own output is a no-op: the
	// canonical form is a fixed point.
	again := runFmt([]string{path}, true)
	require.Equal(t, exitOK, again)
	secondPass, err := os.ReadFile(path)
	require.NoError(t, err)
	assertCanonicalFixedPoint(t, path, rewritten, secondPass)
}

func TestRunFmtReportsUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	got := runFmt([]string{dir + "/does-not-exist.wuffs"}, false)
	assert.Equal(t, exitUsageOrParse, got)
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuffscheck/wuffscheck/internal/config"
)

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestRunCheckAcceptsWellTypedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "ok.wuffs", "pub func pick(x: u8, y: u8) u8 {\n\tvar z: u8 = x\n\tif x == y {\n\t\tz = y\n\t}\n\treturn z\n}\n")

	got := runCheck([]string{path}, config.Limits{})
	assert.Equal(t, exitOK, got)
}

func TestRunCheckReportsCheckerFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "bad.wuffs", "pub func bad(x: u8, y: u8) u8 {\n\treturn x + y\n}\n")

	got := runCheck([]string{path}, config.Limits{})
	assert.Equal(t, exitCheckFailed, got)
}

func TestRunCheckReportsParseFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "garbled.wuffs", "pub func ( ) u8 {\n")

	got := runCheck([]string{path}, config.Limits{})
	assert.Equal(t, exitUsageOrParse, got)
}

func TestRunCheckReportsMissingFile(t *testing.T) {
	got := runCheck([]string{filepath.Join(t.TempDir(), "missing.wuffs")}, config.Limits{})
	assert.Equal(t, exitUsageOrParse, got)
}

func TestBuildResolverFailsClosedWithNoSearchRoots(t *testing.T) {
	resolve, err := buildResolver(config.Limits{})
	require.NoError(t, err)
	_, rerr := resolve("anything")
	assert.Error(t, rerr)
}

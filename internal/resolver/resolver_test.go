package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, contents string) string {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(contents), 0o644))
	return full
}

func TestResolveMatchesBySuffixMinusExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vendor/std/crc32.wuffs", "pub status \"#short read\"\n")

	r := New([]string{filepath.Join(dir, "vendor", "**", "*.wuffs")})

	src, err := r.Resolve("std/crc32")
	require.NoError(t, err)
	assert.Contains(t, string(src), "short read")
}

func TestResolveExactPathMatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pkg/adler32.wuffs", "pub status \"#ok\"\n")

	r := New([]string{filepath.Join(dir, "pkg", "*.wuffs")})

	src, err := r.Resolve("adler32")
	require.NoError(t, err)
	assert.Contains(t, string(src), "ok")
}

func TestResolveUnmatchedPathIsAnError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pkg/adler32.wuffs", "pub status \"#ok\"\n")

	r := New([]string{filepath.Join(dir, "pkg", "*.wuffs")})

	_, err := r.Resolve("nonexistent/thing")
	assert.Error(t, err)
}

func TestResolveCachesGlobExpansionAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pkg/one.wuffs", "pub status \"#ok\"\n")

	root := filepath.Join(dir, "pkg", "*.wuffs")
	r := New([]string{root})

	_, err := r.Resolve("one")
	require.NoError(t, err)
	require.Contains(t, r.cache, root, "a successful Resolve populates the per-root glob cache")

	writeFile(t, dir, "pkg/two.wuffs", "pub status \"#ok\"\n")
	_, err = r.Resolve("two")
	assert.Error(t, err, "a file added after the glob was cached should not be found until the cache is rebuilt")
}

func TestResolveSearchesRootsInOrder(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeFile(t, dirA, "shared.wuffs", "pub status \"#from-a\"\n")
	writeFile(t, dirB, "shared.wuffs", "pub status \"#from-b\"\n")

	r := New([]string{
		filepath.Join(dirA, "*.wuffs"),
		filepath.Join(dirB, "*.wuffs"),
	})

	src, err := r.Resolve("shared")
	require.NoError(t, err)
	assert.Contains(t, string(src), "from-a")
}

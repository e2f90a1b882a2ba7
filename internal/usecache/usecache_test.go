package usecache

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "usecache-test.db")
	c, err := Open(dsn)
	require.NoError(t, err)
	return c
}

func TestPutThenGetByHash(t *testing.T) {
	c := openTestCache(t)

	src := []byte("pub status \"#ok\"\n")
	hash := Hash(src)
	require.NoError(t, c.Put("std/crc32", hash, src))

	got, ok := c.Get("std/crc32", hash)
	require.True(t, ok)
	assert.Equal(t, src, got)

	_, ok = c.Get("std/crc32", Hash([]byte("different content")))
	assert.False(t, ok, "a stale hash should miss even though the path matches")
}

func TestGetByPathIgnoresContentHash(t *testing.T) {
	c := openTestCache(t)

	src := []byte("pub status \"#ok\"\n")
	require.NoError(t, c.Put("std/crc32", Hash(src), src))

	got, ok := c.GetByPath("std/crc32")
	require.True(t, ok)
	assert.Equal(t, src, got)
}

func TestPutReplacesExistingRecordForPath(t *testing.T) {
	c := openTestCache(t)

	first := []byte("pub status \"#one\"\n")
	second := []byte("pub status \"#two\"\n")
	require.NoError(t, c.Put("std/crc32", Hash(first), first))
	require.NoError(t, c.Put("std/crc32", Hash(second), second))

	got, ok := c.GetByPath("std/crc32")
	require.True(t, ok)
	assert.Equal(t, second, got)
}

func TestResolverShortCircuitsInnerOnCacheHit(t *testing.T) {
	c := openTestCache(t)
	calls := 0
	inner := func(path string) ([]byte, error) {
		calls++
		return []byte("resolved:" + path), nil
	}

	r := NewResolver(c, inner)

	src1, err := r.Resolve("std/crc32")
	require.NoError(t, err)
	assert.Equal(t, "resolved:std/crc32", string(src1))
	assert.Equal(t, 1, calls)

	src2, err := r.Resolve("std/crc32")
	require.NoError(t, err)
	assert.Equal(t, "resolved:std/crc32", string(src2))
	assert.Equal(t, 1, calls, "a second Resolve of the same path must not call inner again")
}

func TestResolverPropagatesInnerError(t *testing.T) {
	c := openTestCache(t)
	wantErr := errors.New("no search root matches")
	inner := func(path string) ([]byte, error) { return nil, wantErr }

	r := NewResolver(c, inner)

	_, err := r.Resolve("std/missing")
	assert.ErrorIs(t, err, wantErr)
}

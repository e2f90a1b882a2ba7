package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithNoFileAndNoEnv(t *testing.T) {
	lim, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 256, lim.MaxExprDepth)
	assert.Equal(t, 64, lim.MaxBodyDepth)
	assert.Equal(t, 0, lim.MaxShiftCount)
	assert.False(t, lim.EnableLegacyPeephole)
	assert.Equal(t, "wuffscheck-cache.db", lim.CachePath)
	assert.Empty(t, lim.SearchRoots)
}

func TestLoadMissingEnvFileIsNotAnError(t *testing.T) {
	lim, err := Load(filepath.Join(t.TempDir(), "does-not-exist.env"))
	require.NoError(t, err)
	assert.Equal(t, 256, lim.MaxExprDepth)
}

func TestLoadOverlaysEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "wuffscheck.env")
	require.NoError(t, os.WriteFile(envPath, []byte("WUFFSCHECK_MAX_EXPR_DEPTH=40\nWUFFSCHECK_CACHE=custom.db\n"), 0o644))

	lim, err := Load(envPath)
	require.NoError(t, err)
	assert.Equal(t, 40, lim.MaxExprDepth)
	assert.Equal(t, "custom.db", lim.CachePath)
	assert.Equal(t, 64, lim.MaxBodyDepth, "fields absent from the env file keep their built-in default")
}

func TestLoadShellEnvOverridesWithoutAFile(t *testing.T) {
	t.Setenv("WUFFSCHECK_MAX_BODY_DEPTH", "12")
	t.Setenv("WUFFSCHECK_ENABLE_LEGACY_PEEPHOLE", "true")
	t.Setenv("WUFFSCHECK_SEARCH_ROOT", "vendor/**/*.wuffs")

	lim, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 12, lim.MaxBodyDepth)
	assert.True(t, lim.EnableLegacyPeephole)
	assert.Equal(t, []string{"vendor/**/*.wuffs"}, lim.SearchRoots)
}

func TestLoadIgnoresUnparsableIntOverride(t *testing.T) {
	t.Setenv("WUFFSCHECK_MAX_EXPR_DEPTH", "not-a-number")

	lim, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 256, lim.MaxExprDepth, "an unparsable override is dropped, keeping the default")
}

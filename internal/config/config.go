// Package config loads checker and CLI defaults from an optional
// .env-style file, overridable by flags bound in cmd/wuffscheck. This
// is ambient configuration, not part of the checker's public API:
// internal/sema never imports this package, it only accepts the plain
// values Limits carries.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Limits holds the tunable ceilings and toggles the checker and its
// surrounding CLI read at startup.
type Limits struct {
	// MaxExprDepth bounds expression-tree recursion during type
	// checking and bounds proving. 0 selects the checker's built-in
	// default.
	MaxExprDepth int

	// MaxBodyDepth is a nested-block (if/while/io_bind) depth ceiling.
	// It is loaded and can be overridden by flag, but internal/sema
	// does not read it: statement checking has no block-nesting limit.
	MaxBodyDepth int

	// MaxShiftCount is an extra ceiling on literal shift counts. It is
	// loaded but not passed to internal/sema, whose bounds prover uses
	// a fixed shift-count ceiling of 65535.
	MaxShiftCount int

	// EnableLegacyPeephole is a toggle loaded from the environment; no
	// check in this module reads it.
	EnableLegacyPeephole bool

	// SearchRoots are doublestar glob patterns internal/resolver walks
	// to satisfy `use` clauses, e.g. "vendor/**/*.wuffs".
	SearchRoots []string

	// CachePath is the SQLite database file internal/usecache opens
	// to memoize resolved `use` package source bytes.
	CachePath string
}

// defaults returns the checker's built-in defaults, used for any field
// neither an env file nor a flag supplies.
func defaults() Limits {
	return Limits{
		MaxExprDepth:  256,
		MaxBodyDepth:  64,
		MaxShiftCount: 0,
		CachePath:     "wuffscheck-cache.db",
	}
}

// Load reads envPath (if it exists; a missing file is not an error —
// wuffscheck.env is optional) via godotenv, then overlays the
// WUFFSCHECK_-prefixed environment variables it or the shell define on
// top of the built-in defaults. Flags bound in cmd/wuffscheck still
// take precedence over everything Load returns.
func Load(envPath string) (Limits, error) {
	lim := defaults()

	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return lim, err
			}
		}
	}

	if v := os.Getenv("WUFFSCHECK_MAX_EXPR_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			lim.MaxExprDepth = n
		}
	}
	if v := os.Getenv("WUFFSCHECK_MAX_BODY_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			lim.MaxBodyDepth = n
		}
	}
	if v := os.Getenv("WUFFSCHECK_MAX_SHIFT_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			lim.MaxShiftCount = n
		}
	}
	if v := os.Getenv("WUFFSCHECK_ENABLE_LEGACY_PEEPHOLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			lim.EnableLegacyPeephole = b
		}
	}
	if v := os.Getenv("WUFFSCHECK_SEARCH_ROOT"); v != "" {
		lim.SearchRoots = append(lim.SearchRoots, v)
	}
	if v := os.Getenv("WUFFSCHECK_CACHE"); v != "" {
		lim.CachePath = v
	}

	return lim, nil
}

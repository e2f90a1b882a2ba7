// Package resolver implements the `use "pkg/path"` resolution callback
// the checker invokes for every `use` clause it encounters: one or
// more doublestar search-root globs are expanded to a candidate file
// set, and a use path is matched against it by slash-joined path
// suffix, minus extension.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Resolver expands a fixed set of search-root glob patterns into a
// use-path -> source-bytes lookup, matching internal/sema.ResolveUse.
type Resolver struct {
	roots []string
	cache map[string][]string // root -> matched file paths, populated lazily
}

// New constructs a Resolver over the given doublestar patterns, e.g.
// "vendor/**/*.wuffs" or "./**/*.wuffs". Patterns are expanded lazily,
// on first Resolve call, not here.
func New(searchRoots []string) *Resolver {
	return &Resolver{roots: searchRoots, cache: map[string][]string{}}
}

// Resolve implements sema.ResolveUse: it maps path (e.g. "foo/bar") to
// the source bytes of the first search-root match whose slash-joined
// path, minus extension, ends with path.
func (r *Resolver) Resolve(path string) ([]byte, error) {
	for _, root := range r.roots {
		matches, ok := r.cache[root]
		if !ok {
			var err error
			matches, err = doublestar.FilepathGlob(root)
			if err != nil {
				return nil, fmt.Errorf("search root %q: %w", root, err)
			}
			r.cache[root] = matches
		}
		for _, m := range matches {
			candidate := filepath.ToSlash(m)
			candidate = strings.TrimSuffix(candidate, filepath.Ext(candidate))
			if candidate == path || strings.HasSuffix(candidate, "/"+path) {
				return os.ReadFile(m)
			}
		}
	}
	return nil, fmt.Errorf("no search root matches use path %q", path)
}

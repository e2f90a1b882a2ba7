package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	a "github.com/wuffscheck/wuffscheck/internal/ast"
	"github.com/wuffscheck/wuffscheck/internal/config"
	"github.com/wuffscheck/wuffscheck/internal/errs"
	"github.com/wuffscheck/wuffscheck/internal/parse"
	"github.com/wuffscheck/wuffscheck/internal/resolver"
	"github.com/wuffscheck/wuffscheck/internal/sema"
	t "github.com/wuffscheck/wuffscheck/internal/token"
	"github.com/wuffscheck/wuffscheck/internal/usecache"
)

func newCheckCmd(envPath *string) *cobra.Command {
	var (
		maxExprDepth int
		maxBodyDepth int
		searchRoots  []string
		cachePath    string
	)

	cmd := &cobra.Command{
		Use:   "check <files...>",
		Short: "Type-check and bounds-prove one or more source files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lim, err := config.Load(*envPath)
			if err != nil {
				rootExitCode = exitUsageOrParse
				return fmt.Errorf("loading config: %w", err)
			}
			if maxExprDepth > 0 {
				lim.MaxExprDepth = maxExprDepth
			}
			if maxBodyDepth > 0 {
				lim.MaxBodyDepth = maxBodyDepth
			}
			if len(searchRoots) > 0 {
				lim.SearchRoots = searchRoots
			}
			if cachePath != "" {
				lim.CachePath = cachePath
			}

			rootExitCode = runCheck(args, lim)
			if rootExitCode == exitUsageOrParse {
				return fail("one or more files could not be tokenized or parsed")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxExprDepth, "max-expr-depth", 0, "expression nesting ceiling (0: use config/default)")
	cmd.Flags().IntVar(&maxBodyDepth, "max-body-depth", 0, "block nesting ceiling (0: use config/default)")
	cmd.Flags().StringArrayVar(&searchRoots, "search-root", nil, "doublestar glob search root for `use` resolution (repeatable)")
	cmd.Flags().StringVar(&cachePath, "cache", "", "path to the resolved-use SQLite cache (empty: use config/default)")
	return cmd
}

// runCheck tokenizes, parses, and checks every file and returns the
// process exit code: exitOK, exitCheckFailed (a structured *errs.Error
// from the checker), or exitUsageOrParse (tokenize/parse failure).
func runCheck(paths []string, lim config.Limits) int {
	tm := &t.Map{}
	files := make([]*a.File, 0, len(paths))

	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			slog.Error("read file", "path", path, "err", err)
			return exitUsageOrParse
		}
		tokens, _, terr := t.Tokenize(tm, path, src)
		if terr != nil {
			slog.Error("tokenize", "path", path, "err", terr)
			return exitUsageOrParse
		}
		file, perr := parse.File(tm, path, tokens, nil)
		if perr != nil {
			slog.Error("parse", "path", path, "err", perr)
			return exitUsageOrParse
		}
		files = append(files, file)
	}

	resolve, err := buildResolver(lim)
	if err != nil {
		slog.Error("build resolver", "err", err)
		return exitUsageOrParse
	}

	if _, cerr := sema.Check(tm, files, resolve, lim.MaxExprDepth); cerr != nil {
		if se, ok := cerr.(*errs.Error); ok {
			slog.Error("check failed", "kind", se.Kind, "file", se.Filename, "line", se.Line, "msg", se.Message)
			for _, fct := range se.Facts {
				slog.Debug("fact in scope", "fact", fct)
			}
			return exitCheckFailed
		}
		slog.Error("check failed", "err", cerr)
		return exitUsageOrParse
	}

	fmt.Fprintf(os.Stdout, "ok: %d file(s) checked\n", len(files))
	return exitOK
}

// buildResolver wires a doublestar-globbing resolver.Resolver behind a
// usecache-backed, per-path memoizing ResolveUse callback.
func buildResolver(lim config.Limits) (sema.ResolveUse, error) {
	if len(lim.SearchRoots) == 0 {
		return func(path string) ([]byte, error) {
			return nil, fmt.Errorf("no search roots configured, cannot resolve %q", path)
		}, nil
	}
	r := resolver.New(lim.SearchRoots)
	cache, err := usecache.Open(lim.CachePath)
	if err != nil {
		return nil, err
	}
	cached := usecache.NewResolver(cache, r.Resolve)
	return cached.Resolve, nil
}

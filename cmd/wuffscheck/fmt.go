package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wuffscheck/wuffscheck/internal/render"
	t "github.com/wuffscheck/wuffscheck/internal/token"
)

func newFmtCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "fmt <files...>",
		Short: "Re-render one or more files to their canonical form",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rootExitCode = runFmt(args, write)
			if rootExitCode == exitUsageOrParse {
				return fail("one or more files could not be tokenized")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the rendered output back to each file instead of stdout")
	return cmd
}

func runFmt(paths []string, write bool) int {
	for _, path := range paths {
		tm := &t.Map{}
		src, err := os.ReadFile(path)
		if err != nil {
			slog.Error("read file", "path", path, "err", err)
			return exitUsageOrParse
		}
		tokens, comments, terr := t.Tokenize(tm, path, src)
		if terr != nil {
			slog.Error("tokenize", "path", path, "err", terr)
			return exitUsageOrParse
		}

		var buf bytes.Buffer
		if err := render.Render(&buf, tm, tokens, comments); err != nil {
			slog.Error("render", "path", path, "err", err)
			return exitUsageOrParse
		}

		if write {
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				slog.Error("write file", "path", path, "err", err)
				return exitUsageOrParse
			}
			continue
		}
		fmt.Fprint(os.Stdout, buf.String())
	}
	return exitOK
}

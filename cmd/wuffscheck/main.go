// Command wuffscheck is the CLI driver over internal/sema and
// internal/render: "check" runs the full semantic-checking pipeline
// over one or more source files, and "fmt" re-renders a file to its
// canonical form.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes, consistent across both subcommands: 0 means every file
// checked (or rendered) clean, 1 means the checker reported a
// structured failure against otherwise well-formed input, 2 means the
// input couldn't even be tokenized/parsed, or the CLI itself was
// misused.
const (
	exitOK           = 0
	exitCheckFailed  = 1
	exitUsageOrParse = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return exitUsageOrParse
	}
	return rootExitCode
}

// rootExitCode is set by whichever subcommand ran, since cobra's
// RunE error return can't itself distinguish "usage error" (2) from
// "ran fine, but found problems" (1) without a second signal.
var rootExitCode = exitOK

func newRootCmd() *cobra.Command {
	var envPath string
	var verbose bool

	root := &cobra.Command{
		Use:          "wuffscheck",
		Short:        "Semantic checker for a memory-safe systems DSL",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&envPath, "env", "wuffscheck.env", "optional .env-style config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cobra.OnInitialize(func() {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	})

	root.AddCommand(newCheckCmd(&envPath), newFmtCmd())
	return root
}

func fail(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

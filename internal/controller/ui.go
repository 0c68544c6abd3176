// Package controller renders query progress and results for the CLI.
package controller

import (
	"context"
	"io"
	"iter"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "jumpscan.dev/pkg/jumpscan/internal/model"
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	task string
}

// WithTask names the work shown while the UI is running.
func WithTask(task string) StartOption {
	return func(c *StartConfig) {
		c.task = task
	}
}

// UI defines how progress and results are presented.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	DisplayProgress(ctx context.Context, task string, read, total int64)
	DisplayMatches(ctx context.Context, results []m.MatchResult) error
	DisplayCollection(ctx context.Context, result m.MultiIDResult) error
	DisplayIndex(ctx context.Context, entries iter.Seq2[m.IndexEntry, error], stats m.ScanStats) error
	DisplayDocument(ctx context.Context, info m.DocumentInfo) error
	DisplayDecompression(ctx context.Context, src, dst m.Path, written int64) error
}

// NewUI returns a TUI when running on a terminal and a SimpleUI otherwise.
func NewUI(cmd *cobra.Command, isTTY bool, opts OutputOptions) (UI, error) {
	if isTTY {
		return NewTUI(cmd, cmd.ErrOrStderr(), opts)
	}

	return NewSimpleUI(cmd, opts)
}

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

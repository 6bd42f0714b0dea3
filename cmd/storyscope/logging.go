package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	slogctx "github.com/veqryn/slog-context"
)

// newLogger attaches a tint logger writing to w to ctx. Colour is enabled
// only when w is a terminal.
func newLogger(ctx context.Context, w io.Writer, verbose bool) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
	}

	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	})
	return slogctx.NewCtx(ctx, slog.New(handler))
}

package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	slogctx "github.com/veqryn/slog-context"

	"github.com/jward/storyscope"
	"github.com/jward/storyscope/internal/watch"
)

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Rebuild fragments as documentation and companion files change",
	Long:  "Builds every documentation file once, then watches the tree and rebuilds the affected documentation file whenever it or its companion changes. Removed documentation files are dropped from the cache.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", watch.DefaultDebounce, "quiet period before a change is rebuilt")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("watch", err)
	}
	s, err := openSession(ctx, targetDir)
	if err != nil {
		return outputError("watch", err)
	}
	defer s.Close()

	r, err := newRebuilder(targetDir, s)
	if err != nil {
		return outputError("watch", err)
	}

	builds, err := s.engine.BuildDirectory(ctx, targetDir, s.config.Documentation, s.config.Exclude)
	if err != nil {
		slogctx.Warn(ctx, "initial build incomplete", "err", err)
	}
	slogctx.Info(ctx, "watching", "root", targetDir, "documentation_files", len(builds))

	w, err := watch.New(targetDir, s.config.Exclude, watch.WithDebounce(flagDebounce), watch.WithFilter(r.relevant))
	if err != nil {
		return outputError("watch", err)
	}
	return w.Run(ctx, r.handle)
}

// rebuilder maps file events to documentation rebuilds.
type rebuilder struct {
	root    string
	engine  *storyscope.Engine
	matcher *storyscope.Matcher
}

func newRebuilder(root string, s *session) (*rebuilder, error) {
	m, err := storyscope.NewMatcher(s.config.Documentation, s.config.Exclude)
	if err != nil {
		return nil, err
	}
	return &rebuilder{root: root, engine: s.engine, matcher: m}, nil
}

func (r *rebuilder) isDocumentation(path string) bool {
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		return false
	}
	return r.matcher.Match(filepath.ToSlash(rel))
}

func (r *rebuilder) relevant(path string) bool {
	return r.isDocumentation(path) || r.engine.IsCompanion(path)
}

func (r *rebuilder) handle(ctx context.Context, ev watch.Event) {
	switch {
	case r.isDocumentation(ev.Path):
		if ev.Removed {
			r.forget(ctx, ev.Path)
			return
		}
		r.build(ctx, ev.Path)
	case r.engine.IsCompanion(ev.Path):
		for _, doc := range r.siblingDocs(ev.Path) {
			r.build(ctx, doc)
		}
	}
}

// siblingDocs returns the documentation files sharing a companion's
// directory.
func (r *rebuilder) siblingDocs(companion string) []string {
	dir := filepath.Dir(companion)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var docs []string
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if !e.IsDir() && r.isDocumentation(p) {
			docs = append(docs, p)
		}
	}
	return docs
}

func (r *rebuilder) build(ctx context.Context, doc string) {
	start := time.Now()
	b, err := r.engine.BuildFile(ctx, doc, "")
	if err != nil {
		slogctx.Error(ctx, "rebuild failed", "documentation", doc, "err", err)
		return
	}
	slogctx.Info(ctx, "rebuilt",
		"documentation", doc,
		"examples", len(b.Fragment.Examples),
		"cached", b.CacheHit,
		"took", time.Since(start).Round(time.Microsecond),
	)
}

func (r *rebuilder) forget(ctx context.Context, doc string) {
	c := r.engine.Cache()
	if c == nil {
		return
	}
	if err := c.Forget(doc); err != nil {
		slogctx.Error(ctx, "forget failed", "documentation", doc, "err", err)
		return
	}
	slogctx.Info(ctx, "removed", "documentation", doc)
}

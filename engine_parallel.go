package storyscope

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	slogctx "github.com/veqryn/slog-context"
)

// buildItem holds everything a transform worker needs for one documentation
// file.
type buildItem struct {
	index int
	key   string
	in    Input
}

// BuildFiles builds documentation files using a three-phase pipeline:
//
//	Phase A (serial):   Read companions, serve cache hits.
//	Phase B (parallel): Parse and transform the rest via a worker pool.
//	Phase C (serial):   Write new fragments to the cache.
//
// Errors on individual files are logged and collected; processing continues.
// Builds are returned in input order, failed files omitted. The unit import
// path of every file is "./index". A parser installed with WithSyntaxParser
// must be safe for concurrent use.
func (e *Engine) BuildFiles(ctx context.Context, docs []string) ([]*Build, error) {
	builds := make([]*Build, len(docs))
	var errs []error
	fail := func(doc string, err error) {
		slogctx.Error(ctx, "build failed", "documentation", doc, "error", err)
		errs = append(errs, fmt.Errorf("build %s: %w", doc, err))
	}

	// ---- Phase A: Serial input preparation ----
	var items []buildItem
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in, err := e.Input(doc, "./index")
		if err != nil {
			fail(doc, err)
			continue
		}
		if in.Companion == nil {
			slogctx.Debug(ctx, "no companion file", "documentation", doc)
		}
		key, f, err := e.lookup(ctx, in)
		if err != nil {
			fail(doc, err)
			continue
		}
		if f != nil {
			builds[i] = &Build{DocumentationPath: doc, CompanionPath: in.CompanionPath, Fragment: f, CacheHit: true}
			continue
		}
		items = append(items, buildItem{index: i, key: key, in: in})
	}

	// ---- Phase B: Parallel transform ----
	type result struct {
		item buildItem
		f    *Fragment
		err  error
	}
	results := make([]result, 0, len(items))
	if len(items) > 0 {
		numWorkers := e.workers
		if numWorkers <= 0 {
			numWorkers = runtime.NumCPU()
		}
		numWorkers = min(numWorkers, len(items))

		workCh := make(chan buildItem, len(items))
		for _, item := range items {
			workCh <- item
		}
		close(workCh)

		resultCh := make(chan result, len(items))
		var wg sync.WaitGroup
		for range numWorkers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for item := range workCh {
					f, err := e.transformer.Transform(ctx, item.in)
					resultCh <- result{item: item, f: f, err: err}
				}
			}()
		}
		go func() {
			wg.Wait()
			close(resultCh)
		}()
		for res := range resultCh {
			results = append(results, res)
		}
	}

	// ---- Phase C: Serial commit ----
	for _, res := range results {
		doc := res.item.in.DocumentationPath
		if res.err != nil {
			fail(doc, res.err)
			continue
		}
		if err := e.save(res.item.key, res.item.in, res.f); err != nil {
			fail(doc, err)
			continue
		}
		builds[res.item.index] = &Build{DocumentationPath: doc, CompanionPath: res.item.in.CompanionPath, Fragment: res.f}
	}

	out := make([]*Build, 0, len(builds))
	for _, b := range builds {
		if b != nil {
			out = append(out, b)
		}
	}
	if len(errs) > 0 {
		return out, fmt.Errorf("building had %d error(s): %w", len(errs), errs[0])
	}
	return out, nil
}

package arbor

import (
	"bytes"
	"context"
	"fmt"
	goruntime "runtime"
	"sync"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/jward/arbor/internal/model"
	"github.com/jward/arbor/internal/syntax"
)

// indexFilesParallel indexes files using a three-phase pipeline:
//
//	Phase A (serial):   Staleness check against the registry.
//	Phase B (parallel): Read and parse stale files on a bounded worker pool.
//	Phase C (serial):   Build summaries from the parsed trees in path order,
//	                    compute blast radius.
//
// Summaries are only ever built in phase C, so the registry stays
// single-threaded. A file whose parse failed in phase B, or that changed
// between phases, is parsed again in phase C and reports its own error.
func (e *Engine) indexFilesParallel(ctx context.Context, paths []string) ([]*model.FileSummary, []error) {
	var errs []error

	// ---- Phase A: Serial staleness check ----
	var stale []string
	for _, path := range paths {
		ok, err := e.reg.Stale(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
		}
		if !ok {
			e.progress.Add(1)
			continue
		}
		stale = append(stale, e.reg.Key(path))
	}
	if len(stale) == 0 {
		return nil, errs
	}

	// ---- Phase B: Parallel parse ----
	cache := newTreeCache(e.parser)
	defer cache.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(goruntime.NumCPU())
	for _, path := range stale {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := e.fsys.ReadFile(path)
			if err != nil {
				return nil
			}
			tree, err := e.parser.Parse(gctx, src)
			if err != nil {
				return nil
			}
			cache.put(tree)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, append(errs, err)
	}

	// ---- Phase C: Serial build ----
	var loaded []*model.FileSummary
	for _, path := range stale {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		f, err := e.indexFile(ctx, path, cache)
		e.progress.Add(1)
		if err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
			continue
		}
		if f != nil {
			loaded = append(loaded, f)
		}
	}
	e.logger.Debug("index.parallel", "stale", len(stale), "reparsed", cache.misses)
	return loaded, errs
}

// treeCache hands out trees parsed ahead of time, keyed by the xxh3 hash of
// their source. It is a syntax.Parser: a source it holds no tree for is
// parsed by the fallback parser.
type treeCache struct {
	mu       sync.Mutex
	trees    map[uint64]*syntax.Tree
	fallback syntax.Parser
	misses   int
}

func newTreeCache(fallback syntax.Parser) *treeCache {
	return &treeCache{trees: make(map[uint64]*syntax.Tree), fallback: fallback}
}

func (c *treeCache) put(t *syntax.Tree) {
	key := xxh3.Hash(t.Source())
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.trees[key]; dup {
		// Identical sources: the second file reparses on its own.
		t.Close()
		return
	}
	c.trees[key] = t
}

// Parse returns the cached tree for src, handing ownership to the caller.
func (c *treeCache) Parse(ctx context.Context, src []byte) (*syntax.Tree, error) {
	key := xxh3.Hash(src)
	c.mu.Lock()
	t, ok := c.trees[key]
	if ok && bytes.Equal(t.Source(), src) {
		delete(c.trees, key)
		c.mu.Unlock()
		return t, nil
	}
	c.misses++
	c.mu.Unlock()
	return c.fallback.Parse(ctx, src)
}

// Close releases every tree nobody claimed.
func (c *treeCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, t := range c.trees {
		t.Close()
		delete(c.trees, k)
	}
}

package generate

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	inlet "github.com/Paranoid-AF/inlet"
	"github.com/Paranoid-AF/inlet/index"
	"github.com/Paranoid-AF/inlet/snippet"
)

// Gatherer collects context for completion requests. It owns the workspace
// index and the recently edited ranges.
type Gatherer struct {
	indexer   *index.Indexer
	retriever *index.Retriever
	recent    *snippet.RecentTracker
	collector *snippet.Collector
	cachePath string

	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	closeOnce sync.Once
}

// NewGatherer creates a new context gatherer.
// embedder may be nil to disable semantic search; symbol lookups still work.
func NewGatherer(embedder index.TextEmbedder, cfg *inlet.Config) *Gatherer {
	var maxFiles, ttlMinutes int
	if cfg != nil {
		maxFiles = cfg.Embedding.MaxFiles
		ttlMinutes = cfg.Embedding.TTLMinutes
	}
	if ttlMinutes == 0 {
		ttlMinutes = 60
	}

	idx := index.NewIndexer(embedder, maxFiles, time.Duration(ttlMinutes)*time.Minute)
	recent := snippet.NewRecentTracker(0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	g := &Gatherer{
		indexer:   idx,
		retriever: index.NewRetriever(idx),
		recent:    recent,
		collector: snippet.NewCollector(recent),
		ctx:       ctx,
		cancel:    cancel,
	}

	if embedder != nil {
		g.cachePath = inlet.IndexCachePath()
		if err := idx.LoadCache(g.cachePath, embedder.Model()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to load index cache", "path", g.cachePath, "error", err)
		}
	}
	return g
}

// AddRoots registers workspace directories. The first roots start the
// background refresh loop; later ones are indexed right away.
func (g *Gatherer) AddRoots(dirs []string) {
	added := false
	for _, dir := range dirs {
		if dir != "" && g.indexer.AddRoot(dir) {
			added = true
		}
	}
	if !added {
		return
	}

	started := false
	g.startOnce.Do(func() {
		started = true
		go g.indexer.StartRefreshLoop()
	})
	if !started {
		go func() {
			if err := g.indexer.IndexWorkspace(g.ctx); err != nil && g.ctx.Err() == nil {
				slog.Error("indexing new workspace roots", "error", err)
			}
		}()
	}
}

// WorkspaceDirs implements snippet.IDE.
func (g *Gatherer) WorkspaceDirs(ctx context.Context) ([]string, error) {
	return g.indexer.Roots(), nil
}

// RecordEdit remembers an edited range for the recently edited source.
func (g *Gatherer) RecordEdit(edit inlet.EditRequest) {
	g.recent.Record(edit)
}

// Gather collects the snippet payload for a request.
func (g *Gatherer) Gather(ctx context.Context, helper *inlet.HelperVars) snippet.Payload {
	g.AddRoots(helper.WorkspaceDirs)

	return g.collector.Collect(ctx, helper, g, g.retriever.Definitions, g.retriever)
}

// Close saves the index cache and stops background work.
func (g *Gatherer) Close() {
	g.closeOnce.Do(func() {
		g.cancel()
		g.indexer.Close()
		if g.cachePath != "" && g.indexer.Semantic() {
			if err := g.indexer.SaveCache(g.cachePath, g.indexer.EmbeddingModel()); err != nil {
				slog.Warn("failed to save index cache", "path", g.cachePath, "error", err)
			}
		}
		g.recent.Close()
	})
}

package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/coder/hnsw"

	inlet "github.com/Paranoid-AF/inlet"
)

const (
	indexBatchSize  = 32
	maxFileBytes    = 256 << 10
	defaultMaxFiles = 2000
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git": true, ".hg": true, ".svn": true, "node_modules": true,
	"vendor": true, "target": true, "dist": true, "build": true,
	"__pycache__": true, ".venv": true, "venv": true, ".cache": true,
}

// Indexer chunks workspace source files and keeps a symbol table and,
// when an embedder is configured, an HNSW graph of chunk embeddings.
type Indexer struct {
	embedder TextEmbedder
	maxFiles int
	ttl      time.Duration

	mu      sync.RWMutex
	roots   []string
	graph   *hnsw.Graph[string] // keyed by chunk ID
	stale   int                 // graph nodes whose chunk is gone
	chunks  map[string]Chunk    // id -> chunk
	byFile  map[string][]string // path -> chunk ids
	symbols map[string][]string // symbol -> chunk ids

	stopCh    chan struct{}
	initDone  chan struct{}
	initOnce  sync.Once
	closeOnce sync.Once
}

// NewIndexer creates a workspace indexer.
// If embedder is nil, semantic search is disabled (symbol lookups still work).
func NewIndexer(embedder TextEmbedder, maxFiles int, ttl time.Duration) *Indexer {
	if maxFiles <= 0 {
		maxFiles = defaultMaxFiles
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Indexer{
		embedder: embedder,
		maxFiles: maxFiles,
		ttl:      ttl,
		graph:    hnsw.NewGraph[string](),
		chunks:   make(map[string]Chunk),
		byFile:   make(map[string][]string),
		symbols:  make(map[string][]string),
		stopCh:   make(chan struct{}),
		initDone: make(chan struct{}),
	}
}

// AddRoot registers a workspace directory. It reports whether the root was new.
func (idx *Indexer) AddRoot(dir string) bool {
	dir = filepath.Clean(dir)
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if slices.Contains(idx.roots, dir) {
		return false
	}
	idx.roots = append(idx.roots, dir)
	return true
}

// Roots returns the registered workspace directories.
func (idx *Indexer) Roots() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return slices.Clone(idx.roots)
}

// IndexWorkspace walks every root, re-chunks changed files and embeds
// chunks that are not in the graph yet.
func (idx *Indexer) IndexWorkspace(ctx context.Context) error {
	files := idx.listFiles(ctx)
	var fresh []Chunk
	for _, path := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		fresh = append(fresh, idx.replaceFile(path, string(data))...)
	}
	idx.dropMissing(files)

	if idx.embedder == nil || len(fresh) == 0 {
		return nil
	}
	return idx.embed(ctx, fresh)
}

// IndexFile re-chunks one file, embedding its new chunks.
func (idx *Indexer) IndexFile(ctx context.Context, path, content string) error {
	fresh := idx.replaceFile(path, content)
	if idx.embedder == nil || len(fresh) == 0 {
		return nil
	}
	return idx.embed(ctx, fresh)
}

// listFiles returns known source files under the roots, capped at maxFiles.
func (idx *Indexer) listFiles(ctx context.Context) []string {
	var files []string
	for _, root := range idx.Roots() {
		filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return filepath.SkipAll
			}
			if err != nil {
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				name := d.Name()
				if path != root && (skipDirs[name] || strings.HasPrefix(name, ".")) {
					return filepath.SkipDir
				}
				return nil
			}
			if len(files) >= idx.maxFiles {
				return filepath.SkipAll
			}
			if !inlet.KnownSourceFile(path) {
				return nil
			}
			if info, err := d.Info(); err != nil || info.Size() > maxFileBytes {
				return nil
			}
			files = append(files, path)
			return nil
		})
	}
	return files
}

// replaceFile swaps the chunks of path and returns the chunks that have no
// embedding yet.
func (idx *Indexer) replaceFile(path, content string) []Chunk {
	chunks := ChunkFile(path, content)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeFileLocked(path)
	ids := make([]string, 0, len(chunks))
	var fresh []Chunk
	for _, c := range chunks {
		if _, dup := idx.chunks[c.ID]; dup {
			continue
		}
		idx.chunks[c.ID] = c
		ids = append(ids, c.ID)
		for _, sym := range c.Symbols {
			idx.symbols[sym] = append(idx.symbols[sym], c.ID)
		}
		if _, ok := idx.graph.Lookup(c.ID); ok {
			idx.stale--
		} else {
			fresh = append(fresh, c)
		}
	}
	idx.byFile[path] = ids
	idx.compactLocked()
	return fresh
}

func (idx *Indexer) removeFileLocked(path string) {
	for _, id := range idx.byFile[path] {
		c, ok := idx.chunks[id]
		if !ok {
			continue
		}
		delete(idx.chunks, id)
		for _, sym := range c.Symbols {
			idx.symbols[sym] = slices.DeleteFunc(idx.symbols[sym], func(s string) bool { return s == id })
			if len(idx.symbols[sym]) == 0 {
				delete(idx.symbols, sym)
			}
		}
		if _, ok := idx.graph.Lookup(id); ok {
			idx.stale++
		}
	}
	delete(idx.byFile, path)
}

func (idx *Indexer) dropMissing(files []string) {
	keep := make(map[string]bool, len(files))
	for _, f := range files {
		keep[f] = true
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for path := range idx.byFile {
		if !keep[path] {
			idx.removeFileLocked(path)
		}
	}
	idx.compactLocked()
}

// compactLocked rebuilds the graph once stale nodes outnumber live ones.
func (idx *Indexer) compactLocked() {
	if idx.stale <= 0 || idx.stale*2 <= idx.graph.Len() {
		return
	}
	graph := hnsw.NewGraph[string]()
	var nodes []hnsw.Node[string]
	for id := range idx.chunks {
		if vec, ok := idx.graph.Lookup(id); ok {
			nodes = append(nodes, hnsw.MakeNode(id, vec))
		}
	}
	if len(nodes) > 0 {
		graph.Add(nodes...)
	}
	idx.graph = graph
	idx.stale = 0
}

func (idx *Indexer) embed(ctx context.Context, chunks []Chunk) error {
	var nodes []hnsw.Node[string]
	for i := 0; i < len(chunks); i += indexBatchSize {
		end := min(i+indexBatchSize, len(chunks))
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = embeddingText(c)
		}
		vectors, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("batch embed error", "error", err)
			continue
		}
		for j, c := range batch {
			nodes = append(nodes, hnsw.MakeNode(c.ID, vectors[j]))
		}
	}

	// Single graph insertion under one write lock
	idx.mu.Lock()
	defer idx.mu.Unlock()
	nodes = slices.DeleteFunc(nodes, func(n hnsw.Node[string]) bool {
		_, exists := idx.graph.Lookup(n.Key)
		_, live := idx.chunks[n.Key]
		return exists || !live
	})
	if len(nodes) > 0 {
		idx.graph.Add(nodes...)
	}
	return nil
}

func embeddingText(c Chunk) string {
	return c.Filepath + "\n" + c.Content
}

// StartRefreshLoop runs IndexWorkspace immediately, then re-indexes every TTL interval.
// It blocks until Close() is called.
func (idx *Indexer) StartRefreshLoop() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-idx.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := idx.IndexWorkspace(ctx); err != nil {
		slog.Error("initial indexing error", "error", err)
	}
	idx.initOnce.Do(func() { close(idx.initDone) })

	ticker := time.NewTicker(idx.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-idx.stopCh:
			return
		case <-ticker.C:
			if err := idx.IndexWorkspace(ctx); err != nil {
				slog.Error("periodic re-indexing error", "error", err)
			}
		}
	}
}

// InitDone returns a channel that is closed after the first IndexWorkspace call completes.
func (idx *Indexer) InitDone() <-chan struct{} {
	return idx.initDone
}

// Semantic reports whether similarity search is available.
func (idx *Indexer) Semantic() bool {
	if idx.embedder == nil {
		return false
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.graph.Len() > 0
}

// SearchSimilar embeds the query and returns up to topK live chunks nearest to it.
func (idx *Indexer) SearchSimilar(ctx context.Context, query string, topK int) ([]Chunk, error) {
	if idx.embedder == nil || topK <= 0 {
		return nil, nil
	}

	queryVec, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph.Len() == 0 {
		return nil, nil
	}

	neighbors := idx.graph.Search(queryVec, topK+idx.stale)
	out := make([]Chunk, 0, topK)
	for _, n := range neighbors {
		c, ok := idx.chunks[n.Key]
		if !ok {
			continue
		}
		out = append(out, c)
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

// ChunksDefining returns the chunks that declare name.
func (idx *Indexer) ChunksDefining(name string) []Chunk {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := idx.symbols[name]
	out := make([]Chunk, 0, len(ids))
	for _, id := range ids {
		out = append(out, idx.chunks[id])
	}
	return out
}

// FileChunks returns the chunks of path in line order.
func (idx *Indexer) FileChunks(path string) []Chunk {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := idx.byFile[path]
	out := make([]Chunk, 0, len(ids))
	for _, id := range ids {
		out = append(out, idx.chunks[id])
	}
	return out
}

// Len returns the number of indexed chunks.
func (idx *Indexer) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

// Close stops the refresh loop and releases resources held by the indexer.
func (idx *Indexer) Close() {
	idx.closeOnce.Do(func() {
		close(idx.stopCh)
	})
}

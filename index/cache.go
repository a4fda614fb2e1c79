package index

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/coder/hnsw"
)

type cacheFile struct {
	Model   string       `json:"model"`
	Entries []cacheEntry `json:"entries"`
}

type cacheEntry struct {
	Chunk     Chunk     `json:"chunk"`
	Embedding []float32 `json:"embedding"`
}

// EmbeddingModel returns the model name used by the embedder, or empty if disabled.
func (idx *Indexer) EmbeddingModel() string {
	if idx.embedder == nil {
		return ""
	}
	return idx.embedder.Model()
}

// SaveCache writes the embedded chunks to disk.
func (idx *Indexer) SaveCache(path string, model string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := make([]cacheEntry, 0, len(idx.chunks))
	for id, c := range idx.chunks {
		vec, ok := idx.graph.Lookup(id)
		if !ok {
			continue
		}
		entries = append(entries, cacheEntry{Chunk: c, Embedding: vec})
	}

	data, err := json.Marshal(cacheFile{
		Model:   model,
		Entries: entries,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadCache loads a previously saved index from disk.
// If the model doesn't match, the cache is silently skipped. Chunks of
// files that changed since are dropped by the next IndexWorkspace.
func (idx *Indexer) LoadCache(path string, model string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return err
	}

	if cf.Model != model {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	nodes := make([]hnsw.Node[string], 0, len(cf.Entries))
	for _, e := range cf.Entries {
		c := e.Chunk
		if _, exists := idx.chunks[c.ID]; exists {
			continue
		}
		if _, exists := idx.graph.Lookup(c.ID); exists {
			continue
		}
		nodes = append(nodes, hnsw.MakeNode(c.ID, e.Embedding))
		idx.chunks[c.ID] = c
		idx.byFile[c.Filepath] = append(idx.byFile[c.Filepath], c.ID)
		for _, sym := range c.Symbols {
			idx.symbols[sym] = append(idx.symbols[sym], c.ID)
		}
	}

	if len(nodes) > 0 {
		idx.graph.Add(nodes...)
		// Mark init as done so searches can use cached data immediately,
		// without waiting for the refresh loop's first IndexWorkspace() call.
		idx.initOnce.Do(func() { close(idx.initDone) })
	}

	return nil
}

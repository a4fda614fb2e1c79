package index

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	inlet "github.com/Paranoid-AF/inlet"
	"github.com/Paranoid-AF/inlet/snippet"
)

const (
	rootPathTopK        = 5
	rootPathQueryLines  = 10
	importsPerName      = 2
	maxImportSnippets   = 12
	maxDefinitionChunks = 3
)

var _ snippet.ContextRetrieval = (*Retriever)(nil)

// Retriever answers context lookups from an Indexer.
type Retriever struct {
	idx *Indexer
}

// NewRetriever creates a retriever over idx.
func NewRetriever(idx *Indexer) *Retriever {
	return &Retriever{idx: idx}
}

// RootPathSnippets returns chunks related to the code before the caret.
// With embeddings it runs a similarity search over the last prefix lines;
// otherwise it looks up definitions of identifiers on the caret line in
// files along the path from the workspace root to the current file.
func (r *Retriever) RootPathSnippets(ctx context.Context, helper *inlet.HelperVars) ([]snippet.Snippet, error) {
	if r.idx.Semantic() {
		query := lastLines(helper.PrunedPrefix, rootPathQueryLines)
		if strings.TrimSpace(query) == "" {
			return nil, nil
		}
		chunks, err := r.idx.SearchSimilar(ctx, query, rootPathTopK+1)
		if err != nil {
			return nil, err
		}
		chunks = slices.DeleteFunc(chunks, func(c Chunk) bool { return c.Filepath == helper.Filepath })
		return toSnippets(chunks[:min(len(chunks), rootPathTopK)]), nil
	}

	caretLine := lastLines(helper.FullPrefix, 1) + helper.CaretLineSuffix()
	dir := filepath.Dir(helper.Filepath)
	var out []Chunk
	seen := make(map[string]bool)
	for _, name := range Identifiers(caretLine) {
		for _, c := range r.idx.ChunksDefining(name) {
			if seen[c.ID] || c.Filepath == helper.Filepath || !onRootPath(filepath.Dir(c.Filepath), dir, helper.WorkspaceDirs) {
				continue
			}
			seen[c.ID] = true
			out = append(out, c)
			if len(out) == rootPathTopK {
				return toSnippets(out), nil
			}
		}
	}
	return toSnippets(out), nil
}

// ImportDefinitionSnippets returns the definitions of names imported by the current file.
func (r *Retriever) ImportDefinitionSnippets(ctx context.Context, helper *inlet.HelperVars) ([]snippet.Snippet, error) {
	var out []Chunk
	seen := make(map[string]bool)
	for _, imp := range ParseImports(helper.Language, helper.Contents) {
		hint := imp.PathHint()
		for _, name := range imp.Names {
			if ctx.Err() != nil {
				return toSnippets(out), ctx.Err()
			}
			for _, c := range r.pickDefinitions(name, hint, helper.Filepath, importsPerName) {
				if seen[c.ID] {
					continue
				}
				seen[c.ID] = true
				out = append(out, c)
			}
			if len(out) >= maxImportSnippets {
				return toSnippets(out[:maxImportSnippets]), nil
			}
		}
	}
	return toSnippets(out), nil
}

// Definitions resolves the identifier under the cursor to the chunks that
// declare it. It has the shape of snippet.DefinitionsFunc.
func (r *Retriever) Definitions(ctx context.Context, path, fullText string, cursorOffset int, ide snippet.IDE, lang inlet.Language) ([]snippet.Snippet, error) {
	name := IdentifierAt(fullText, cursorOffset)
	if name == "" && cursorOffset > 0 {
		name = IdentifierAt(fullText, cursorOffset-1)
	}
	if name == "" {
		return nil, nil
	}
	return toSnippets(r.pickDefinitions(name, "", path, maxDefinitionChunks)), nil
}

// pickDefinitions returns up to limit chunks defining name outside of
// exclude, those whose path contains hint first.
func (r *Retriever) pickDefinitions(name, hint, exclude string, limit int) []Chunk {
	chunks := slices.DeleteFunc(r.idx.ChunksDefining(name), func(c Chunk) bool { return c.Filepath == exclude })
	if hint != "" {
		slices.SortStableFunc(chunks, func(a, b Chunk) int {
			am, bm := hintMatches(a.Filepath, hint), hintMatches(b.Filepath, hint)
			switch {
			case am && !bm:
				return -1
			case bm && !am:
				return 1
			}
			return 0
		})
	}
	return chunks[:min(len(chunks), limit)]
}

func hintMatches(path, hint string) bool {
	p := filepath.ToSlash(strings.TrimSuffix(path, filepath.Ext(path)))
	return strings.HasSuffix(p, hint) || strings.Contains(p, hint+"/")
}

// onRootPath reports whether dir is the current file's directory or one of
// its ancestors inside a workspace root.
func onRootPath(dir, current string, roots []string) bool {
	if dir != current && !strings.HasPrefix(current, dir+string(filepath.Separator)) {
		return false
	}
	if len(roots) == 0 {
		return true
	}
	for _, root := range roots {
		root = filepath.Clean(root)
		if dir == root || strings.HasPrefix(dir, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func toSnippets(chunks []Chunk) []snippet.Snippet {
	out := make([]snippet.Snippet, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, snippet.Code(c.Filepath, c.Content, c.StartLine, c.EndLine))
	}
	return out
}

package index

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"slices"
	"strings"

	inlet "github.com/Paranoid-AF/inlet"
)

const (
	maxChunkLines = 40
	minChunkLines = 8
)

// Chunk is a span of a source file stored in the index.
type Chunk struct {
	ID        string   `json:"id"`
	Filepath  string   `json:"filepath"`
	StartLine int      `json:"start_line"`
	EndLine   int      `json:"end_line"`
	Content   string   `json:"content"`
	Symbols   []string `json:"symbols,omitempty"`
}

// ChunkFile splits content into chunks of at most maxChunkLines lines,
// preferring to break on blank lines once a chunk has minChunkLines.
func ChunkFile(path, content string) []Chunk {
	lang := inlet.DetectLanguage(path, "")
	lines := strings.Split(content, "\n")

	var chunks []Chunk
	start := 0
	flush := func(end int) {
		body := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(body) != "" {
			chunks = append(chunks, Chunk{
				ID:        chunkID(path, body),
				Filepath:  path,
				StartLine: start,
				EndLine:   end - 1,
				Content:   body,
				Symbols:   DefinedSymbols(lang, body),
			})
		}
		start = end
	}

	for i, line := range lines {
		size := i - start
		switch {
		case size >= maxChunkLines:
			flush(i)
		case strings.TrimSpace(line) == "" && size >= minChunkLines:
			flush(i)
		}
	}
	flush(len(lines))
	return chunks
}

func chunkID(path, body string) string {
	h := sha256.Sum256([]byte(path + "\x00" + body))
	return fmt.Sprintf("%x", h[:16])
}

var symbolPatterns = map[string][]*regexp.Regexp{
	"Go": {
		regexp.MustCompile(`(?m)^func\s+(?:\([^)]*\)\s*)?([A-Za-z_]\w*)`),
		regexp.MustCompile(`(?m)^(?:type|var|const)\s+([A-Za-z_]\w*)`),
		regexp.MustCompile(`(?m)^\t([A-Za-z_]\w*)\s+(?:struct|interface)\b`),
	},
	"Python": {
		regexp.MustCompile(`(?m)^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)`),
		regexp.MustCompile(`(?m)^\s*class\s+([A-Za-z_]\w*)`),
		regexp.MustCompile(`(?m)^([A-Za-z_]\w*)\s*(?::[^=\n]*)?=[^=]`),
	},
	"JavaScript": {
		regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\*?\s+([A-Za-z_$][\w$]*)`),
		regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:default\s+)?class\s+([A-Za-z_$][\w$]*)`),
		regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=`),
	},
	"TypeScript": {
		regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\*?\s+([A-Za-z_$][\w$]*)`),
		regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)`),
		regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*[:=]`),
		regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:interface|type|enum)\s+([A-Za-z_$][\w$]*)`),
	},
	"Rust": {
		regexp.MustCompile(`(?m)^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?(?:unsafe\s+)?fn\s+([A-Za-z_]\w*)`),
		regexp.MustCompile(`(?m)^\s*(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|trait|type|mod|const|static)\s+([A-Za-z_]\w*)`),
	},
	"Java": {
		regexp.MustCompile(`(?m)^\s*(?:(?:public|private|protected|abstract|final|static)\s+)*(?:class|interface|enum|record)\s+([A-Za-z_]\w*)`),
		regexp.MustCompile(`(?m)^\s*(?:(?:public|private|protected|abstract|final|static|synchronized)\s+)+[\w<>\[\], ]+\s+([A-Za-z_]\w*)\s*\(`),
	},
}

var genericSymbolPattern = regexp.MustCompile(`(?m)^\s*(?:func|function|def|fn|class|struct|interface|type)\s+([A-Za-z_]\w*)`)

// DefinedSymbols returns the names declared in body, in order of appearance.
func DefinedSymbols(lang inlet.Language, body string) []string {
	patterns, ok := symbolPatterns[lang.Name]
	if !ok {
		patterns = []*regexp.Regexp{genericSymbolPattern}
	}
	type hit struct {
		pos  int
		name string
	}
	var hits []hit
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatchIndex(body, -1) {
			hits = append(hits, hit{pos: m[2], name: body[m[2]:m[3]]})
		}
	}
	slices.SortFunc(hits, func(a, b hit) int { return a.pos - b.pos })

	seen := make(map[string]bool)
	var out []string
	for _, h := range hits {
		if !seen[h.name] {
			seen[h.name] = true
			out = append(out, h.name)
		}
	}
	return out
}

var identPattern = regexp.MustCompile(`[A-Za-z_$][\w$]*`)

// Identifiers returns the distinct identifiers in text.
func Identifiers(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range identPattern.FindAllString(text, -1) {
		if len(id) < 2 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// IdentifierAt returns the identifier spanning offset in text.
func IdentifierAt(text string, offset int) string {
	if offset < 0 || offset > len(text) {
		return ""
	}
	isIdent := func(b byte) bool {
		return b == '_' || b == '$' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
	}
	start, end := offset, offset
	for start > 0 && isIdent(text[start-1]) {
		start--
	}
	for end < len(text) && isIdent(text[end]) {
		end++
	}
	id := text[start:end]
	if id == "" || id[0] >= '0' && id[0] <= '9' {
		return ""
	}
	return id
}

package snippet

import (
	"cmp"
	"hash/fnv"
	"math/rand/v2"
	"slices"
	"strings"

	inlet "github.com/Paranoid-AF/inlet"
	"github.com/Paranoid-AF/inlet/tokens"
)

const (
	// snippetTokenOverhead covers the header and separators a rendered
	// snippet adds on top of its content.
	snippetTokenOverhead = 10
	// maxSnippetBytes rejects snippets that would crowd out everything else.
	maxSnippetBytes = 16 << 10
)

// OutputChannelPrefix marks documents that are this program's own log output.
const OutputChannelPrefix = "output:extension-output-inlet"

// Source is a group of snippets sharing one priority. Lower ranks first.
type Source struct {
	Name     string
	Priority int
	Snippets []Snippet
}

// Ranked is a snippet tagged with the priority of its source.
type Ranked struct {
	Snippet  Snippet
	Priority int
	Source   string
}

// Prioritizer orders a Payload and fits it into the prompt token budget.
type Prioritizer struct {
	Counter tokens.Counter
	// Rand shuffles the base source. Nil seeds from the request so that
	// repeated identical requests pick the same snippets.
	Rand *rand.Rand
}

// NewPrioritizer creates a prioritizer counting with counter.
func NewPrioritizer(counter tokens.Counter) *Prioritizer {
	return &Prioritizer{Counter: counter}
}

// Prioritize returns the snippets that fit in the budget left after the
// caret window, highest priority first.
func (p *Prioritizer) Prioritize(helper *inlet.HelperVars, payload Payload) []Snippet {
	rng := p.Rand
	if rng == nil {
		seed := SeedFor(helper)
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}

	ranked := Rank(p.Sources(helper, payload, rng))
	ranked = slices.DeleteFunc(ranked, func(r Ranked) bool {
		return strings.HasPrefix(r.Snippet.Filepath, OutputChannelPrefix)
	})

	remaining := helper.Options.MaxPromptTokens - p.Counter.Count(helper.PrunedCaretWindow(), helper.Model)
	return p.fill(ranked, remaining, helper.Model)
}

// Sources builds the enabled priority groups. The base group concatenates
// root path, import and IDE definition snippets and is shuffled with rng.
func (p *Prioritizer) Sources(helper *inlet.HelperVars, payload Payload, rng *rand.Rand) []Source {
	window := helper.PrunedCaretWindow()
	var sources []Source

	if prio, ok := helper.Options.RecentlyEdited.Resolve(inlet.DefaultRecentlyEditedPriority); ok {
		sources = append(sources, Source{
			Name:     "recentlyEditedRanges",
			Priority: prio,
			Snippets: excludeCaretWindow(payload.RecentlyEdited, window),
		})
	}

	base := make([]Snippet, 0, len(payload.RootPath)+len(payload.ImportDefinitions)+len(payload.IDEDefinitions))
	base = append(base, payload.RootPath...)
	base = append(base, payload.ImportDefinitions...)
	base = append(base, payload.IDEDefinitions...)
	base = excludeCaretWindow(base, window)
	Shuffle(rng, base)

	sources = append(sources, Source{
		Name:     "base",
		Priority: helper.Options.ResolvedBasePriority(),
		Snippets: base,
	})
	return sources
}

// Rank flattens sources into one list ordered by priority. Snippets of
// equal priority keep their relative order.
func Rank(sources []Source) []Ranked {
	var ranked []Ranked
	for _, src := range sources {
		for _, s := range src.Snippets {
			ranked = append(ranked, Ranked{Snippet: s, Priority: src.Priority, Source: src.Name})
		}
	}
	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	return ranked
}

// fill greedily admits snippets in order. A snippet that does not fit is
// skipped and later, smaller ones may still be admitted.
func (p *Prioritizer) fill(ranked []Ranked, remaining int, model string) []Snippet {
	out := []Snippet{}
	for _, r := range ranked {
		if remaining <= 0 {
			break
		}
		if !Valid(r.Snippet) {
			continue
		}
		cost := p.Counter.Count(r.Snippet.Content, model) + snippetTokenOverhead
		if cost > remaining {
			continue
		}
		out = append(out, r.Snippet)
		remaining -= cost
	}
	return out
}

// Valid reports whether a snippet may be placed in a prompt.
func Valid(s Snippet) bool {
	if strings.TrimSpace(s.Content) == "" || len(s.Content) > maxSnippetBytes {
		return false
	}
	switch s.Kind {
	case KindCode:
		return s.Filepath != ""
	case KindClipboard, KindDiff:
		return true
	default:
		return false
	}
}

// excludeCaretWindow drops code snippets whose content already appears in
// the text around the caret.
func excludeCaretWindow(snippets []Snippet, window string) []Snippet {
	out := make([]Snippet, 0, len(snippets))
	for _, s := range snippets {
		if s.Kind == KindCode {
			content := strings.TrimSpace(s.Content)
			if content == "" || strings.Contains(window, content) {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

// Shuffle permutes s in place with a Fisher-Yates shuffle.
func Shuffle[T any](rng *rand.Rand, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// SeedFor derives a shuffle seed from the file and pruned prefix.
func SeedFor(helper *inlet.HelperVars) uint64 {
	h := fnv.New64a()
	h.Write([]byte(helper.Filepath))
	h.Write([]byte{0})
	h.Write([]byte(helper.PrunedPrefix))
	return h.Sum64()
}

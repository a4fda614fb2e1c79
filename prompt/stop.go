package prompt

import (
	"strings"

	inlet "github.com/Paranoid-AF/inlet"
)

var commonStops = []string{"\n\n\n", "```"}

// modelStops adds end-of-text markers some model families emit outside
// their FIM vocabulary.
var modelStops = []struct {
	match string
	stops []string
}{
	{"llama3", []string{"<|eot_id|>", "<|end_of_text|>"}},
	{"deepseek", []string{"<｜end▁of▁sentence｜>"}},
	{"phi", []string{"<|end|>"}},
	{"gemma", []string{"<end_of_turn>"}},
}

// StopTokens merges the template's stop words with language and model
// specific ones. Order is preserved and duplicates dropped.
func StopTokens(opts CompletionOptions, lang inlet.Language, model string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(stops ...string) {
		for _, s := range stops {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}

	add(opts.Stop...)
	add(commonStops...)
	for _, kw := range lang.TopLevelKeywords {
		add("\n" + kw + " ")
	}
	lower := strings.ToLower(model)
	for _, ms := range modelStops {
		if strings.Contains(lower, ms.match) {
			add(ms.stops...)
		}
	}
	return out
}

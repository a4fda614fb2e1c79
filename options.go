package inlet

import (
	"encoding/json"
	"fmt"
	"time"
)

// Multiline modes for Options.Multiline.
const (
	MultilineAuto   = "auto"
	MultilineAlways = "always"
	MultilineNever  = "never"
)

// DefaultRecentlyEditedPriority is used when recently edited snippets are
// enabled without an explicit priority.
const DefaultRecentlyEditedPriority = 1

// DefaultBasePriority ranks the base source below every other source.
const DefaultBasePriority = 99

// Options are the per-request autocomplete settings.
type Options struct {
	MaxPromptTokens     int     `json:"max_prompt_tokens"`
	PrefixPercentage    float64 `json:"prefix_percentage"`
	MaxSuffixPercentage float64 `json:"max_suffix_percentage"`
	// RecentlyEdited accepts true/false or a numeric priority.
	RecentlyEdited    Priority `json:"recently_edited"`
	BasePriority      int      `json:"base_priority,omitempty"`
	UseImports        bool     `json:"use_imports"`
	UseRootPath       bool     `json:"use_root_path"`
	UseIDEDefinitions bool     `json:"use_ide_definitions"`
	SnippetTimeoutMS  int      `json:"snippet_timeout_ms,omitempty"`
	Multiline         string   `json:"multiline,omitempty"`
	// Template is an explicit prompt template that wins over model defaults.
	Template string `json:"template,omitempty"`
	UseCache bool   `json:"use_cache"`
}

// WithDefaults returns a copy of o where zero-valued numeric and string
// fields are taken from def.
func (o Options) WithDefaults(def Options) Options {
	if o.MaxPromptTokens == 0 {
		o.MaxPromptTokens = def.MaxPromptTokens
	}
	if o.PrefixPercentage == 0 {
		o.PrefixPercentage = def.PrefixPercentage
	}
	if o.MaxSuffixPercentage == 0 {
		o.MaxSuffixPercentage = def.MaxSuffixPercentage
	}
	if o.BasePriority == 0 {
		o.BasePriority = def.BasePriority
	}
	if o.SnippetTimeoutMS == 0 {
		o.SnippetTimeoutMS = def.SnippetTimeoutMS
	}
	if o.Multiline == "" {
		o.Multiline = def.Multiline
	}
	return o
}

// SnippetTimeout is the soft deadline applied to each context lookup.
func (o Options) SnippetTimeout() time.Duration {
	if o.SnippetTimeoutMS <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(o.SnippetTimeoutMS) * time.Millisecond
}

// ResolvedBasePriority returns the base source priority.
func (o Options) ResolvedBasePriority() int {
	if o.BasePriority == 0 {
		return DefaultBasePriority
	}
	return o.BasePriority
}

// Priority is an enable flag that may carry an explicit numeric rank.
// In JSON it is either a boolean or a number.
type Priority struct {
	Enabled bool
	Value   int
}

// Resolve returns the effective priority and whether the source is enabled.
func (p Priority) Resolve(def int) (int, bool) {
	if !p.Enabled {
		return 0, false
	}
	if p.Value == 0 {
		return def, true
	}
	return p.Value, true
}

// MarshalJSON implements json.Marshaler.
func (p Priority) MarshalJSON() ([]byte, error) {
	if p.Enabled && p.Value != 0 {
		return json.Marshal(p.Value)
	}
	return json.Marshal(p.Enabled)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*p = Priority{Enabled: b}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("priority must be a boolean or an integer, got %s", data)
	}
	*p = Priority{Enabled: true, Value: n}
	return nil
}

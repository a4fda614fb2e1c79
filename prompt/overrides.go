package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	defaults "github.com/Paranoid-AF/inlet/default"
)

// Override is one [[template]] entry of templates.toml.
type Override struct {
	Match       string   `toml:"match"`
	Text        string   `toml:"text"`
	Stop        []string `toml:"stop"`
	MaxTokens   int      `toml:"max_tokens"`
	Temperature float64  `toml:"temperature"`
}

type overrideFile struct {
	Template []Override `toml:"template"`
}

// ParseOverrides decodes template overrides from TOML.
func ParseOverrides(data string) ([]Override, error) {
	var f overrideFile
	md, err := toml.Decode(data, &f)
	if err != nil {
		return nil, fmt.Errorf("parse template overrides: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		slog.Warn("unknown keys in template overrides", "keys", undecoded)
	}
	out := f.Template[:0]
	for _, o := range f.Template {
		if strings.TrimSpace(o.Match) == "" || o.Text == "" {
			slog.Warn("skipping template override without match or text", "match", o.Match)
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// LoadOverrides reads templates.toml at path. A missing file yields the
// embedded defaults.
func LoadOverrides(path string) ([]Override, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ParseOverrides(defaults.DefaultTemplatesTOML)
	}
	if err != nil {
		return nil, fmt.Errorf("read template overrides: %w", err)
	}
	slog.Info("loaded template overrides", "path", path)
	return ParseOverrides(string(data))
}

// Templates resolves the template for a request.
type Templates struct {
	Overrides []Override
}

// Resolve picks the explicit template when given, else the first override
// matching model, else the built-in default for model.
func (t *Templates) Resolve(model, explicit string) Template {
	if explicit != "" {
		return StringTemplate("explicit", explicit, CompletionOptions{})
	}
	if t != nil {
		lower := strings.ToLower(model)
		for _, o := range t.Overrides {
			if strings.Contains(lower, strings.ToLower(o.Match)) {
				return StringTemplate("override:"+o.Match, o.Text, CompletionOptions{
					Stop:        o.Stop,
					MaxTokens:   o.MaxTokens,
					Temperature: o.Temperature,
				})
			}
		}
	}
	return DefaultTemplate(model)
}

// Package prompt renders completion prompts from model-specific templates,
// the caret window and prioritized snippets.
package prompt

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Paranoid-AF/inlet/snippet"
)

// ErrTemplate is returned when a template fails to parse or render.
var ErrTemplate = errors.New("template error")

// CompletionOptions are the model call parameters a template carries.
type CompletionOptions struct {
	Stop        []string `json:"stop,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
}

// Input is what a template sees.
type Input struct {
	Prefix        string
	Suffix        string
	Filepath      string
	Reponame      string
	Language      string
	Snippets      []snippet.Snippet
	WorkspaceDirs []string
}

// TemplateFunc builds the final prompt directly.
type TemplateFunc func(in Input) (string, error)

// CompileFunc builds the prefix and suffix for two-pass templates.
type CompileFunc func(in Input) (prefix, suffix string)

type templateKind int

const (
	kindString templateKind = iota
	kindFunction
)

// Template is either a StringTemplate or a FunctionTemplate.
type Template struct {
	Name    string
	Options CompletionOptions

	kind    templateKind
	text    string
	fn      TemplateFunc
	compile CompileFunc
}

// StringTemplate returns a template with {{prefix}}, {{suffix}},
// {{filename}}, {{reponame}} and {{language}} placeholders.
func StringTemplate(name, text string, opts CompletionOptions) Template {
	return Template{Name: name, Options: opts, kind: kindString, text: text}
}

// FunctionTemplate returns a template rendered by fn.
func FunctionTemplate(name string, fn TemplateFunc, opts CompletionOptions) Template {
	return Template{Name: name, Options: opts, kind: kindFunction, fn: fn}
}

// WithCompiler attaches a prefix/suffix compiler.
func (t Template) WithCompiler(c CompileFunc) Template {
	t.compile = c
	return t
}

// HasCompiler reports whether the template builds its own prefix and suffix.
func (t Template) HasCompiler() bool {
	return t.compile != nil
}

// Compile runs the prefix/suffix compiler. Templates without one return
// the input unchanged.
func (t Template) Compile(in Input) (string, string) {
	if t.compile == nil {
		return in.Prefix, in.Suffix
	}
	return t.compile(in)
}

// Render produces the prompt.
func (t Template) Render(in Input) (prompt string, err error) {
	switch t.kind {
	case kindFunction:
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %s: %v", ErrTemplate, t.Name, r)
			}
		}()
		prompt, err = t.fn(in)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrTemplate, t.Name, err)
		}
		return prompt, nil
	default:
		return renderString(t.Name, t.text, in)
	}
}

func renderString(name, text string, in Input) (string, error) {
	funcs := template.FuncMap{
		"prefix":   func() string { return in.Prefix },
		"suffix":   func() string { return in.Suffix },
		"filename": func() string { return filepath.Base(in.Filepath) },
		"reponame": func() string { return in.Reponame },
		"language": func() string { return in.Language },
	}
	t, err := template.New(name).Funcs(funcs).Parse(text)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTemplate, err)
	}
	var buf strings.Builder
	if err := t.Execute(&buf, in); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTemplate, err)
	}
	return buf.String(), nil
}

package prompt

import (
	"log/slog"
	"path/filepath"

	inlet "github.com/Paranoid-AF/inlet"
	"github.com/Paranoid-AF/inlet/snippet"
)

// Rendered is the output of Render.
type Rendered struct {
	Prompt  string
	Prefix  string
	Suffix  string
	Options CompletionOptions
	// Template names the template that was used.
	Template string
}

// RepoNameFunc resolves the repository name for a file.
type RepoNameFunc func(path string, workspaceDirs []string) string

// Renderer turns a snippet payload and the caret window into a prompt.
type Renderer struct {
	Prioritizer *snippet.Prioritizer
	Templates   *Templates
	// RepoName resolves {{reponame}}. Nil uses the base name of the
	// workspace dir containing the file.
	RepoName RepoNameFunc
}

// NewRenderer creates a renderer.
func NewRenderer(p *snippet.Prioritizer, templates *Templates, repoName RepoNameFunc) *Renderer {
	return &Renderer{Prioritizer: p, Templates: templates, RepoName: repoName}
}

// Render builds the prompt for helper. Snippets are ranked and budgeted
// across all files, but only code snippets of the current file are placed
// in the prompt.
func (r *Renderer) Render(payload snippet.Payload, workspaceDirs []string, helper *inlet.HelperVars) (*Rendered, error) {
	prefix, suffix := helper.PrunedPrefix, helper.PrunedSuffix
	if helper.ManualPrefix != "" {
		prefix, suffix = helper.ManualPrefix, ""
	}
	if suffix == "" {
		suffix = "\n"
	}

	tmpl := r.Templates.Resolve(helper.Model, helper.Options.Template)

	ranked := r.Prioritizer.Prioritize(helper, payload)
	snippets := make([]snippet.Snippet, 0, len(ranked))
	for _, s := range ranked {
		if s.Kind == snippet.KindCode && s.Filepath == helper.Filepath {
			snippets = append(snippets, s)
		}
	}

	in := Input{
		Prefix:        prefix,
		Suffix:        suffix,
		Filepath:      helper.Filepath,
		Reponame:      r.repoName(helper.Filepath, workspaceDirs),
		Language:      helper.Language.Name,
		Snippets:      snippets,
		WorkspaceDirs: workspaceDirs,
	}
	if tmpl.HasCompiler() {
		in.Prefix, in.Suffix = tmpl.Compile(in)
	} else if len(snippets) > 0 {
		in.Prefix = FormatSnippets(snippets, helper.Language, workspaceDirs) + "\n" + in.Prefix
	}

	prompt, err := tmpl.Render(in)
	if err != nil {
		return nil, err
	}

	opts := tmpl.Options
	opts.Stop = StopTokens(tmpl.Options, helper.Language, helper.Model)

	slog.Debug("prompt rendered",
		"template", tmpl.Name,
		"ranked", len(ranked),
		"rendered_snippets", len(snippets),
		"stop", len(opts.Stop),
	)
	return &Rendered{
		Prompt:   prompt,
		Prefix:   in.Prefix,
		Suffix:   in.Suffix,
		Options:  opts,
		Template: tmpl.Name,
	}, nil
}

func (r *Renderer) repoName(path string, workspaceDirs []string) string {
	if r.RepoName != nil {
		if name := r.RepoName(path, workspaceDirs); name != "" {
			return name
		}
	}
	if root, ok := workspaceRoot(path, workspaceDirs); ok {
		return filepath.Base(root)
	}
	return filepath.Base(filepath.Dir(path))
}

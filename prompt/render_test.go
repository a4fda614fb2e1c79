package prompt

import (
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	inlet "github.com/Paranoid-AF/inlet"
	"github.com/Paranoid-AF/inlet/snippet"
)

type words struct{}

func (words) Count(text, _ string) int { return len(strings.Fields(text)) }

func newTestRenderer() *Renderer {
	p := &snippet.Prioritizer{Counter: words{}, Rand: rand.New(rand.NewPCG(1, 1))}
	return NewRenderer(p, &Templates{}, nil)
}

func renderHelper(maxTokens int) *inlet.HelperVars {
	return &inlet.HelperVars{
		Filepath:     "/repo/main.py",
		PrunedPrefix: "def foo():\n    ",
		Model:        "qwen2.5-coder:1.5b",
		Language:     inlet.DetectLanguage("/repo/main.py", ""),
		Options: inlet.Options{
			MaxPromptTokens: maxTokens,
			RecentlyEdited:  inlet.Priority{Enabled: true},
		},
	}
}

func TestRenderBudgetTooSmall(t *testing.T) {
	helper := renderHelper(2)
	payload := snippet.Payload{
		RecentlyEdited: []snippet.Snippet{snippet.Code("/repo/main.py", "x = compute(y)", 0, 0)},
	}

	got, err := newTestRenderer().Render(payload, []string{"/repo"}, helper)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "<|repo_name|>repo\n<|file_sep|>main.py\n<|fim_prefix|>def foo():\n    <|fim_suffix|>\n<|fim_middle|>"
	if got.Prompt != want {
		t.Errorf("Prompt = %q, want %q", got.Prompt, want)
	}
	if got.Prefix != "def foo():\n    " || got.Suffix != "\n" {
		t.Errorf("prefix/suffix = %q, %q", got.Prefix, got.Suffix)
	}
	if !slices.Contains(got.Options.Stop, "<|fim_prefix|>") || !slices.Contains(got.Options.Stop, "\ndef ") {
		t.Errorf("stop = %q", got.Options.Stop)
	}
}

func TestRenderOnlyCurrentFileSnippets(t *testing.T) {
	helper := renderHelper(1000)
	helper.Options.Template = "{{prefix}}"
	payload := snippet.Payload{
		RecentlyEdited: []snippet.Snippet{
			snippet.Code("/repo/main.py", "x = compute(y)", 10, 10),
			snippet.Code("/repo/other.py", "def other(): pass", 0, 0),
		},
	}

	got, err := newTestRenderer().Render(payload, []string{"/repo"}, helper)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "# Path: main.py\n# x = compute(y)\ndef foo():\n    "
	if got.Prompt != want {
		t.Errorf("Prompt = %q, want %q", got.Prompt, want)
	}
}

func TestRenderManualPrefix(t *testing.T) {
	helper := renderHelper(1000)
	helper.PrunedSuffix = "\nreturn 1"
	helper.ManualPrefix = "import os\n"
	helper.Options.Template = "{{prefix}}<S>{{suffix}}"

	got, err := newTestRenderer().Render(snippet.Payload{}, nil, helper)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got.Prompt != "import os\n<S>\n" {
		t.Errorf("Prompt = %q", got.Prompt)
	}
}

func TestRenderCompilerTemplate(t *testing.T) {
	helper := renderHelper(1000)
	helper.Model = "codestral-latest"
	helper.PrunedSuffix = "\nprint(1)"
	payload := snippet.Payload{
		RecentlyEdited: []snippet.Snippet{snippet.Code("/repo/main.py", "x = compute(y)", 10, 10)},
	}

	got, err := newTestRenderer().Render(payload, []string{"/repo"}, helper)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "[SUFFIX]\nprint(1)[PREFIX]+++++ main.py\nx = compute(y)\n\n+++++ main.py\ndef foo():\n    "
	if got.Prompt != want {
		t.Errorf("Prompt = %q, want %q", got.Prompt, want)
	}
}

func TestRenderTemplateError(t *testing.T) {
	helper := renderHelper(1000)
	helper.Options.Template = "{{prefix"

	if _, err := newTestRenderer().Render(snippet.Payload{}, nil, helper); err == nil {
		t.Fatal("expected template error")
	}
}

func TestRenderRepoName(t *testing.T) {
	helper := renderHelper(1000)
	helper.Options.Template = "{{reponame}}"
	r := newTestRenderer()

	got, _ := r.Render(snippet.Payload{}, nil, helper)
	if got.Prompt != "repo" {
		t.Errorf("fallback reponame = %q", got.Prompt)
	}

	r.RepoName = func(string, []string) string { return "inlet" }
	got, _ = r.Render(snippet.Payload{}, []string{"/repo"}, helper)
	if got.Prompt != "inlet" {
		t.Errorf("resolver reponame = %q", got.Prompt)
	}
}

func TestFormatSnippet(t *testing.T) {
	s := snippet.Code("/ws/pkg/a.go", "func A() {}\n", 0, 0)
	got := FormatSnippet(s, inlet.DetectLanguage("a.go", ""), []string{"/ws"})
	if want := "// Path: pkg/a.go\n// func A() {}"; got != want {
		t.Errorf("FormatSnippet = %q, want %q", got, want)
	}
}

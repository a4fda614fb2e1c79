package inlet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Paranoid-AF/inlet/tokens"
)

func TestResponseErrorOmittedWhenNil(t *testing.T) {
	resp := Response{Completion: "x"}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `"error"`) {
		t.Errorf("expected no error key, got %s", data)
	}
}

func TestRequestIDJSONRoundTrip(t *testing.T) {
	req := Request{RequestID: 42, Filepath: "/a.go", Line: 3, Col: 2}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"request_id"`) {
		t.Errorf("expected request_id key in JSON, got %s", data)
	}

	var decoded Request
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.RequestID != 42 || decoded.Line != 3 || decoded.Col != 2 {
		t.Errorf("unexpected decoded request: %+v", decoded)
	}
}

func TestPriorityJSON(t *testing.T) {
	tests := []struct {
		in      string
		enabled bool
		value   int
	}{
		{`true`, true, 0},
		{`false`, false, 0},
		{`3`, true, 3},
	}
	for _, tt := range tests {
		var p Priority
		if err := json.Unmarshal([]byte(tt.in), &p); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.in, err)
		}
		if p.Enabled != tt.enabled || p.Value != tt.value {
			t.Errorf("%s: got %+v", tt.in, p)
		}
		out, err := json.Marshal(p)
		if err != nil {
			t.Fatal(err)
		}
		if string(out) != tt.in {
			t.Errorf("marshal: got %s, want %s", out, tt.in)
		}
	}

	var p Priority
	if err := json.Unmarshal([]byte(`"yes"`), &p); err == nil {
		t.Error("expected error for string priority")
	}
}

func TestPriorityResolve(t *testing.T) {
	if _, ok := (Priority{}).Resolve(1); ok {
		t.Error("disabled priority should not resolve")
	}
	if got, ok := (Priority{Enabled: true}).Resolve(1); !ok || got != 1 {
		t.Errorf("expected default 1, got %d", got)
	}
	if got, ok := (Priority{Enabled: true, Value: 7}).Resolve(1); !ok || got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
}

func TestDefaultConfigParses(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Autocomplete.MaxPromptTokens != 1024 {
		t.Errorf("expected max_prompt_tokens 1024, got %d", cfg.Autocomplete.MaxPromptTokens)
	}
	if !cfg.Autocomplete.RecentlyEdited.Enabled {
		t.Error("expected recently_edited enabled by default")
	}
	if cfg.Autocomplete.ResolvedBasePriority() != DefaultBasePriority {
		t.Errorf("expected base priority %d", DefaultBasePriority)
	}
}

func TestLoadConfigKeepsBooleanDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("INLET_CONFIG_DIR", dir)
	data := `{"completion": {"model": "starcoder2:3b"}, "autocomplete": {"max_prompt_tokens": 2048}}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Completion.Model != "starcoder2:3b" {
		t.Errorf("unexpected model %q", cfg.Completion.Model)
	}
	if cfg.Autocomplete.MaxPromptTokens != 2048 {
		t.Errorf("expected 2048, got %d", cfg.Autocomplete.MaxPromptTokens)
	}
	if !cfg.Autocomplete.UseImports || !cfg.Autocomplete.UseCache {
		t.Error("expected absent boolean options to keep their defaults")
	}
	if cfg.Completion.BaseURL == "" {
		t.Error("expected base_url default to be applied")
	}
}

func TestResolveCompletionModelEnvOverride(t *testing.T) {
	t.Setenv("INLET_COMPLETION_MODEL", "codestral-latest")
	if got := ResolveCompletionModel(DefaultConfig()); got != "codestral-latest" {
		t.Errorf("expected env override, got %q", got)
	}
}

func TestValidateConfigWarnings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Autocomplete.PrefixPercentage = 0.9
	cfg.Autocomplete.MaxSuffixPercentage = 0.5
	warnings := ValidateConfig(cfg)
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "prefix_percentage") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected prefix_percentage warning, got %v", warnings)
	}
}

func TestDetectLanguage(t *testing.T) {
	if got := DetectLanguage("/x/main.go", ""); got.Name != "Go" {
		t.Errorf("expected Go, got %s", got.Name)
	}
	if got := DetectLanguage("/x/script", "shellscript"); !got.IsShell() {
		t.Errorf("expected Shell, got %s", got.Name)
	}
	if got := DetectLanguage("/x/notes.unknown", ""); got.Comment != "//" {
		t.Errorf("expected plain text fallback, got %+v", got)
	}
}

func testOptions() Options {
	return DefaultConfig().Autocomplete
}

func TestNewHelperVarsSplitsAtCaret(t *testing.T) {
	req := &Request{
		Filepath: "/ws/foo.py",
		Contents: "def foo():\n    return 1\n",
		Line:     1,
		Col:      4,
	}
	h := NewHelperVars(req, testOptions(), "m", tokens.Heuristic{})
	if h.FullPrefix != "def foo():\n    " {
		t.Errorf("unexpected prefix %q", h.FullPrefix)
	}
	if h.FullSuffix != "return 1\n" {
		t.Errorf("unexpected suffix %q", h.FullSuffix)
	}
	if h.PrunedCaretWindow() != h.FullPrefix+h.FullSuffix {
		t.Error("small file should not be pruned")
	}
	if h.Language.Name != "Python" {
		t.Errorf("expected Python, got %s", h.Language.Name)
	}
	if h.Multiline() {
		t.Error("expected single-line mode when text follows the caret")
	}
}

func TestNewHelperVarsClampsCaret(t *testing.T) {
	req := &Request{Contents: "ab\ncd", Line: 9, Col: 9}
	h := NewHelperVars(req, testOptions(), "m", tokens.Heuristic{})
	if h.Line != 1 || h.Col != 2 || h.CursorOffset != 5 {
		t.Errorf("unexpected caret %d:%d@%d", h.Line, h.Col, h.CursorOffset)
	}
	if h.FullSuffix != "" || !h.Multiline() {
		t.Error("caret at end of file should allow multiline")
	}
}

func TestNewHelperVarsPrunesPrefix(t *testing.T) {
	opts := testOptions()
	opts.MaxPromptTokens = 10
	opts.PrefixPercentage = 0.5
	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString("line of code\n")
	}
	req := &Request{Contents: sb.String(), Line: 50, Col: 0}
	h := NewHelperVars(req, opts, "m", tokens.Heuristic{})
	if got := (tokens.Heuristic{}).Count(h.PrunedPrefix, "m"); got > 5 {
		t.Errorf("pruned prefix has %d tokens, want <= 5", got)
	}
	if !strings.HasSuffix(h.FullPrefix, h.PrunedPrefix) {
		t.Error("pruned prefix must be a suffix of the full prefix")
	}
}

func TestMultilineModes(t *testing.T) {
	tests := []struct {
		mode string
		col  int
		want bool
	}{
		{MultilineAuto, 4, false},
		{MultilineAuto, 12, true},
		{MultilineAlways, 4, true},
		{MultilineNever, 12, false},
	}
	for _, tt := range tests {
		opts := testOptions()
		opts.Multiline = tt.mode
		req := &Request{Filepath: "/ws/a.py", Contents: "x = f(y)    \n", Col: tt.col}
		h := NewHelperVars(req, opts, "m", tokens.Heuristic{})
		if got := h.Multiline(); got != tt.want {
			t.Errorf("%s at col %d: Multiline() = %v, want %v", tt.mode, tt.col, got, tt.want)
		}
	}
}

package prompt

import (
	"path/filepath"
	"strings"
)

var (
	qwenTemplate = StringTemplate("qwen",
		"<|repo_name|>{{reponame}}\n<|file_sep|>{{filename}}\n<|fim_prefix|>{{prefix}}<|fim_suffix|>{{suffix}}<|fim_middle|>",
		CompletionOptions{Stop: []string{
			"<|endoftext|>", "<|fim_prefix|>", "<|fim_middle|>", "<|fim_suffix|>",
			"<|fim_pad|>", "<|repo_name|>", "<|file_sep|>", "<|im_start|>", "<|im_end|>",
		}})

	starcoderTemplate = StringTemplate("starcoder",
		"<fim_prefix>{{prefix}}<fim_suffix>{{suffix}}<fim_middle>",
		CompletionOptions{Stop: []string{"<fim_prefix>", "<fim_suffix>", "<fim_middle>", "<file_sep>", "<|endoftext|>"}})

	deepseekTemplate = StringTemplate("deepseek",
		"<｜fim▁begin｜>{{prefix}}<｜fim▁hole｜>{{suffix}}<｜fim▁end｜>",
		CompletionOptions{Stop: []string{"<｜fim▁begin｜>", "<｜fim▁hole｜>", "<｜fim▁end｜>", "<｜end▁of▁sentence｜>"}})

	codellamaTemplate = StringTemplate("codellama",
		"<PRE> {{prefix}} <SUF>{{suffix}} <MID>",
		CompletionOptions{Stop: []string{"<PRE>", "<SUF>", "<MID>", "<EOT>"}})

	codegemmaTemplate = StringTemplate("codegemma",
		"<|fim_prefix|>{{prefix}}<|fim_suffix|>{{suffix}}<|fim_middle|>",
		CompletionOptions{Stop: []string{"<|fim_prefix|>", "<|fim_suffix|>", "<|fim_middle|>", "<|file_separator|>", "<end_of_turn>", "<eos>"}})

	// codestral places other-file context ahead of the prefix under
	// "+++++ path" headers and puts the suffix first.
	codestralTemplate = FunctionTemplate("codestral",
		func(in Input) (string, error) {
			return "[SUFFIX]" + in.Suffix + "[PREFIX]" + in.Prefix, nil
		},
		CompletionOptions{Stop: []string{"[PREFIX]", "[SUFFIX]"}},
	).WithCompiler(compileCodestral)

	// plainTemplate continues the prefix for models without FIM tokens.
	plainTemplate = FunctionTemplate("plain",
		func(in Input) (string, error) {
			return in.Prefix, nil
		},
		CompletionOptions{},
	)
)

type modelTemplate struct {
	match    string
	template Template
}

// builtinTemplates are tried in order; the first match against the
// lowercased model name wins, so more specific names come first.
var builtinTemplates = []modelTemplate{
	{"codeqwen", starcoderTemplate},
	{"qwen", qwenTemplate},
	{"starcoder", starcoderTemplate},
	{"stable-code", starcoderTemplate},
	{"granite", starcoderTemplate},
	{"deepseek", deepseekTemplate},
	{"codellama", codellamaTemplate},
	{"codegemma", codegemmaTemplate},
	{"codestral", codestralTemplate},
	{"davinci", plainTemplate},
	{"babbage", plainTemplate},
	{"instruct", plainTemplate},
}

// DefaultTemplate returns the built-in template for model. Unknown models
// get the StarCoder FIM format.
func DefaultTemplate(model string) Template {
	lower := strings.ToLower(model)
	for _, mt := range builtinTemplates {
		if strings.Contains(lower, mt.match) {
			return mt.template
		}
	}
	return starcoderTemplate
}

func compileCodestral(in Input) (string, string) {
	suffix := in.Suffix
	if strings.TrimSpace(suffix) == "" {
		suffix = "\n"
	}
	if len(in.Snippets) == 0 {
		return in.Prefix, suffix
	}

	var sb strings.Builder
	for _, s := range in.Snippets {
		sb.WriteString("+++++ ")
		sb.WriteString(relativePath(s.Filepath, in.WorkspaceDirs))
		sb.WriteString("\n")
		sb.WriteString(s.Content)
		sb.WriteString("\n\n")
	}
	sb.WriteString("+++++ ")
	sb.WriteString(relativePath(in.Filepath, in.WorkspaceDirs))
	sb.WriteString("\n")
	sb.WriteString(in.Prefix)
	return sb.String(), suffix
}

// relativePath shortens path against the first workspace dir containing it.
func relativePath(path string, workspaceDirs []string) string {
	if root, ok := workspaceRoot(path, workspaceDirs); ok {
		if rel, err := filepath.Rel(root, path); err == nil {
			return rel
		}
	}
	return filepath.Base(path)
}

// workspaceRoot returns the first workspace dir that contains path.
func workspaceRoot(path string, workspaceDirs []string) (string, bool) {
	for _, dir := range workspaceDirs {
		rel, err := filepath.Rel(dir, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return dir, true
	}
	return "", false
}

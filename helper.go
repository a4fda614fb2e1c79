package inlet

import (
	"strings"

	"github.com/Paranoid-AF/inlet/tokens"
)

// HelperVars bundles everything derived from a single completion request.
// It is built once by NewHelperVars and must not be mutated afterwards.
type HelperVars struct {
	Filepath string
	Contents string
	// Line and Col are the clamped caret position; CursorOffset is the byte
	// offset of the caret in Contents.
	Line         int
	Col          int
	CursorOffset int

	FullPrefix   string
	FullSuffix   string
	PrunedPrefix string
	PrunedSuffix string
	ManualPrefix string

	Model         string
	Options       Options
	Language      Language
	WorkspaceDirs []string
}

// NewHelperVars splits the file at the caret and prunes the prefix and
// suffix to their share of the prompt token budget.
func NewHelperVars(req *Request, opts Options, model string, counter tokens.Counter) *HelperVars {
	h := &HelperVars{
		Filepath:      req.Filepath,
		Contents:      req.Contents,
		ManualPrefix:  req.ManualPrefix,
		Model:         model,
		Options:       opts,
		Language:      DetectLanguage(req.Filepath, req.LanguageID),
		WorkspaceDirs: append([]string(nil), req.WorkspaceDirs...),
	}

	h.Line, h.Col, h.CursorOffset = clampCaret(req.Contents, req.Line, req.Col)
	h.FullPrefix = req.Contents[:h.CursorOffset]
	h.FullSuffix = req.Contents[h.CursorOffset:]

	maxPrefix := int(float64(opts.MaxPromptTokens) * opts.PrefixPercentage)
	h.PrunedPrefix = tokens.PruneLinesFromTop(counter, h.FullPrefix, maxPrefix, model)

	maxSuffix := int(float64(opts.MaxPromptTokens) * opts.MaxSuffixPercentage)
	if left := opts.MaxPromptTokens - counter.Count(h.PrunedPrefix, model); left < maxSuffix {
		maxSuffix = left
	}
	h.PrunedSuffix = tokens.PruneLinesFromBottom(counter, h.FullSuffix, maxSuffix, model)

	return h
}

// clampCaret keeps (line, col) inside contents and returns the byte offset.
func clampCaret(contents string, line, col int) (int, int, int) {
	lines := strings.Split(contents, "\n")
	if line < 0 {
		line = 0
	}
	if line >= len(lines) {
		line = len(lines) - 1
	}
	if col < 0 {
		col = 0
	}
	if col > len(lines[line]) {
		col = len(lines[line])
	}
	offset := 0
	for i := 0; i < line; i++ {
		offset += len(lines[i]) + 1
	}
	return line, col, offset + col
}

// PrunedCaretWindow is the text around the caret that is sent to the model.
func (h *HelperVars) PrunedCaretWindow() string {
	return h.PrunedPrefix + h.PrunedSuffix
}

// CaretLineSuffix is the rest of the caret line after the caret.
func (h *HelperVars) CaretLineSuffix() string {
	line, _, _ := strings.Cut(h.FullSuffix, "\n")
	return line
}

// Multiline reports whether the completion may span several lines.
// In auto mode that is only the case when nothing follows the caret on its line.
func (h *HelperVars) Multiline() bool {
	switch h.Options.Multiline {
	case MultilineAlways:
		return true
	case MultilineNever:
		return false
	default:
		return strings.TrimSpace(h.CaretLineSuffix()) == ""
	}
}

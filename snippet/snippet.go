// Package snippet collects, ranks and budgets the code context that is
// placed in front of the caret window in a completion prompt.
package snippet

import (
	"context"

	inlet "github.com/Paranoid-AF/inlet"
)

// Kind distinguishes snippet variants.
type Kind string

const (
	KindCode      Kind = "code"
	KindClipboard Kind = "clipboard"
	KindDiff      Kind = "diff"
)

// Snippet is one unit of context. Code snippets carry the file they came from.
type Snippet struct {
	Kind     Kind   `json:"kind"`
	Filepath string `json:"filepath,omitempty"`
	Content  string `json:"content"`
	// StartLine and EndLine are 0-based and inclusive; zero for non-code snippets.
	StartLine int `json:"start_line,omitempty"`
	EndLine   int `json:"end_line,omitempty"`
}

// Code returns a code snippet.
func Code(path, content string, startLine, endLine int) Snippet {
	return Snippet{Kind: KindCode, Filepath: path, Content: content, StartLine: startLine, EndLine: endLine}
}

// Payload holds collected snippets per source, unranked.
// Every field is non-nil after Collect.
type Payload struct {
	RootPath          []Snippet `json:"root_path"`
	ImportDefinitions []Snippet `json:"import_definitions"`
	RecentlyEdited    []Snippet `json:"recently_edited"`
	IDEDefinitions    []Snippet `json:"ide_definitions"`
}

// IDE is the editor capability handle.
type IDE interface {
	WorkspaceDirs(ctx context.Context) ([]string, error)
}

// DefinitionsFunc looks up definitions of the symbol at cursorOffset.
type DefinitionsFunc func(ctx context.Context, filepath, fullText string, cursorOffset int, ide IDE, lang inlet.Language) ([]Snippet, error)

// ContextRetrieval searches the workspace for context snippets.
type ContextRetrieval interface {
	RootPathSnippets(ctx context.Context, helper *inlet.HelperVars) ([]Snippet, error)
	ImportDefinitionSnippets(ctx context.Context, helper *inlet.HelperVars) ([]Snippet, error)
}

// EditedRange is a span of a file the user edited recently.
type EditedRange struct {
	Filepath  string
	StartLine int
	EndLine   int
	Lines     []string
}

// RangeSource supplies recently edited ranges, most recent first.
type RangeSource interface {
	Ranges() []EditedRange
}

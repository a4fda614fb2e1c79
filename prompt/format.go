package prompt

import (
	"strings"

	inlet "github.com/Paranoid-AF/inlet"
	"github.com/Paranoid-AF/inlet/snippet"
)

// PathHeader is the marker written before a snippet's path.
const PathHeader = "Path: "

// FormatSnippet renders a code snippet as a commented block headed by its
// workspace-relative path.
func FormatSnippet(s snippet.Snippet, lang inlet.Language, workspaceDirs []string) string {
	comment := lang.Comment + " "
	var sb strings.Builder
	sb.WriteString(comment)
	sb.WriteString(PathHeader)
	sb.WriteString(relativePath(s.Filepath, workspaceDirs))
	for _, line := range strings.Split(strings.TrimRight(s.Content, "\n"), "\n") {
		sb.WriteString("\n")
		sb.WriteString(comment)
		sb.WriteString(line)
	}
	return sb.String()
}

// FormatSnippets joins formatted snippets with newlines.
func FormatSnippets(snippets []snippet.Snippet, lang inlet.Language, workspaceDirs []string) string {
	parts := make([]string, 0, len(snippets))
	for _, s := range snippets {
		parts = append(parts, FormatSnippet(s, lang, workspaceDirs))
	}
	return strings.Join(parts, "\n")
}

package snippet

import (
	"bytes"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	inlet "github.com/Paranoid-AF/inlet"
)

const redacted = "***"

// safeVars are environment variables whose values are never redacted.
var safeVars = map[string]bool{
	"HOME": true, "USER": true, "PWD": true, "OLDPWD": true,
	"SHELL": true, "PATH": true, "LANG": true, "TERM": true,
	"EDITOR": true, "PAGER": true, "HOSTNAME": true, "LOGNAME": true,
	"TMPDIR": true, "XDG_CONFIG_HOME": true, "XDG_DATA_HOME": true,
	"XDG_RUNTIME_DIR": true, "DISPLAY": true, "SHLVL": true,
	"COLUMNS": true, "LINES": true, "LC_ALL": true, "LC_CTYPE": true,
}

var (
	reSecretName = regexp.MustCompile(`(?i)(secret|token|passw(or)?d|api_?key|private_?key|credential)`)
	// NAME = "value", NAME: 'value', NAME := "value"
	reQuotedAssign = regexp.MustCompile(`(?i)\b([A-Za-z_][A-Za-z0-9_]*)(\s*:?=\s*|\s*:\s*)(["'` + "`" + `])([^"'` + "`" + `\n]*)(["'` + "`" + `])`)
	reShellAssign  = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)=(\S+)`)
)

func secretName(name string) bool {
	return !safeVars[name] && reSecretName.MatchString(name)
}

// Redact blanks values assigned to secret-looking names in a snippet.
// Shell snippets are rewritten through the shell AST; other files use a
// quoted-assignment pattern.
func Redact(s Snippet) Snippet {
	if s.Content == "" {
		return s
	}
	if inlet.DetectLanguage(s.Filepath, "").IsShell() {
		s.Content = RedactShell(s.Content)
		return s
	}
	s.Content = redactQuoted(s.Content)
	return s
}

// RedactShell replaces the value of every assignment to a secret-looking
// variable with ***. Scripts without such assignments are returned unchanged
// so that their formatting survives.
func RedactShell(src string) string {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash), syntax.KeepComments(true))
	prog, err := parser.Parse(strings.NewReader(src), "")
	if err != nil {
		return regexRedactShell(src)
	}

	changed := false
	syntax.Walk(prog, func(node syntax.Node) bool {
		if n, ok := node.(*syntax.Assign); ok {
			if n.Name != nil && n.Value != nil && secretName(n.Name.Value) {
				n.Value.Parts = []syntax.WordPart{&syntax.Lit{Value: redacted}}
				changed = true
			}
		}
		return true
	})
	if !changed {
		return src
	}

	var buf bytes.Buffer
	printer := syntax.NewPrinter(syntax.Indent(0))
	if err := printer.Print(&buf, prog); err != nil {
		return regexRedactShell(src)
	}
	out := buf.String()
	if !strings.HasSuffix(src, "\n") {
		out = strings.TrimRight(out, "\n")
	}
	return out
}

// regexRedactShell is the fallback for scripts that fail to parse.
func regexRedactShell(src string) string {
	return reShellAssign.ReplaceAllStringFunc(src, func(m string) string {
		parts := reShellAssign.FindStringSubmatch(m)
		if !secretName(parts[1]) {
			return m
		}
		return parts[1] + "=" + redacted
	})
}

func redactQuoted(src string) string {
	return reQuotedAssign.ReplaceAllStringFunc(src, func(m string) string {
		parts := reQuotedAssign.FindStringSubmatch(m)
		if !secretName(parts[1]) || parts[4] == "" || parts[3] != parts[5] {
			return m
		}
		return parts[1] + parts[2] + parts[3] + redacted + parts[5]
	})
}

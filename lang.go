package inlet

import (
	"path/filepath"
	"strings"
)

// Language describes the per-language facts the prompt pipeline needs.
type Language struct {
	Name string
	// Comment is the single-line comment marker.
	Comment string
	// TopLevelKeywords start declarations at column zero.
	TopLevelKeywords []string
}

var (
	langPython = Language{Name: "Python", Comment: "#", TopLevelKeywords: []string{"def", "class"}}
	langGo     = Language{Name: "Go", Comment: "//", TopLevelKeywords: []string{"func", "var", "const", "type", "package", "import"}}
	langTS     = Language{Name: "TypeScript", Comment: "//", TopLevelKeywords: []string{"function", "class", "module", "export", "import", "interface", "type"}}
	langJS     = Language{Name: "JavaScript", Comment: "//", TopLevelKeywords: []string{"function", "class", "module", "export", "import"}}
	langRust   = Language{Name: "Rust", Comment: "//", TopLevelKeywords: []string{"fn", "trait", "impl", "pub", "mod", "struct", "enum", "use"}}
	langJava   = Language{Name: "Java", Comment: "//", TopLevelKeywords: []string{"class", "function", "interface", "import", "package"}}
	langC      = Language{Name: "C", Comment: "//", TopLevelKeywords: []string{"struct", "void", "int", "#include"}}
	langCpp    = Language{Name: "C++", Comment: "//", TopLevelKeywords: []string{"class", "namespace", "template", "struct", "#include"}}
	langCSharp = Language{Name: "C#", Comment: "//", TopLevelKeywords: []string{"class", "namespace", "using", "interface"}}
	langRuby   = Language{Name: "Ruby", Comment: "#", TopLevelKeywords: []string{"def", "class", "module"}}
	langPHP    = Language{Name: "PHP", Comment: "//", TopLevelKeywords: []string{"function", "class", "namespace"}}
	langShell  = Language{Name: "Shell", Comment: "#", TopLevelKeywords: []string{"function"}}
	langLua    = Language{Name: "Lua", Comment: "--", TopLevelKeywords: []string{"function", "local"}}
	langSQL    = Language{Name: "SQL", Comment: "--", TopLevelKeywords: []string{"SELECT", "CREATE", "INSERT", "UPDATE"}}
	langYAML   = Language{Name: "YAML", Comment: "#"}
	langText   = Language{Name: "Plain text", Comment: "//"}
)

var languagesByExt = map[string]Language{
	".py":   langPython,
	".pyi":  langPython,
	".go":   langGo,
	".ts":   langTS,
	".tsx":  langTS,
	".mts":  langTS,
	".js":   langJS,
	".jsx":  langJS,
	".mjs":  langJS,
	".cjs":  langJS,
	".rs":   langRust,
	".java": langJava,
	".kt":   langJava,
	".c":    langC,
	".h":    langC,
	".cc":   langCpp,
	".cpp":  langCpp,
	".hpp":  langCpp,
	".cs":   langCSharp,
	".rb":   langRuby,
	".php":  langPHP,
	".sh":   langShell,
	".bash": langShell,
	".zsh":  langShell,
	".lua":  langLua,
	".sql":  langSQL,
	".yaml": langYAML,
	".yml":  langYAML,
}

var languagesByID = map[string]Language{
	"python":          langPython,
	"go":              langGo,
	"typescript":      langTS,
	"typescriptreact": langTS,
	"javascript":      langJS,
	"javascriptreact": langJS,
	"rust":            langRust,
	"java":            langJava,
	"kotlin":          langJava,
	"c":               langC,
	"cpp":             langCpp,
	"csharp":          langCSharp,
	"ruby":            langRuby,
	"php":             langPHP,
	"shellscript":     langShell,
	"lua":             langLua,
	"sql":             langSQL,
	"yaml":            langYAML,
}

// DetectLanguage picks a language from an editor language ID, falling back
// to the file extension and finally to plain text.
func DetectLanguage(path, languageID string) Language {
	if lang, ok := languagesByID[strings.ToLower(languageID)]; ok {
		return lang
	}
	if lang, ok := languagesByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return langText
}

// KnownSourceFile reports whether path has an extension with a language entry.
func KnownSourceFile(path string) bool {
	_, ok := languagesByExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// IsShell reports whether the language is a POSIX-style shell.
func (l Language) IsShell() bool {
	return l.Name == langShell.Name
}

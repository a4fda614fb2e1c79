package index

import (
	"path"
	"regexp"
	"strings"

	inlet "github.com/Paranoid-AF/inlet"
)

// Import is one imported module and the names taken from it.
type Import struct {
	// Module is the import path as written.
	Module string
	// Names are the imported identifiers. For Go they are the exported
	// names referenced through the package qualifier.
	Names []string
}

// PathHint converts Module into a slash-separated path fragment used to
// prefer definitions from matching files.
func (i Import) PathHint() string {
	hint := i.Module
	hint = strings.TrimPrefix(hint, "crate::")
	hint = strings.TrimPrefix(hint, "super::")
	hint = strings.TrimPrefix(hint, "self::")
	hint = strings.ReplaceAll(hint, "::", "/")
	if !strings.Contains(hint, "/") {
		hint = strings.ReplaceAll(hint, ".", "/")
	}
	hint = strings.TrimLeft(hint, "./")
	return hint
}

var (
	reGoImportSingle = regexp.MustCompile(`(?m)^import\s+(?:([A-Za-z_]\w*|\.)\s+)?"([^"]+)"`)
	reGoImportBlock  = regexp.MustCompile(`(?s)import\s*\((.*?)\)`)
	reGoImportLine   = regexp.MustCompile(`(?m)^\s*(?:([A-Za-z_]\w*|\.)\s+)?"([^"]+)"`)

	rePyFrom   = regexp.MustCompile(`(?m)^\s*from\s+([\w.]+)\s+import\s+\(?([^)\n]+)\)?`)
	rePyImport = regexp.MustCompile(`(?m)^\s*import\s+([\w.]+)(?:\s+as\s+(\w+))?`)

	reJSImport  = regexp.MustCompile(`(?m)^\s*import\s+(?:type\s+)?(.+?)\s+from\s+['"]([^'"]+)['"]`)
	reJSRequire = regexp.MustCompile(`(?m)(?:const|let|var)\s+(\{[^}]*\}|[A-Za-z_$][\w$]*)\s*=\s*require\(\s*['"]([^'"]+)['"]\s*\)`)

	reRustUse = regexp.MustCompile(`(?m)^\s*(?:pub\s+)?use\s+([\w:]+?)(?:::\{([^}]*)\}|::(\w+))?\s*;`)

	reJavaImport = regexp.MustCompile(`(?m)^\s*import\s+(?:static\s+)?([\w.]+)\.(\w+|\*)\s*;`)
)

// ParseImports extracts import statements from source in lang.
func ParseImports(lang inlet.Language, source string) []Import {
	switch lang.Name {
	case "Go":
		return parseGoImports(source)
	case "Python":
		return parsePythonImports(source)
	case "JavaScript", "TypeScript":
		return parseJSImports(source)
	case "Rust":
		return parseRustImports(source)
	case "Java":
		return parseJavaImports(source)
	}
	return nil
}

func parseGoImports(source string) []Import {
	type spec struct{ alias, path string }
	var specs []spec
	for _, m := range reGoImportSingle.FindAllStringSubmatch(source, -1) {
		specs = append(specs, spec{m[1], m[2]})
	}
	for _, block := range reGoImportBlock.FindAllStringSubmatch(source, -1) {
		for _, m := range reGoImportLine.FindAllStringSubmatch(block[1], -1) {
			specs = append(specs, spec{m[1], m[2]})
		}
	}

	var out []Import
	for _, s := range specs {
		if s.alias == "_" || s.alias == "." {
			continue
		}
		qualifier := s.alias
		if qualifier == "" {
			qualifier = path.Base(s.path)
		}
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(qualifier) + `\.([A-Z]\w*)`)
		var names []string
		seen := make(map[string]bool)
		for _, m := range re.FindAllStringSubmatch(source, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				names = append(names, m[1])
			}
		}
		out = append(out, Import{Module: s.path, Names: names})
	}
	return out
}

func parsePythonImports(source string) []Import {
	var out []Import
	for _, m := range rePyFrom.FindAllStringSubmatch(source, -1) {
		out = append(out, Import{Module: m[1], Names: splitNames(m[2])})
	}
	for _, m := range rePyImport.FindAllStringSubmatch(source, -1) {
		out = append(out, Import{Module: m[1]})
	}
	return out
}

func parseJSImports(source string) []Import {
	var out []Import
	for _, m := range reJSImport.FindAllStringSubmatch(source, -1) {
		out = append(out, Import{Module: m[2], Names: jsBindingNames(m[1])})
	}
	for _, m := range reJSRequire.FindAllStringSubmatch(source, -1) {
		out = append(out, Import{Module: m[2], Names: jsBindingNames(m[1])})
	}
	return out
}

// jsBindingNames handles `a`, `{ a, b as c }`, `a, { b }` and `* as ns`.
func jsBindingNames(clause string) []string {
	clause = strings.TrimSpace(clause)
	var names []string
	if i := strings.Index(clause, "{"); i >= 0 {
		j := strings.Index(clause, "}")
		if j > i {
			names = append(names, splitNames(clause[i+1:j])...)
		}
		clause = strings.TrimSpace(strings.Trim(clause[:i], ", "))
	}
	if clause != "" && !strings.HasPrefix(clause, "*") {
		names = append(names, clause)
	}
	return names
}

func parseRustImports(source string) []Import {
	var out []Import
	for _, m := range reRustUse.FindAllStringSubmatch(source, -1) {
		imp := Import{Module: m[1]}
		switch {
		case m[2] != "":
			imp.Names = splitNames(m[2])
		case m[3] != "":
			imp.Names = []string{m[3]}
		default:
			if i := strings.LastIndex(m[1], "::"); i >= 0 {
				imp.Module, imp.Names = m[1][:i], []string{m[1][i+2:]}
			}
		}
		out = append(out, imp)
	}
	return out
}

func parseJavaImports(source string) []Import {
	var out []Import
	for _, m := range reJavaImport.FindAllStringSubmatch(source, -1) {
		imp := Import{Module: m[1]}
		if m[2] != "*" {
			imp.Names = []string{m[2]}
		}
		out = append(out, imp)
	}
	return out
}

// splitNames splits "a, b as c, d" into the names bound locally from the
// source module: a, b, d.
func splitNames(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "type ")
		if name, _, ok := strings.Cut(part, " as "); ok {
			part = strings.TrimSpace(name)
		}
		if part == "" || part == "*" || part == "self" {
			continue
		}
		out = append(out, part)
	}
	return out
}

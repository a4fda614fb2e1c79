package snippet

import "testing"

func TestRedactShell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"export assignment", "export API_KEY=abc123", "export API_KEY=***"},
		{"prefix assignment", "SECRET_TOKEN=hunter2 cmd", "SECRET_TOKEN=*** cmd"},
		{"password", "DB_PASSWORD=pw", "DB_PASSWORD=***"},
		{"non-secret untouched", "FOO=bar  cmd   --flag", "FOO=bar  cmd   --flag"},
		{"safe var", "PATH=/usr/bin cmd", "PATH=/usr/bin cmd"},
		{"expansion kept", "curl -H \"$AUTH_TOKEN\"", "curl -H \"$AUTH_TOKEN\""},
		{"trailing newline kept", "export GITHUB_TOKEN=x\n", "export GITHUB_TOKEN=***\n"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactShell(tt.input); got != tt.want {
				t.Errorf("RedactShell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactShellParseErrorFallsBack(t *testing.T) {
	got := RedactShell("API_KEY=abc (")
	if got != "API_KEY=*** (" {
		t.Errorf("got %q", got)
	}
}

func TestRedactSourceFiles(t *testing.T) {
	tests := []struct {
		name string
		path string
		in   string
		want string
	}{
		{"python", "/a.py", `API_KEY = "sk-123"`, `API_KEY = "***"`},
		{"go short decl", "/a.go", `password := "hunter2"`, `password := "***"`},
		{"js object", "/a.js", `{ token: 'abc' }`, `{ token: '***' }`},
		{"non-secret", "/a.py", `name = "bob"`, `name = "bob"`},
		{"empty value", "/a.py", `secret = ""`, `secret = ""`},
		{"shell by extension", "/env.sh", "export SECRET=x", "export SECRET=***"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Redact(Code(tt.path, tt.in, 0, 0))
			if got.Content != tt.want {
				t.Errorf("Redact(%q) = %q, want %q", tt.in, got.Content, tt.want)
			}
			if got.Filepath != tt.path {
				t.Errorf("Filepath changed to %q", got.Filepath)
			}
		})
	}
}

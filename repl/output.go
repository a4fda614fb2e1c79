package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/term"

	inlet "github.com/Paranoid-AF/inlet"
	"github.com/Paranoid-AF/inlet/generate"
)

// termWriter wraps a file and converts \n to \r\n when the file is a terminal
// (needed because raw mode disables the kernel's NL→CRNL translation).
// When the file is redirected, \n passes through unchanged.
func termWriter(f *os.File) io.Writer {
	if term.IsTerminal(int(f.Fd())) {
		return &crlfWriter{w: f}
	}
	return f
}

type crlfWriter struct {
	w io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	replaced := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	_, err := c.w.Write(replaced)
	return len(p), err // report original length to caller
}

type entry struct {
	Request  requestEntry    `toml:"request"`
	Response responseEntry   `toml:"response"`
	Trace    *generate.Trace `toml:"trace,omitempty"`
}

type requestEntry struct {
	Timestamp time.Time `toml:"timestamp"`
	ID        int       `toml:"id"`
	Filepath  string    `toml:"filepath"`
	Line      int       `toml:"line"`
	Col       int       `toml:"col"`
	CaretLine string    `toml:"caret_line"`
}

type responseEntry struct {
	CompletionID string `toml:"completion_id,omitempty"`
	Completion   string `toml:"completion"`
	Cached       bool   `toml:"cached"`
	ErrorCode    string `toml:"error_code,omitempty"`
	ErrorMessage string `toml:"error_message,omitempty"`
}

// writeEntry writes a single TOML document describing one completion to w.
func writeEntry(w io.Writer, req *inlet.Request, resp *inlet.Response, trace *generate.Trace) error {
	e := entry{
		Request: requestEntry{
			Timestamp: time.Now().Truncate(time.Second),
			ID:        req.RequestID,
			Filepath:  req.Filepath,
			Line:      req.Line,
			Col:       req.Col,
			CaretLine: caretLine(req.Contents, req.Line),
		},
		Response: responseEntry{
			CompletionID: resp.CompletionID,
			Completion:   resp.Completion,
			Cached:       resp.Cached,
		},
		Trace: trace,
	}
	if resp.Error != nil {
		e.Response.ErrorCode = resp.Error.Code
		e.Response.ErrorMessage = resp.Error.Message
	}

	fmt.Fprintf(w, "# %s\n\n", strings.Repeat("═", 60))
	if err := toml.NewEncoder(w).Encode(e); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

func caretLine(contents string, line int) string {
	lines := strings.Split(contents, "\n")
	if line < 0 || line >= len(lines) {
		return ""
	}
	return lines[line]
}

// Command inlet-repl is an interactive test REPL for inlet completions.
// Each line typed is completed at the cursor position, with the lines
// entered before it as the rest of a scratch file. Results are written to
// stdout as TOML.
//
// Usage:
//
//	./inlet-repl               # interactive, TOML on screen
//	./inlet-repl > log.toml    # prompt on screen, TOML to file
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	inlet "github.com/Paranoid-AF/inlet"
	"github.com/Paranoid-AF/inlet/generate"
)

const prompt = "> "

// session is the scratch file the REPL completes in.
type session struct {
	path  string
	lines []string
	dirs  []string
}

// request builds a completion request with text as the caret line.
func (s *session) request(id int, text string, cursor int) *inlet.Request {
	lines := append(append([]string(nil), s.lines...), text)
	return &inlet.Request{
		RequestID:     id,
		SessionID:     "repl",
		Filepath:      s.path,
		Contents:      strings.Join(lines, "\n"),
		Line:          len(s.lines),
		Col:           cursor,
		WorkspaceDirs: s.dirs,
	}
}

// openRequest builds a request at path:line:col of a file on disk.
// line and col are 1-based as editors show them.
func openRequest(id int, loc string, dirs []string) (*inlet.Request, error) {
	parts := strings.Split(loc, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("expected path:line:col, got %q", loc)
	}
	line, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("bad line: %w", err)
	}
	col, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, fmt.Errorf("bad column: %w", err)
	}
	path, err := filepath.Abs(parts[0])
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &inlet.Request{
		RequestID:     id,
		SessionID:     "repl",
		Filepath:      path,
		Contents:      string(data),
		Line:          line - 1,
		Col:           col - 1,
		WorkspaceDirs: dirs,
	}, nil
}

func main() {
	editor, err := NewEditor()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer editor.Close()

	tty := editor.Tty()

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(tty, "error: cannot determine cwd: %v\r\n", err)
		os.Exit(1)
	}
	sess := &session{path: filepath.Join(cwd, "scratch.py"), dirs: []string{cwd}}

	fmt.Fprintf(tty, "\033[2J\033[H") // clear screen
	fmt.Fprintf(tty, "inlet repl\r\n")
	fmt.Fprintf(tty, "workspace: %s\r\n", cwd)
	fmt.Fprintf(tty, "\r\ncommands:\r\n")
	fmt.Fprintf(tty, "  :file <name>             scratch file name, picks the language\r\n")
	fmt.Fprintf(tty, "  :ws <dir>                add a workspace directory\r\n")
	fmt.Fprintf(tty, "  :open <path:line:col>    complete inside a file on disk\r\n")
	fmt.Fprintf(tty, "  :clear                   forget the scratch lines\r\n")
	fmt.Fprintf(tty, "  :quit                    exit\r\n\r\n")

	engine := generate.NewEngine()
	defer engine.Close()

	engine.WarmContext(context.Background(), sess.dirs)

	// stdout writer: converts \n → \r\n when stdout is a terminal (raw mode),
	// passes \n through unchanged when redirected to a file.
	out := termWriter(os.Stdout)

	reqID := 0

	for {
		text, cursorPos, err := editor.ReadLine(prompt)
		if err == io.EOF || err == ErrInterrupt {
			break
		}
		if err != nil {
			fmt.Fprintf(tty, "read error: %v\r\n", err)
			break
		}

		cmd, arg, _ := strings.Cut(text, " ")
		arg = strings.TrimSpace(arg)
		var req *inlet.Request
		switch cmd {
		case ":quit", ":q":
			return
		case ":clear":
			sess.lines = nil
			fmt.Fprintf(tty, "scratch cleared\r\n\r\n")
			continue
		case ":file":
			sess.path = filepath.Join(cwd, arg)
			fmt.Fprintf(tty, "file: %s (%s)\r\n\r\n", sess.path, inlet.DetectLanguage(sess.path, "").Name)
			continue
		case ":ws":
			info, statErr := os.Stat(arg)
			if statErr != nil || !info.IsDir() {
				fmt.Fprintf(tty, "error: not a directory: %s\r\n", arg)
				continue
			}
			sess.dirs = append(sess.dirs, arg)
			engine.WarmContext(context.Background(), []string{arg})
			fmt.Fprintf(tty, "workspace: %s\r\n\r\n", strings.Join(sess.dirs, ", "))
			continue
		case ":open":
			reqID++
			req, err = openRequest(reqID, arg, sess.dirs)
			if err != nil {
				fmt.Fprintf(tty, "error: %v\r\n", err)
				continue
			}
		default:
			reqID++
			req = sess.request(reqID, text, cursorPos)
		}

		resp, trace := engine.CompleteVerbose(context.Background(), req)

		// Show brief summary on tty.
		switch {
		case resp.Error != nil:
			fmt.Fprintf(tty, "error [%s]: %s\r\n", resp.Error.Code, resp.Error.Message)
		case resp.Completion == "":
			fmt.Fprintf(tty, "(no completion)\r\n")
		default:
			for _, line := range strings.Split(resp.Completion, "\n") {
				fmt.Fprintf(tty, "  | %s\r\n", line)
			}
		}
		fmt.Fprintf(tty, "\r\n")

		if cmd != ":open" {
			// The typed line becomes part of the scratch file and counts as an edit.
			engine.RecordEdit(inlet.EditRequest{
				Type:      "edit",
				Filepath:  sess.path,
				StartLine: len(sess.lines),
				EndLine:   len(sess.lines),
				Lines:     []string{text},
			})
			sess.lines = append(sess.lines, text)
		}

		// TOML output to stdout (crlfWriter handles raw mode).
		if err := writeEntry(out, req, resp, trace); err != nil {
			fmt.Fprintf(tty, "write error: %v\r\n", err)
		}
	}
}

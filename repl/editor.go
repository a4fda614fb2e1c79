package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrInterrupt is returned when the user presses Ctrl-C.
var ErrInterrupt = errors.New("interrupted")

// Editor reads one scratch line at a time from /dev/tty in raw mode, so
// the prompt stays usable when stdout is redirected. The caret position at
// Enter is where the completion is requested.
type Editor struct {
	tty      *os.File
	oldState *term.State
	line     lineBuf
}

// NewEditor opens /dev/tty and switches to raw mode.
func NewEditor() (*Editor, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/tty: %w", err)
	}
	old, err := term.MakeRaw(int(tty.Fd()))
	if err != nil {
		tty.Close()
		return nil, fmt.Errorf("raw mode: %w", err)
	}
	return &Editor{tty: tty, oldState: old}, nil
}

// Close restores terminal state and closes the tty.
func (e *Editor) Close() {
	term.Restore(int(e.tty.Fd()), e.oldState)
	e.tty.Close()
}

// Tty returns the terminal for status output.
func (e *Editor) Tty() *os.File {
	return e.tty
}

// ReadLine shows prompt and returns the submitted line with the caret's
// byte offset in it. Ctrl-D on an empty line returns io.EOF.
func (e *Editor) ReadLine(prompt string) (text string, caret int, err error) {
	l := &e.line
	l.reset()
	e.redraw(prompt)

	for {
		b, err := e.readByte()
		if err != nil {
			return "", 0, err
		}

		switch b {
		case 3: // Ctrl-C
			fmt.Fprint(e.tty, "\r\n")
			return "", 0, ErrInterrupt
		case 4: // Ctrl-D
			if len(l.buf) == 0 {
				fmt.Fprint(e.tty, "\r\n")
				return "", 0, io.EOF
			}
			l.deleteForward()
		case 13, 10: // Enter
			fmt.Fprint(e.tty, "\r\n")
			text, caret = l.submit()
			return text, caret, nil
		case 127, 8: // Backspace
			l.backspace()
		case 1: // Ctrl-A
			l.home()
		case 5: // Ctrl-E
			l.end()
		case 2: // Ctrl-B
			l.left()
		case 6: // Ctrl-F
			l.right()
		case 11: // Ctrl-K
			l.killToEnd()
		case 21: // Ctrl-U
			l.killLine()
		case 23: // Ctrl-W
			l.deleteWord()
		case 27: // Esc
			e.escape()
		default:
			if b >= 32 {
				e.insertRune(b)
			}
		}

		e.redraw(prompt)
	}
}

func (e *Editor) readByte() (byte, error) {
	var b [1]byte
	if _, err := e.tty.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// escape handles the CSI sequences for arrows, Home, End and Delete.
func (e *Editor) escape() {
	l := &e.line
	if b, err := e.readByte(); err != nil || b != '[' {
		return
	}
	b, err := e.readByte()
	if err != nil {
		return
	}
	switch b {
	case 'A':
		l.browse(-1)
	case 'B':
		l.browse(1)
	case 'C':
		l.right()
	case 'D':
		l.left()
	case 'H':
		l.home()
	case 'F':
		l.end()
	case '1', '3', '4':
		e.readByte() // trailing '~'
		switch b {
		case '1':
			l.home()
		case '3':
			l.deleteForward()
		case '4':
			l.end()
		}
	}
}

// insertRune reads the rest of the UTF-8 sequence led by lead and inserts
// it at the caret.
func (e *Editor) insertRune(lead byte) {
	ch := make([]byte, utf8RuneLen(lead))
	ch[0] = lead
	if len(ch) > 1 {
		if _, err := io.ReadFull(e.tty, ch[1:]); err != nil {
			return
		}
	}
	e.line.insert(ch)
}

// redraw clears the terminal line, draws prompt and text, then moves the
// terminal cursor back to the caret.
func (e *Editor) redraw(prompt string) {
	fmt.Fprintf(e.tty, "\r\x1b[K%s%s", prompt, e.line.buf)
	if n := e.line.tailWidth(); n > 0 {
		fmt.Fprintf(e.tty, "\x1b[%dD", n)
	}
}

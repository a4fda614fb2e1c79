package main

import (
	"unicode"
	"unicode/utf8"
)

// lineBuf is the text being edited and the caret inside it. pos is a byte
// offset and always sits on a rune boundary; it becomes the request column
// when the line is submitted.
type lineBuf struct {
	buf []byte
	pos int

	history [][]byte
	hpos    int // index into history while browsing; len(history) when not
}

func (l *lineBuf) reset() {
	l.buf = l.buf[:0]
	l.pos = 0
	l.hpos = len(l.history)
}

// submit records a non-empty line in history and returns it with its caret.
func (l *lineBuf) submit() (string, int) {
	if len(l.buf) > 0 {
		l.history = append(l.history, append([]byte(nil), l.buf...))
	}
	return string(l.buf), l.pos
}

func (l *lineBuf) insert(ch []byte) {
	l.buf = append(l.buf[:l.pos], append(ch, l.buf[l.pos:]...)...)
	l.pos += len(ch)
}

// cut removes buf[from:to] and leaves the caret at from.
func (l *lineBuf) cut(from, to int) {
	l.buf = append(l.buf[:from], l.buf[to:]...)
	l.pos = from
}

func (l *lineBuf) backspace() {
	if _, size := prevRune(l.buf, l.pos); size > 0 {
		l.cut(l.pos-size, l.pos)
	}
}

func (l *lineBuf) deleteForward() {
	if l.pos < len(l.buf) {
		_, size := utf8.DecodeRune(l.buf[l.pos:])
		l.cut(l.pos, l.pos+size)
	}
}

func (l *lineBuf) left() {
	_, size := prevRune(l.buf, l.pos)
	l.pos -= size
}

func (l *lineBuf) right() {
	if l.pos < len(l.buf) {
		_, size := utf8.DecodeRune(l.buf[l.pos:])
		l.pos += size
	}
}

func (l *lineBuf) home() { l.pos = 0 }
func (l *lineBuf) end()  { l.pos = len(l.buf) }

// killLine drops everything before the caret (Ctrl-U).
func (l *lineBuf) killLine() { l.cut(0, l.pos) }

// killToEnd drops everything from the caret on (Ctrl-K).
func (l *lineBuf) killToEnd() { l.buf = l.buf[:l.pos] }

// deleteWord drops the word before the caret along with any spaces between
// it and the caret (Ctrl-W).
func (l *lineBuf) deleteWord() {
	i := l.pos
	for i > 0 {
		r, size := prevRune(l.buf, i)
		if !unicode.IsSpace(r) {
			break
		}
		i -= size
	}
	for i > 0 {
		r, size := prevRune(l.buf, i)
		if unicode.IsSpace(r) {
			break
		}
		i -= size
	}
	l.cut(i, l.pos)
}

// browse moves through history by delta and loads the entry, keeping the
// caret at the end of the line. Moving past the newest entry clears it.
func (l *lineBuf) browse(delta int) {
	next := l.hpos + delta
	if next < 0 || next > len(l.history) {
		return
	}
	l.hpos = next
	if next == len(l.history) {
		l.buf = l.buf[:0]
	} else {
		l.buf = append(l.buf[:0], l.history[next]...)
	}
	l.pos = len(l.buf)
}

// tailWidth is how many runes follow the caret, which is how far the
// terminal cursor moves back after the line is drawn.
func (l *lineBuf) tailWidth() int {
	return utf8.RuneCount(l.buf[l.pos:])
}

// prevRune returns the rune and byte size of the rune before pos.
func prevRune(buf []byte, pos int) (rune, int) {
	if pos <= 0 {
		return 0, 0
	}
	i := pos - 1
	for i > 0 && !utf8.RuneStart(buf[i]) {
		i--
	}
	return utf8.DecodeRune(buf[i:pos])
}

// utf8RuneLen returns the expected byte length of a UTF-8 sequence
// from its leading byte.
func utf8RuneLen(lead byte) int {
	switch {
	case lead < 0xC0:
		return 1
	case lead < 0xE0:
		return 2
	case lead < 0xF0:
		return 3
	}
	return 4
}

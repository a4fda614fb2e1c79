package generate

import (
	"context"
	"iter"
	"strings"
	"sync"
	"unicode"

	inlet "github.com/Paranoid-AF/inlet"
	"github.com/Paranoid-AF/inlet/prompt"
)

// MaxCompletionLines caps a multiline completion.
const MaxCompletionLines = 5

// lineBuffer regroups chunks into complete lines.
type lineBuffer struct {
	partial string
}

// feed appends chunk and returns the lines it completed, each with its
// newline.
func (b *lineBuffer) feed(chunk string) []string {
	b.partial += chunk
	var lines []string
	for {
		i := strings.IndexByte(b.partial, '\n')
		if i < 0 {
			return lines
		}
		lines = append(lines, b.partial[:i+1])
		b.partial = b.partial[i+1:]
	}
}

type lineVerdict int

const (
	lineKeep lineVerdict = iota
	lineDrop
	lineStop
)

// lineFilter catches output the model should not have produced.
type lineFilter struct {
	suffixLine string // first non-blank suffix line, trimmed
	lastPrefix string // last complete prefix line, trimmed
	previous   string
	header     string
}

func newLineFilter(prefix, suffix string, lang inlet.Language) *lineFilter {
	f := &lineFilter{header: lang.Comment + " " + prompt.PathHeader}
	for _, line := range strings.Split(suffix, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			f.suffixLine = t
			break
		}
	}
	if i := strings.LastIndexByte(prefix, '\n'); i >= 0 {
		before := prefix[:i]
		f.lastPrefix = strings.TrimSpace(before[strings.LastIndexByte(before, '\n')+1:])
	}
	return f
}

func (f *lineFilter) check(line string) lineVerdict {
	t := strings.TrimSpace(line)
	switch {
	case t == "":
		return lineKeep
	case strings.HasPrefix(t, f.header):
		return lineDrop
	case t == f.suffixLine:
		return lineStop
	case repetitive(t) && (t == f.previous || t == f.lastPrefix):
		return lineStop
	}
	f.previous = t
	return lineKeep
}

// repetitive reports whether a repeated line is a sign of a looping model
// rather than ordinary code like closing braces.
func repetitive(t string) bool {
	return len(t) > 3 && strings.IndexFunc(t, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}

// Transform regroups src into lines and bounds it: at most
// MaxCompletionLines emitted lines when multiline (one otherwise). A line
// completing beyond the cap calls fullStop once to end the model call.
// A trailing partial line is emitted when src ends on its own. If ctx is
// done the sequence ends without it.
func Transform(ctx context.Context, src iter.Seq2[string, error], prefix, suffix string, multiline bool, fullStop func(), helper *inlet.HelperVars) iter.Seq2[string, error] {
	limit := 1
	if multiline {
		limit = MaxCompletionLines
	}
	var once sync.Once
	stop := func() {
		if fullStop != nil {
			once.Do(fullStop)
		}
	}

	return func(yield func(string, error) bool) {
		var buf lineBuffer
		filter := newLineFilter(prefix, suffix, helper.Language)
		emitted := 0

		for chunk, err := range src {
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
			for _, line := range buf.feed(chunk) {
				switch filter.check(line) {
				case lineDrop:
					continue
				case lineStop:
					stop()
					return
				}
				if emitted == limit {
					stop()
					return
				}
				if !yield(line, nil) {
					return
				}
				emitted++
			}
		}

		if ctx.Err() != nil || buf.partial == "" {
			return
		}
		if filter.check(buf.partial) == lineKeep {
			yield(buf.partial, nil)
		}
	}
}

package generate

import (
	"iter"
	"slices"
	"strings"
	"unicode/utf8"
)

// StopAt truncates src before the first stop word. Up to len(longest)-1
// bytes are held back between chunks so a stop word split across chunks is
// still found. Released text always ends on a rune boundary. onStop, if set, runs when a stop word ends the stream.
func StopAt(src iter.Seq2[string, error], stops []string, onStop func()) iter.Seq2[string, error] {
	stops = slices.DeleteFunc(slices.Clone(stops), func(s string) bool { return s == "" })
	if len(stops) == 0 {
		return src
	}
	hold := 0
	for _, s := range stops {
		hold = max(hold, len(s)-1)
	}

	return func(yield func(string, error) bool) {
		var buf string
		for chunk, err := range src {
			if err != nil {
				yield("", err)
				return
			}
			buf += chunk
			if i := firstStop(buf, stops); i >= 0 {
				if i > 0 && !yield(buf[:i], nil) {
					return
				}
				if onStop != nil {
					onStop()
				}
				return
			}
			n := len(buf) - hold
			for n > 0 && n < len(buf) && !utf8.RuneStart(buf[n]) {
				n--
			}
			if n > 0 {
				if !yield(buf[:n], nil) {
					return
				}
				buf = buf[n:]
			}
		}
		if buf != "" {
			yield(buf, nil)
		}
	}
}

// firstStop returns the index of the earliest stop word in s, or -1.
func firstStop(s string, stops []string) int {
	at := -1
	for _, stop := range stops {
		if i := strings.Index(s, stop); i >= 0 && (at < 0 || i < at) {
			at = i
		}
	}
	return at
}

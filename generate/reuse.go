package generate

import (
	"context"
	"iter"
	"log/slog"
	"strings"
	"sync"
)

type slotState int

const (
	stateEmpty slotState = iota
	statePending
)

// ReuseManager holds the single pending generation of an editing session.
// A request whose prefix extends the pending prefix attaches to the running
// model call instead of starting a new one.
type ReuseManager struct {
	mu     sync.Mutex
	state  slotState
	prefix string
	gen    *listenable
}

// NewReuseManager creates an empty manager.
func NewReuseManager() *ReuseManager {
	return &ReuseManager{}
}

// Generator returns the completion stream for prefix. When allowReuse is set
// and the pending generation was started for a prefix of this one, the
// pending stream is replayed with the characters typed since removed.
// Otherwise the pending generation is cancelled and create starts a new one.
//
// The model call outlives ctx so a later request can attach to it; only
// listening stops when ctx is done.
func (m *ReuseManager) Generator(ctx context.Context, prefix string, create func(context.Context) iter.Seq2[string, error], allowReuse bool) iter.Seq2[string, error] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == statePending && allowReuse && strings.HasPrefix(prefix, m.prefix) {
		typed := prefix[len(m.prefix):]
		if m.consistent(typed) {
			slog.Debug("reusing pending generation", "typed", len(typed))
			return stripTyped(m.gen.Listen(ctx), typed)
		}
	}

	m.cancelLocked()
	m.gen = newListenable(context.WithoutCancel(ctx), create)
	m.state, m.prefix = statePending, prefix
	return m.gen.Listen(ctx)
}

// consistent reports whether what the pending generation produced so far
// agrees with the text typed since it started.
func (m *ReuseManager) consistent(typed string) bool {
	text, done, failed := m.gen.Text()
	switch {
	case failed:
		return false
	case strings.HasPrefix(text, typed):
		return !done || len(text) > len(typed)
	default:
		return !done && strings.HasPrefix(typed, text)
	}
}

// Cancel stops the pending model call and clears the slot. It is idempotent.
func (m *ReuseManager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()
}

func (m *ReuseManager) cancelLocked() {
	if m.state != statePending {
		return
	}
	m.gen.Cancel()
	m.state, m.prefix, m.gen = stateEmpty, "", nil
}

// stripTyped drops the leading characters of src that the user has already
// typed. The stream ends if the model output diverges from them.
func stripTyped(src iter.Seq2[string, error], typed string) iter.Seq2[string, error] {
	if typed == "" {
		return src
	}
	return func(yield func(string, error) bool) {
		rest := typed
		for chunk, err := range src {
			if err != nil {
				yield("", err)
				return
			}
			if rest != "" {
				n := min(len(rest), len(chunk))
				if chunk[:n] != rest[:n] {
					return
				}
				rest, chunk = rest[n:], chunk[n:]
				if chunk == "" {
					continue
				}
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

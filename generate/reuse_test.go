package generate

import (
	"context"
	"iter"
	"strings"
	"sync"
	"testing"
	"time"
)

// feed is a model stream driven by the test through a channel.
type feed struct {
	ch chan string

	mu   sync.Mutex
	ctxs []context.Context
}

func newFeed() *feed {
	return &feed{ch: make(chan string, 16)}
}

func (f *feed) create(ctx context.Context) iter.Seq2[string, error] {
	f.mu.Lock()
	f.ctxs = append(f.ctxs, ctx)
	f.mu.Unlock()
	return func(yield func(string, error) bool) {
		for {
			select {
			case s, ok := <-f.ch:
				if !ok {
					return
				}
				if !yield(s, nil) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}
}

func (f *feed) creates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ctxs)
}

func (f *feed) ctx(i int) context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctxs[i]
}

func join(t *testing.T, seq iter.Seq2[string, error]) string {
	t.Helper()
	out, err := collect(seq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return strings.Join(out, "")
}

func TestReuseStripsTypedText(t *testing.T) {
	m := NewReuseManager()
	f := newFeed()
	ctx := context.Background()

	m.Generator(ctx, "abc", f.create, true)
	second := m.Generator(ctx, "abcd", f.create, true)

	f.ch <- "def"
	f.ch <- "ghi"
	close(f.ch)

	if got := join(t, second); got != "efghi" {
		t.Errorf("got %q, want %q", got, "efghi")
	}
	if f.creates() != 1 {
		t.Errorf("expected one model call, got %d", f.creates())
	}
}

func TestReuseReplaysToLateListener(t *testing.T) {
	m := NewReuseManager()
	f := newFeed()
	ctx := context.Background()

	first := m.Generator(ctx, "p", f.create, true)
	f.ch <- "abc"
	f.ch <- "def"
	close(f.ch)
	if got := join(t, first); got != "abcdef" {
		t.Fatalf("first listener got %q", got)
	}

	if got := join(t, m.Generator(ctx, "p", f.create, true)); got != "abcdef" {
		t.Errorf("late listener got %q", got)
	}
	if f.creates() != 1 {
		t.Errorf("expected one model call, got %d", f.creates())
	}
}

func TestReuseNonPrefixCancelsPending(t *testing.T) {
	m := NewReuseManager()
	f := newFeed()
	ctx := context.Background()

	m.Generator(ctx, "abc", f.create, true)
	m.Generator(ctx, "xyz", f.create, true)

	if f.creates() != 2 {
		t.Fatalf("expected two model calls, got %d", f.creates())
	}
	if f.ctx(0).Err() == nil {
		t.Error("displaced generation was not cancelled")
	}
	if f.ctx(1).Err() != nil {
		t.Error("new generation must be running")
	}
	m.Cancel()
}

func TestReuseDisallowed(t *testing.T) {
	m := NewReuseManager()
	f := newFeed()
	ctx := context.Background()

	m.Generator(ctx, "abc", f.create, true)
	m.Generator(ctx, "abcd", f.create, false)
	if f.creates() != 2 {
		t.Errorf("expected a fresh model call, got %d calls", f.creates())
	}
	m.Cancel()
}

func TestReuseRejectsDivergentOutput(t *testing.T) {
	m := NewReuseManager()
	f := newFeed()
	ctx := context.Background()

	first := m.Generator(ctx, "abc", f.create, true)
	f.ch <- "xyz"
	close(f.ch)
	join(t, first)

	f2 := newFeed()
	m.Generator(ctx, "abcd", f2.create, true)
	if f2.creates() != 1 {
		t.Error("typed text contradicting the output must start a new generation")
	}
	m.Cancel()
}

func TestReuseRejectsExhaustedOutput(t *testing.T) {
	m := NewReuseManager()
	f := newFeed()
	ctx := context.Background()

	first := m.Generator(ctx, "abc", f.create, true)
	f.ch <- "d"
	close(f.ch)
	join(t, first)

	f2 := newFeed()
	m.Generator(ctx, "abcd", f2.create, true)
	if f2.creates() != 1 {
		t.Error("a finished generation with nothing left must not be reused")
	}
	m.Cancel()
}

func TestReuseListenerContextDoesNotCancelModel(t *testing.T) {
	m := NewReuseManager()
	f := newFeed()
	ctx, cancel := context.WithCancel(context.Background())

	stream := m.Generator(ctx, "abc", f.create, true)
	cancel()

	done := make(chan struct{})
	go func() {
		for range stream {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop after its context was cancelled")
	}
	if f.ctx(0).Err() != nil {
		t.Error("model call must outlive the request that started it")
	}
	m.Cancel()
	if f.ctx(0).Err() == nil {
		t.Error("Cancel did not stop the model call")
	}
}

func TestReuseCancelIdempotent(t *testing.T) {
	m := NewReuseManager()
	m.Cancel()

	f := newFeed()
	stream := m.Generator(context.Background(), "abc", f.create, true)
	m.Cancel()
	m.Cancel()

	if got := join(t, stream); got != "" {
		t.Errorf("cancelled stream yielded %q", got)
	}
	if m.state != stateEmpty {
		t.Error("slot not cleared after Cancel")
	}
}

func TestStripTypedDivergence(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		typed string
		want  string
	}{
		{"spans chunks", []string{"a", "bcd"}, "ab", "cd"},
		{"diverges", []string{"axe"}, "ab", ""},
		{"empty typed", []string{"abc"}, "", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := join(t, stripTyped(chunks(tt.parts...), tt.typed)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

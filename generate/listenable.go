package generate

import (
	"context"
	"iter"
	"strings"
	"sync"
)

// listenable drains a model stream in the background and buffers every
// chunk, so a listener that attaches late first replays what was produced.
type listenable struct {
	mu     sync.Mutex
	chunks []string
	err    error
	done   bool
	notify chan struct{} // closed and replaced on every change
	cancel context.CancelFunc
}

func newListenable(ctx context.Context, create func(context.Context) iter.Seq2[string, error]) *listenable {
	ctx, cancel := context.WithCancel(ctx)
	l := &listenable{notify: make(chan struct{}), cancel: cancel}
	go l.run(create(ctx))
	return l
}

func (l *listenable) run(src iter.Seq2[string, error]) {
	for chunk, err := range src {
		if err != nil {
			l.finish(err)
			return
		}
		if !l.push(chunk) {
			return
		}
	}
	l.finish(nil)
}

// push appends a chunk; it reports false once the generation is over.
func (l *listenable) push(chunk string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return false
	}
	l.chunks = append(l.chunks, chunk)
	close(l.notify)
	l.notify = make(chan struct{})
	return true
}

func (l *listenable) finish(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return
	}
	l.done, l.err = true, err
	close(l.notify)
}

// Cancel stops the model call. Listeners end after the buffered chunks.
func (l *listenable) Cancel() {
	l.cancel()
	l.finish(nil)
}

// Listen replays buffered chunks, then follows the generation until it
// ends or ctx is done.
func (l *listenable) Listen(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		next := 0
		for {
			l.mu.Lock()
			chunks := l.chunks[next:]
			done, err, notify := l.done, l.err, l.notify
			l.mu.Unlock()

			for _, c := range chunks {
				next++
				if !yield(c, nil) {
					return
				}
			}
			if done {
				if err != nil {
					yield("", err)
				}
				return
			}
			select {
			case <-notify:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Text returns everything produced so far, whether the generation is
// over and whether it failed.
func (l *listenable) Text() (text string, done, failed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.chunks, ""), l.done, l.err != nil
}

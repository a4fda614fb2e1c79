package generate

import (
	"context"
	"iter"
	"sync"

	"github.com/Paranoid-AF/inlet/prompt"
)

// stubClient replays fixed chunks and records how it was called.
type stubClient struct {
	fim    bool
	chunks []string
	err    error

	mu      sync.Mutex
	calls   int
	prompts []string
	raws    []bool
	ctxs    []context.Context
}

func (c *stubClient) SupportsFIM() bool { return c.fim }

func (c *stubClient) StreamFIM(ctx context.Context, prefix, suffix string, opts prompt.CompletionOptions) iter.Seq2[string, error] {
	c.record(ctx, prefix+"<FIM>"+suffix, false)
	return c.replay(ctx)
}

func (c *stubClient) StreamComplete(ctx context.Context, text string, opts prompt.CompletionOptions, raw bool) iter.Seq2[string, error] {
	c.record(ctx, text, raw)
	return c.replay(ctx)
}

func (c *stubClient) record(ctx context.Context, text string, raw bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.prompts = append(c.prompts, text)
	c.raws = append(c.raws, raw)
	c.ctxs = append(c.ctxs, ctx)
}

func (c *stubClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *stubClient) replay(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, chunk := range c.chunks {
			if ctx.Err() != nil {
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
		if c.err != nil {
			yield("", c.err)
		}
	}
}

// chunks turns a slice into a stream.
func chunks(parts ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, p := range parts {
			if !yield(p, nil) {
				return
			}
		}
	}
}

// collect drains a stream.
func collect(seq iter.Seq2[string, error]) ([]string, error) {
	var out []string
	for chunk, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, chunk)
	}
	return out, nil
}

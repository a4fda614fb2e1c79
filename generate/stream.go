package generate

import (
	"context"
	"iter"

	inlet "github.com/Paranoid-AF/inlet"
	"github.com/Paranoid-AF/inlet/prompt"
)

// Streamer obtains model streams through a ReuseManager and shapes them.
type Streamer struct {
	Reuse *ReuseManager
}

// NewStreamer creates a streamer for one editing session.
func NewStreamer(reuse *ReuseManager) *Streamer {
	return &Streamer{Reuse: reuse}
}

// StreamCompletionWithFilters streams the completion for the caret window.
// Stop words and the line cap both end the model call through the reuse
// manager; caller cancellation only stops iteration.
func (s *Streamer) StreamCompletionWithFilters(ctx context.Context, client ModelClient, prefix, suffix, rendered string, multiline bool, opts prompt.CompletionOptions, helper *inlet.HelperVars) iter.Seq2[string, error] {
	fullStop := s.Reuse.Cancel
	create := func(ctx context.Context) iter.Seq2[string, error] {
		if client.SupportsFIM() {
			return client.StreamFIM(ctx, prefix, suffix, opts)
		}
		return client.StreamComplete(ctx, rendered, opts, true)
	}

	stream := s.Reuse.Generator(ctx, prefix, create, multiline)
	stream = untilDone(ctx, stream)
	stream = StopAt(stream, opts.Stop, fullStop)
	return Transform(ctx, stream, prefix, suffix, multiline, fullStop, helper)
}

// untilDone ends src as soon as ctx is done.
func untilDone(ctx context.Context, src iter.Seq2[string, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for chunk, err := range src {
			if ctx.Err() != nil {
				return
			}
			if !yield(chunk, err) {
				return
			}
		}
	}
}

// Package tokens counts model tokens and prunes text to fit token budgets.
package tokens

import (
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// defaultEncoding is used for models tiktoken does not know. It is the GPT-4
// encoding and a reasonable approximation for most code models.
const defaultEncoding = "cl100k_base"

// Counter returns how many tokens text consumes for the given model.
// Implementations must be deterministic for a given (text, model) pair.
type Counter interface {
	Count(text, model string) int
}

// Tiktoken counts tokens with per-model BPE encodings.
// Encodings are loaded lazily and kept for the life of the counter.
// If no encoding can be loaded the heuristic estimate is used instead.
type Tiktoken struct {
	mu        sync.RWMutex
	encodings map[string]*tiktoken.Tiktoken // nil value = load failed
	load      func(model string) (*tiktoken.Tiktoken, error)
}

// Ensure Tiktoken implements Counter.
var _ Counter = (*Tiktoken)(nil)

// NewTiktoken creates a counter backed by tiktoken-go.
func NewTiktoken() *Tiktoken {
	return &Tiktoken{
		encodings: make(map[string]*tiktoken.Tiktoken),
		load:      loadEncoding,
	}
}

func loadEncoding(model string) (*tiktoken.Tiktoken, error) {
	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return enc, nil
	}
	return tiktoken.GetEncoding(defaultEncoding)
}

// Count returns the token count of text for model.
func (t *Tiktoken) Count(text, model string) int {
	if text == "" {
		return 0
	}
	enc := t.encoding(model)
	if enc == nil {
		return Heuristic{}.Count(text, model)
	}
	return len(enc.Encode(text, nil, nil))
}

func (t *Tiktoken) encoding(model string) *tiktoken.Tiktoken {
	t.mu.RLock()
	enc, ok := t.encodings[model]
	t.mu.RUnlock()
	if ok {
		return enc
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if enc, ok := t.encodings[model]; ok {
		return enc
	}
	enc, err := t.load(model)
	if err != nil {
		slog.Warn("tokenizer unavailable, using estimate", "model", model, "error", err)
		enc = nil
	}
	t.encodings[model] = enc
	return enc
}

// Heuristic estimates ~4 characters per token. It needs no encoding files.
type Heuristic struct{}

// Ensure Heuristic implements Counter.
var _ Counter = Heuristic{}

// Count returns an estimated token count.
func (Heuristic) Count(text, _ string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

package generate

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Paranoid-AF/inlet/prompt"
)

// maxServerStops is the number of stop sequences OpenAI-compatible
// /completions endpoints accept.
const maxServerStops = 4

// ModelClient streams text from a completion model.
type ModelClient interface {
	// SupportsFIM reports whether the model takes prefix and suffix separately.
	SupportsFIM() bool
	// StreamFIM streams the text between prefix and suffix.
	StreamFIM(ctx context.Context, prefix, suffix string, opts prompt.CompletionOptions) iter.Seq2[string, error]
	// StreamComplete streams the continuation of a rendered prompt. With raw
	// set the client does not truncate the stream at stop words itself.
	StreamComplete(ctx context.Context, text string, opts prompt.CompletionOptions, raw bool) iter.Seq2[string, error]
}

// Client performs streaming completions via an OpenAI-compatible /completions API.
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	fim         bool
}

var _ ModelClient = (*Client)(nil)

// NewClient creates a completion client from config.
func NewClient(baseURL, apiKey, model string, maxTokens int, temperature float64, fim bool) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	return &Client{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		fim:         fim,
	}
}

// Model returns the completion model name.
func (c *Client) Model() string { return c.model }

// SupportsFIM reports whether the endpoint is used in fill-in-middle mode.
func (c *Client) SupportsFIM() bool { return c.fim }

// StreamFIM streams a completion with the suffix passed as a separate field.
func (c *Client) StreamFIM(ctx context.Context, prefix, suffix string, opts prompt.CompletionOptions) iter.Seq2[string, error] {
	return c.stream(ctx, openai.CompletionRequest{Prompt: prefix, Suffix: suffix}, opts, false)
}

// StreamComplete streams the continuation of a rendered prompt.
func (c *Client) StreamComplete(ctx context.Context, text string, opts prompt.CompletionOptions, raw bool) iter.Seq2[string, error] {
	return c.stream(ctx, openai.CompletionRequest{Prompt: text}, opts, raw)
}

func (c *Client) stream(ctx context.Context, req openai.CompletionRequest, opts prompt.CompletionOptions, raw bool) iter.Seq2[string, error] {
	req.Model = c.model
	req.MaxTokens = cmp.Or(opts.MaxTokens, c.maxTokens)
	req.Temperature = float32(cmp.Or(opts.Temperature, c.temperature))
	req.Stop = opts.Stop[:min(len(opts.Stop), maxServerStops)]

	seq := func(yield func(string, error) bool) {
		stream, err := c.client.CreateCompletionStream(ctx, req)
		if err != nil {
			if ctx.Err() == nil {
				yield("", fmt.Errorf("completion API error: %w", err))
			}
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				// A cancelled request ends the stream silently.
				if ctx.Err() == nil {
					yield("", fmt.Errorf("completion stream error: %w", err))
				}
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Text == "" {
				continue
			}
			if !yield(resp.Choices[0].Text, nil) {
				return
			}
		}
	}
	if raw {
		return seq
	}
	return StopAt(seq, opts.Stop, nil)
}

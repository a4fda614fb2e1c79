package snippet

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	inlet "github.com/Paranoid-AF/inlet"
)

// Collector gathers snippets from every enabled source for one request.
type Collector struct {
	// Recent supplies recently edited ranges. Nil disables the source.
	Recent RangeSource
}

// NewCollector creates a collector reading edited ranges from recent.
func NewCollector(recent RangeSource) *Collector {
	return &Collector{Recent: recent}
}

// Collect runs the root path and import definition searches concurrently,
// each bounded by the soft snippet timeout, and computes recently edited
// snippets synchronously. Failed or slow sources yield empty slices; Collect
// itself never fails.
func (c *Collector) Collect(ctx context.Context, helper *inlet.HelperVars, ide IDE, getDefinitions DefinitionsFunc, retrieval ContextRetrieval) Payload {
	timeout := helper.Options.SnippetTimeout()
	payload := Payload{
		RootPath:          []Snippet{},
		ImportDefinitions: []Snippet{},
		RecentlyEdited:    []Snippet{},
		IDEDefinitions:    []Snippet{},
	}

	var g errgroup.Group
	if retrieval != nil && helper.Options.UseRootPath {
		g.Go(func() error {
			payload.RootPath = softTimeout(ctx, timeout, "root_path", func(ctx context.Context) ([]Snippet, error) {
				return retrieval.RootPathSnippets(ctx, helper)
			})
			return nil
		})
	}
	if retrieval != nil && helper.Options.UseImports {
		g.Go(func() error {
			payload.ImportDefinitions = softTimeout(ctx, timeout, "import_definitions", func(ctx context.Context) ([]Snippet, error) {
				return retrieval.ImportDefinitionSnippets(ctx, helper)
			})
			return nil
		})
	}
	if getDefinitions != nil && helper.Options.UseIDEDefinitions {
		g.Go(func() error {
			payload.IDEDefinitions = softTimeout(ctx, timeout, "ide_definitions", func(ctx context.Context) ([]Snippet, error) {
				return getDefinitions(ctx, helper.Filepath, helper.Contents, helper.CursorOffset, ide, helper.Language)
			})
			return nil
		})
	}

	if helper.Options.RecentlyEdited.Enabled && c.Recent != nil {
		payload.RecentlyEdited = rangesToSnippets(c.Recent.Ranges())
	}

	g.Wait()

	payload.RootPath = redactAll(payload.RootPath)
	payload.ImportDefinitions = redactAll(payload.ImportDefinitions)
	payload.RecentlyEdited = redactAll(payload.RecentlyEdited)
	payload.IDEDefinitions = redactAll(payload.IDEDefinitions)

	slog.Debug("snippets collected",
		"root_path", len(payload.RootPath),
		"import_definitions", len(payload.ImportDefinitions),
		"recently_edited", len(payload.RecentlyEdited),
		"ide_definitions", len(payload.IDEDefinitions),
	)
	return payload
}

// softTimeout races fn against a timer. When the timer wins the result is an
// empty slice; fn keeps running until ctx ends and its result is dropped.
func softTimeout(ctx context.Context, timeout time.Duration, source string, fn func(context.Context) ([]Snippet, error)) []Snippet {
	ch := make(chan []Snippet, 1)
	go func() {
		var out []Snippet
		defer func() {
			if r := recover(); r != nil {
				slog.Warn("snippet source panicked", "source", source, "panic", fmt.Sprint(r))
				out = nil
			}
			ch <- out
		}()
		snippets, err := fn(ctx)
		if err != nil {
			slog.Debug("snippet source failed", "source", source, "error", err)
			return
		}
		out = snippets
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		if out == nil {
			return []Snippet{}
		}
		return out
	case <-timer.C:
		slog.Debug("snippet source timed out", "source", source, "timeout", timeout)
		return []Snippet{}
	case <-ctx.Done():
		return []Snippet{}
	}
}

func rangesToSnippets(ranges []EditedRange) []Snippet {
	out := make([]Snippet, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, Code(r.Filepath, strings.Join(r.Lines, "\n"), r.StartLine, r.EndLine))
	}
	return out
}

func redactAll(snippets []Snippet) []Snippet {
	out := make([]Snippet, len(snippets))
	for i, s := range snippets {
		out[i] = Redact(s)
	}
	return out
}

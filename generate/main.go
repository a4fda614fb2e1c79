// Package generate turns completion requests into completions: it gathers
// context, renders the prompt, streams the model output and shapes it.
package generate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	inlet "github.com/Paranoid-AF/inlet"
	"github.com/Paranoid-AF/inlet/index"
	"github.com/Paranoid-AF/inlet/prompt"
	"github.com/Paranoid-AF/inlet/snippet"
	"github.com/Paranoid-AF/inlet/tokens"
)

// ErrNotConfigured is reported when no completion endpoint is configured.
var ErrNotConfigured = errors.New("completion endpoint not configured")

// sessionTTL is how long an idle session keeps its pending generation.
const sessionTTL = 10 * time.Minute

// Engine orchestrates context gathering, prompt rendering and streaming.
type Engine struct {
	config   *inlet.Config
	model    string
	counter  tokens.Counter
	client   ModelClient
	gatherer *Gatherer
	renderer *prompt.Renderer
	repos    *RepoCache
	cache    *CompletionCache
	sessions *ttlcache.Cache[string, *ReuseManager]
}

// Trace records how a completion was produced.
type Trace struct {
	Model      string `toml:"model"`
	Template   string `toml:"template,omitempty"`
	Cached     bool   `toml:"cached"`
	Multiline  bool   `toml:"multiline"`
	ElapsedMS  int64  `toml:"elapsed_ms"`
	Snippets   Counts `toml:"snippets"`
	Prompt     string `toml:"prompt,omitempty"`
	Completion string `toml:"completion"`
}

// Counts are the collected snippets per source.
type Counts struct {
	RootPath          int `toml:"root_path"`
	ImportDefinitions int `toml:"import_definitions"`
	RecentlyEdited    int `toml:"recently_edited"`
	IDEDefinitions    int `toml:"ide_definitions"`
}

// NewEngine creates a completion engine from the user's configuration.
func NewEngine() *Engine {
	cfg, err := inlet.LoadConfig()
	if err != nil {
		slog.Warn("failed to load config, using defaults", "error", err)
		cfg = inlet.DefaultConfig()
	}
	for _, w := range inlet.ValidateConfig(cfg) {
		slog.Warn("config", "warning", w)
	}

	overrides, err := prompt.LoadOverrides(inlet.TemplatesPath())
	if err != nil {
		slog.Warn("failed to load template overrides", "error", err)
	}

	// Create embedder if embedding is configured
	var embedder index.TextEmbedder
	if inlet.EmbeddingEnabled(cfg) {
		embedder = index.NewEmbedder(
			inlet.ResolveEmbeddingBaseURL(cfg),
			inlet.ResolveEmbeddingAPIKey(cfg),
			inlet.ResolveEmbeddingModel(cfg),
		)
	}

	var client ModelClient
	baseURL, model := inlet.ResolveCompletionBaseURL(cfg), inlet.ResolveCompletionModel(cfg)
	if baseURL != "" && model != "" {
		client = NewClient(
			baseURL,
			inlet.ResolveCompletionAPIKey(cfg),
			model,
			cfg.Completion.MaxTokens,
			cfg.Completion.Temperature,
			inlet.FIMEnabled(cfg),
		)
	} else {
		slog.Warn("completion endpoint not configured")
	}

	return NewEngineWith(cfg, client, embedder, overrides, tokens.NewTiktoken())
}

// NewEngineWith creates an engine from explicit collaborators. client may
// be nil, in which case every completion reports not_configured.
func NewEngineWith(cfg *inlet.Config, client ModelClient, embedder index.TextEmbedder, overrides []prompt.Override, counter tokens.Counter) *Engine {
	if cfg == nil {
		cfg = inlet.DefaultConfig()
	}
	sessions := ttlcache.New[string, *ReuseManager](
		ttlcache.WithTTL[string, *ReuseManager](sessionTTL),
	)
	sessions.OnEviction(func(_ context.Context, _ ttlcache.EvictionReason, item *ttlcache.Item[string, *ReuseManager]) {
		item.Value().Cancel()
	})
	go sessions.Start()

	repos := NewRepoCache()
	return &Engine{
		config:   cfg,
		model:    inlet.ResolveCompletionModel(cfg),
		counter:  counter,
		client:   client,
		gatherer: NewGatherer(embedder, cfg),
		renderer: prompt.NewRenderer(
			snippet.NewPrioritizer(counter),
			&prompt.Templates{Overrides: overrides},
			repos.Name,
		),
		repos:    repos,
		cache:    NewCompletionCache(completionCacheSize),
		sessions: sessions,
	}
}

// Close cancels pending generations and releases resources held by the engine.
func (e *Engine) Close() {
	e.sessions.DeleteAll()
	e.sessions.Stop()
	e.gatherer.Close()
	e.repos.Close()
}

// WarmContext registers workspace roots for indexing and gathers their
// repository info.
func (e *Engine) WarmContext(ctx context.Context, workspaceDirs []string) {
	e.gatherer.AddRoots(workspaceDirs)
	for _, dir := range workspaceDirs {
		e.repos.Gather(ctx, dir)
	}
}

// RecordEdit feeds an edit notification to the recently edited source.
func (e *Engine) RecordEdit(edit inlet.EditRequest) {
	e.gatherer.RecordEdit(edit)
}

// Complete processes a completion request and returns a response.
func (e *Engine) Complete(ctx context.Context, req *inlet.Request) *inlet.Response {
	resp, _ := e.CompleteVerbose(ctx, req)
	return resp
}

// CompleteVerbose is Complete that also reports how the completion was made.
func (e *Engine) CompleteVerbose(ctx context.Context, req *inlet.Request) (*inlet.Response, *Trace) {
	start := time.Now()
	resp := &inlet.Response{RequestID: req.RequestID}
	trace := &Trace{Model: e.model}
	defer func() {
		trace.ElapsedMS = time.Since(start).Milliseconds()
		trace.Completion = resp.Completion
	}()

	if e.client == nil {
		resp.Error = &inlet.Error{
			Code:    "not_configured",
			Message: ErrNotConfigured.Error() + "; set INLET_COMPLETION_API_BASE_URL and INLET_COMPLETION_MODEL or edit " + inlet.ConfigPath(),
		}
		return resp, trace
	}
	if req.Filepath == "" {
		resp.Error = &inlet.Error{Code: "invalid_request", Message: "filepath is required"}
		return resp, trace
	}

	helper := inlet.NewHelperVars(req, e.config.Autocomplete, e.model, e.counter)
	trace.Multiline = helper.Multiline()

	useCache := helper.Options.UseCache && helper.ManualPrefix == ""
	if useCache {
		if completion, ok := e.cache.Get(helper.PrunedPrefix); ok {
			resp.Completion, resp.Cached, resp.CompletionID = completion, true, uuid.NewString()
			trace.Cached = true
			return resp, trace
		}
	}

	payload := e.gatherer.Gather(ctx, helper)
	trace.Snippets = Counts{
		RootPath:          len(payload.RootPath),
		ImportDefinitions: len(payload.ImportDefinitions),
		RecentlyEdited:    len(payload.RecentlyEdited),
		IDEDefinitions:    len(payload.IDEDefinitions),
	}
	// Check for cancellation before expensive inference
	if ctx.Err() != nil {
		return resp, trace
	}

	rendered, err := e.renderer.Render(payload, helper.WorkspaceDirs, helper)
	if err != nil {
		slog.Error("render error", "error", err)
		resp.Error = &inlet.Error{Code: "template_error", Message: err.Error()}
		return resp, trace
	}
	trace.Template, trace.Prompt = rendered.Template, rendered.Prompt
	slog.Debug("prompt", "template", rendered.Template, "prompt", rendered.Prompt)

	streamer := NewStreamer(e.session(req.SessionID))
	var sb strings.Builder
	for chunk, err := range streamer.StreamCompletionWithFilters(ctx, e.client, rendered.Prefix, rendered.Suffix, rendered.Prompt, trace.Multiline, rendered.Options, helper) {
		if err != nil {
			slog.Error("completion error", "error", err)
			resp.Error = &inlet.Error{Code: "api_error", Message: err.Error()}
			return resp, trace
		}
		sb.WriteString(chunk)
	}
	if ctx.Err() != nil {
		return resp, trace
	}

	completion, ok := postprocess(sb.String())
	if !ok {
		return resp, trace
	}
	if useCache {
		e.cache.Put(helper.PrunedPrefix, completion)
	}
	resp.Completion, resp.CompletionID = completion, uuid.NewString()
	return resp, trace
}

// session returns the reuse manager of an editor session.
func (e *Engine) session(id string) *ReuseManager {
	item, _ := e.sessions.GetOrSetFunc(id, NewReuseManager)
	return item.Value()
}

// postprocess trims trailing whitespace and rejects blank completions.
func postprocess(completion string) (string, bool) {
	completion = strings.TrimRightFunc(completion, unicode.IsSpace)
	if strings.TrimSpace(completion) == "" {
		return "", false
	}
	return completion, true
}

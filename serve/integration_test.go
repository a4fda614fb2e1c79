package main

import (
	"context"
	"fmt"
	"iter"
	"net"
	"sync"
	"testing"

	inlet "github.com/Paranoid-AF/inlet"
	"github.com/Paranoid-AF/inlet/generate"
	"github.com/Paranoid-AF/inlet/prompt"
	"github.com/Paranoid-AF/inlet/tokens"
)

func TestIntegrationRoundTrip(t *testing.T) {
	stub := &stubCompleter{
		resp: &inlet.Response{Completion: "return a + b", CompletionID: "c-1"},
	}
	srv := newTestServer(t, stub)

	resp := sendRequest(t, srv.sockPath, &inlet.Request{
		RequestID:     7,
		SessionID:     "test-session",
		Filepath:      "/w/calc.py",
		Contents:      "def add(a, b):\n    ",
		Line:          1,
		Col:           4,
		WorkspaceDirs: []string{"/w"},
	})

	if resp.RequestID != 7 {
		t.Errorf("expected request_id 7, got %d", resp.RequestID)
	}
	if resp.Completion != "return a + b" || resp.CompletionID != "c-1" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestIntegrationAPIError(t *testing.T) {
	stub := &stubCompleter{
		resp: &inlet.Response{Error: &inlet.Error{Code: "api_error", Message: "API connection failed"}},
	}
	srv := newTestServer(t, stub)

	resp := sendRequest(t, srv.sockPath, &inlet.Request{RequestID: 5, Filepath: "/w/a.py"})
	if resp.Error == nil || resp.Error.Code != "api_error" {
		t.Errorf("expected api_error, got %+v", resp.Error)
	}
	if resp.RequestID != 5 {
		t.Errorf("expected request_id 5, got %d", resp.RequestID)
	}
}

func TestIntegrationMalformedRequest(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{resp: &inlet.Response{}})

	// Send garbage
	conn, err := net.Dial("unix", srv.sockPath)
	if err != nil {
		t.Fatal(err)
	}
	conn.Write([]byte("not json\n"))
	conn.Close()

	// Server should survive; send a valid request after
	resp := sendRequest(t, srv.sockPath, &inlet.Request{RequestID: 99, Filepath: "/w/a.py"})
	if resp.RequestID != 99 {
		t.Errorf("server should survive malformed request, expected id 99, got %d", resp.RequestID)
	}
}

func TestIntegrationConcurrent(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{resp: &inlet.Response{}})

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan string, n)

	for i := range n {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			resp := sendRequest(t, srv.sockPath, &inlet.Request{RequestID: id, Filepath: "/w/a.py"})
			if resp.RequestID != id {
				errs <- fmt.Sprintf("goroutine %d: expected id %d, got %d", id, id, resp.RequestID)
			}
		}(i + 1)
	}

	wg.Wait()
	close(errs)

	for e := range errs {
		t.Error(e)
	}
}

// echoModel completes every prompt with the same text.
type echoModel struct{ text string }

func (m echoModel) SupportsFIM() bool { return false }

func (m echoModel) StreamFIM(ctx context.Context, prefix, suffix string, opts prompt.CompletionOptions) iter.Seq2[string, error] {
	return m.StreamComplete(ctx, prefix, opts, true)
}

func (m echoModel) StreamComplete(ctx context.Context, text string, opts prompt.CompletionOptions, raw bool) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield(m.text, nil)
	}
}

func TestIntegrationEngine(t *testing.T) {
	t.Setenv("INLET_CONFIG_DIR", t.TempDir())
	t.Setenv("INLET_COMPLETION_MODEL", "")
	engine := generate.NewEngineWith(inlet.DefaultConfig(), echoModel{text: "return a + b\n"}, nil, nil, tokens.Heuristic{})
	srv := newTestServer(t, engine)

	var ack inlet.AckResponse
	roundTrip(t, srv.sockPath, &inlet.EditRequest{Type: "edit", Filepath: "/w/ops.py", Lines: []string{"x = 1"}}, &ack)
	if !ack.OK {
		t.Fatalf("edit rejected: %+v", ack.Error)
	}

	resp := sendRequest(t, srv.sockPath, &inlet.Request{
		RequestID: 3,
		SessionID: "s",
		Filepath:  "/w/calc.py",
		Contents:  "def add(a, b):\n    ",
		Line:      1,
		Col:       4,
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error %+v", resp.Error)
	}
	if resp.Completion != "return a + b" || resp.RequestID != 3 {
		t.Errorf("unexpected response %+v", resp)
	}
}

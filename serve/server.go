package main

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"sync"

	inlet "github.com/Paranoid-AF/inlet"
	"github.com/Paranoid-AF/inlet/generate"
)

// maxMessageSize bounds one request line. Requests carry whole files.
const maxMessageSize = 16 << 20

// Completer processes a completion request and returns a response.
type Completer interface {
	Complete(ctx context.Context, req *inlet.Request) *inlet.Response
	WarmContext(ctx context.Context, workspaceDirs []string)
	RecordEdit(edit inlet.EditRequest)
	Close()
}

// sessionEntry tracks a cancellable in-flight request for a session.
type sessionEntry struct {
	requestID int
	cancel    context.CancelFunc
}

// envelope holds the fields that tell message kinds apart.
type envelope struct {
	Type   string `json:"type"`
	Action string `json:"action"`
}

// Server listens on a Unix domain socket for editor requests.
type Server struct {
	listener  net.Listener
	sockPath  string
	newEngine func() Completer

	mu       sync.Mutex
	engine   Completer
	sessions map[string]sessionEntry
}

// NewServer creates a new IPC server bound to the given socket path.
func NewServer(sockPath string) (*Server, error) {
	return NewServerWithFactory(sockPath, func() Completer { return generate.NewEngine() })
}

// NewServerWithCompleter creates a server around a fixed Completer.
// Reloading keeps using it.
func NewServerWithCompleter(sockPath string, completer Completer) (*Server, error) {
	return NewServerWithFactory(sockPath, func() Completer { return completer })
}

// NewServerWithFactory creates a server whose engine is built, and rebuilt
// on reload, by newEngine.
func NewServerWithFactory(sockPath string, newEngine func() Completer) (*Server, error) {
	// Remove stale socket file if it exists
	if err := os.Remove(sockPath); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, err
	}

	return &Server{
		listener:  listener,
		sockPath:  sockPath,
		newEngine: newEngine,
		engine:    newEngine(),
		sessions:  make(map[string]sessionEntry),
	}, nil
}

// Serve accepts connections and handles requests.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

// Close shuts down the server, the engine, and removes the socket file.
func (s *Server) Close() {
	s.mu.Lock()
	for _, entry := range s.sessions {
		entry.cancel()
	}
	engine := s.engine
	s.mu.Unlock()

	engine.Close()
	s.listener.Close()
	os.Remove(s.sockPath)
}

func (s *Server) currentEngine() Completer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	if !scanner.Scan() {
		return
	}

	raw := scanner.Bytes()
	slog.Debug("request", "bytes", len(raw))

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		slog.Warn("invalid request", "error", err)
		return
	}

	switch {
	case env.Type == "edit":
		var req inlet.EditRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			slog.Warn("invalid edit request", "error", err)
			return
		}
		s.handleEditRequest(conn, &req)
	case env.Type == "context":
		var req inlet.ContextRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			slog.Warn("invalid context request", "error", err)
			return
		}
		s.handleContextRequest(conn, &req)
	case env.Action != "":
		s.handleConfigRequest(conn, &inlet.ConfigRequest{Action: env.Action})
	default:
		var req inlet.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			slog.Warn("invalid request", "error", err)
			return
		}
		s.handleCompletionRequest(conn, &req)
	}
}

func (s *Server) handleCompletionRequest(conn net.Conn, req *inlet.Request) {
	// Cancel any in-flight request for this session and create a new context.
	ctx, cancel := context.WithCancel(context.Background())
	sid := req.SessionID
	reqID := req.RequestID
	if sid != "" {
		s.mu.Lock()
		if prev, ok := s.sessions[sid]; ok {
			prev.cancel()
		}
		s.sessions[sid] = sessionEntry{requestID: reqID, cancel: cancel}
		s.mu.Unlock()
	}
	defer func() {
		cancel()
		if sid != "" {
			s.mu.Lock()
			if cur, ok := s.sessions[sid]; ok && cur.requestID == reqID {
				delete(s.sessions, sid)
			}
			s.mu.Unlock()
		}
	}()

	resp := s.currentEngine().Complete(ctx, req)

	// If cancelled, skip writing; the client has already moved on.
	if ctx.Err() != nil {
		return
	}

	resp.RequestID = req.RequestID
	writeJSON(conn, resp)
}

func (s *Server) handleEditRequest(conn net.Conn, req *inlet.EditRequest) {
	resp := inlet.AckResponse{OK: true}
	if req.Filepath == "" {
		resp.OK = false
		resp.Error = &inlet.Error{Code: "invalid_request", Message: "filepath is required"}
	} else {
		s.currentEngine().RecordEdit(*req)
	}
	writeJSON(conn, resp)
}

func (s *Server) handleContextRequest(conn net.Conn, req *inlet.ContextRequest) {
	resp := inlet.AckResponse{OK: true}

	var dirs []string
	for _, dir := range req.WorkspaceDirs {
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}
	if len(dirs) == 0 {
		resp.OK = false
		resp.Error = &inlet.Error{Code: "invalid_request", Message: "workspace_dirs is required"}
	} else {
		// Index in background; respond immediately
		go s.currentEngine().WarmContext(context.Background(), dirs)
	}

	writeJSON(conn, resp)
}

func (s *Server) handleConfigRequest(conn net.Conn, req *inlet.ConfigRequest) {
	var resp inlet.ConfigResponse

	switch req.Action {
	case "get":
		cfg, err := inlet.LoadConfig()
		if err != nil {
			resp.Error = &inlet.Error{Code: "config_error", Message: err.Error()}
		} else {
			resp.Config = cfg
		}

	case "reload":
		// Respond immediately; closing the old engine saves the index cache.
		go s.reloadEngine()
		cfg, _ := inlet.LoadConfig()
		resp.Config = cfg

	case "defaults":
		resp.Config = inlet.DefaultConfig()

	case "validate":
		cfg, err := inlet.LoadConfig()
		if err != nil {
			resp.Error = &inlet.Error{Code: "config_error", Message: err.Error()}
		} else {
			resp.Warnings = inlet.ValidateConfig(cfg)
		}

	default:
		resp.Error = &inlet.Error{
			Code:    "unknown_action",
			Message: "unknown config action: " + req.Action,
		}
	}

	writeJSON(conn, resp)
}

func (s *Server) reloadEngine() {
	next := s.newEngine()

	s.mu.Lock()
	prev := s.engine
	s.engine = next
	s.mu.Unlock()

	if prev != nil && prev != next {
		prev.Close()
	}
	slog.Info("engine reloaded")
}

func writeJSON(conn net.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal response", "error", err)
		return
	}

	slog.Debug("response", "data", string(data))

	conn.Write(append(data, '\n'))
}

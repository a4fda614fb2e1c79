// Package inlet defines the request/response types for inlet IPC.
// Messages are JSON-encoded and sent over a Unix domain socket, one per line.
package inlet

// Request is sent from the editor to the daemon to ask for a completion.
type Request struct {
	// RequestID is a per-session incrementing identifier assigned by the editor.
	// The daemon echoes it back in the response for ordering.
	RequestID int `json:"request_id"`
	// SessionID identifies the editor session. A new request cancels the
	// previous in-flight request of the same session.
	SessionID string `json:"session_id"`
	// Filepath is the absolute path of the file being edited.
	Filepath string `json:"filepath"`
	// Contents is the full text of the file as seen by the editor.
	Contents string `json:"contents"`
	// Line and Col locate the caret (0-based, Col in bytes).
	Line int `json:"line"`
	Col  int `json:"col"`
	// LanguageID overrides extension-based language detection.
	LanguageID string `json:"language_id,omitempty"`
	// WorkspaceDirs are the editor's workspace roots.
	WorkspaceDirs []string `json:"workspace_dirs,omitempty"`
	// ManualPrefix, when set, replaces the pruned prefix and empties the suffix.
	ManualPrefix string `json:"manual_prefix,omitempty"`
}

// Response is sent from the daemon back to the editor.
type Response struct {
	// RequestID is echoed from the request for ordering on the client side.
	RequestID int `json:"request_id"`
	// CompletionID identifies this completion for accept/reject reporting.
	CompletionID string `json:"completion_id,omitempty"`
	// Completion is the text to insert at the caret. Empty means no suggestion.
	Completion string `json:"completion"`
	// Cached is true when the completion was served from the prefix cache.
	Cached bool `json:"cached,omitempty"`
	// Error is set when the daemon cannot fulfill the request.
	Error *Error `json:"error,omitempty"`
}

// Error describes a daemon-side error returned to the editor.
type Error struct {
	// Code is a machine-readable error identifier (e.g. "not_configured", "api_error").
	Code string `json:"code"`
	// Message is a human-readable error description.
	Message string `json:"message"`
}

// EditRequest notifies the daemon that a range of a file was just edited.
type EditRequest struct {
	// Type is always "edit".
	Type     string `json:"type"`
	Filepath string `json:"filepath"`
	// StartLine and EndLine are 0-based and inclusive.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
	// Lines holds the text of the edited range after the edit.
	Lines []string `json:"lines"`
}

// ContextRequest is sent from the editor to warm the workspace index.
type ContextRequest struct {
	// Type is always "context".
	Type          string   `json:"type"`
	WorkspaceDirs []string `json:"workspace_dirs"`
}

// AckResponse is sent in response to edit and context notifications.
type AckResponse struct {
	// OK is true when the notification was accepted.
	OK bool `json:"ok"`
	// Error is set when the operation fails.
	Error *Error `json:"error,omitempty"`
}

// ConfigRequest is sent from the editor for configuration operations.
type ConfigRequest struct {
	// Action is the config operation: "get", "reload", "defaults", or "validate".
	Action string `json:"action"`
}

// ConfigResponse is sent from the daemon in response to a ConfigRequest.
type ConfigResponse struct {
	// Config is the current configuration (for "get", "reload", and "defaults" actions).
	Config *Config `json:"config,omitempty"`
	// Warnings contains configuration warnings (for "validate" action).
	Warnings []string `json:"warnings,omitempty"`
	// Error is set when the operation fails.
	Error *Error `json:"error,omitempty"`
}

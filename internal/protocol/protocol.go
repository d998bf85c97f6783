// Package protocol defines the control-channel message schema shared by the
// daemon server and the client. Each exchange is exactly one JSON request and
// one JSON response, written and read as a single unit with no framing.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxMessageSize bounds a single encoded request or response. Connections
// carry one message per direction, so no reassembly is ever attempted.
const MaxMessageSize = 64 * 1024

// Recognized actions. The set is closed: anything else is rejected at the
// server boundary with an "unknown action" error.
const (
	ActionStart   = "start"
	ActionStop    = "stop"
	ActionStatus  = "status"
	ActionLog     = "log"
	ActionCleanup = "cleanup"
	ActionPing    = "ping"
)

// DefaultLogLines is used when a log request does not specify a line count.
const DefaultLogLines = 50

var ErrUnknownAction = errors.New("unknown action")

// Request is the single request shape for all actions. Which fields are
// required depends on Action; Validate enforces that before dispatch.
type Request struct {
	Action     string `json:"action"`
	Command    string `json:"command,omitempty"`
	Name       string `json:"name,omitempty"`
	WorkingDir string `json:"working_dir,omitempty"`
	ProcessID  string `json:"process_id,omitempty"`
	Force      bool   `json:"force,omitempty"`
	Lines      int    `json:"lines,omitempty"`
}

// Validate checks that the action is recognized and its required fields are
// present. It does not touch optional fields.
func (r *Request) Validate() error {
	switch r.Action {
	case ActionStart:
		if r.Command == "" {
			return errors.New("command required")
		}
	case ActionStop:
		if r.ProcessID == "" {
			return errors.New("process ID required")
		}
	case ActionLog:
		if r.ProcessID == "" {
			return errors.New("process ID required")
		}
	case ActionStatus, ActionCleanup, ActionPing:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, r.Action)
	}
	return nil
}

// RecordView is the externally visible form of a tracked process record.
// It deliberately excludes the owned OS process handle.
type RecordView struct {
	Command    string `json:"command"`
	StartedAt  string `json:"started_at"`
	LogFile    string `json:"log_file"`
	WorkingDir string `json:"working_dir,omitempty"`
	Status     string `json:"status"`
	ExitCode   *int   `json:"exit_code,omitempty"`
}

// Response is the single response shape for all actions. Success responses
// set Success and the action's result field; failures set Error only.
type Response struct {
	Success   bool                  `json:"success"`
	Error     string                `json:"error,omitempty"`
	ProcessID string                `json:"process_id,omitempty"`
	Processes map[string]RecordView `json:"processes,omitempty"`
	Log       []string              `json:"log,omitempty"`
	Removed   *int                  `json:"removed,omitempty"`
	Message   string                `json:"message,omitempty"`
}

// ErrorResponse builds the protocol's error shape from err.
func ErrorResponse(err error) Response {
	return Response{Error: err.Error()}
}

// RemovedResponse builds a cleanup result carrying the removed count.
func RemovedResponse(n int) Response {
	return Response{Success: true, Removed: &n}
}

// EncodeRequest serializes a request for a single-shot write.
func EncodeRequest(r Request) ([]byte, error) {
	return json.Marshal(r)
}

// DecodeRequest parses exactly one request from a single read. It does not
// validate per-action fields; callers run Validate separately so that a
// malformed message and a missing field produce distinct errors.
func DecodeRequest(data []byte) (Request, error) {
	var r Request
	if err := json.Unmarshal(data, &r); err != nil {
		return Request{}, errors.New("invalid JSON")
	}
	return r, nil
}

// EncodeResponse serializes a response for a single-shot write.
func EncodeResponse(r Response) ([]byte, error) {
	return json.Marshal(r)
}

// DecodeResponse parses exactly one response from a single read.
func DecodeResponse(data []byte) (Response, error) {
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return r, nil
}

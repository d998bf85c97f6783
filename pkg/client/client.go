// Package client implements the calling side of the control protocol. Every
// call opens a fresh connection, writes one request, reads one response and
// closes; there are no retries, no reuse and no pipelining.
package client

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/loykin/spawnd/internal/protocol"
)

// ErrDaemonNotRunning reports that the control socket is missing or not
// accepting connections, so callers can tell "absent" from "present but
// erroring".
var ErrDaemonNotRunning = errors.New("daemon not running")

// RecordView re-exports the wire record view for consumers.
type RecordView = protocol.RecordView

// Client talks to one daemon instance's control socket.
type Client struct {
	socketPath string
}

func New(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Start launches command under the daemon and returns the assigned id.
func (c *Client) Start(command, name, workingDir string) (string, error) {
	resp, err := c.send(protocol.Request{
		Action:     protocol.ActionStart,
		Command:    command,
		Name:       name,
		WorkingDir: workingDir,
	})
	if err != nil {
		return "", err
	}
	return resp.ProcessID, nil
}

// Stop requests termination of id. It returns whether the id was found;
// unknown ids are not an error.
func (c *Client) Stop(id string, force bool) (bool, error) {
	resp, err := c.roundTrip(protocol.Request{
		Action:    protocol.ActionStop,
		ProcessID: id,
		Force:     force,
	})
	if err != nil {
		return false, err
	}
	if resp.Error != "" {
		return false, errors.New(resp.Error)
	}
	return resp.Success, nil
}

// Status returns refreshed record views, for one id or for all tracked
// records when id is empty.
func (c *Client) Status(id string) (map[string]RecordView, error) {
	resp, err := c.send(protocol.Request{Action: protocol.ActionStatus, ProcessID: id})
	if err != nil {
		return nil, err
	}
	if resp.Processes == nil {
		return map[string]RecordView{}, nil
	}
	return resp.Processes, nil
}

// Log returns up to lines most recent log lines for id; lines <= 0 uses the
// server default.
func (c *Client) Log(id string, lines int) ([]string, error) {
	resp, err := c.send(protocol.Request{
		Action:    protocol.ActionLog,
		ProcessID: id,
		Lines:     lines,
	})
	if err != nil {
		return nil, err
	}
	if resp.Log == nil {
		return []string{}, nil
	}
	return resp.Log, nil
}

// Cleanup removes finished records and returns how many were removed.
func (c *Client) Cleanup() (int, error) {
	resp, err := c.send(protocol.Request{Action: protocol.ActionCleanup})
	if err != nil {
		return 0, err
	}
	if resp.Removed == nil {
		return 0, nil
	}
	return *resp.Removed, nil
}

// Ping checks that the daemon answers; the reply message is always "pong".
func (c *Client) Ping() (string, error) {
	resp, err := c.send(protocol.Request{Action: protocol.ActionPing})
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// send round-trips a request and converts protocol-level errors into Go
// errors. Stop keeps its raw response because its Success carries the found
// flag rather than an error indicator.
func (c *Client) send(req protocol.Request) (protocol.Response, error) {
	resp, err := c.roundTrip(req)
	if err != nil {
		return protocol.Response{}, err
	}
	if resp.Error != "" {
		return protocol.Response{}, errors.New(resp.Error)
	}
	return resp, nil
}

// roundTrip performs the single-shot exchange over a fresh connection.
func (c *Client) roundTrip(req protocol.Request) (protocol.Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, 5*time.Second)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("%w: %s", ErrDaemonNotRunning, c.socketPath)
	}
	defer func() { _ = conn.Close() }()

	data, err := protocol.EncodeRequest(req)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("encode request: %w", err)
	}
	if _, err := conn.Write(data); err != nil {
		return protocol.Response{}, fmt.Errorf("send request: %w", err)
	}

	// The server closes after its single write, so read to EOF bounded by
	// the protocol's message size.
	buf := make([]byte, 0, 8192)
	tmp := make([]byte, 8192)
	for len(buf) < protocol.MaxMessageSize {
		n, rerr := conn.Read(tmp)
		buf = append(buf, tmp[:n]...)
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			return protocol.Response{}, fmt.Errorf("read response: %w", rerr)
		}
	}
	if len(buf) == 0 {
		return protocol.Response{}, errors.New("empty response")
	}
	return protocol.DecodeResponse(buf)
}

// Package server exposes the supervisor over a unix stream socket speaking
// the single-shot control protocol: one request and one response per
// connection, each read and written as a single unit.
package server

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/loykin/spawnd/internal/metrics"
	"github.com/loykin/spawnd/internal/protocol"
	"github.com/loykin/spawnd/internal/supervisor"
)

// Server accepts control connections and dispatches them to the supervisor.
type Server struct {
	socketPath string
	sup        *supervisor.Supervisor
	logger     *slog.Logger

	running  atomic.Bool
	listener net.Listener
	wg       sync.WaitGroup
}

func New(socketPath string, sup *supervisor.Supervisor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{socketPath: socketPath, sup: sup, logger: logger}
}

// Serve binds the control socket, replacing any stale file first, and runs
// the accept loop until Stop is called. Each accepted connection is handled
// by its own goroutine so a slow client never blocks the loop or other
// connections. Access control is the filesystem's own: the socket is world
// read/write.
func (s *Server) Serve() error {
	// Remove a stale socket left by a previous daemon.
	_ = os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("bind control socket %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o666); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod control socket: %w", err)
	}

	s.listener = ln
	s.running.Store(true)
	s.logger.Info("control server listening", "socket", s.socketPath)

	for {
		conn, err := ln.Accept()
		if err != nil {
			// The "still running" flag tells an intentional shutdown apart
			// from a real accept fault.
			if s.running.Load() {
				s.logger.Error("accept failed", "error", err)
				break
			}
			break
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}

	s.wg.Wait()
	_ = os.Remove(s.socketPath)
	return nil
}

// Stop closes the listening socket; in-flight connections drain before Serve
// returns. Safe to call more than once.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

// handleConn performs exactly one exchange: a single read, one decoded
// request, one encoded response. Every per-request failure is answered on
// this connection and never propagates out of the handler.
func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	buf := make([]byte, protocol.MaxMessageSize)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		// Client connected and vanished; nothing to answer.
		return
	}

	req, err := protocol.DecodeRequest(buf[:n])
	if err != nil {
		s.writeResponse(conn, "", protocol.ErrorResponse(err))
		return
	}

	resp := s.dispatch(req)
	s.writeResponse(conn, req.Action, resp)
}

func (s *Server) writeResponse(conn net.Conn, action string, resp protocol.Response) {
	outcome := "ok"
	if resp.Error != "" {
		outcome = "error"
	}
	metrics.IncRequest(action, outcome)

	data, err := protocol.EncodeResponse(resp)
	if err != nil {
		s.logger.Error("failed to encode response", "error", err)
		return
	}
	if _, err := conn.Write(data); err != nil {
		s.logger.Debug("failed to send response", "error", err)
	}
}

// dispatch validates the request and invokes the matching supervisor
// operation. Unknown actions and operation failures become error responses.
func (s *Server) dispatch(req protocol.Request) protocol.Response {
	if err := req.Validate(); err != nil {
		return protocol.ErrorResponse(err)
	}

	switch req.Action {
	case protocol.ActionStart:
		id, err := s.sup.Start(req.Command, req.Name, req.WorkingDir)
		if err != nil {
			return protocol.ErrorResponse(err)
		}
		return protocol.Response{Success: true, ProcessID: id}

	case protocol.ActionStop:
		found, err := s.sup.Stop(req.ProcessID, req.Force)
		if err != nil {
			return protocol.ErrorResponse(err)
		}
		return protocol.Response{Success: found}

	case protocol.ActionStatus:
		return protocol.Response{Success: true, Processes: s.sup.Status(req.ProcessID)}

	case protocol.ActionLog:
		return protocol.Response{Success: true, Log: s.sup.Log(req.ProcessID, req.Lines)}

	case protocol.ActionCleanup:
		return protocol.RemovedResponse(s.sup.Cleanup())

	case protocol.ActionPing:
		return protocol.Response{Success: true, Message: "pong"}
	}

	// Unreachable: Validate rejects unrecognized actions.
	return protocol.ErrorResponse(fmt.Errorf("%w: %s", protocol.ErrUnknownAction, req.Action))
}

// Package supervisor owns the in-memory process table and the lifecycle
// operations exposed over the control protocol: Start, Stop, Status, Log and
// Cleanup. The table is the only state shared across connection goroutines
// and is guarded by a single mutex; liveness is computed lazily by reaping
// with WNOHANG rather than pushed by an exit event.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/loykin/spawnd/internal/history"
	"github.com/loykin/spawnd/internal/metrics"
	"github.com/loykin/spawnd/internal/protocol"
)

// DefaultGracePeriod is the wait after a graceful terminate before the
// supervisor escalates to an unconditional kill of the process group.
const DefaultGracePeriod = 5 * time.Second

// killConfirmWait bounds the post-escalation poll for exit confirmation.
const killConfirmWait = 2 * time.Second

// ErrDuplicateID is returned by Start when the requested id is already
// tracked, whether the underlying process is alive or finished-but-uncleaned.
var ErrDuplicateID = errors.New("duplicate process id")

// Config parameterizes a Supervisor.
type Config struct {
	// LogDir receives one append file per tracked process id.
	LogDir string
	// GracePeriod overrides DefaultGracePeriod when positive.
	GracePeriod time.Duration
	// Instance labels metrics; usually the daemon instance name.
	Instance string
	Logger   *slog.Logger
}

// Supervisor spawns, signals and polls OS processes and mutates the table.
type Supervisor struct {
	mu     sync.Mutex
	procs  map[string]*record
	nextID int

	logDir   string
	grace    time.Duration
	instance string
	logger   *slog.Logger
	sinks    []history.Sink
}

func New(cfg Config) *Supervisor {
	grace := cfg.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	lg := cfg.Logger
	if lg == nil {
		lg = slog.Default()
	}
	return &Supervisor{
		procs:    make(map[string]*record),
		logDir:   cfg.LogDir,
		grace:    grace,
		instance: cfg.Instance,
		logger:   lg,
	}
}

// SetHistorySinks configures lifecycle event sinks. Call before serving;
// sinks are read without the table lock afterwards.
func (s *Supervisor) SetHistorySinks(sinks ...history.Sink) {
	s.sinks = append([]history.Sink(nil), sinks...)
}

// GracePeriod reports the configured graceful-stop wait.
func (s *Supervisor) GracePeriod() time.Duration { return s.grace }

// Start spawns command in a new process group with stdout and stderr
// redirected to a dedicated append log file and stdin disconnected. The id is
// name when given, otherwise an auto-generated "proc_<n>". On any failure the
// id is never registered.
func (s *Supervisor) Start(command, name, workDir string) (string, error) {
	if strings.TrimSpace(command) == "" {
		return "", errors.New("command required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := name
	if id == "" {
		s.nextID++
		id = fmt.Sprintf("proc_%d", s.nextID)
	}
	if _, exists := s.procs[id]; exists {
		metrics.IncStartFailure(s.instance, "duplicate")
		return "", fmt.Errorf("%w: process %q already exists", ErrDuplicateID, id)
	}

	logFile := filepath.Join(s.logDir, id+".log")
	// The log file must exist before the record becomes observable.
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		metrics.IncStartFailure(s.instance, "logfile")
		return "", fmt.Errorf("open log file for %q: %w", id, err)
	}

	cmd := buildCommand(command)
	cmd.Dir = workDir
	cmd.Stdout = f
	cmd.Stderr = f
	cmd.Stdin = nil
	configureSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		_ = f.Close()
		metrics.IncStartFailure(s.instance, "spawn")
		s.logger.Error("failed to start process", "id", id, "error", err)
		return "", fmt.Errorf("start process %q: %w", id, err)
	}
	// The child holds its own descriptor now.
	_ = f.Close()

	rec := &record{
		id:        id,
		command:   command,
		cmd:       cmd,
		startedAt: time.Now(),
		logFile:   logFile,
		workDir:   workDir,
		status:    StatusRunning,
	}
	s.procs[id] = rec

	s.logger.Info("started process", "id", id, "pid", cmd.Process.Pid)
	metrics.IncStart(s.instance)
	metrics.SetTrackedRecords(s.instance, len(s.procs))
	s.emit(history.Event{
		Type: history.EventStart, OccurredAt: time.Now(),
		ProcessID: id, PID: cmd.Process.Pid, Command: command,
	})
	return id, nil
}

// Stop terminates the process group of id. Unknown ids report (false, nil).
// An already-exited target is marked finished and reported found without any
// signaling. Graceful stops wait up to the grace period before escalating to
// an unconditional kill; force skips the wait.
func (s *Supervisor) Stop(id string, force bool) (bool, error) {
	s.mu.Lock()
	rec, ok := s.procs[id]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	s.refreshLocked(rec)
	if rec.status == StatusFinished {
		s.mu.Unlock()
		return true, nil
	}
	pid := rec.cmd.Process.Pid
	grace := s.grace
	s.mu.Unlock()

	// Signaling and waiting happen off the lock so a slow stop never stalls
	// concurrent status or log queries.
	if force {
		if err := signalGroup(pid, sigKill); err != nil {
			s.logger.Error("failed to kill process group", "id", id, "error", err)
			return false, fmt.Errorf("stop process %q: %w", id, err)
		}
		s.awaitExit(rec, killConfirmWait)
	} else {
		if err := signalGroup(pid, sigTerminate); err != nil {
			s.logger.Error("failed to terminate process group", "id", id, "error", err)
			return false, fmt.Errorf("stop process %q: %w", id, err)
		}
		if !s.awaitExit(rec, grace) {
			// Still alive after the grace period: escalate.
			s.logger.Warn("grace period expired, killing process group", "id", id, "pid", pid)
			_ = signalGroup(pid, sigKill)
			s.awaitExit(rec, killConfirmWait)
		}
	}

	s.mu.Lock()
	s.refreshLocked(rec)
	if rec.status == StatusRunning {
		// Kill delivered but exit not yet confirmed; the next refresh
		// normalizes this to finished.
		rec.status = StatusStopped
	}
	command := rec.command
	s.mu.Unlock()

	s.logger.Info("stopped process", "id", id, "force", force)
	metrics.IncStop(s.instance, force)
	s.emit(history.Event{
		Type: history.EventStop, OccurredAt: time.Now(),
		ProcessID: id, PID: pid, Command: command,
	})
	return true, nil
}

// Status returns refreshed record views. With an id it returns a one-entry
// map, or an empty map when the id is unknown; with an empty id it returns a
// snapshot of every tracked record keyed by id.
func (s *Supervisor) Status(id string) map[string]protocol.RecordView {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]protocol.RecordView)
	if id != "" {
		rec, ok := s.procs[id]
		if !ok {
			return out
		}
		s.refreshLocked(rec)
		out[id] = rec.view()
		return out
	}
	for pid, rec := range s.procs {
		s.refreshLocked(rec)
		out[pid] = rec.view()
	}
	metrics.SetTrackedRecords(s.instance, len(s.procs))
	return out
}

// Log returns the last lines entries of id's log file in file order, with
// trailing line terminators stripped. Unknown ids and unreadable files yield
// an empty slice. The file is read outside the table lock so a 1 Hz follow
// poll never contends with lifecycle operations.
func (s *Supervisor) Log(id string, lines int) []string {
	if lines <= 0 {
		lines = protocol.DefaultLogLines
	}
	s.mu.Lock()
	rec, ok := s.procs[id]
	var path string
	if ok {
		path = rec.logFile
	}
	s.mu.Unlock()
	if !ok {
		return []string{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{}
	}
	return tailLines(string(data), lines)
}

// Cleanup removes every record whose exit is confirmed at call time and
// returns the count. Records that are alive, or stopped but not yet confirmed
// exited, are left untouched.
func (s *Supervisor) Cleanup() int {
	s.mu.Lock()
	var removed []*record
	for id, rec := range s.procs {
		s.refreshLocked(rec)
		if rec.status == StatusFinished {
			removed = append(removed, rec)
			delete(s.procs, id)
		}
	}
	metrics.SetTrackedRecords(s.instance, len(s.procs))
	s.mu.Unlock()

	for _, rec := range removed {
		s.emit(history.Event{
			Type: history.EventCleanup, OccurredAt: time.Now(),
			ProcessID: rec.id, Command: rec.command, ExitCode: rec.exitCode,
		})
	}
	if len(removed) > 0 {
		s.logger.Info("cleaned up finished processes", "removed", len(removed))
		metrics.AddCleanupRemoved(s.instance, len(removed))
	}
	return len(removed)
}

// refreshLocked reaps the record's child if it has exited and records the
// terminal state. Must be called with the table lock held; it is idempotent
// because each child is reaped exactly once.
func (s *Supervisor) refreshLocked(rec *record) {
	if rec.status == StatusFinished {
		return
	}
	code, exited := tryReap(rec.cmd)
	if !exited {
		return
	}
	rec.status = StatusFinished
	if rec.exitCode == nil {
		c := code
		rec.exitCode = &c
	}
	s.emit(history.Event{
		Type: history.EventExit, OccurredAt: time.Now(),
		ProcessID: rec.id, PID: rec.cmd.Process.Pid,
		Command: rec.command, ExitCode: rec.exitCode,
	})
}

// awaitExit polls the record until its exit is confirmed or the timeout
// elapses. Only the calling goroutine blocks; the lock is taken per poll.
func (s *Supervisor) awaitExit(rec *record, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		s.mu.Lock()
		s.refreshLocked(rec)
		done := rec.status == StatusFinished
		s.mu.Unlock()
		if done {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// emit forwards a lifecycle event to the configured sinks. Delivery is
// best-effort and asynchronous so sink latency never extends time under the
// table lock.
func (s *Supervisor) emit(e history.Event) {
	if len(s.sinks) == 0 {
		return
	}
	sinks := s.sinks
	go func() {
		for _, sink := range sinks {
			if err := sink.Send(context.Background(), e); err != nil {
				s.logger.Debug("history sink send failed", "event", string(e.Type), "error", err)
			}
		}
	}()
}

// tailLines splits data into lines, strips trailing terminators, and keeps
// the last n entries in file order.
func tailLines(data string, n int) []string {
	if data == "" {
		return []string{}
	}
	data = strings.TrimSuffix(data, "\n")
	lines := strings.Split(data, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

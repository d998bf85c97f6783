// Package spawnd exposes the embeddable surface of the background-process
// daemon: the supervisor, the control server, and the control client.
package spawnd

import (
	"log/slog"
	"time"

	cfg "github.com/loykin/spawnd/internal/config"
	"github.com/loykin/spawnd/internal/history"
	hfactory "github.com/loykin/spawnd/internal/history/factory"
	"github.com/loykin/spawnd/internal/instance"
	"github.com/loykin/spawnd/internal/logger"
	"github.com/loykin/spawnd/internal/protocol"
	"github.com/loykin/spawnd/internal/server"
	"github.com/loykin/spawnd/internal/supervisor"
	"github.com/loykin/spawnd/pkg/client"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = cfg.Config

type LogConfig = logger.Config

type Paths = instance.Paths

type RecordView = protocol.RecordView

type HistorySink = history.Sink

type Client = client.Client

// DefaultGracePeriod is the wait before a graceful stop escalates.
const DefaultGracePeriod = supervisor.DefaultGracePeriod

// Supervisor is a thin facade over the internal process supervisor.
type Supervisor struct{ inner *supervisor.Supervisor }

// SupervisorConfig parameterizes New.
type SupervisorConfig struct {
	LogDir      string
	GracePeriod time.Duration
	Instance    string
	Logger      *slog.Logger
}

func New(c SupervisorConfig) *Supervisor {
	return &Supervisor{inner: supervisor.New(supervisor.Config{
		LogDir:      c.LogDir,
		GracePeriod: c.GracePeriod,
		Instance:    c.Instance,
		Logger:      c.Logger,
	})}
}

func (s *Supervisor) Start(command, name, workDir string) (string, error) {
	return s.inner.Start(command, name, workDir)
}
func (s *Supervisor) Stop(id string, force bool) (bool, error) { return s.inner.Stop(id, force) }
func (s *Supervisor) Status(id string) map[string]RecordView   { return s.inner.Status(id) }
func (s *Supervisor) Log(id string, lines int) []string        { return s.inner.Log(id, lines) }
func (s *Supervisor) Cleanup() int                             { return s.inner.Cleanup() }
func (s *Supervisor) SetHistorySinks(sinks ...HistorySink)     { s.inner.SetHistorySinks(sinks...) }

// Server facade

type Server struct{ inner *server.Server }

func NewServer(socketPath string, s *Supervisor, lg *slog.Logger) *Server {
	return &Server{inner: server.New(socketPath, s.inner, lg)}
}

func (s *Server) Serve() error { return s.inner.Serve() }
func (s *Server) Stop()        { s.inner.Stop() }

// NewClient returns a control client for the given socket path.
func NewClient(socketPath string) *Client { return client.New(socketPath) }

// NewPaths derives the filesystem layout of an instance.
func NewPaths(name, baseDir string) Paths { return instance.NewPaths(name, baseDir) }

// LoadConfig reads the optional TOML config file at path.
func LoadConfig(path string) (Config, error) { return cfg.Load(path) }

// NewHistorySink builds a lifecycle event sink from a DSN.
func NewHistorySink(dsn string) (HistorySink, error) { return hfactory.FromDSN(dsn) }

// ErrDaemonNotRunning re-exports the client's distinct transport condition.
var ErrDaemonNotRunning = client.ErrDaemonNotRunning

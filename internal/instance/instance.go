// Package instance derives the filesystem layout of one daemon instance and
// manages the PID file of the daemon's own process. Instance identity is the
// pair (name, base directory); every path is derived from it, so two instances
// differing in either component never share a socket, PID file, or log dir.
package instance

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultName    = "default"
	DefaultBaseDir = "/tmp/spawnd"

	socketFile = "control.sock"
	pidFile    = "daemon.pid"
	logDirName = "logs"
)

// Paths holds the derived filesystem layout of one instance.
type Paths struct {
	Name   string
	Dir    string
	Socket string
	PID    string
	LogDir string
}

// NewPaths derives the layout for (name, baseDir), applying defaults for
// empty components. No directories are created.
func NewPaths(name, baseDir string) Paths {
	if name == "" {
		name = DefaultName
	}
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	dir := filepath.Join(baseDir, name)
	return Paths{
		Name:   name,
		Dir:    dir,
		Socket: filepath.Join(dir, socketFile),
		PID:    filepath.Join(dir, pidFile),
		LogDir: filepath.Join(dir, logDirName),
	}
}

// Ensure creates the instance directory and log directory.
func (p Paths) Ensure() error {
	if err := os.MkdirAll(p.LogDir, 0o750); err != nil {
		return fmt.Errorf("create instance dirs: %w", err)
	}
	return nil
}

// WritePID records pid as the instance daemon's own process ID.
func (p Paths) WritePID(pid int) error {
	return os.WriteFile(p.PID, []byte(strconv.Itoa(pid)), 0o644)
}

// ReadPID returns the recorded daemon PID, or an error if the file is
// missing or malformed.
func (p Paths) ReadPID() (int, error) {
	data, err := os.ReadFile(p.PID)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed pid file %s: %w", p.PID, err)
	}
	return pid, nil
}

// RemovePID deletes the PID file; a missing file is not an error.
func (p Paths) RemovePID() {
	_ = os.Remove(p.PID)
}

// Running reports whether the instance daemon is alive according to its PID
// file. A stale or malformed PID file is removed on the way out.
func (p Paths) Running() bool {
	pid, err := p.ReadPID()
	if err != nil {
		if !os.IsNotExist(err) {
			p.RemovePID()
		}
		return false
	}
	if pidAlive(pid) {
		return true
	}
	p.RemovePID()
	return false
}

// Kill terminates the instance daemon: SIGTERM first, then an unconditional
// kill after a short wait if it is still alive. The PID file is removed.
func (p Paths) Kill() error {
	pid, err := p.ReadPID()
	if err != nil {
		return fmt.Errorf("instance %q is not running", p.Name)
	}
	if err := terminatePID(pid); err != nil {
		return fmt.Errorf("terminate daemon pid %d: %w", pid, err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for pidAlive(pid) && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	if pidAlive(pid) {
		_ = killPID(pid)
	}
	p.RemovePID()
	return nil
}

// List enumerates all instances under baseDir, sorted by name.
func List(baseDir string) ([]Paths, error) {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Paths
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, NewPaths(e.Name(), baseDir))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

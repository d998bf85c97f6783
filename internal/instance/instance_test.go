//go:build !windows

package instance

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPathsDerivation(t *testing.T) {
	p := NewPaths("ci", "/var/lib/spawnd")
	assert.Equal(t, "/var/lib/spawnd/ci", p.Dir)
	assert.Equal(t, "/var/lib/spawnd/ci/control.sock", p.Socket)
	assert.Equal(t, "/var/lib/spawnd/ci/daemon.pid", p.PID)
	assert.Equal(t, "/var/lib/spawnd/ci/logs", p.LogDir)
}

func TestNewPathsDefaults(t *testing.T) {
	p := NewPaths("", "")
	assert.Equal(t, DefaultName, p.Name)
	assert.Equal(t, filepath.Join(DefaultBaseDir, DefaultName), p.Dir)
}

func TestInstancesNeverSharePaths(t *testing.T) {
	a := NewPaths("a", "/tmp/base")
	b := NewPaths("b", "/tmp/base")
	c := NewPaths("a", "/tmp/other")

	assert.NotEqual(t, a.Socket, b.Socket)
	assert.NotEqual(t, a.PID, b.PID)
	assert.NotEqual(t, a.LogDir, b.LogDir)
	assert.NotEqual(t, a.Socket, c.Socket)
	assert.NotEqual(t, a.PID, c.PID)
}

func TestPIDFileRoundTrip(t *testing.T) {
	p := NewPaths("t", t.TempDir())
	require.NoError(t, p.Ensure())
	require.NoError(t, p.WritePID(12345))

	pid, err := p.ReadPID()
	require.NoError(t, err)
	assert.Equal(t, 12345, pid)

	p.RemovePID()
	_, err = p.ReadPID()
	assert.True(t, os.IsNotExist(err))
}

func TestRunningWithOwnPID(t *testing.T) {
	p := NewPaths("t", t.TempDir())
	require.NoError(t, p.Ensure())
	require.NoError(t, p.WritePID(os.Getpid()))
	assert.True(t, p.Running())
}

func TestRunningCleansStalePIDFile(t *testing.T) {
	p := NewPaths("t", t.TempDir())
	require.NoError(t, p.Ensure())
	require.NoError(t, os.WriteFile(p.PID, []byte("not-a-pid"), 0o644))

	assert.False(t, p.Running())
	_, err := os.Stat(p.PID)
	assert.True(t, os.IsNotExist(err), "stale pid file should be removed")
}

func TestRunningWithoutPIDFile(t *testing.T) {
	p := NewPaths("t", t.TempDir())
	assert.False(t, p.Running())
}

func TestKillTerminatesDaemon(t *testing.T) {
	p := NewPaths("t", t.TempDir())
	require.NoError(t, p.Ensure())

	cmd := exec.Command("sleep", "100")
	require.NoError(t, cmd.Start())
	// Reap promptly so the pid does not linger as a zombie.
	waited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(waited)
	}()
	require.NoError(t, p.WritePID(cmd.Process.Pid))

	require.NoError(t, p.Kill())
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("daemon process did not die")
	}
	assert.False(t, p.Running())
}

func TestKillNotRunning(t *testing.T) {
	p := NewPaths("t", t.TempDir())
	assert.Error(t, p.Kill())
}

func TestList(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, NewPaths("beta", base).Ensure())
	require.NoError(t, NewPaths("alpha", base).Ensure())

	all, err := List(base)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "beta", all[1].Name)
}

func TestListMissingBaseDir(t *testing.T) {
	all, err := List(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, all)
}

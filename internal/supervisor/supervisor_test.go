//go:build !windows

package supervisor

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSupervisor(t *testing.T, grace time.Duration) *Supervisor {
	t.Helper()
	return New(Config{
		LogDir:      t.TempDir(),
		GracePeriod: grace,
		Instance:    "test",
		Logger:      slog.Default(),
	})
}

func waitFinished(t *testing.T, s *Supervisor, id string) {
	t.Helper()
	require.Eventually(t, func() bool {
		views := s.Status(id)
		v, ok := views[id]
		return ok && v.Status == string(StatusFinished)
	}, 5*time.Second, 50*time.Millisecond, "process %s did not finish", id)
}

func TestStartThenStatusRunning(t *testing.T) {
	s := newTestSupervisor(t, time.Second)
	id, err := s.Start("sleep 100", "web", "")
	require.NoError(t, err)
	require.Equal(t, "web", id)
	defer func() { _, _ = s.Stop(id, true) }()

	views := s.Status(id)
	require.Contains(t, views, id)
	v := views[id]
	assert.Equal(t, string(StatusRunning), v.Status)
	assert.Equal(t, "sleep 100", v.Command)
	assert.Nil(t, v.ExitCode)
	assert.NotEmpty(t, v.StartedAt)
	assert.Equal(t, filepath.Join(filepath.Dir(v.LogFile), "web.log"), v.LogFile)
}

func TestStartGeneratesSequentialIDs(t *testing.T) {
	s := newTestSupervisor(t, time.Second)
	var ids []string
	for i := 0; i < 3; i++ {
		id, err := s.Start("sleep 100", "", "")
		require.NoError(t, err)
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"proc_1", "proc_2", "proc_3"}, ids)

	// Every started id appears exactly once in the aggregate snapshot.
	views := s.Status("")
	require.Len(t, views, 3)
	for _, id := range ids {
		assert.Contains(t, views, id)
		_, _ = s.Stop(id, true)
	}
}

func TestStartDuplicateID(t *testing.T) {
	s := newTestSupervisor(t, time.Second)
	_, err := s.Start("sleep 100", "dup", "")
	require.NoError(t, err)
	defer func() { _, _ = s.Stop("dup", true) }()

	_, err = s.Start("sleep 100", "dup", "")
	require.ErrorIs(t, err, ErrDuplicateID)
}

func TestStartDuplicateIDAgainstFinishedRecord(t *testing.T) {
	s := newTestSupervisor(t, time.Second)
	_, err := s.Start("sh -c 'exit 0'", "dup", "")
	require.NoError(t, err)
	waitFinished(t, s, "dup")

	// The record is finished but uncleaned; the id is still taken.
	_, err = s.Start("sleep 100", "dup", "")
	require.ErrorIs(t, err, ErrDuplicateID)
}

func TestStartLaunchFailureNotRegistered(t *testing.T) {
	s := newTestSupervisor(t, time.Second)
	_, err := s.Start("sleep 100", "ghost", "/nonexistent/workdir")
	require.Error(t, err)
	assert.Empty(t, s.Status(""))

	// The id stays available after the failure.
	_, err = s.Start("sleep 100", "ghost", "")
	require.NoError(t, err)
	_, _ = s.Stop("ghost", true)
}

func TestStopUnknownID(t *testing.T) {
	s := newTestSupervisor(t, time.Second)
	found, err := s.Stop("nope", false)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStopAlreadyExited(t *testing.T) {
	s := newTestSupervisor(t, time.Second)
	id, err := s.Start("sh -c 'exit 3'", "", "")
	require.NoError(t, err)
	waitFinished(t, s, id)

	found, err := s.Stop(id, false)
	require.NoError(t, err)
	assert.True(t, found)

	v := s.Status(id)[id]
	assert.Equal(t, string(StatusFinished), v.Status)
	require.NotNil(t, v.ExitCode)
	assert.Equal(t, 3, *v.ExitCode)
}

func TestStopGraceful(t *testing.T) {
	s := newTestSupervisor(t, 2*time.Second)
	id, err := s.Start("sleep 100", "", "")
	require.NoError(t, err)

	found, err := s.Stop(id, false)
	require.NoError(t, err)
	assert.True(t, found)

	v := s.Status(id)[id]
	assert.Equal(t, string(StatusFinished), v.Status)
	require.NotNil(t, v.ExitCode)
	// SIGTERM death reports the negative signal number.
	assert.Equal(t, -15, *v.ExitCode)
}

func TestStopEscalatesAfterGracePeriod(t *testing.T) {
	s := newTestSupervisor(t, time.Second)
	id, err := s.Start(`sh -c 'trap "" TERM; sleep 100'`, "stubborn", "")
	require.NoError(t, err)

	start := time.Now()
	found, err := s.Stop(id, false)
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.True(t, found)
	// Grace period plus the kill-confirmation poll, with headroom.
	assert.Less(t, elapsed, 4*time.Second)

	v := s.Status(id)[id]
	assert.Equal(t, string(StatusFinished), v.Status)
	require.NotNil(t, v.ExitCode)
	assert.Equal(t, -9, *v.ExitCode)
}

func TestStopForce(t *testing.T) {
	s := newTestSupervisor(t, 30*time.Second)
	id, err := s.Start("sleep 100", "", "")
	require.NoError(t, err)

	start := time.Now()
	found, err := s.Stop(id, true)
	require.NoError(t, err)
	assert.True(t, found)
	// Force skips the grace period entirely.
	assert.Less(t, time.Since(start), 3*time.Second)

	v := s.Status(id)[id]
	assert.Equal(t, string(StatusFinished), v.Status)
	require.NotNil(t, v.ExitCode)
	assert.Equal(t, -9, *v.ExitCode)
}

func TestStatusUnknownIDIsEmpty(t *testing.T) {
	s := newTestSupervisor(t, time.Second)
	assert.Empty(t, s.Status("missing"))
}

func TestCleanupRemovesOnlyExited(t *testing.T) {
	s := newTestSupervisor(t, time.Second)
	done, err := s.Start("sh -c 'exit 0'", "done", "")
	require.NoError(t, err)
	alive, err := s.Start("sleep 100", "alive", "")
	require.NoError(t, err)
	waitFinished(t, s, done)

	assert.Equal(t, 1, s.Cleanup())
	views := s.Status("")
	assert.NotContains(t, views, done)
	assert.Contains(t, views, alive)

	// A second consecutive cleanup removes nothing.
	assert.Equal(t, 0, s.Cleanup())

	_, _ = s.Stop(alive, true)
	assert.Equal(t, 1, s.Cleanup())
}

func TestCleanupFreesIDForReuse(t *testing.T) {
	s := newTestSupervisor(t, time.Second)
	_, err := s.Start("sh -c 'exit 0'", "job", "")
	require.NoError(t, err)
	waitFinished(t, s, "job")
	require.Equal(t, 1, s.Cleanup())

	_, err = s.Start("sleep 100", "job", "")
	require.NoError(t, err)
	_, _ = s.Stop("job", true)
}

func TestLogTail(t *testing.T) {
	s := newTestSupervisor(t, time.Second)
	id, err := s.Start(`sh -c 'printf "one\ntwo\nthree\n"'`, "", "")
	require.NoError(t, err)
	waitFinished(t, s, id)

	require.Eventually(t, func() bool {
		return len(s.Log(id, 10)) == 3
	}, 3*time.Second, 50*time.Millisecond)

	assert.Equal(t, []string{"one", "two", "three"}, s.Log(id, 10))
	assert.Equal(t, []string{"two", "three"}, s.Log(id, 2))
	// lines <= 0 falls back to the default window.
	assert.Equal(t, []string{"one", "two", "three"}, s.Log(id, 0))
}

func TestLogUnknownID(t *testing.T) {
	s := newTestSupervisor(t, time.Second)
	assert.Empty(t, s.Log("missing", 10))
}

func TestTailLines(t *testing.T) {
	assert.Equal(t, []string{}, tailLines("", 5))
	assert.Equal(t, []string{"a", "b"}, tailLines("a\nb\n", 5))
	assert.Equal(t, []string{"b"}, tailLines("a\nb", 1))
	// Carriage returns are stripped with the terminator.
	assert.Equal(t, []string{"a", "b"}, tailLines("a\r\nb\r\n", 5))
	// A trailing blank line inside the file is preserved.
	assert.Equal(t, []string{"a", ""}, tailLines("a\n\n", 5))
}

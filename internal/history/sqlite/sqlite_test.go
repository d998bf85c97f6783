package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/spawnd/internal/history"
)

func TestNewRejectsEmptyDSN(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestSendAndQueryEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	sink, err := New("sqlite://" + path)
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	code := -15
	events := []history.Event{
		{Type: history.EventStart, OccurredAt: time.Now(), ProcessID: "web", PID: 100, Command: "sleep 100"},
		{Type: history.EventExit, OccurredAt: time.Now(), ProcessID: "web", PID: 100, Command: "sleep 100", ExitCode: &code},
		{Type: history.EventCleanup, OccurredAt: time.Now(), ProcessID: "web", Command: "sleep 100", ExitCode: &code},
	}
	for _, e := range events {
		require.NoError(t, sink.Send(context.Background(), e))
	}

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM process_events`).Scan(&count))
	assert.Equal(t, 3, count)

	var exitCode sql.NullInt64
	require.NoError(t, db.QueryRow(
		`SELECT exit_code FROM process_events WHERE event = 'exit'`).Scan(&exitCode))
	require.True(t, exitCode.Valid)
	assert.Equal(t, int64(-15), exitCode.Int64)

	var nullCode sql.NullInt64
	require.NoError(t, db.QueryRow(
		`SELECT exit_code FROM process_events WHERE event = 'start'`).Scan(&nullCode))
	assert.False(t, nullCode.Valid)
}

func TestInMemoryDSN(t *testing.T) {
	sink, err := New(":memory:")
	require.NoError(t, err)
	require.NoError(t, sink.Send(context.Background(), history.Event{
		Type: history.EventStart, OccurredAt: time.Now(), ProcessID: "a", PID: 1, Command: "true",
	}))
	assert.NoError(t, sink.Close())
}

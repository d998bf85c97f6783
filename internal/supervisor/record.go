package supervisor

import (
	"os/exec"
	"time"

	"github.com/loykin/spawnd/internal/protocol"
)

// Status is the lifecycle state of a tracked record. Transitions are
// monotonic: running moves to stopped or finished and never back. "stopped"
// is transient, meaning a terminate was delivered but the exit is not yet
// confirmed; the next refresh that reaps the child normalizes it to "finished".
type Status string

const (
	StatusRunning  Status = "running"
	StatusStopped  Status = "stopped"
	StatusFinished Status = "finished"
)

// record is the daemon's tracked metadata for one spawned child process.
// All fields are guarded by the supervisor's table mutex.
type record struct {
	id        string
	command   string
	cmd       *exec.Cmd
	startedAt time.Time
	logFile   string
	workDir   string
	status    Status
	exitCode  *int // set exactly once, when the exit is first confirmed
}

// view renders the record for the wire, without the process handle.
func (r *record) view() protocol.RecordView {
	v := protocol.RecordView{
		Command:    r.command,
		StartedAt:  r.startedAt.Format(time.RFC3339),
		LogFile:    r.logFile,
		WorkingDir: r.workDir,
		Status:     string(r.status),
	}
	if r.exitCode != nil {
		code := *r.exitCode
		v.ExitCode = &code
	}
	return v
}

//go:build windows

package supervisor

import (
	"errors"
	"os/exec"
	"strconv"
)

type groupSignal int

const (
	sigTerminate groupSignal = iota
	sigKill
)

// signalGroup terminates the process tree of pid. Windows has no group
// signals; taskkill /T walks the tree the way killpg addresses a group.
func signalGroup(pid int, sig groupSignal) error {
	args := []string{"/PID", strconv.Itoa(pid), "/T"}
	if sig == sigKill {
		args = append(args, "/F")
	}
	if err := exec.Command("taskkill", args...).Run(); err != nil {
		var ee *exec.ExitError
		// 128: no such process; already-gone targets count as success.
		if errors.As(err, &ee) && ee.ExitCode() == 128 {
			return nil
		}
		return err
	}
	return nil
}

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/loykin/spawnd/internal/instance"
)

// daemonize re-execs the current invocation detached from the terminal, with
// --foreground appended so the child enters the serve loop directly. Go
// cannot fork, so detachment is a fresh child in a new session with its
// standard streams disconnected.
func daemonize(paths instance.Paths) error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}

	args := append([]string(nil), os.Args[1:]...)
	args = append(args, "--foreground")

	// #nosec G204
	cmd := exec.Command(executable, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	configureDaemonAttrs(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon process: %w", err)
	}

	fmt.Printf("Starting daemon instance: %s\n", paths.Name)
	fmt.Printf("Instance directory: %s\n", paths.Dir)
	fmt.Printf("Daemon started with PID %d\n", cmd.Process.Pid)
	return nil
}

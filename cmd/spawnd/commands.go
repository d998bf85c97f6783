package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/loykin/spawnd/internal/config"
	"github.com/loykin/spawnd/internal/instance"
	"github.com/loykin/spawnd/pkg/client"
)

// followInterval is the poll period for log --follow.
const followInterval = time.Second

// command implements the client-side subcommands. Each call opens a fresh
// single-shot connection to the instance daemon.
type command struct {
	flags *GlobalFlags
}

// loadConfig merges the optional config file with the CLI flag overrides.
func (c command) loadConfig() (config.Config, error) {
	cfg, err := config.Load(c.flags.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if c.flags.Instance != "" {
		cfg.Instance = c.flags.Instance
	}
	if c.flags.BaseDir != "" {
		cfg.BaseDir = c.flags.BaseDir
	}
	return cfg, nil
}

// connect resolves the instance and returns a control client for it, after
// confirming via the PID file that the daemon is up.
func (c command) connect() (*client.Client, instance.Paths, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, instance.Paths{}, err
	}
	paths := cfg.Paths()
	if !paths.Running() {
		return nil, paths, fmt.Errorf(
			"daemon instance %q is not running\nStart it with: spawnd --instance=%s daemon",
			paths.Name, paths.Name)
	}
	return client.New(paths.Socket), paths, nil
}

func (c command) Start(command, name, workDir string) error {
	cl, paths, err := c.connect()
	if err != nil {
		return err
	}
	id, err := cl.Start(command, name, workDir)
	if err != nil {
		return err
	}
	fmt.Printf("Started process: %s (instance: %s)\n", id, paths.Name)
	return nil
}

func (c command) Stop(id string, force bool) error {
	cl, paths, err := c.connect()
	if err != nil {
		return err
	}
	found, err := cl.Stop(id, force)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no such process: %s", id)
	}
	fmt.Printf("Stopped process: %s (instance: %s)\n", id, paths.Name)
	return nil
}

func (c command) Status(id string) error {
	cl, paths, err := c.connect()
	if err != nil {
		return err
	}
	views, err := cl.Status(id)
	if err != nil {
		return err
	}
	if len(views) == 0 {
		fmt.Printf("No processes found in instance %q\n", paths.Name)
		return nil
	}
	ids := make([]string, 0, len(views))
	for pid := range views {
		ids = append(ids, pid)
	}
	sort.Strings(ids)
	fmt.Printf("Processes in instance %q:\n", paths.Name)
	for _, pid := range ids {
		v := views[pid]
		fmt.Printf("\nProcess: %s\n", pid)
		fmt.Printf("  Command: %s\n", v.Command)
		fmt.Printf("  Status: %s\n", v.Status)
		fmt.Printf("  Started: %s\n", v.StartedAt)
		if v.ExitCode != nil {
			fmt.Printf("  Exit code: %d\n", *v.ExitCode)
		}
		fmt.Printf("  Log: %s\n", v.LogFile)
	}
	return nil
}

func (c command) Log(id string, lines int, follow bool) error {
	cl, paths, err := c.connect()
	if err != nil {
		return err
	}
	if !follow {
		out, err := cl.Log(id, lines)
		if err != nil {
			return err
		}
		for _, line := range out {
			fmt.Println(line)
		}
		return nil
	}

	fmt.Printf("Following log for %s in instance %q (Ctrl+C to stop)\n", id, paths.Name)
	var last []string
	for {
		out, err := cl.Log(id, lines)
		if err != nil {
			return err
		}
		for _, line := range diffLines(last, out) {
			fmt.Println(line)
		}
		last = out
		time.Sleep(followInterval)
	}
}

// diffLines returns the entries of cur that are new relative to prev. The
// log window slides forward, so the previous result's tail reappears as the
// new result's head; the longest such overlap is skipped.
func diffLines(prev, cur []string) []string {
	max := len(prev)
	if len(cur) < max {
		max = len(cur)
	}
	for o := max; o > 0; o-- {
		if equalLines(prev[len(prev)-o:], cur[:o]) {
			return cur[o:]
		}
	}
	return cur
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (c command) Cleanup() error {
	cl, paths, err := c.connect()
	if err != nil {
		return err
	}
	removed, err := cl.Cleanup()
	if err != nil {
		return err
	}
	fmt.Printf("Cleaned up %d finished processes in instance %q\n", removed, paths.Name)
	return nil
}

func (c command) Ping() error {
	cl, _, err := c.connect()
	if err != nil {
		return err
	}
	msg, err := cl.Ping()
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func (c command) ListInstances() error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	all, err := instance.List(cfg.BaseDir)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No daemon instances found")
		return nil
	}
	fmt.Println("Daemon instances:")
	for _, p := range all {
		status := "STOPPED"
		if p.Running() {
			status = "RUNNING"
			// Best effort: ask the daemon how many processes it tracks.
			if views, err := client.New(p.Socket).Status(""); err == nil {
				status = fmt.Sprintf("RUNNING (%d processes)", len(views))
			}
		}
		fmt.Printf("  %s: %s\n", p.Name, status)
		fmt.Printf("    Directory: %s\n", p.Dir)
	}
	return nil
}

func (c command) KillInstance(name string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if name == "" {
		name = cfg.Instance
	}
	paths := instance.NewPaths(name, cfg.BaseDir)
	if !paths.Running() {
		return fmt.Errorf("daemon instance %q is not running", name)
	}
	pid, _ := paths.ReadPID()
	fmt.Printf("Killing daemon instance %q (PID: %d)\n", name, pid)
	if err := paths.Kill(); err != nil {
		return err
	}
	fmt.Println("Daemon killed")
	return nil
}

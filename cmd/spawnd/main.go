package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot assembles the CLI command tree.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	daemonFlags := &DaemonFlags{}
	startFlags := &StartFlags{}
	stopFlags := &StopFlags{}
	logFlags := &LogFlags{}

	cmds := command{flags: globalFlags}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createDaemonCommand(cmds, daemonFlags),
		createStartCommand(cmds, startFlags),
		createStopCommand(cmds, stopFlags),
		createStatusCommand(cmds),
		createLogCommand(cmds, logFlags),
		createCleanupCommand(cmds),
		createPingCommand(cmds),
		createListInstancesCommand(cmds),
		createKillInstanceCommand(cmds),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "spawnd",
		Short: "Background process daemon",
		Long: `Spawnd runs a per-instance daemon that starts, tracks, and terminates
background processes on behalf of clients over a local control socket.
Multiple isolated instances can coexist on one machine; an instance is
identified by its name and base directory.

Examples:
  spawnd daemon                          # Start the default instance daemon
  spawnd start "python app.py" --name=web
  spawnd status web
  spawnd log web --lines=100 --follow
  spawnd --instance=ci daemon            # Separate isolated instance`,
	}
	root.PersistentFlags().StringVar(&flags.Instance, "instance", "", "daemon instance name (allows multiple isolated daemons)")
	root.PersistentFlags().StringVar(&flags.BaseDir, "base-dir", "", "base directory for daemon instances")
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

func createDaemonCommand(cmds command, daemonFlags *DaemonFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Start the daemon server",
		Long: `Start the control daemon for the selected instance. By default the
process detaches and runs in the background; use --foreground to keep it
attached to the terminal.

Examples:
  spawnd daemon
  spawnd daemon --foreground
  spawnd --instance=ci --base-dir=/var/lib/spawnd daemon`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmds.Daemon(daemonFlags.Foreground)
		},
	}
	cmd.Flags().BoolVar(&daemonFlags.Foreground, "foreground", false, "run in foreground (don't daemonize)")
	return cmd
}

func createStartCommand(cmds command, startFlags *StartFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <command>",
		Short: "Start a background process",
		Long: `Start a command as a tracked background process. Output goes to the
instance's log directory, one append file per process id.

Examples:
  spawnd start "sleep 100"
  spawnd start "python app.py" --name=web --dir=/srv/app`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmds.Start(args[0], startFlags.Name, startFlags.WorkDir)
		},
	}
	cmd.Flags().StringVar(&startFlags.Name, "name", "", "process name (auto-generated when omitted)")
	cmd.Flags().StringVar(&startFlags.WorkDir, "dir", "", "working directory")
	return cmd
}

func createStopCommand(cmds command, stopFlags *StopFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop <process-id>",
		Short: "Stop a process",
		Long: `Stop a tracked process. The whole process group receives a graceful
terminate first; after the grace period it is killed. --force kills
immediately.

Examples:
  spawnd stop web
  spawnd stop web --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmds.Stop(args[0], stopFlags.Force)
		},
	}
	cmd.Flags().BoolVar(&stopFlags.Force, "force", false, "kill the process group immediately")
	return cmd
}

func createStatusCommand(cmds command) *cobra.Command {
	return &cobra.Command{
		Use:   "status [process-id]",
		Short: "Show process status",
		Long: `Show the status of one tracked process, or of all processes in the
instance when no id is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return cmds.Status(id)
		},
	}
}

func createLogCommand(cmds command, logFlags *LogFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <process-id>",
		Short: "Show process log",
		Long: `Print the most recent log lines of a tracked process. --follow
re-polls the daemon once per second and prints lines that are new since
the previous poll.

Examples:
  spawnd log web
  spawnd log web --lines=200
  spawnd log web --follow`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmds.Log(args[0], logFlags.Lines, logFlags.Follow)
		},
	}
	cmd.Flags().IntVar(&logFlags.Lines, "lines", 50, "number of lines to show")
	cmd.Flags().BoolVar(&logFlags.Follow, "follow", false, "follow log output")
	return cmd
}

func createCleanupCommand(cmds command) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove finished processes from tracking",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmds.Cleanup()
		},
	}
}

func createPingCommand(cmds command) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the instance daemon answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmds.Ping()
		},
	}
}

func createListInstancesCommand(cmds command) *cobra.Command {
	return &cobra.Command{
		Use:   "list-instances",
		Short: "List all daemon instances under the base directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmds.ListInstances()
		},
	}
}

func createKillInstanceCommand(cmds command) *cobra.Command {
	return &cobra.Command{
		Use:   "kill-instance [name]",
		Short: "Kill a daemon instance",
		Long: `Terminate an instance's daemon process via its PID file. Defaults to
the currently selected instance when no name is given. Child processes
keep running; they live in their own process groups.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return cmds.KillInstance(name)
		},
	}
}

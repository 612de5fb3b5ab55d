package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/loykin/sentinel"
	"github.com/loykin/sentinel/internal/logtail"
	"github.com/spf13/cobra"
)

// RunFlags holds flags for the run command
type RunFlags struct {
	Name    string
	Restart bool
	WorkDir string
	Env     []string
	EnvFile string
	Group   string
}

// StopFlags holds flags for stop-like commands
type StopFlags struct {
	Force bool
}

// LogsFlags holds flags for the logs command
type LogsFlags struct {
	Lines  int
	Follow bool
	Clear  bool
}

// createRunCommand creates the run subcommand
func createRunCommand(c command, f *RunFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <command>",
		Short: "Start a process under supervision",
		Long: `Start a command as a supervised background process. The process is
detached into its own session and its stdout/stderr are captured to rotating
log files under the configured log directory.

Examples:
  sentinel run "python app.py" --name=web --restart
  sentinel run "./worker --queue jobs" --group=backend --env=QUEUE=jobs
  sentinel run "npm start" --cwd=/srv/frontend --env-file=.env.production`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := parseEnvPairs(f.Env)
			if err != nil {
				return err
			}
			return c.Run(strings.Join(args, " "), *f, env)
		},
	}

	cmd.Flags().StringVar(&f.Name, "name", "", "process name (derived from the command when empty)")
	cmd.Flags().BoolVar(&f.Restart, "restart", false, "restart the process when it dies")
	cmd.Flags().StringVar(&f.WorkDir, "cwd", "", "working directory (current directory when empty)")
	cmd.Flags().StringArrayVar(&f.Env, "env", nil, "extra environment entry KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&f.EnvFile, "env-file", "", "dotenv file loaded for this process")
	cmd.Flags().StringVar(&f.Group, "group", "", "group to attach the process to")

	return cmd
}

// createStopCommand creates the stop subcommand
func createStopCommand(c command, f *StopFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop <id|name>",
		Short: "Stop a supervised process",
		Long: `Stop a process by numeric id or by name. The process group receives
SIGTERM first and is killed with SIGKILL if it does not exit within the
configured stop wait. A process that already exited is removed from the
state file and reported as stopped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Stop(args[0], f.Force)
		},
	}

	cmd.Flags().BoolVar(&f.Force, "force", false, "kill immediately with SIGKILL")

	return cmd
}

// createRestartCommand creates the restart subcommand
func createRestartCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "restart <id|name>",
		Short: "Restart a supervised process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Restart(args[0])
		},
	}
}

// createStatusCommand creates the status subcommand
func createStatusCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id|name>",
		Short: "Show detailed status of a process",
		Long: `Show the stored record plus live OS status (running state, CPU and
memory usage) for one process. Dead processes are reconciled first, so a
process that exited since the last command is restarted or cleaned up
before its status is reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Status(args[0])
		},
	}
}

// createListCommand creates the list subcommand
func createListCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List supervised processes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.List()
		},
	}
}

// createLogsCommand creates the logs subcommand
func createLogsCommand(c command, f *LogsFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs <id|name>",
		Short: "Show captured process logs",
		Long: `Print the last lines of a process's captured stdout and stderr logs.

Examples:
  sentinel logs web
  sentinel logs web --lines=100
  sentinel logs web --follow        # keep printing as the process writes
  sentinel logs web --clear         # truncate both log files`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Logs(args[0], *f)
		},
	}

	cmd.Flags().IntVar(&f.Lines, "lines", 20, "number of trailing lines per stream")
	cmd.Flags().BoolVar(&f.Follow, "follow", false, "keep following the logs until interrupted")
	cmd.Flags().BoolVar(&f.Clear, "clear", false, "truncate the log files instead of printing")

	return cmd
}

// createCleanCommand creates the clean subcommand
func createCleanCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Reconcile dead processes now",
		Long: `Run one reconciliation pass: dead processes marked for restart are
respawned, dead processes without the restart flag are removed from the
state file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Clean()
		},
	}
}

// createStartAllCommand creates the startall subcommand
func createStartAllCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "startall",
		Short: "Start every stored process that is not running",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.StartAll()
		},
	}
}

// createStopAllCommand creates the stopall subcommand
func createStopAllCommand(c command, f *StopFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stopall",
		Short: "Stop every supervised process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.StopAll(f.Force)
		},
	}

	cmd.Flags().BoolVar(&f.Force, "force", false, "kill immediately with SIGKILL")

	return cmd
}

// createRestartAllCommand creates the restartall subcommand
func createRestartAllCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "restartall",
		Short: "Restart every supervised process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.RestartAll()
		},
	}
}

// Run starts a single process and prints its identity.
func (c command) Run(cmdline string, f RunFlags, env map[string]string) error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		rec, err := eng.Start(sentinel.StartOptions{
			Command: cmdline,
			Name:    f.Name,
			Restart: f.Restart,
			WorkDir: f.WorkDir,
			Env:     env,
			EnvFile: f.EnvFile,
			Group:   f.Group,
		})
		if err != nil {
			return err
		}
		fmt.Printf("started %s (id=%d pid=%d)\n", rec.Name, rec.ID, rec.PID)
		return nil
	})
}

// Stop stops a single process by id or name.
func (c command) Stop(target string, force bool) error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		rec, err := eng.Stop(target, force)
		if err != nil {
			return err
		}
		fmt.Printf("stopped %s (id=%d)\n", rec.Name, rec.ID)
		return nil
	})
}

// Restart restarts a single process by id or name.
func (c command) Restart(target string) error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		rec, err := eng.Restart(target)
		if err != nil {
			return err
		}
		fmt.Printf("restarted %s (id=%d pid=%d)\n", rec.Name, rec.ID, rec.PID)
		return nil
	})
}

// Status reconciles, then prints one process record with live OS status.
func (c command) Status(target string) error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		eng.ReconcileOnce(nil, nil)
		rec, err := eng.Resolve(target)
		if err != nil {
			return err
		}
		printJSON(map[string]any{
			"process": rec,
			"status":  eng.Status(rec),
		})
		return nil
	})
}

// List reconciles, then prints a table of all stored processes.
func (c command) List() error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		eng.ReconcileOnce(nil, nil)
		recs := eng.ListProcesses()
		if len(recs) == 0 {
			fmt.Println("no supervised processes")
			return nil
		}
		fmt.Printf("%-5s %-20s %-8s %-8s %-12s %-10s %s\n",
			"ID", "NAME", "PID", "RESTART", "GROUP", "UPTIME", "COMMAND")
		for _, rec := range recs {
			fmt.Printf("%-5d %-20s %-8d %-8v %-12s %-10s %s\n",
				rec.ID, rec.Name, rec.PID, rec.Restart,
				valueOrDash(rec.Group), formatUptime(time.Since(rec.StartedAt)), rec.Cmd)
		}
		return nil
	})
}

// Logs prints, clears or follows one process's captured logs.
func (c command) Logs(target string, f LogsFlags) error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		rec, err := eng.Resolve(target)
		if err != nil {
			return err
		}
		if f.Clear {
			logtail.Clear(rec.StdoutLog, rec.StderrLog)
			fmt.Printf("cleared logs for %s\n", rec.Name)
			return nil
		}
		for _, line := range logtail.Tail(rec.StdoutLog, f.Lines) {
			fmt.Printf("[out] %s\n", line)
		}
		for _, line := range logtail.Tail(rec.StderrLog, f.Lines) {
			fmt.Printf("[err] %s\n", line)
		}
		if !f.Follow {
			return nil
		}
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		logtail.Follow(ctx, rec.StdoutLog, rec.StderrLog, func(origin, line string) {
			fmt.Printf("[%s] %s\n", origin, line)
		})
		return nil
	})
}

// Clean runs one reconciliation pass and reports what changed.
func (c command) Clean() error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		restarted, cleaned := eng.ReconcileOnce(nil, nil)
		for _, rec := range restarted {
			fmt.Printf("restarted %s (id=%d pid=%d)\n", rec.Name, rec.ID, rec.PID)
		}
		for _, rec := range cleaned {
			fmt.Printf("cleaned %s (id=%d)\n", rec.Name, rec.ID)
		}
		fmt.Printf("%d restarted, %d cleaned\n", len(restarted), len(cleaned))
		return nil
	})
}

// StartAll respawns every stored process whose PID is no longer alive.
// Live processes are left untouched.
func (c command) StartAll() error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		var dead []sentinel.ProcessRecord
		for _, rec := range eng.ListProcesses() {
			if !eng.Status(rec).Running {
				dead = append(dead, rec)
			}
		}
		ok, failed := eng.BatchRestart(dead)
		printBatchResult("started", ok, failed)
		return nil
	})
}

// StopAll stops every stored process with per-item failure isolation.
func (c command) StopAll(force bool) error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		ok, failed := eng.BatchStop(eng.ListProcesses(), force)
		printBatchResult("stopped", ok, failed)
		return nil
	})
}

// RestartAll restarts every stored process with per-item failure isolation.
func (c command) RestartAll() error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		ok, failed := eng.BatchRestart(eng.ListProcesses())
		printBatchResult("restarted", ok, failed)
		return nil
	})
}

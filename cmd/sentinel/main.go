package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/loykin/sentinel"
	"github.com/loykin/sentinel/internal/logger"
	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by every subcommand.
type GlobalFlags struct {
	ConfigPath string
	Debug      bool
}

// command binds subcommand handlers to the shared global flags. An engine is
// opened per invocation so every CLI call sees the state file as it is on
// disk at that moment.
type command struct {
	global *GlobalFlags
}

func (c command) newLogger() *slog.Logger {
	level := slog.LevelInfo
	if c.global.Debug {
		level = slog.LevelDebug
	}
	return logger.NewCLILogger(level, true)
}

// withEngine loads the configuration, opens the state repository and runs fn
// against a fully wired engine, closing it afterwards.
func (c command) withEngine(fn func(*sentinel.Engine) error) error {
	cfg, err := sentinel.LoadConfig(c.global.ConfigPath)
	if err != nil {
		return err
	}
	eng, err := sentinel.New(cfg, c.newLogger())
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()
	return fn(eng)
}

// buildRoot creates the root command and wires all subcommands
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	runFlags := &RunFlags{}
	stopFlags := &StopFlags{}
	stopAllFlags := &StopFlags{}
	logsFlags := &LogsFlags{}
	groupFlags := &GroupFlags{}
	portFlags := &PortFlags{}

	c := command{global: globalFlags}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createRunCommand(c, runFlags),
		createStopCommand(c, stopFlags),
		createRestartCommand(c),
		createStatusCommand(c),
		createListCommand(c),
		createLogsCommand(c, logsFlags),
		createCleanCommand(c),
		createStartAllCommand(c),
		createStopAllCommand(c, stopAllFlags),
		createRestartAllCommand(c),
		createGroupCommand(c, groupFlags),
		createPortCommand(c, portFlags),
		createDaemonCommand(c),
	)

	return root
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "sentinel",
		Short: "Single-host process supervision tool",
		Long: `Sentinel starts, stops and supervises long-running processes on a single
host. All state lives in one JSON file, so separate CLI invocations and the
background daemon share the same view of the world.

Examples:
  sentinel run "python app.py" --name=web --restart
  sentinel status web
  sentinel list
  sentinel daemon start             # background restart monitor`,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "enable debug logging")

	return root
}

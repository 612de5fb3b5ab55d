package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/sentinel"
	"github.com/loykin/sentinel/internal/metrics"
	"github.com/loykin/sentinel/internal/process"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// createDaemonCommand creates the daemon subcommand tree
func createDaemonCommand(c command) *cobra.Command {
	daemon := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the background restart monitor",
		Long: `The daemon runs the restart monitor in the background: every interval it
respawns dead processes marked for restart and cleans up the rest. With
metrics enabled it also serves /metrics and /healthz on the configured
listen address.

Examples:
  sentinel daemon start
  sentinel daemon status
  sentinel daemon stop`,
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.DaemonStart()
		},
	}

	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.DaemonStop()
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether the daemon is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.DaemonStatus()
		},
	}

	run := &cobra.Command{
		Use:    "run",
		Short:  "Run the monitor loop in the foreground",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.DaemonRun()
		},
	}

	daemon.AddCommand(start, stop, status, run)
	return daemon
}

// DaemonStart re-executes this binary as "daemon run" in a new session and
// records its PID.
func (c command) DaemonStart() error {
	cfg, err := sentinel.LoadConfig(c.global.ConfigPath)
	if err != nil {
		return err
	}
	pidFile := cfg.DaemonPIDFile()
	if pid, err := readPIDFile(pidFile); err == nil && process.Alive(pid) {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	args := []string{"daemon", "run"}
	if c.global.ConfigPath != "" {
		args = append(args, "--config", c.global.ConfigPath)
	}
	if c.global.Debug {
		args = append(args, "--debug")
	}

	// #nosec 204 -- re-executing our own binary
	child := exec.Command(executable, args...)
	child.SysProcAttr = daemonSysProcAttr()
	child.Stdin = nil
	child.Stdout = nil
	child.Stderr = nil
	if err := child.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	if err := writePIDFile(pidFile, child.Process.Pid); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	fmt.Printf("daemon started (pid %d)\n", child.Process.Pid)
	return nil
}

// DaemonStop terminates the daemon recorded in the PID file and waits for it
// to exit.
func (c command) DaemonStop() error {
	cfg, err := sentinel.LoadConfig(c.global.ConfigPath)
	if err != nil {
		return err
	}
	pidFile := cfg.DaemonPIDFile()
	pid, err := readPIDFile(pidFile)
	if err != nil {
		fmt.Println("daemon not running")
		return nil
	}
	if !process.Alive(pid) {
		_ = os.Remove(pidFile)
		fmt.Println("daemon not running (removed stale pid file)")
		return nil
	}
	if err := terminateDaemon(pid); err != nil {
		return fmt.Errorf("signal daemon: %w", err)
	}
	deadline := time.Now().Add(10 * time.Second)
	for process.Alive(pid) {
		if time.Now().After(deadline) {
			return fmt.Errorf("daemon (pid %d) did not exit in time", pid)
		}
		time.Sleep(100 * time.Millisecond)
	}
	_ = os.Remove(pidFile)
	fmt.Printf("daemon stopped (pid %d)\n", pid)
	return nil
}

// DaemonStatus reports whether the daemon PID file points at a live process.
func (c command) DaemonStatus() error {
	cfg, err := sentinel.LoadConfig(c.global.ConfigPath)
	if err != nil {
		return err
	}
	pid, err := readPIDFile(cfg.DaemonPIDFile())
	if err == nil && process.Alive(pid) {
		fmt.Printf("daemon running (pid %d)\n", pid)
		return nil
	}
	fmt.Println("daemon not running")
	return nil
}

// DaemonRun is the foreground monitor loop: it owns the PID file for its
// lifetime and exits on SIGINT/SIGTERM.
func (c command) DaemonRun() error {
	cfg, err := sentinel.LoadConfig(c.global.ConfigPath)
	if err != nil {
		return err
	}
	log := c.newLogger()
	eng, err := sentinel.New(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	pidFile := cfg.DaemonPIDFile()
	if err := writePIDFile(pidFile, os.Getpid()); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer func() { _ = os.Remove(pidFile) }()

	_ = metrics.Register(prometheus.DefaultRegisterer)
	var srv *http.Server
	if cfg.Metrics.Enabled {
		srv = serveMetrics(cfg.Metrics.Listen, log)
	}

	eng.Monitor().Start()
	log.Info("daemon running",
		"pid", os.Getpid(),
		"state_dir", cfg.StateDir,
		"interval", cfg.Monitor.Interval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	s := <-sig
	log.Info("daemon shutting down", "signal", s.String())

	eng.Monitor().Stop()
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return nil
}

// serveMetrics exposes /metrics and /healthz on the configured address.
func serveMetrics(listen string, log *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	srv := &http.Server{Addr: listen, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics listener failed", "error", err)
		}
	}()
	return srv
}

func readPIDFile(path string) (int, error) {
	b, err := os.ReadFile(path) // #nosec 304
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file %s", path)
	}
	return pid, nil
}

func writePIDFile(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o644)
}

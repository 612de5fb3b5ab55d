package process

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/loykin/sentinel/internal/env"
	"github.com/loykin/sentinel/internal/history"
	"github.com/loykin/sentinel/internal/logger"
	"github.com/loykin/sentinel/internal/metrics"
	"github.com/loykin/sentinel/internal/store"
)

// DefaultStopWait is how long a graceful stop waits before escalating to a
// hard kill.
const DefaultStopWait = 10 * time.Second

// Options configures a Manager.
type Options struct {
	Store    *store.Store
	Logs     logger.Config
	StateDir string        // global .env files are discovered here and in the CWD
	StopWait time.Duration // grace period before SIGKILL; default 10s
	Logger   *slog.Logger
}

// Manager implements the process lifecycle operations on top of the
// repository: start, stop, restart, status, and batched variants.
type Manager struct {
	st       *store.Store
	logs     logger.Config
	stateDir string
	stopWait time.Duration
	log      *slog.Logger

	mu    sync.Mutex
	sinks []history.Sink
}

func NewManager(o Options) *Manager {
	if o.StopWait <= 0 {
		o.StopWait = DefaultStopWait
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return &Manager{
		st:       o.Store,
		logs:     o.Logs,
		stateDir: o.StateDir,
		stopWait: o.StopWait,
		log:      o.Logger,
	}
}

// Store exposes the underlying repository.
func (m *Manager) Store() *store.Store { return m.st }

// SetHistorySinks configures lifecycle audit sinks. Passing none clears them.
func (m *Manager) SetHistorySinks(sinks ...history.Sink) {
	m.mu.Lock()
	m.sinks = append([]history.Sink(nil), sinks...)
	m.mu.Unlock()
}

// Emit sends a lifecycle event to every configured sink, best effort.
func (m *Manager) Emit(t history.EventType, rec store.ProcessRecord, detail string) {
	m.mu.Lock()
	sinks := append([]history.Sink(nil), m.sinks...)
	m.mu.Unlock()
	if len(sinks) == 0 {
		return
	}
	e := history.Event{
		Type:       t,
		OccurredAt: time.Now().UTC(),
		ProcessID:  rec.ID,
		Name:       rec.Name,
		PID:        rec.PID,
		Detail:     detail,
	}
	for _, s := range sinks {
		if err := s.Send(context.Background(), e); err != nil {
			m.log.Debug("history sink send failed", "event", string(t), "err", err)
		}
	}
}

// StartOptions describes one process spawn.
type StartOptions struct {
	Command string
	Name    string // derived from the command's first token when empty
	Restart bool
	WorkDir string // current directory when empty
	Env     map[string]string
	EnvFile string
	Group   string
}

// Start spawns the command in a new session with stdout/stderr redirected to
// per-name log files and stdin bound to the null device, then records it in
// the repository. Names must be unique across live records.
func (m *Manager) Start(opts StartOptions) (store.ProcessRecord, error) {
	var zero store.ProcessRecord
	name := opts.Name
	if name == "" {
		name = DeriveName(opts.Command)
	}
	if name == "" {
		return zero, fmt.Errorf("empty command")
	}
	if existing, ok := m.st.FindByName(name); ok {
		return zero, fmt.Errorf("process %q already exists (id %d): %w", name, existing.ID, store.ErrConflict)
	}

	var groupEnv map[string]string
	var groupEnvFile string
	if opts.Group != "" {
		g, ok := m.st.GetGroup(opts.Group)
		if !ok {
			return zero, fmt.Errorf("group %q: %w", opts.Group, store.ErrNotFound)
		}
		groupEnv = g.Env
		groupEnvFile = g.EnvFile
	}
	merged, err := env.Build(env.Sources{
		UseOSEnv:       true,
		GlobalFiles:    env.GlobalFiles(m.stateDir),
		GroupEnv:       groupEnv,
		GroupEnvFile:   groupEnvFile,
		ProcessEnv:     opts.Env,
		ProcessEnvFile: opts.EnvFile,
	})
	if err != nil {
		return zero, err
	}

	workDir := opts.WorkDir
	if workDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			workDir = cwd
		}
	}

	outW, errW, err := m.logs.Writers(name)
	if err != nil {
		return zero, fmt.Errorf("open log files for %q: %w", name, err)
	}
	stdoutLog, stderrLog := m.logs.Paths(name)

	cmd := BuildCommand(opts.Command)
	cmd.Dir = workDir
	cmd.Env = env.ToSlice(merged)
	cmd.Stdout = outW
	cmd.Stderr = errW
	// Stdin stays nil: os/exec connects the null device.
	setSessionAttrs(cmd)

	if err := cmd.Start(); err != nil {
		_ = outW.Close()
		_ = errW.Close()
		return zero, fmt.Errorf("start %q: %w", opts.Command, err)
	}
	// Reap the child when it exits so a long-lived daemon does not collect
	// zombies; close the writers once no more output can arrive.
	go func() {
		_ = cmd.Wait()
		_ = outW.Close()
		_ = errW.Close()
	}()

	rec := store.ProcessRecord{
		ID:        m.st.NextID(),
		PID:       cmd.Process.Pid,
		Name:      name,
		Cmd:       opts.Command,
		Cwd:       workDir,
		Restart:   opts.Restart,
		StartedAt: time.Now(),
		StdoutLog: stdoutLog,
		StderrLog: stderrLog,
		Env:       opts.Env,
		Group:     opts.Group,
		EnvFile:   opts.EnvFile,
	}
	if err := m.st.AddProcess(rec); err != nil {
		return zero, err
	}
	metrics.IncStart(name)
	m.Emit(history.EventStart, rec, "")
	m.log.Debug("started process", "name", name, "id", rec.ID, "pid", rec.PID)
	return rec, nil
}

// StartFromRecord starts a new process carrying a record's logical identity
// (command, name, restart flag, environment, working directory). A group
// that no longer exists is dropped rather than failing the spawn.
func (m *Manager) StartFromRecord(rec store.ProcessRecord) (store.ProcessRecord, error) {
	opts := StartOptions{
		Command: rec.Cmd,
		Name:    rec.Name,
		Restart: rec.Restart,
		WorkDir: rec.Cwd,
		Env:     rec.Env,
		EnvFile: rec.EnvFile,
		Group:   rec.Group,
	}
	if opts.Group != "" {
		if _, ok := m.st.GetGroup(opts.Group); !ok {
			opts.Group = ""
		}
	}
	return m.Start(opts)
}

// Resolve finds a record by numeric id or by name.
func (m *Manager) Resolve(idOrName string) (store.ProcessRecord, error) {
	if id, err := strconv.ParseInt(idOrName, 10, 64); err == nil {
		if rec, ok := m.st.GetProcess(id); ok {
			return rec, nil
		}
		return store.ProcessRecord{}, fmt.Errorf("process %s: %w", idOrName, store.ErrNotFound)
	}
	if rec, ok := m.st.FindByName(idOrName); ok {
		return rec, nil
	}
	return store.ProcessRecord{}, fmt.Errorf("process %q: %w", idOrName, store.ErrNotFound)
}

// Stop resolves a process by id or name, terminates it and removes its
// record. With force a hard kill is sent immediately; otherwise the process
// gets SIGTERM and the stop grace period before escalation. A process that
// is already gone counts as success.
func (m *Manager) Stop(idOrName string, force bool) (store.ProcessRecord, error) {
	rec, err := m.Resolve(idOrName)
	if err != nil {
		return store.ProcessRecord{}, err
	}
	return rec, m.stopRecord(rec, force)
}

func (m *Manager) stopRecord(rec store.ProcessRecord, force bool) error {
	if Alive(rec.PID) {
		if force {
			_ = kill(rec.PID)
		} else {
			_ = terminate(rec.PID)
			if !m.waitGone(rec.PID, m.stopWait) {
				_ = kill(rec.PID)
				m.waitGone(rec.PID, time.Second)
			}
		}
	}
	m.st.RemoveProcess(rec.ID)
	metrics.IncStop(rec.Name)
	m.Emit(history.EventStop, rec, "")
	m.log.Debug("stopped process", "name", rec.Name, "id", rec.ID)
	return nil
}

// waitGone polls the process table until pid disappears or the timeout
// elapses, reporting whether it is gone.
func (m *Manager) waitGone(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !Alive(pid) {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return !Alive(pid)
}

// Restart stops a process and starts a replacement with the same command,
// name, restart flag, environment and working directory. The new record has
// a new id and pid; the old record no longer exists.
func (m *Manager) Restart(idOrName string) (store.ProcessRecord, error) {
	rec, err := m.Resolve(idOrName)
	if err != nil {
		return store.ProcessRecord{}, err
	}
	if err := m.stopRecord(rec, false); err != nil {
		return store.ProcessRecord{}, err
	}
	fresh, err := m.StartFromRecord(rec)
	if err != nil {
		return store.ProcessRecord{}, err
	}
	m.Emit(history.EventRestart, fresh, "requested")
	return fresh, nil
}

package sentinel

import (
	"log/slog"

	"github.com/loykin/sentinel/internal/config"
	"github.com/loykin/sentinel/internal/history"
	"github.com/loykin/sentinel/internal/monitor"
	"github.com/loykin/sentinel/internal/ports"
	"github.com/loykin/sentinel/internal/process"
	"github.com/loykin/sentinel/internal/store"
)

// Re-export core types for external consumers. These are aliases so
// conversions are zero-cost.

type (
	Config        = config.Config
	ProcessRecord = store.ProcessRecord
	GroupInfo     = store.GroupInfo
	PortLease     = store.PortLease
	Status        = process.Status
	StartOptions  = process.StartOptions
	Failure       = process.Failure
	HistorySink   = history.Sink
)

// Sentinel errors for errors.Is matching.
var (
	ErrNotFound = store.ErrNotFound
	ErrConflict = store.ErrConflict
)

// LoadConfig reads the TOML configuration, falling back to defaults.
func LoadConfig(path string) (Config, error) { return config.Load(path) }

// Engine bundles the repository, the lifecycle manager, the restart monitor
// and the port allocator into one embeddable supervision engine.
type Engine struct {
	cfg   Config
	st    *store.Store
	mgr   *process.Manager
	mon   *monitor.Monitor
	alloc *ports.Allocator
	sinks []history.Sink
}

// New opens the state store under cfg.StateDir and wires the engine. When a
// history DSN is configured, lifecycle events are appended there as well.
func New(cfg Config, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}
	st, err := store.Open(cfg.StateFile())
	if err != nil {
		return nil, err
	}
	mgr := process.NewManager(process.Options{
		Store:    st,
		Logs:     cfg.LoggerConfig(),
		StateDir: cfg.StateDir,
		StopWait: cfg.Monitor.StopWait,
		Logger:   log,
	})
	e := &Engine{
		cfg:   cfg,
		st:    st,
		mgr:   mgr,
		mon:   monitor.New(mgr, cfg.Monitor.Interval, log),
		alloc: ports.New(st),
	}
	if cfg.History.DSN != "" {
		sink, err := history.NewSQLSink(cfg.History.DSN)
		if err != nil {
			return nil, err
		}
		e.sinks = []history.Sink{sink}
		mgr.SetHistorySinks(sink)
	}
	return e, nil
}

// Close stops the monitor if running and releases history sinks.
func (e *Engine) Close() error {
	e.mon.Stop()
	var firstErr error
	for _, s := range e.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Monitor returns the shared restart monitor instance.
func (e *Engine) Monitor() *monitor.Monitor { return e.mon }

// Process lifecycle.

func (e *Engine) Start(opts StartOptions) (ProcessRecord, error) { return e.mgr.Start(opts) }
func (e *Engine) Stop(idOrName string, force bool) (ProcessRecord, error) {
	return e.mgr.Stop(idOrName, force)
}
func (e *Engine) Restart(idOrName string) (ProcessRecord, error) { return e.mgr.Restart(idOrName) }
func (e *Engine) Resolve(idOrName string) (ProcessRecord, error) { return e.mgr.Resolve(idOrName) }
func (e *Engine) Status(rec ProcessRecord) Status                { return process.QueryStatus(rec.PID) }
func (e *Engine) ListProcesses() []ProcessRecord                 { return e.st.ListProcesses() }

// Batch operations with per-item failure isolation.

func (e *Engine) BatchStart(recs []ProcessRecord) ([]ProcessRecord, []Failure) {
	return e.mgr.BatchStart(recs)
}
func (e *Engine) BatchStop(recs []ProcessRecord, force bool) ([]ProcessRecord, []Failure) {
	return e.mgr.BatchStop(recs, force)
}
func (e *Engine) BatchRestart(recs []ProcessRecord) ([]ProcessRecord, []Failure) {
	return e.mgr.BatchRestart(recs)
}

// ReconcileOnce runs a single monitor pass without a background thread.
func (e *Engine) ReconcileOnce(
	onRestart func(old, fresh ProcessRecord),
	onCleanup func(rec ProcessRecord),
) (restarted, cleaned []ProcessRecord) {
	return e.mon.RunOnce(onRestart, onCleanup)
}

// Groups.

func (e *Engine) CreateGroup(name string, env map[string]string, envFile string) (GroupInfo, error) {
	return e.st.CreateGroup(name, env, envFile)
}
func (e *Engine) RemoveGroup(name string) error          { return e.st.RemoveGroup(name) }
func (e *Engine) GetGroup(name string) (GroupInfo, bool) { return e.st.GetGroup(name) }
func (e *Engine) ListGroups() []GroupInfo                { return e.st.ListGroups() }
func (e *Engine) ProcessesInGroup(name string) []ProcessRecord {
	return e.st.ProcessesInGroup(name)
}
func (e *Engine) AssignGroup(id int64, group string) error { return e.st.AssignGroup(id, group) }
func (e *Engine) UnassignGroup(id int64) error             { return e.st.UnassignGroup(id) }

// Port leases.

func (e *Engine) AllocatePort(name string, port int) (int, bool) { return e.alloc.Allocate(name, port) }
func (e *Engine) FreePort(port int) bool                         { return e.alloc.Free(port) }
func (e *Engine) ListPorts(name string) []PortLease              { return e.st.ListPorts(name) }

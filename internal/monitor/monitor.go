package monitor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/loykin/sentinel/internal/history"
	"github.com/loykin/sentinel/internal/metrics"
	"github.com/loykin/sentinel/internal/process"
	"github.com/loykin/sentinel/internal/store"
)

// DefaultInterval is the time between monitor scan cycles.
const DefaultInterval = 5 * time.Second

// joinTimeout bounds how long Stop waits for the loop goroutine to exit.
const joinTimeout = 10 * time.Second

// Monitor is the background scanner that revives dead restart-flagged
// processes and removes dead non-restart records. One instance is shared per
// host agent; Start and Stop are idempotent.
type Monitor struct {
	mgr      *process.Manager
	interval time.Duration
	log      *slog.Logger

	mu        sync.Mutex
	stop      chan struct{}
	done      chan struct{}
	onRestart func(store.ProcessRecord)
}

func New(mgr *process.Manager, interval time.Duration, log *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{mgr: mgr, interval: interval, log: log}
}

// SetRestartCallback registers a callback invoked with every freshly
// recovered record.
func (m *Monitor) SetRestartCallback(fn func(store.ProcessRecord)) {
	m.mu.Lock()
	m.onRestart = fn
	m.mu.Unlock()
}

// Start launches the background loop. Calling it while running is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.loop(m.stop, m.done)
}

// Stop signals the loop to exit and joins it with a bounded timeout. An
// in-progress cycle is not interrupted, so a stop may take up to slightly
// more than one check interval.
func (m *Monitor) Stop() {
	m.mu.Lock()
	stop, done := m.stop, m.done
	m.stop, m.done = nil, nil
	m.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	select {
	case <-done:
	case <-time.After(joinTimeout):
		m.log.Warn("monitor loop did not exit before timeout")
	}
}

// IsRunning reports whether the background loop is active.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stop != nil
}

func (m *Monitor) loop(stop, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		m.cycle()
		select {
		case <-t.C:
		case <-stop:
			return
		}
	}
}

// cycle runs one scan pass; any panic or error is logged and the loop
// continues on the next tick.
func (m *Monitor) cycle() {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncMonitorError()
			m.log.Error("monitor cycle panicked", "err", fmt.Sprint(r))
		}
	}()
	m.RunOnce(nil, nil)
	metrics.IncMonitorCycle()
}

// RunOnce performs a single scan-and-act pass: dead restart-flagged records
// are replaced by freshly started processes, dead non-restart records are
// removed. The optional callbacks observe each outcome; the registered
// restart callback fires as well. Foreground commands use this to reconcile
// state without a persistent thread.
func (m *Monitor) RunOnce(
	onRestart func(old, fresh store.ProcessRecord),
	onCleanup func(rec store.ProcessRecord),
) (restarted, cleaned []store.ProcessRecord) {
	m.mu.Lock()
	cb := m.onRestart
	m.mu.Unlock()
	st := m.mgr.Store()

	var revive, reap []store.ProcessRecord
	for _, rec := range st.ListProcesses() {
		if process.Alive(rec.PID) {
			continue
		}
		if rec.Restart {
			revive = append(revive, rec)
		} else {
			reap = append(reap, rec)
		}
	}

	for _, rec := range reap {
		if _, ok := st.RemoveProcess(rec.ID); !ok {
			m.log.Debug("cleanup skipped, record vanished", "name", rec.Name, "id", rec.ID)
			continue
		}
		metrics.IncCleanup(rec.Name)
		m.mgr.Emit(history.EventCleanup, rec, "dead, restart disabled")
		cleaned = append(cleaned, rec)
		if onCleanup != nil {
			onCleanup(rec)
		}
	}

	for _, rec := range revive {
		st.RemoveProcess(rec.ID)
		fresh, err := m.mgr.StartFromRecord(rec)
		if err != nil {
			metrics.IncMonitorError()
			m.log.Error("failed to recover process", "name", rec.Name, "err", err)
			// Keep tracking the dead record rather than losing it.
			// Best-effort compensation, not transactional.
			if addErr := st.AddProcess(rec); addErr != nil {
				m.log.Error("failed to re-insert record", "name", rec.Name, "err", addErr)
			}
			continue
		}
		metrics.IncRecovery(fresh.Name)
		m.mgr.Emit(history.EventRestart, fresh, "recovered")
		m.log.Debug("recovered process", "name", fresh.Name, "old_pid", rec.PID, "new_pid", fresh.PID)
		restarted = append(restarted, fresh)
		if onRestart != nil {
			onRestart(rec, fresh)
		}
		if cb != nil {
			cb(fresh)
		}
	}
	return restarted, cleaned
}

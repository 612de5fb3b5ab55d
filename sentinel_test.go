package sentinel

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/sentinel/internal/config"
	"github.com/loykin/sentinel/internal/process"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		StateDir: dir,
		Log:      config.LogConfig{Dir: filepath.Join(dir, "logs")},
		Monitor:  config.MonitorConfig{Interval: time.Second, StopWait: 2 * time.Second},
	}
	eng, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestEngineLifecycle(t *testing.T) {
	eng := newTestEngine(t)

	rec, err := eng.Start(StartOptions{Command: "sleep 30", Name: "napper"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if rec.PID <= 0 {
		t.Fatalf("expected live pid, got %d", rec.PID)
	}

	st := eng.Status(rec)
	if !st.Running {
		t.Fatalf("expected running, got %+v", st)
	}

	if got := eng.ListProcesses(); len(got) != 1 || got[0].Name != "napper" {
		t.Fatalf("unexpected list: %+v", got)
	}

	stopped, err := eng.Stop("napper", false)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if stopped.ID != rec.ID {
		t.Fatalf("stopped wrong record: %+v", stopped)
	}
	if len(eng.ListProcesses()) != 0 {
		t.Fatalf("record should be removed after stop")
	}
}

func TestEngineStopUnknownIsNotFound(t *testing.T) {
	eng := newTestEngine(t)
	if _, err := eng.Stop("ghost", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEngineReconcileOnceCleansDead(t *testing.T) {
	eng := newTestEngine(t)

	rec, err := eng.Start(StartOptions{Command: "sleep 30", Name: "doomed"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Kill behind the engine's back so reconciliation sees a dead record.
	if _, err := eng.Stop("doomed", true); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	// Re-insert the stale record to simulate a process that died on its own.
	_ = eng.st.AddProcess(rec)

	deadline := time.Now().Add(3 * time.Second)
	for process.Alive(rec.PID) {
		if time.Now().After(deadline) {
			t.Fatalf("pid %d still alive", rec.PID)
		}
		time.Sleep(50 * time.Millisecond)
	}

	_, cleaned := eng.ReconcileOnce(nil, nil)
	if len(cleaned) != 1 || cleaned[0].ID != rec.ID {
		t.Fatalf("expected one cleaned record, got %+v", cleaned)
	}
	if len(eng.ListProcesses()) != 0 {
		t.Fatalf("dead record should be gone")
	}
}

func TestEngineGroupsAndPorts(t *testing.T) {
	eng := newTestEngine(t)

	if _, err := eng.CreateGroup("backend", map[string]string{"STAGE": "test"}, ""); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := eng.CreateGroup("backend", nil, ""); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	rec, err := eng.Start(StartOptions{Command: "sleep 30", Name: "member", Group: "backend"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _, _ = eng.Stop("member", true) }()

	if members := eng.ProcessesInGroup("backend"); len(members) != 1 || members[0].ID != rec.ID {
		t.Fatalf("unexpected members: %+v", members)
	}

	port, ok := eng.AllocatePort("member", 0)
	if !ok {
		t.Fatalf("AllocatePort failed")
	}
	if leases := eng.ListPorts("member"); len(leases) != 1 || leases[0].Port != port {
		t.Fatalf("unexpected leases: %+v", leases)
	}
	if !eng.FreePort(port) {
		t.Fatalf("FreePort(%d) failed", port)
	}
}

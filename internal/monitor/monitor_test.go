package monitor

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/loykin/sentinel/internal/logger"
	"github.com/loykin/sentinel/internal/process"
	"github.com/loykin/sentinel/internal/store"
)

func newTestManager(t *testing.T) *process.Manager {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return process.NewManager(process.Options{
		Store:    st,
		Logs:     logger.Config{Dir: filepath.Join(dir, "logs")},
		StateDir: dir,
		StopWait: 2 * time.Second,
	})
}

func waitDead(t *testing.T, pid int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !process.Alive(pid) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("pid %d still alive", pid)
}

func TestRunOncePartitionsDead(t *testing.T) {
	mgr := newTestManager(t)
	dead1, err := mgr.Start(process.StartOptions{Command: "sh -c 'exit 0'", Name: "revive-me", Restart: true})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	dead2, err := mgr.Start(process.StartOptions{Command: "sh -c 'exit 0'", Name: "reap-me"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	alive, err := mgr.Start(process.StartOptions{Command: "sleep 5", Name: "leave-me"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitDead(t, dead1.PID, 2*time.Second)
	waitDead(t, dead2.PID, 2*time.Second)

	m := New(mgr, time.Second, nil)
	var cleanedNames []string
	restarted, cleaned := m.RunOnce(nil, func(rec store.ProcessRecord) {
		cleanedNames = append(cleanedNames, rec.Name)
	})
	if len(restarted) != 1 || restarted[0].Name != "revive-me" {
		t.Fatalf("restarted: %+v", restarted)
	}
	if restarted[0].ID == dead1.ID || restarted[0].PID == dead1.PID {
		t.Fatalf("recovery must assign new id and pid: %+v", restarted[0])
	}
	if len(cleaned) != 1 || cleanedNames[0] != "reap-me" {
		t.Fatalf("cleaned: %+v", cleaned)
	}
	// untouched record remains
	if _, ok := mgr.Store().GetProcess(alive.ID); !ok {
		t.Fatalf("running process must not be touched")
	}
	_, _ = mgr.Stop("leave-me", true)
	_, _ = mgr.Stop("revive-me", true)
}

func TestRunOnceReinsertsOnFailedRecovery(t *testing.T) {
	mgr := newTestManager(t)
	dead, err := mgr.Start(process.StartOptions{Command: "sh -c 'exit 0'", Name: "broken", Restart: true})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitDead(t, dead.PID, 2*time.Second)
	// sabotage the respawn: point the record at a missing env file
	dead.EnvFile = filepath.Join(t.TempDir(), "gone.env")
	if err := mgr.Store().AddProcess(dead); err != nil {
		t.Fatalf("update record: %v", err)
	}

	m := New(mgr, time.Second, nil)
	restarted, _ := m.RunOnce(nil, nil)
	if len(restarted) != 0 {
		t.Fatalf("recovery should have failed: %+v", restarted)
	}
	if _, ok := mgr.Store().GetProcess(dead.ID); !ok {
		t.Fatalf("failed recovery must re-insert the original record")
	}
}

func TestMonitorLoopRecovers(t *testing.T) {
	mgr := newTestManager(t)
	rec, err := mgr.Start(process.StartOptions{Command: "sh -c 'sleep 0.05'", Name: "flappy", Restart: true})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	m := New(mgr, 100*time.Millisecond, nil)
	var mu sync.Mutex
	var cbRecords []store.ProcessRecord
	m.SetRestartCallback(func(r store.ProcessRecord) {
		mu.Lock()
		cbRecords = append(cbRecords, r)
		mu.Unlock()
	})
	m.Start()
	m.Start() // idempotent
	defer m.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cur, ok := mgr.Store().FindByName("flappy"); ok && cur.PID != rec.PID {
			mu.Lock()
			n := len(cbRecords)
			mu.Unlock()
			if n >= 1 {
				m.Stop()
				m.Stop() // idempotent
				if m.IsRunning() {
					t.Fatalf("monitor should be stopped")
				}
				_, _ = mgr.Stop("flappy", true)
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("monitor did not recover the process in time")
}

package logtail

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestTail(t *testing.T) {
	p := filepath.Join(t.TempDir(), "x.log")
	if err := os.WriteFile(p, []byte("a\nb\nc\nd\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := Tail(p, 2)
	if len(got) != 2 || got[0] != "c" || got[1] != "d" {
		t.Fatalf("tail: %v", got)
	}
	if got := Tail(p, 10); len(got) != 4 {
		t.Fatalf("short file tail: %v", got)
	}
	if got := Tail(filepath.Join(t.TempDir(), "missing"), 5); got != nil {
		t.Fatalf("missing file should yield nil, got %v", got)
	}
}

func TestClear(t *testing.T) {
	p := filepath.Join(t.TempDir(), "x.log")
	if err := os.WriteFile(p, []byte("data\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	Clear(p, filepath.Join(t.TempDir(), "missing"))
	fi, err := os.Stat(p)
	if err != nil || fi.Size() != 0 {
		t.Fatalf("not truncated: %v %d", err, fi.Size())
	}
}

func TestFollowPicksUpAppends(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "p.stdout.log")
	errp := filepath.Join(dir, "p.stderr.log")
	if err := os.WriteFile(out, []byte("old\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		Follow(ctx, out, errp, func(origin, line string) {
			mu.Lock()
			got = append(got, origin+":"+line)
			mu.Unlock()
		})
	}()

	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(out, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("new line\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	cancel()
	<-done
	mu.Lock()
	defer mu.Unlock()
	if len(got) == 0 || got[0] != "out:new line" {
		t.Fatalf("follow output: %v", got)
	}
}

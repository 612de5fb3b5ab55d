package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"web-1":       "web-1",
		"my app":      "my_app",
		"a/b:c":       "a_b_c",
		"under_score": "under_score",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Fatalf("Sanitize(%q)=%q want %q", in, got, want)
		}
	}
}

func TestPathsNaming(t *testing.T) {
	c := Config{Dir: "/var/log/sentinel"}
	out, errp := c.Paths("my svc")
	if filepath.Base(out) != "my_svc.stdout.log" || filepath.Base(errp) != "my_svc.stderr.log" {
		t.Fatalf("unexpected paths %q %q", out, errp)
	}
}

func TestWritersAppend(t *testing.T) {
	c := Config{Dir: t.TempDir()}
	outW, errW, err := c.Writers("demo")
	if err != nil {
		t.Fatalf("writers: %v", err)
	}
	if _, err := outW.Write([]byte("first\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = outW.Close()
	_ = errW.Close()

	outW2, errW2, err := c.Writers("demo")
	if err != nil {
		t.Fatalf("writers again: %v", err)
	}
	if _, err := outW2.Write([]byte("second\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = outW2.Close()
	_ = errW2.Close()

	path, _ := c.Paths("demo")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "first") || !strings.Contains(string(b), "second") {
		t.Fatalf("log not appended: %q", string(b))
	}
}

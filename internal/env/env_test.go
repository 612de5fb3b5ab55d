package env

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMergePrecedence(t *testing.T) {
	got := Merge(map[string]string{"SHARED": "a"}, map[string]string{"SHARED": "b"})
	if got["SHARED"] != "b" {
		t.Fatalf("want b got %q", got["SHARED"])
	}
	got = Merge(nil, map[string]string{"X": "1"})
	if len(got) != 1 || got["X"] != "1" {
		t.Fatalf("nil source not skipped: %v", got)
	}
}

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadFile(t *testing.T) {
	p := writeEnv(t, "# comment\n\nPLAIN=hello\nQUOTED=\"a\\nb\"\nSINGLE='lit$eral'\nSPACED=  trimmed  \n")
	vars, err := LoadFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if vars["PLAIN"] != "hello" {
		t.Fatalf("PLAIN=%q", vars["PLAIN"])
	}
	if vars["QUOTED"] != "a\nb" {
		t.Fatalf("QUOTED=%q", vars["QUOTED"])
	}
	if vars["SINGLE"] != "lit$eral" {
		t.Fatalf("SINGLE=%q", vars["SINGLE"])
	}
	if vars["SPACED"] != "trimmed" {
		t.Fatalf("SPACED=%q", vars["SPACED"])
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.env")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestBuildPrecedenceOrder(t *testing.T) {
	groupFile := writeEnv(t, "FROM=group_file\nGF_ONLY=1\n")
	procFile := writeEnv(t, "FROM=proc_file\nPF_ONLY=1\n")
	got, err := Build(Sources{
		GroupEnv:       map[string]string{"FROM": "group_map", "GM_ONLY": "1"},
		GroupEnvFile:   groupFile,
		ProcessEnv:     map[string]string{"FROM": "proc_map"},
		ProcessEnvFile: procFile,
		Override:       map[string]string{"FROM": "override"},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got["FROM"] != "override" {
		t.Fatalf("precedence broken: FROM=%q", got["FROM"])
	}
	for _, k := range []string{"GF_ONLY", "GM_ONLY", "PF_ONLY"} {
		if got[k] != "1" {
			t.Fatalf("lost key %s: %v", k, got)
		}
	}
}

func TestBuildFileWithoutOverride(t *testing.T) {
	procFile := writeEnv(t, "FROM=proc_file\n")
	got, err := Build(Sources{
		ProcessEnv:     map[string]string{"FROM": "proc_map"},
		ProcessEnvFile: procFile,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got["FROM"] != "proc_file" {
		t.Fatalf("process file should override process map, got %q", got["FROM"])
	}
}

func TestBuildRequiredFilesHardFail(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone.env")
	if _, err := Build(Sources{GroupEnvFile: missing}); err == nil {
		t.Fatalf("missing group env file must fail")
	}
	if _, err := Build(Sources{ProcessEnvFile: missing}); err == nil {
		t.Fatalf("missing process env file must fail")
	}
	// global files are best-effort
	got, err := Build(Sources{GlobalFiles: []string{missing}, ProcessEnv: map[string]string{"X": "1"}})
	if err != nil {
		t.Fatalf("missing global file must be skipped: %v", err)
	}
	if got["X"] != "1" {
		t.Fatalf("lost process env: %v", got)
	}
}

func TestBuildOSEnvLowestPrecedence(t *testing.T) {
	t.Setenv("SENTINEL_ENV_TEST", "from_os")
	got, err := Build(Sources{
		UseOSEnv:   true,
		ProcessEnv: map[string]string{"SENTINEL_ENV_TEST": "from_proc"},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got["SENTINEL_ENV_TEST"] != "from_proc" {
		t.Fatalf("process env must beat OS env, got %q", got["SENTINEL_ENV_TEST"])
	}
	if _, ok := got["PATH"]; !ok {
		t.Fatalf("OS env not included")
	}
}

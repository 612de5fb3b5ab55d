package main

import (
	"testing"
	"time"
)

func TestParseEnvPairs(t *testing.T) {
	env, err := parseEnvPairs([]string{"A=1", "B=x=y", "EMPTY="})
	if err != nil {
		t.Fatalf("parseEnvPairs: %v", err)
	}
	if env["A"] != "1" {
		t.Fatalf("A=%q", env["A"])
	}
	if env["B"] != "x=y" {
		t.Fatalf("value with '=' not preserved: %q", env["B"])
	}
	if v, ok := env["EMPTY"]; !ok || v != "" {
		t.Fatalf("empty value not kept: %q ok=%v", v, ok)
	}
}

func TestParseEnvPairsRejectsMalformed(t *testing.T) {
	for _, bad := range []string{"NOEQUALS", "=missingkey"} {
		if _, err := parseEnvPairs([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseEnvPairsEmpty(t *testing.T) {
	env, err := parseEnvPairs(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env != nil {
		t.Fatalf("expected nil map, got %v", env)
	}
}

func TestFormatUptime(t *testing.T) {
	if got := formatUptime(90 * time.Second); got != "1m30s" {
		t.Fatalf("got %q", got)
	}
	if got := formatUptime(-5 * time.Second); got != "0s" {
		t.Fatalf("negative uptime should clamp to zero, got %q", got)
	}
}

func TestValueOrDash(t *testing.T) {
	if valueOrDash("") != "-" {
		t.Fatalf("empty should render as dash")
	}
	if valueOrDash("backend") != "backend" {
		t.Fatalf("non-empty should pass through")
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/loykin/sentinel"
)

// parseEnvPairs turns repeated --env KEY=VALUE flags into a map.
func parseEnvPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid env entry %q, expected KEY=VALUE", p)
		}
		env[k] = v
	}
	return env, nil
}

// printBatchResult reports batch successes and failures. Batch commands are
// best-effort: failures are printed but never turn into a non-zero exit.
func printBatchResult(verb string, ok []sentinel.ProcessRecord, failed []sentinel.Failure) {
	for _, rec := range ok {
		fmt.Printf("%s %s (id=%d pid=%d)\n", verb, rec.Name, rec.ID, rec.PID)
	}
	for _, f := range failed {
		fmt.Printf("failed %s (id=%d): %s\n", f.Record.Name, f.Record.ID, f.Err)
	}
	fmt.Printf("%d %s, %d failed\n", len(ok), verb, len(failed))
}

func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return d.Truncate(time.Second).String()
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

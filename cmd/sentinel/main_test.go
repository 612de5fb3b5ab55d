package main

import "testing"

func TestBuildRootHasAllCommands(t *testing.T) {
	root := buildRoot()
	want := []string{
		"run", "stop", "restart", "status", "list", "logs", "clean",
		"startall", "stopall", "restartall", "group", "port", "daemon",
	}
	have := make(map[string]bool)
	for _, sub := range root.Commands() {
		have[sub.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Fatalf("missing subcommand %q", name)
		}
	}
}

func TestRootPersistentFlags(t *testing.T) {
	root := buildRoot()
	if root.PersistentFlags().Lookup("config") == nil {
		t.Fatalf("missing persistent --config flag")
	}
	if root.PersistentFlags().Lookup("debug") == nil {
		t.Fatalf("missing persistent --debug flag")
	}
}

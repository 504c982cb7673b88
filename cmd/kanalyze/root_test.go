package main

import "testing"

func TestRootCommandRegistersSubcommands(t *testing.T) {
	want := map[string]bool{"batch": false, "server": false, "client": false, "config": false}

	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}

	for name, found := range want {
		if !found {
			t.Fatalf("expected rootCmd to register a %q subcommand", name)
		}
	}
}

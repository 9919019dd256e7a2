package main

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func TestCommandTable(t *testing.T) {
	want := map[commandTag]bool{
		cmdPredictoorData: true,
		cmdCalc:           true,
		cmdDispense:       true,
		cmdCheckpoint:     true,
		cmdSchedule:       true,
	}
	seen := make(map[commandTag]bool)
	for _, c := range commands {
		if seen[c.tag] {
			t.Fatalf("duplicate command %s", c.tag)
		}
		seen[c.tag] = true
		if !want[c.tag] {
			t.Fatalf("unexpected command %s", c.tag)
		}
		if name := strings.Fields(c.use)[0]; name != string(c.tag) {
			t.Fatalf("command %s is invoked as %s", c.tag, name)
		}
		if c.run == nil || c.flags == nil {
			t.Fatalf("command %s is not wired", c.tag)
		}
		fs := pflag.NewFlagSet(string(c.tag), pflag.ContinueOnError)
		c.flags(fs)
		if fs.Lookup("chain-id") == nil {
			t.Fatalf("command %s has no chain-id flag", c.tag)
		}
	}
	if len(seen) != len(want) {
		t.Fatalf("got %d commands, want %d", len(seen), len(want))
	}
}

func TestBindArgs(t *testing.T) {
	cmd := &cobra.Command{Use: "calc"}
	calcFlags(cmd.Flags())

	if err := bindArgs(cmd, []string{"predictoor_rose", "/tmp/out", "100"}, "stream", "csv-dir", "total"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	total, _ := cmd.Flags().GetString("total")
	if total != "100" {
		t.Fatalf("total = %q", total)
	}
	if !cmd.Flags().Changed("csv-dir") {
		t.Fatalf("csv-dir should be marked as set")
	}

	if err := bindArgs(cmd, []string{"a", "b"}, "stream"); err == nil {
		t.Fatalf("expected error for extra arguments")
	}
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	if _, err := newLogger("loud"); err == nil {
		t.Fatalf("expected error")
	}
	logger, err := newLogger("debug")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	_ = logger.Sync()
}

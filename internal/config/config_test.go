package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestParsePoint(t *testing.T) {
	now := time.Date(2024, 3, 7, 12, 30, 0, 0, time.UTC)
	cases := []struct {
		in      string
		block   uint64
		isBlock bool
		want    time.Time
		wantErr bool
	}{
		{in: "1234", block: 1234, isBlock: true},
		{in: "latest", want: now},
		{in: "2024-03-01", want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{in: "2024-03-01_06:15", want: time.Date(2024, 3, 1, 6, 15, 0, 0, time.UTC)},
		{in: "2024-03-01T06:15:00Z", want: time.Date(2024, 3, 1, 6, 15, 0, 0, time.UTC)},
		{in: "", wantErr: true},
		{in: "yesterday", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParsePoint(tc.in, now)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParsePoint(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParsePoint(%q): %v", tc.in, err)
		}
		if got.IsBlock != tc.isBlock || got.Block != tc.block {
			t.Fatalf("ParsePoint(%q) block = %d/%v, want %d/%v", tc.in, got.Block, got.IsBlock, tc.block, tc.isBlock)
		}
		if !tc.isBlock && !got.Time.Equal(tc.want) {
			t.Fatalf("ParsePoint(%q) = %s, want %s", tc.in, got.Time, tc.want)
		}
	}
}

func TestLoadDispenseDefaults(t *testing.T) {
	flags := pflag.NewFlagSet("dispense", pflag.ContinueOnError)
	flags.String("stream", "", "")
	flags.Int("batch-size", 200, "")
	if err := flags.Parse([]string{"--stream=volume"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadDispense("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Stream != "volume" {
		t.Fatalf("stream = %q", cfg.Stream)
	}
	if cfg.BatchSize != 200 || cfg.BatchNumber != -1 || cfg.MaxRetries != 3 {
		t.Fatalf("unexpected batch defaults: %+v", cfg)
	}
	if cfg.RetryDelay != 10*time.Second {
		t.Fatalf("retry delay = %s", cfg.RetryDelay)
	}
	if cfg.ZeroAmounts != "audit" || cfg.Rewards != "csv" || cfg.Reports != "csv" {
		t.Fatalf("unexpected store defaults: %+v", cfg)
	}
}

func TestLoadEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "dftool.yaml")
	body := "chain-id: 23295\nfeedist-addr: \"0x00000000000000000000000000000000000000aa\"\naddress:\n  - Ocean=0x00000000000000000000000000000000000000bb\n"
	if err := os.WriteFile(cfgFile, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DFTOOL_KEY", "0xabc")
	t.Setenv("DFTOOL_FALLBACK_DELAY", "5s")

	cfg, err := LoadCheckpoint(cfgFile, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID != 23295 {
		t.Fatalf("chain id = %d", cfg.ChainID)
	}
	if cfg.Key != "0xabc" {
		t.Fatalf("key not read from env")
	}
	if cfg.FallbackDelay != 5*time.Second || cfg.FallbackAttempts != 3 {
		t.Fatalf("fallback = %d/%s", cfg.FallbackAttempts, cfg.FallbackDelay)
	}
	if cfg.Addresses["Ocean"] != "0x00000000000000000000000000000000000000bb" {
		t.Fatalf("addresses = %v", cfg.Addresses)
	}
	if cfg.Cron != "0 0 * * 4" {
		t.Fatalf("cron = %q", cfg.Cron)
	}
}

func TestParseKeyValues(t *testing.T) {
	got, err := parseKeyValues([]string{"DFRewards=0x01", " Ocean = 0x02 "})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got["DFRewards"] != "0x01" || got["Ocean"] != "0x02" {
		t.Fatalf("unexpected map %v", got)
	}
	if _, err := parseKeyValues([]string{"DFRewards"}); err == nil {
		t.Fatalf("expected error for missing value")
	}
}

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestApplyConfigFile(t *testing.T) {
	path := writeConfig(t, `
serial = "/dev/ttyAMA0"
baud = 115200
call_timeout = "750ms"
hub_policy = "kick"
init = ["bkcmd=3", "thup=1"]

[mdns]
enable = true
name = "hall-panel"
`)
	cfg := validConfig()
	if err := applyConfigFile(cfg, path, map[string]struct{}{}); err != nil {
		t.Fatalf("applyConfigFile: %v", err)
	}
	if cfg.serialDev != "/dev/ttyAMA0" || cfg.baud != 115200 {
		t.Fatalf("serial settings not applied: %+v", cfg)
	}
	if cfg.callTimeout != 750*time.Millisecond {
		t.Fatalf("call timeout = %v", cfg.callTimeout)
	}
	if cfg.initCommands != "bkcmd=3,thup=1" {
		t.Fatalf("init = %q", cfg.initCommands)
	}
	if !cfg.mdnsEnable || cfg.mdnsName != "hall-panel" {
		t.Fatalf("mdns not applied: %+v", cfg)
	}
	// keys absent from the file keep their values
	if cfg.workers != 5 || cfg.queue != 16 {
		t.Fatalf("undefined keys changed: %+v", cfg)
	}
}

func TestApplyConfigFile_FlagWins(t *testing.T) {
	path := writeConfig(t, "baud = 115200\n")
	cfg := validConfig()
	if err := applyConfigFile(cfg, path, map[string]struct{}{"baud": {}}); err != nil {
		t.Fatalf("applyConfigFile: %v", err)
	}
	if cfg.baud != 9600 {
		t.Fatalf("file overrode explicit flag: %d", cfg.baud)
	}
}

func TestApplyConfigFile_Errors(t *testing.T) {
	cases := map[string]string{
		"badDuration": `call_timeout = "later"`,
		"unknownKey":  `colour = "blue"`,
		"badSyntax":   `baud = `,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if err := applyConfigFile(validConfig(), writeConfig(t, body), map[string]struct{}{}); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	if err := applyConfigFile(validConfig(), filepath.Join(t.TempDir(), "missing.toml"), nil); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestParseArgs_Precedence(t *testing.T) {
	path := writeConfig(t, "baud = 19200\nworkers = 3\nqueue = 32\n")
	t.Setenv("NEXTION_BRIDGE_WORKERS", "7")
	cfg, _, err := parseArgs([]string{"-config", path, "-queue", "64"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if cfg.baud != 19200 {
		t.Fatalf("file value lost: baud=%d", cfg.baud)
	}
	if cfg.workers != 7 {
		t.Fatalf("env must win over file: workers=%d", cfg.workers)
	}
	if cfg.queue != 64 {
		t.Fatalf("flag must win over file: queue=%d", cfg.queue)
	}
}

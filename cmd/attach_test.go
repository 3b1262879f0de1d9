package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smazurov/procdrain/internal/drain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestResolveDrainConfigReadsFile(t *testing.T) {
	path := writeConfig(t, "[drain]\nbuffer_capacity = 1024\npoll_interval_ms = 5\n")

	cmd := CreateAttachCmd()
	cfg, err := resolveDrainConfig(cmd.Flags(), path)
	if err != nil {
		t.Fatalf("resolveDrainConfig: %v", err)
	}
	if cfg.BufferCapacity != 1024 {
		t.Errorf("BufferCapacity = %d, want 1024", cfg.BufferCapacity)
	}
	if cfg.PollInterval != 5*time.Millisecond {
		t.Errorf("PollInterval = %v, want 5ms", cfg.PollInterval)
	}
}

func TestResolveDrainConfigFlagsBeatFile(t *testing.T) {
	path := writeConfig(t, "[drain]\nbuffer_capacity = 1024\npoll_interval_ms = 5\n")

	cmd := CreateAttachCmd()
	if err := cmd.Flags().Set("buffer-capacity", "64"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	cfg, err := resolveDrainConfig(cmd.Flags(), path)
	if err != nil {
		t.Fatalf("resolveDrainConfig: %v", err)
	}
	if cfg.BufferCapacity != 64 {
		t.Errorf("BufferCapacity = %d, want 64 (flag set by the user)", cfg.BufferCapacity)
	}
	// The interval flag was not set, so the file still wins there.
	if cfg.PollInterval != 5*time.Millisecond {
		t.Errorf("PollInterval = %v, want 5ms", cfg.PollInterval)
	}
}

func TestResolveDrainConfigMissingFileUsesDefaults(t *testing.T) {
	cmd := CreateAttachCmd()
	cfg, err := resolveDrainConfig(cmd.Flags(), filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("resolveDrainConfig: %v", err)
	}
	if cfg != drain.DefaultConfig() {
		t.Errorf("config = %+v, want defaults", cfg)
	}
}

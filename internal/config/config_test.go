package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	f := Flags()
	if err := f.Parse(nil); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8484" {
		t.Errorf("Expected default listen address, got %s", cfg.Listen)
	}
	if cfg.DB != "flashdeck.db" {
		t.Errorf("Expected default db path, got %s", cfg.DB)
	}
	if cfg.StudyTick != time.Minute {
		t.Errorf("Expected 1m study tick, got %s", cfg.StudyTick)
	}
	if cfg.FeedbackDelay != 2*time.Second {
		t.Errorf("Expected 2s feedback delay, got %s", cfg.FeedbackDelay)
	}
	if cfg.SyncOnStart {
		t.Error("Expected sync-on-start to default off")
	}
}

func TestLoadFlagOverrides(t *testing.T) {
	f := Flags()
	if err := f.Parse([]string{"--listen", "127.0.0.1:9000", "--feedback-delay", "500ms"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if cfg.Listen != "127.0.0.1:9000" {
		t.Errorf("Expected flag to override listen, got %s", cfg.Listen)
	}
	if cfg.FeedbackDelay != 500*time.Millisecond {
		t.Errorf("Expected flag to override feedback delay, got %s", cfg.FeedbackDelay)
	}
	// Untouched keys keep their defaults.
	if cfg.DB != "flashdeck.db" {
		t.Errorf("Expected default db path, got %s", cfg.DB)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FLASHDECK_LISTEN", "127.0.0.1:7777")
	t.Setenv("FLASHDECK_SYNC_ON_START", "true")

	f := Flags()
	if err := f.Parse(nil); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if cfg.Listen != "127.0.0.1:7777" {
		t.Errorf("Expected env to override listen, got %s", cfg.Listen)
	}
	if !cfg.SyncOnStart {
		t.Error("Expected env to enable sync-on-start")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flashdeck.yml")
	content := "listen: 127.0.0.1:6060\ndb: /tmp/cards.db\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	f := Flags()
	if err := f.Parse([]string{"--config", path}); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if cfg.Listen != "127.0.0.1:6060" {
		t.Errorf("Expected file to set listen, got %s", cfg.Listen)
	}
	if cfg.DB != "/tmp/cards.db" {
		t.Errorf("Expected file to set db, got %s", cfg.DB)
	}
}

func TestLoadValidation(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{"listen without port", []string{"--listen", "localhost"}},
		{"feedback delay too long", []string{"--feedback-delay", "5m"}},
		{"sub-second study tick", []string{"--study-tick", "10ms"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := Flags()
			if err := f.Parse(tc.args); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(f); err == nil {
				t.Error("Expected a validation error")
			}
		})
	}
}

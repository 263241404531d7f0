package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}

	if cfg.MaxFileAgeDays != 30 {
		t.Errorf("expected max_file_age_days 30, got %d", cfg.MaxFileAgeDays)
	}
	if cfg.MinFileSizeMB != 1 {
		t.Errorf("expected min_file_size_mb 1, got %g", cfg.MinFileSizeMB)
	}
	if cfg.DuplicateKeep != KeepNewest {
		t.Errorf("expected duplicate_keep %q, got %q", KeepNewest, cfg.DuplicateKeep)
	}
	if !cfg.VerifyDuplicates {
		t.Error("expected verify_duplicates to default to true")
	}

	found := false
	for _, ext := range cfg.ExcludedExtensions {
		if ext == ".exe" {
			found = true
		}
	}
	if !found {
		t.Error("expected .exe in default excluded extensions")
	}

	if len(cfg.ScanPaths) == 0 {
		t.Error("expected at least one default scan path")
	}
	if len(cfg.ProtectedPaths) == 0 {
		t.Error("expected at least one default protected path")
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("missing config file should not error, got: %v", err)
	}
	if cfg.MaxFileAgeDays != Default().MaxFileAgeDays {
		t.Error("missing config file should yield defaults")
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
max_file_age_days: 7
min_file_size_mb: 0.5
duplicate_keep: oldest
excluded_extensions: ["EXE", ".Dll", "iso"]
backup_dir: ` + filepath.Join(dir, "backups") + `
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.MaxFileAgeDays != 7 {
		t.Errorf("expected max_file_age_days 7, got %d", cfg.MaxFileAgeDays)
	}
	if cfg.MinSizeBytes() != 512*1024 {
		t.Errorf("expected min size 512KiB, got %d", cfg.MinSizeBytes())
	}
	if cfg.DuplicateKeep != KeepOldest {
		t.Errorf("expected duplicate_keep oldest, got %q", cfg.DuplicateKeep)
	}

	// Extensions are normalized to lower case with a leading dot.
	want := []string{".exe", ".dll", ".iso"}
	for i, ext := range cfg.ExcludedExtensions {
		if ext != want[i] {
			t.Errorf("extension %d: expected %q, got %q", i, want[i], ext)
		}
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("scan_paths: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid retention policy",
			mutate:  func(c *Config) { c.DuplicateKeep = "largest" },
			wantErr: "duplicate_keep",
		},
		{
			name:    "negative age",
			mutate:  func(c *Config) { c.MaxFileAgeDays = -1 },
			wantErr: "max_file_age_days",
		},
		{
			name:    "zero hash ceiling",
			mutate:  func(c *Config) { c.HashCeilingMB = 0 },
			wantErr: "hash_ceiling_mb",
		},
		{
			name:    "empty backup dir",
			mutate:  func(c *Config) { c.BackupDir = "" },
			wantErr: "backup_dir",
		},
		{
			name:    "negative workers",
			mutate:  func(c *Config) { c.Workers = -2 },
			wantErr: "workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := Default()
	cfg.MaxFileAgeDays = 14
	if err := cfg.Save(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if loaded.MaxFileAgeDays != 14 {
		t.Errorf("expected max_file_age_days 14 after round trip, got %d", loaded.MaxFileAgeDays)
	}
}

func TestWorkerCount(t *testing.T) {
	cfg := Default()
	cfg.Workers = 3
	if got := cfg.WorkerCount(); got != 3 {
		t.Errorf("expected 3 workers, got %d", got)
	}

	cfg.Workers = 0
	if got := cfg.WorkerCount(); got < 1 {
		t.Errorf("expected at least one worker, got %d", got)
	}
}

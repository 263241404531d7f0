// Package config loads and validates the utac configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Retention policies for duplicate groups.
const (
	KeepNewest       = "newest"
	KeepOldest       = "oldest"
	KeepShortestPath = "shortest-path"
)

// Config is the immutable run configuration. It is loaded once per command
// and passed by reference into every pipeline stage; nothing mutates it after
// Load returns.
type Config struct {
	// ScanPaths are the default root directories scanned when the user does
	// not name roots on the command line.
	ScanPaths []string `yaml:"scan_paths"`

	// BackupDir is where backup archives and manifests are written.
	BackupDir string `yaml:"backup_dir"`

	// MaxFileAgeDays is the idle-age threshold above which temp, cache and
	// browser artifacts drop to their most deletable safety level.
	MaxFileAgeDays int `yaml:"max_file_age_days"`

	// MinFileSizeMB excludes files smaller than this from scans entirely.
	MinFileSizeMB float64 `yaml:"min_file_size_mb"`

	// ExcludedExtensions are never emitted by the enumerator (normalized to
	// lower case with a leading dot).
	ExcludedExtensions []string `yaml:"excluded_extensions"`

	// ProtectedPaths is the prefix set under which every file is forced to
	// Dangerous and can never become a deletion candidate.
	ProtectedPaths []string `yaml:"protected_paths"`

	// DuplicateKeep selects the duplicate-group retention policy.
	DuplicateKeep string `yaml:"duplicate_keep"`

	// VerifyDuplicates enables the byte-for-byte comparison of every
	// duplicate group before any member is recategorized. Leave this on:
	// the content hash alone is not collision-proof.
	VerifyDuplicates bool `yaml:"verify_duplicates"`

	// HashCeilingMB bounds full-content hashing. Files above the ceiling are
	// hashed from a head and tail sample plus length and always verified
	// byte-for-byte before being treated as duplicates.
	HashCeilingMB int64 `yaml:"hash_ceiling_mb"`

	// BackupRetentionDays and BackupKeepMin control pruning of old backup
	// sets: archives older than the retention window are removed, but the
	// most recent BackupKeepMin sets are always kept.
	BackupRetentionDays int `yaml:"backup_retention_days"`
	BackupKeepMin       int `yaml:"backup_keep_min"`

	// Workers bounds the enumeration and hashing pools. Zero means one
	// worker per logical core.
	Workers int `yaml:"workers"`
}

// Default returns the built-in configuration for the current platform.
func Default() *Config {
	return &Config{
		ScanPaths:           defaultScanPaths(),
		BackupDir:           filepath.Join(dataDir(), "backups"),
		MaxFileAgeDays:      30,
		MinFileSizeMB:       1,
		ExcludedExtensions:  []string{".exe", ".dll", ".sys", ".ini"},
		ProtectedPaths:      defaultProtectedPaths(),
		DuplicateKeep:       KeepNewest,
		VerifyDuplicates:    true,
		HashCeilingMB:       512,
		BackupRetentionDays: 30,
		BackupKeepMin:       10,
		Workers:             0,
	}
}

// Load reads the YAML config at path, layered over Default. A missing file is
// not an error: the defaults are returned so that utac works out of the box.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := "# utac configuration. Remove a key to fall back to the built-in default.\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks structural validity. Root existence is checked at scan time
// because roots can also be supplied per command invocation.
func (c *Config) Validate() error {
	switch c.DuplicateKeep {
	case KeepNewest, KeepOldest, KeepShortestPath:
	default:
		return fmt.Errorf("invalid duplicate_keep %q: must be one of: newest, oldest, shortest-path", c.DuplicateKeep)
	}

	if c.MaxFileAgeDays < 0 {
		return fmt.Errorf("max_file_age_days must not be negative (got %d)", c.MaxFileAgeDays)
	}
	if c.MinFileSizeMB < 0 {
		return fmt.Errorf("min_file_size_mb must not be negative (got %g)", c.MinFileSizeMB)
	}
	if c.HashCeilingMB <= 0 {
		return fmt.Errorf("hash_ceiling_mb must be positive (got %d)", c.HashCeilingMB)
	}
	if c.BackupDir == "" {
		return fmt.Errorf("backup_dir must not be empty")
	}
	if c.BackupRetentionDays < 0 || c.BackupKeepMin < 0 {
		return fmt.Errorf("backup retention settings must not be negative")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative (got %d)", c.Workers)
	}
	return nil
}

// normalize cleans paths and extension spellings after YAML load.
func (c *Config) normalize() {
	for i, p := range c.ScanPaths {
		c.ScanPaths[i] = filepath.Clean(expandHome(p))
	}
	for i, p := range c.ProtectedPaths {
		c.ProtectedPaths[i] = filepath.Clean(expandHome(p))
	}
	c.BackupDir = filepath.Clean(expandHome(c.BackupDir))

	for i, ext := range c.ExcludedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.ExcludedExtensions[i] = ext
	}
}

// MinSizeBytes returns the scan floor in bytes.
func (c *Config) MinSizeBytes() int64 {
	return int64(c.MinFileSizeMB * 1024 * 1024)
}

// MaxAge returns the idle-age threshold as a duration.
func (c *Config) MaxAge() time.Duration {
	return time.Duration(c.MaxFileAgeDays) * 24 * time.Hour
}

// HashCeilingBytes returns the full-content hashing ceiling in bytes.
func (c *Config) HashCeilingBytes() int64 {
	return c.HashCeilingMB * 1024 * 1024
}

// WorkerCount resolves Workers against the number of logical cores.
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Dir returns the utac config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/utac if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "utac"), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// dataDir is where runtime state lives (database, backups, daemon files).
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".utac"
	}
	return filepath.Join(home, ".utac")
}

// expandHome rewrites a leading ~ to the user's home directory.
func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
		}
	}
	return p
}

// defaultScanPaths returns the scan roots that make sense per platform:
// the system temp directory plus the user-level cache and application data
// trees where disposable artifacts accumulate.
func defaultScanPaths() []string {
	paths := []string{os.TempDir()}

	home, err := os.UserHomeDir()
	if err != nil {
		return paths
	}

	switch runtime.GOOS {
	case "windows":
		if v := os.Getenv("LOCALAPPDATA"); v != "" {
			paths = append(paths, v)
		}
		if v := os.Getenv("APPDATA"); v != "" {
			paths = append(paths, v)
		}
		if v := os.Getenv("SYSTEMROOT"); v != "" {
			paths = append(paths, filepath.Join(v, "Temp"))
		}
	case "darwin":
		paths = append(paths, filepath.Join(home, "Library", "Caches"))
		paths = append(paths, filepath.Join(home, "Library", "Logs"))
	default:
		paths = append(paths, filepath.Join(home, ".cache"))
		if v := os.Getenv("XDG_CACHE_HOME"); v != "" {
			paths = append(paths, v)
		}
	}

	return paths
}

// defaultProtectedPaths returns the prefix set that is never deletable:
// system directories plus the user's document roots.
func defaultProtectedPaths() []string {
	var paths []string

	switch runtime.GOOS {
	case "windows":
		systemRoot := os.Getenv("SYSTEMROOT")
		if systemRoot == "" {
			systemRoot = `C:\Windows`
		}
		programFiles := os.Getenv("PROGRAMFILES")
		if programFiles == "" {
			programFiles = `C:\Program Files`
		}
		paths = append(paths,
			systemRoot,
			filepath.Join(systemRoot, "System32"),
			filepath.Join(systemRoot, "SysWOW64"),
			programFiles,
		)
	case "darwin":
		paths = append(paths, "/System", "/usr", "/bin", "/sbin", "/Applications")
	default:
		paths = append(paths, "/usr", "/bin", "/sbin", "/etc", "/boot", "/lib")
	}

	home, err := os.UserHomeDir()
	if err == nil {
		paths = append(paths, filepath.Join(home, "Documents"))
	}

	return paths
}

// Package safety assigns a safety level to every classified file and gates
// what may ever become a deletion candidate.
//
// Scoring is table-driven by category with age overrides. Two hard exclusions
// sit on top of the table: files under a protected path prefix are forced to
// Dangerous, and files that fail the exclusive-open probe (or belong to an
// application that is currently running) are flagged in-use and skipped for
// the current run.
package safety

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/classify"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/config"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/logging"
)

// activeLogWindow is how recently a log must have been written to count as
// actively written rather than rotated. One hour is long enough to cover slow
// writers without holding on to yesterday's logs.
const activeLogWindow = time.Hour

// Scored is a classified file with its safety decision attached.
type Scored struct {
	classify.Classified

	// Level is the assigned safety level.
	Level Level

	// Protected is true when the path sits under a protected prefix.
	// Protected implies Level == Dangerous.
	Protected bool

	// InUse is true when the exclusive-open probe failed or the owning
	// application is running. In-use files are excluded from the current
	// run and retried next time, never force-deleted.
	InUse bool
}

// Admissible reports whether the record may enter a deletion candidate set at
// or below the given threshold. Dangerous never passes, regardless of the
// threshold.
func (s Scored) Admissible(threshold Level) bool {
	if s.Protected || s.InUse || s.Level == Dangerous {
		return false
	}
	if threshold >= Dangerous {
		threshold = Risky
	}
	return s.Level <= threshold
}

// Scorer applies the safety table. Construct with NewScorer; the scorer is
// read-only after construction and safe to share across workers.
type Scorer struct {
	protected []string
	maxAge    time.Duration

	// probe decides whether a file is currently in use. Replaceable for
	// tests; defaults to an exclusive-open attempt.
	probe func(path string) bool

	// appRunning reports whether the named application has a live process.
	appRunning func(app string) bool

	now func() time.Time
}

// NewScorer returns a Scorer for the given configuration. The running-process
// set is sampled once at construction so scoring stays pure and cheap per
// file.
func NewScorer(cfg *config.Config) *Scorer {
	running := runningApps()
	if len(running) > 0 {
		logging.L().Debug().Int("apps", len(running)).Msg("detected running applications")
	}
	return &Scorer{
		protected:  normalizePrefixes(cfg.ProtectedPaths),
		maxAge:     cfg.MaxAge(),
		probe:      probeOpen,
		appRunning: func(app string) bool { return running[app] },
		now:        time.Now,
	}
}

// Score assigns the safety level for one file.
func (s *Scorer) Score(rec classify.Classified) Scored {
	out := Scored{Classified: rec}

	if s.isProtected(rec.Path) {
		out.Level = Dangerous
		out.Protected = true
		return out
	}

	age := s.now().Sub(rec.ModTime)
	out.Level = s.levelFor(rec, age)

	if rec.App != "" && s.appRunning(rec.App) {
		out.InUse = true
		return out
	}
	if s.probe(rec.Path) {
		out.InUse = true
	}
	return out
}

// levelFor is the category table. Old temp files are the most deletable
// thing the cleaner knows about; unknown files stay Risky so they are never
// auto-admitted.
func (s *Scorer) levelFor(rec classify.Classified, age time.Duration) Level {
	old := s.maxAge > 0 && age > s.maxAge
	switch rec.Category {
	case classify.CategoryTemp:
		if old {
			return VerySafe
		}
		return Safe
	case classify.CategoryCache, classify.CategoryBrowser:
		if old {
			return Safe
		}
		return Moderate
	case classify.CategoryLog:
		if age < activeLogWindow {
			return Moderate
		}
		return Safe
	case classify.CategoryDuplicate:
		return Safe
	default:
		return Risky
	}
}

// isProtected checks the path against the protected prefix set. Matching is
// case-insensitive with normalized separators so one config works on every
// platform, and prefixes only match at path component boundaries.
func (s *Scorer) isProtected(path string) bool {
	p := normalizePath(path)
	for _, prefix := range s.protected {
		if p == prefix {
			return true
		}
		if strings.HasPrefix(p, prefix) && (strings.HasSuffix(prefix, "/") || p[len(prefix)] == '/') {
			return true
		}
	}
	return false
}

// InUse re-checks whether a file is currently in use. The deletion executor
// calls this immediately before removal to close the race window between
// scoring and deleting.
func InUse(path string) bool {
	return probeOpen(path)
}

// probeOpen attempts a read-write open. Files the process cannot open for
// writing are either locked by another process or not ours to delete; both
// read the same way here.
func probeOpen(path string) bool {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return false
		}
		return true
	}
	f.Close()
	return false
}

func normalizePrefixes(prefixes []string) []string {
	out := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = normalizePath(filepath.Clean(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.ToLower(p)
}

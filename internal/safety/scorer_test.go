package safety

import (
	"testing"
	"time"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/classify"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/config"
	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/scanner"
)

// testScorer returns a Scorer with the probes stubbed out so scoring is
// deterministic regardless of the host filesystem and process table.
func testScorer(t *testing.T, protected []string) *Scorer {
	t.Helper()
	cfg := config.Default()
	cfg.ProtectedPaths = protected
	cfg.MaxFileAgeDays = 30
	s := NewScorer(cfg)
	s.probe = func(string) bool { return false }
	s.appRunning = func(string) bool { return false }
	s.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func classified(path string, cat classify.Category, age time.Duration) classify.Classified {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return classify.Classified{
		FileRecord: scanner.FileRecord{Path: path, ModTime: base.Add(-age)},
		Category:   cat,
	}
}

func TestScoreCategoryTable(t *testing.T) {
	s := testScorer(t, nil)
	day := 24 * time.Hour

	tests := []struct {
		name string
		rec  classify.Classified
		want Level
	}{
		{"old temp", classified("/tmp/a.tmp", classify.CategoryTemp, 40*day), VerySafe},
		{"fresh temp", classified("/tmp/b.tmp", classify.CategoryTemp, 2*day), Safe},
		{"old cache", classified("/home/x/.cache/app/f", classify.CategoryCache, 40*day), Safe},
		{"fresh cache", classified("/home/x/.cache/app/g", classify.CategoryCache, 2*day), Moderate},
		{"old browser", classified("/home/x/.cache/google-chrome/f", classify.CategoryBrowser, 60*day), Safe},
		{"rotated log", classified("/var/log/app.log.1", classify.CategoryLog, 3*day), Safe},
		{"active log", classified("/var/log/app.log", classify.CategoryLog, 10*time.Minute), Moderate},
		{"unknown", classified("/home/x/notes.xyz", classify.CategoryUnknown, 100*day), Risky},
		{"duplicate", classified("/home/x/copy.log", classify.CategoryDuplicate, day), Safe},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(tt.rec)
			if got.Level != tt.want {
				t.Errorf("level = %s, want %s", got.Level, tt.want)
			}
			if got.Protected || got.InUse {
				t.Errorf("unexpected protected=%v in_use=%v", got.Protected, got.InUse)
			}
		})
	}
}

func TestProtectedForcesDangerous(t *testing.T) {
	s := testScorer(t, []string{"/home/x/Documents", `C:\Windows`})

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"under documents", "/home/x/Documents/report.docx", true},
		{"documents root itself", "/home/x/Documents", true},
		{"windows path case-insensitive", `c:\windows\system32\cfg.tmp`, true},
		{"sibling prefix does not match", "/home/x/DocumentsOld/a.tmp", false},
		{"outside", "/home/x/.cache/a.tmp", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Even a 40-day-old temp file is Dangerous under a protected root.
			rec := classified(tt.path, classify.CategoryTemp, 40*24*time.Hour)
			got := s.Score(rec)
			if got.Protected != tt.want {
				t.Errorf("protected = %v, want %v", got.Protected, tt.want)
			}
			if tt.want && got.Level != Dangerous {
				t.Errorf("level = %s, want dangerous", got.Level)
			}
		})
	}
}

func TestInUseProbe(t *testing.T) {
	s := testScorer(t, nil)
	s.probe = func(path string) bool { return path == "/tmp/locked.tmp" }

	locked := s.Score(classified("/tmp/locked.tmp", classify.CategoryTemp, 40*24*time.Hour))
	if !locked.InUse {
		t.Error("locked file not flagged in use")
	}
	// In-use does not downgrade the level, it only excludes for this run.
	if locked.Level != VerySafe {
		t.Errorf("level = %s, want very-safe", locked.Level)
	}

	free := s.Score(classified("/tmp/free.tmp", classify.CategoryTemp, 40*24*time.Hour))
	if free.InUse {
		t.Error("free file flagged in use")
	}
}

func TestRunningAppMarksInUse(t *testing.T) {
	s := testScorer(t, nil)
	s.appRunning = func(app string) bool { return app == "chrome" }

	rec := classified("/home/x/.cache/google-chrome/Default/Cache/f_01", classify.CategoryBrowser, 40*24*time.Hour)
	rec.App = "chrome"
	if got := s.Score(rec); !got.InUse {
		t.Error("chrome cache entry not flagged in use while chrome runs")
	}

	rec.App = "firefox"
	if got := s.Score(rec); got.InUse {
		t.Error("firefox entry flagged in use while only chrome runs")
	}
}

func TestAdmissible(t *testing.T) {
	tests := []struct {
		name      string
		rec       Scored
		threshold Level
		want      bool
	}{
		{"safe under safe", Scored{Level: Safe}, Safe, true},
		{"moderate over safe", Scored{Level: Moderate}, Safe, false},
		{"risky under risky", Scored{Level: Risky}, Risky, true},
		{"dangerous never", Scored{Level: Dangerous}, Dangerous, false},
		{"protected never", Scored{Level: Safe, Protected: true}, Risky, false},
		{"in use never", Scored{Level: VerySafe, InUse: true}, Risky, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Admissible(tt.threshold); got != tt.want {
				t.Errorf("Admissible(%s) = %v, want %v", tt.threshold, got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	if l, err := ParseLevel("moderate"); err != nil || l != Moderate {
		t.Errorf("ParseLevel(moderate) = %v, %v", l, err)
	}
	if _, err := ParseLevel("extreme"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestStricter(t *testing.T) {
	if got := Stricter(VerySafe, Safe); got != Safe {
		t.Errorf("Stricter(very-safe, safe) = %s, want safe", got)
	}
	if got := Stricter(Risky, Safe); got != Risky {
		t.Errorf("Stricter(risky, safe) = %s, want risky", got)
	}
}

package classify

import (
	"testing"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/scanner"
)

func classifyPath(t *testing.T, c *Classifier, p, ext string) Classified {
	t.Helper()
	return c.Classify(scanner.FileRecord{Path: p, Ext: ext})
}

func TestClassifySignatures(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name string
		path string
		cat  Category
		app  string
	}{
		{
			name: "chrome windows cache",
			path: `C:\Users\x\AppData\Local\Google\Chrome\User Data\Default\Cache\f_000001`,
			cat:  CategoryBrowser,
			app:  "chrome",
		},
		{
			name: "chrome windows code cache",
			path: `C:\Users\x\AppData\Local\Google\Chrome\User Data\Default\Code Cache\js\index`,
			cat:  CategoryBrowser,
			app:  "chrome",
		},
		{
			name: "chrome darwin",
			path: "/Users/x/Library/Caches/Google/Chrome/Default/Cache/data_1",
			cat:  CategoryBrowser,
			app:  "chrome",
		},
		{
			name: "chrome linux",
			path: "/home/x/.cache/google-chrome/Default/Cache/f_0a",
			cat:  CategoryBrowser,
			app:  "chrome",
		},
		{
			name: "firefox profile cache spans profile dir",
			path: `C:\Users\x\AppData\Local\Mozilla\Firefox\Profiles\ab12cd.default\cache2\entries\ABCD`,
			cat:  CategoryBrowser,
			app:  "firefox",
		},
		{
			name: "edge gpu cache",
			path: `C:\Users\x\AppData\Local\Microsoft\Edge\User Data\Default\GPUCache\data_0`,
			cat:  CategoryBrowser,
			app:  "edge",
		},
		{
			name: "discord cache",
			path: `C:\Users\x\AppData\Roaming\discord\Cache\Cache_Data\f_000003`,
			cat:  CategoryCache,
			app:  "discord",
		},
		{
			name: "vscode cached data",
			path: `C:\Users\x\AppData\Roaming\Code\CachedData\hash\file.code`,
			cat:  CategoryCache,
			app:  "vscode",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyPath(t, c, tt.path, "")
			if got.Category != tt.cat {
				t.Errorf("category = %s, want %s (rule %s)", got.Category, tt.cat, got.Rule)
			}
			if got.App != tt.app {
				t.Errorf("app = %q, want %q", got.App, tt.app)
			}
		})
	}
}

func TestClassifyExtensions(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		ext string
		cat Category
	}{
		{".tmp", CategoryTemp},
		{".temp", CategoryTemp},
		{".bak", CategoryTemp},
		{".log", CategoryLog},
		{".cache", CategoryCache},
	}
	for _, tt := range tests {
		got := classifyPath(t, c, "/home/x/projects/file"+tt.ext, tt.ext)
		if got.Category != tt.cat {
			t.Errorf("ext %s: category = %s, want %s", tt.ext, got.Category, tt.cat)
		}
		if got.App != "" {
			t.Errorf("ext %s: app = %q, want empty", tt.ext, got.App)
		}
	}
}

func TestClassifyHeuristics(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name string
		path string
		cat  Category
	}{
		{"temp dir", "/home/x/stuff/tmp/leftover.dat", CategoryTemp},
		{"logs dir", "/var/someapp/logs/today.out", CategoryLog},
		{"thumbnails dir", "/home/x/.thumbnails/large/abc.png", CategoryCache},
		{"cookies dir", `C:\Users\x\AppData\Local\SomeApp\Cookies\sqlite.db`, CategoryBrowser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyPath(t, c, tt.path, "")
			if got.Category != tt.cat {
				t.Errorf("category = %s, want %s (rule %s)", got.Category, tt.cat, got.Rule)
			}
		})
	}
}

func TestDeepestDirectoryWins(t *testing.T) {
	c := NewClassifier()

	// Both "logs" and "cache" appear as parents; the closer one decides.
	got := classifyPath(t, c, "/data/logs/app/cache/blob.bin", "")
	if got.Category != CategoryCache {
		t.Errorf("category = %s, want %s", got.Category, CategoryCache)
	}
	if got.Rule != "dir:cache" {
		t.Errorf("rule = %s, want dir:cache", got.Rule)
	}
}

func TestSignatureBeatsExtension(t *testing.T) {
	c := NewClassifier()

	// A .log file inside a Chrome cache tree is still a browser artifact.
	got := classifyPath(t, c,
		`C:\Users\x\AppData\Local\Google\Chrome\User Data\Default\Cache\old.log`, ".log")
	if got.Category != CategoryBrowser || got.App != "chrome" {
		t.Errorf("got %s/%s, want browser/chrome", got.Category, got.App)
	}
}

func TestExtensionBeatsHeuristic(t *testing.T) {
	c := NewClassifier()

	// A .log file in a temp directory classifies by extension first.
	got := classifyPath(t, c, "/home/x/tmp/run.log", ".log")
	if got.Category != CategoryLog {
		t.Errorf("category = %s, want %s (rule %s)", got.Category, CategoryLog, got.Rule)
	}
}

func TestClassifyUnknown(t *testing.T) {
	c := NewClassifier()

	got := classifyPath(t, c, "/home/x/documents/report.pdf", ".pdf")
	if got.Category != CategoryUnknown {
		t.Errorf("category = %s, want %s", got.Category, CategoryUnknown)
	}
	if got.Rule != "none" {
		t.Errorf("rule = %s, want none", got.Rule)
	}
}

func TestParseCategory(t *testing.T) {
	if got, err := ParseCategory("cache"); err != nil || got != CategoryCache {
		t.Errorf("ParseCategory(cache) = %v, %v", got, err)
	}
	if _, err := ParseCategory("bogus"); err == nil {
		t.Error("ParseCategory(bogus) should fail")
	}
}

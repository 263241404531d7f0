// Package classify assigns a category to each scanned file.
//
// Rules are evaluated in a fixed order: application signature rules first,
// then extension rules, then directory-name heuristics. The first matching
// rule wins. Signature rules are checked most specific first so a Chrome
// cache entry matches the Chrome rule rather than a generic cache rule.
package classify

import (
	"path"
	"sort"
	"strings"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/scanner"
)

// Classified pairs a scanned file with its category decision.
type Classified struct {
	scanner.FileRecord

	// Category is the classifier's decision for this file.
	Category Category

	// App names the owning application for signature matches,
	// e.g. "chrome". Empty for extension and heuristic matches.
	App string

	// Rule identifies the rule that matched, for explain output.
	Rule string
}

// signatureRule matches application artifact locations. Every fragment must
// appear in the normalized path, in order, so rules can span variable
// directory components such as Firefox profile names.
type signatureRule struct {
	name      string
	app       string
	category  Category
	fragments []string
}

func (r signatureRule) specificity() int {
	n := 0
	for _, f := range r.fragments {
		n += len(f)
	}
	return n
}

func (r signatureRule) matches(p string) bool {
	idx := 0
	for _, frag := range r.fragments {
		i := strings.Index(p[idx:], frag)
		if i < 0 {
			return false
		}
		idx += i + len(frag)
	}
	return true
}

// defaultSignatures lists the application artifact trees the cleaner knows
// about. Paths are matched lowercase with forward slashes, so one table
// serves the Windows, macOS and Linux layouts.
var defaultSignatures = []signatureRule{
	{name: "chrome-cache", app: "chrome", category: CategoryBrowser,
		fragments: []string{"google/chrome/user data/", "/cache"}},
	{name: "chrome-code-cache", app: "chrome", category: CategoryBrowser,
		fragments: []string{"google/chrome/user data/", "/code cache"}},
	{name: "chrome-gpu-cache", app: "chrome", category: CategoryBrowser,
		fragments: []string{"google/chrome/user data/", "/gpucache"}},
	{name: "chrome-darwin-cache", app: "chrome", category: CategoryBrowser,
		fragments: []string{"caches/google/chrome"}},
	{name: "chrome-linux-cache", app: "chrome", category: CategoryBrowser,
		fragments: []string{".cache/google-chrome"}},
	{name: "firefox-cache", app: "firefox", category: CategoryBrowser,
		fragments: []string{"mozilla/firefox/profiles/", "/cache2"}},
	{name: "firefox-startup-cache", app: "firefox", category: CategoryBrowser,
		fragments: []string{"mozilla/firefox/profiles/", "/startupcache"}},
	{name: "edge-cache", app: "edge", category: CategoryBrowser,
		fragments: []string{"microsoft/edge/user data/", "/cache"}},
	{name: "edge-code-cache", app: "edge", category: CategoryBrowser,
		fragments: []string{"microsoft/edge/user data/", "/code cache"}},
	{name: "edge-gpu-cache", app: "edge", category: CategoryBrowser,
		fragments: []string{"microsoft/edge/user data/", "/gpucache"}},
	{name: "opera-cache", app: "opera", category: CategoryBrowser,
		fragments: []string{"opera software/", "/cache"}},
	{name: "discord-cache", app: "discord", category: CategoryCache,
		fragments: []string{"discord/", "cache"}},
	{name: "vscode-cache", app: "vscode", category: CategoryCache,
		fragments: []string{"code/cache"}},
	{name: "vscode-cached-data", app: "vscode", category: CategoryCache,
		fragments: []string{"code/cacheddata"}},
	{name: "vscode-gpu-cache", app: "vscode", category: CategoryCache,
		fragments: []string{"code/gpucache"}},
}

// defaultExtensions maps file extensions to categories.
var defaultExtensions = map[string]Category{
	".tmp":   CategoryTemp,
	".temp":  CategoryTemp,
	".bak":   CategoryTemp,
	".old":   CategoryTemp,
	".dmp":   CategoryTemp,
	".cache": CategoryCache,
	".log":   CategoryLog,
}

// defaultHeuristics maps directory names to categories. The deepest
// matching parent directory decides.
var defaultHeuristics = map[string]Category{
	"temp":       CategoryTemp,
	"tmp":        CategoryTemp,
	"backup":     CategoryTemp,
	"backups":    CategoryTemp,
	"old":        CategoryTemp,
	"crashdumps": CategoryTemp,
	"cache":      CategoryCache,
	"caches":     CategoryCache,
	"gpucache":   CategoryCache,
	"code cache": CategoryCache,
	"d3dscache":  CategoryCache,
	"thumbnails": CategoryCache,
	"log":        CategoryLog,
	"logs":       CategoryLog,
	"cookies":    CategoryBrowser,
	"history":    CategoryBrowser,
}

// Classifier applies the rule tables to scanned files. The zero value is
// not usable; construct with NewClassifier.
type Classifier struct {
	signatures []signatureRule
	extensions map[string]Category
	heuristics map[string]Category
}

// NewClassifier returns a Classifier loaded with the default rule tables.
func NewClassifier() *Classifier {
	sigs := append([]signatureRule(nil), defaultSignatures...)
	sort.SliceStable(sigs, func(i, j int) bool {
		return sigs[i].specificity() > sigs[j].specificity()
	})
	return &Classifier{
		signatures: sigs,
		extensions: defaultExtensions,
		heuristics: defaultHeuristics,
	}
}

// Classify decides the category for one file.
func (c *Classifier) Classify(rec scanner.FileRecord) Classified {
	out := Classified{FileRecord: rec, Category: CategoryUnknown, Rule: "none"}

	norm := normalizePath(rec.Path)
	for _, sig := range c.signatures {
		if sig.matches(norm) {
			out.Category = sig.category
			out.App = sig.app
			out.Rule = sig.name
			return out
		}
	}

	if cat, ok := c.extensions[rec.Ext]; ok {
		out.Category = cat
		out.Rule = "ext:" + rec.Ext
		return out
	}

	dir := path.Dir(norm)
	for dir != "/" && dir != "." && dir != "" {
		name := path.Base(dir)
		if cat, ok := c.heuristics[name]; ok {
			out.Category = cat
			out.Rule = "dir:" + name
			return out
		}
		parent := path.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return out
}

// normalizePath lowercases a path and converts separators to forward
// slashes so the rule tables match the same way on every platform.
func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.ToLower(p)
}

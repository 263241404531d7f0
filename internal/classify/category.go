package classify

import "fmt"

// Category groups files by the kind of disposable artifact they are.
type Category string

const (
	// CategoryTemp covers scratch files and leftovers named or placed as
	// temporary: *.tmp, files under temp directories, stale backups.
	CategoryTemp Category = "temp"

	// CategoryCache covers regenerable application caches.
	CategoryCache Category = "cache"

	// CategoryLog covers plain log output.
	CategoryLog Category = "log"

	// CategoryBrowser covers browser-owned artifact stores such as the
	// Chrome and Firefox cache trees.
	CategoryBrowser Category = "browser"

	// CategoryDuplicate marks redundant copies chosen for removal by
	// duplicate resolution. The classifier never assigns it directly.
	CategoryDuplicate Category = "duplicate"

	// CategoryUnknown is the fallback for files no rule matched.
	CategoryUnknown Category = "unknown"
)

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{
		CategoryTemp,
		CategoryCache,
		CategoryLog,
		CategoryBrowser,
		CategoryDuplicate,
		CategoryUnknown,
	}
}

// ParseCategory converts a user-supplied name into a Category.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

func (c Category) String() string {
	return string(c)
}

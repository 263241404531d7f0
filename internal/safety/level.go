package safety

import "fmt"

// Level is the ordinal risk classification gating whether a file may ever be
// deleted. Lower values are more deletable; Dangerous is a terminal exclusion
// marker and never becomes a deletion candidate, no matter what flags the
// user passes.
type Level int

const (
	VerySafe Level = iota + 1
	Safe
	Moderate
	Risky
	Dangerous
)

// Levels lists every level in ascending risk order.
func Levels() []Level {
	return []Level{VerySafe, Safe, Moderate, Risky, Dangerous}
}

func (l Level) String() string {
	switch l {
	case VerySafe:
		return "very-safe"
	case Safe:
		return "safe"
	case Moderate:
		return "moderate"
	case Risky:
		return "risky"
	case Dangerous:
		return "dangerous"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel converts a user-supplied name into a Level.
func ParseLevel(s string) (Level, error) {
	for _, l := range Levels() {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown safety level %q: must be one of: very-safe, safe, moderate, risky, dangerous", s)
}

// Stricter returns the less deletable of two levels.
func Stricter(a, b Level) Level {
	if a > b {
		return a
	}
	return b
}

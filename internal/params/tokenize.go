package params

import (
	"regexp"
	"strings"
)

// Assignment is one `keys = values` line after normalization.
type Assignment struct {
	// Key is the normalized key. For a combination line it is the
	// comma-joined list of sub-keys, e.g. "targets,flavors".
	Key string

	// Value is the raw text to the right of the first '=', trimmed.
	Value string
}

// IsCombination reports whether the assignment names more than one key.
func (a Assignment) IsCombination() bool {
	return strings.Contains(a.Key, ",")
}

// SubKeys returns the comma-separated components of the key.
func (a Assignment) SubKeys() []string {
	return strings.Split(a.Key, ",")
}

var (
	// assignmentPattern splits a line at its first '='.
	assignmentPattern = regexp.MustCompile(`^\s*([^=]*?)\s*=\s*(.*?)\s*$`)

	// identPattern is the accepted shape of a single sub-key.
	identPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

	// delimiterPattern matches the line separating prose from the
	// parseable block of a message.
	delimiterPattern = regexp.MustCompile(`^-{2,}\s*$`)
)

// SplitAlternatives splits a value list on '|' and trims each alternative.
// An empty string yields a single empty alternative.
func SplitAlternatives(s string) []string {
	parts := strings.Split(s, "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// splitTuple splits one combination alternative on ',' and trims each value.
func splitTuple(s string) []string {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// NormalizeKey trims and lower-cases a key. Each comma-separated component
// is trimmed on its own so "A , B" becomes "a,b".
func NormalizeKey(key string) string {
	parts := strings.Split(key, ",")
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, ",")
}

// validKey reports whether every component of a normalized key is a
// non-empty identifier.
func validKey(key string) bool {
	if key == "" {
		return false
	}
	for _, part := range strings.Split(key, ",") {
		if !identPattern.MatchString(part) {
			return false
		}
	}
	return true
}

// SplitLines parses free text into assignments. Lines without '=' or with a
// key that does not normalize to identifiers are dropped without error.
func SplitLines(text string) []Assignment {
	var out []Assignment
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := assignmentPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		key := NormalizeKey(m[1])
		if !validKey(key) {
			continue
		}
		out = append(out, Assignment{Key: key, Value: m[2]})
	}
	return out
}

// StripPreamble drops the human-readable part of a message. When a
// delimiter line (two or more dashes) is followed by at least one non-blank
// line, everything up to and including the first such delimiter is
// discarded. Otherwise the whole message is kept. Blank lines and delimiter
// lines never survive.
func StripPreamble(message string) string {
	lines := strings.Split(strings.ReplaceAll(message, "\r\n", "\n"), "\n")

	start := 0
	for i, line := range lines {
		if !delimiterPattern.MatchString(strings.TrimSpace(line)) {
			continue
		}
		if len(keepLines(lines[i+1:])) > 0 {
			start = i + 1
		}
		break
	}

	return strings.Join(keepLines(lines[start:]), "\n")
}

func keepLines(lines []string) []string {
	var kept []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || delimiterPattern.MatchString(trimmed) {
			continue
		}
		kept = append(kept, trimmed)
	}
	return kept
}

// Singular derives a per-branch field name from a list key by dropping its
// final character: "targets" -> "target", "listkey2s" -> "listkey2".
func Singular(key string) string {
	if key == "" {
		return ""
	}
	r := []rune(key)
	return string(r[:len(r)-1])
}

// ValidKey reports whether key is usable as a parallel or exposed key once
// normalized.
func ValidKey(key string) bool {
	return validKey(NormalizeKey(key))
}

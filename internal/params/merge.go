package params

import "strings"

// parseText splits text into scalar metadata and raw combination lines.
// Later lines for the same key overwrite earlier ones.
func parseText(text string) (Metadata, *RawCombinations) {
	meta := make(Metadata)
	raw := NewRawCombinations()
	for _, a := range SplitLines(text) {
		if a.IsCombination() {
			raw.Set(a.Key, a.Value)
			continue
		}
		meta.Set(a.Key, SplitAlternatives(a.Value))
	}
	return meta, raw
}

// UserText joins the translated environment and the parseable part of the
// message into one text. Message lines come last, so for a key set by both
// sources the message wins.
func UserText(env map[string]string, message string) string {
	var parts []string
	if e := EnvToMessage(env); e != "" {
		parts = append(parts, strings.TrimSuffix(e, "\n"))
	}
	if m := StripPreamble(message); m != "" {
		parts = append(parts, m)
	}
	return strings.Join(parts, "\n")
}

// mergeExposed copies user values into meta for exposed keys only and
// returns the user keys that were ignored.
func mergeExposed(meta, user Metadata, exposed map[string]bool) (ignored []string) {
	for _, key := range user.Keys() {
		if !exposed[key] {
			ignored = append(ignored, key)
			continue
		}
		meta.Set(key, user[key])
	}
	return ignored
}

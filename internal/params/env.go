package params

import (
	"os"
	"sort"
	"strings"
)

// EnvPrefix marks an environment variable as a parameter override. It is
// matched case-insensitively and required on every comma-separated part of
// a combination name.
const EnvPrefix = "PIP_"

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// envKey strips EnvPrefix from every component of name. It returns false
// when any component lacks the prefix or the result is empty.
func envKey(name string) (string, bool) {
	parts := strings.Split(name, ",")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if len(part) < len(EnvPrefix) || !strings.EqualFold(part[:len(EnvPrefix)], EnvPrefix) {
			return "", false
		}
		parts[i] = part[len(EnvPrefix):]
	}
	key := NormalizeKey(strings.Join(parts, ","))
	if !validKey(key) {
		return "", false
	}
	return key, true
}

// EnvToMessage renders prefixed environment entries as assignment lines.
// Entries are emitted in sorted name order so the combined user text is
// deterministic. Unprefixed or empty names are dropped.
func EnvToMessage(env map[string]string) string {
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		key, ok := envKey(name)
		if !ok {
			continue
		}
		b.WriteString(key)
		b.WriteString(" = ")
		// One entry must stay on one line.
		b.WriteString(strings.TrimSpace(newlines.Replace(env[name])))
		b.WriteString("\n")
	}
	return b.String()
}

// Environ collects the process environment entries carrying EnvPrefix.
func Environ() map[string]string {
	return EnvironFrom(os.Environ())
}

// EnvironFrom collects prefixed entries from KEY=VALUE pairs.
func EnvironFrom(pairs []string) map[string]string {
	env := make(map[string]string)
	for _, kv := range pairs {
		name, value, found := strings.Cut(kv, "=")
		if !found {
			continue
		}
		if len(name) < len(EnvPrefix) || !strings.EqualFold(name[:len(EnvPrefix)], EnvPrefix) {
			continue
		}
		env[name] = value
	}
	return env
}

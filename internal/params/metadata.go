// Package params turns pipeline parameter text into normalized metadata.
//
// Three sources feed a parse: the pipeline's defaults text, PIP_-prefixed
// environment variables, and the parseable block of a free-text message.
// Defaults define every recognized key. Environment and message lines are
// merged into one user text whose values replace defaults only for keys on
// the exposed allow-list.
//
// A line whose key lists several comma-separated names is a combination:
//
//	targets, flavors = linux,debug | windows,release
//
// Combinations led by a parallel key are registered in an Accumulator and
// expanded into a cartesian product of per-branch tuples.
package params

import (
	"sort"
	"strings"
)

// Metadata maps a normalized key to its ordered values. Every present key
// has at least one value; an explicit empty value is stored as [""].
// Single-element slices stand for scalars.
type Metadata map[string][]string

// Has reports whether key is defined.
func (m Metadata) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// First returns the first value of key, or "" when undefined.
func (m Metadata) First(key string) string {
	if vals := m[key]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Set replaces key's values with a copy of vals. An empty vals is stored as
// [""] to keep the at-least-one-value invariant.
func (m Metadata) Set(key string, vals []string) {
	if len(vals) == 0 {
		m[key] = []string{""}
		return
	}
	m[key] = append([]string(nil), vals...)
}

// AppendUnique adds val to key's values unless already present.
func (m Metadata) AppendUnique(key, val string) {
	for _, existing := range m[key] {
		if existing == val {
			return
		}
	}
	m[key] = append(m[key], val)
}

// Keys returns the defined keys in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// String renders the metadata as assignment lines in key order, suitable
// for feeding back into a parse.
func (m Metadata) String() string {
	var b strings.Builder
	for _, k := range m.Keys() {
		b.WriteString(k)
		b.WriteString(" = ")
		b.WriteString(strings.Join(m[k], " | "))
		b.WriteString("\n")
	}
	return b.String()
}

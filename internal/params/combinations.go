package params

import (
	"sort"
	"strings"
)

// RawCombinations holds combination lines by key, unparsed, in the order
// their keys first appeared. Re-assigning a key updates its value in place.
type RawCombinations struct {
	keys   []string
	values map[string]string
}

// NewRawCombinations returns an empty set.
func NewRawCombinations() *RawCombinations {
	return &RawCombinations{values: make(map[string]string)}
}

// Set records value for key.
func (r *RawCombinations) Set(key, value string) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the raw value for key.
func (r *RawCombinations) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (r *RawCombinations) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len returns the number of distinct keys.
func (r *RawCombinations) Len() int {
	return len(r.keys)
}

// Combination is one member of the cross-product: singular field name to
// a single value.
type Combination map[string]string

// Equal reports whether c and o hold the same fields and values.
func (c Combination) Equal(o Combination) bool {
	if len(c) != len(o) {
		return false
	}
	for k, v := range c {
		if ov, ok := o[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Fields returns the field names in sorted order.
func (c Combination) Fields() []string {
	fields := make([]string, 0, len(c))
	for k := range c {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// Registry is the running record of combination lines whose first key is
// parallel. Keys[i] lists the sub-keys of the i-th registered line and
// Values[i] its alternatives, each a tuple aligned with Keys[i].
type Registry struct {
	Keys   [][]string
	Values [][][]string
}

// Len returns the number of registered groups.
func (r Registry) Len() int {
	return len(r.Keys)
}

// Size returns the cross-product size before de-duplication.
func (r Registry) Size() int {
	if len(r.Values) == 0 {
		return 0
	}
	n := 1
	for _, group := range r.Values {
		n *= len(group)
	}
	return n
}

// Accumulator carries combination state across the defaults pass and the
// user pass of a single parse. Groups registered while merging defaults
// stay in the product after user overrides are merged.
type Accumulator struct {
	// Raw holds every combination line seen, defaults first.
	Raw *RawCombinations

	// Registry holds the groups that feed the cross-product.
	Registry Registry
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{Raw: NewRawCombinations()}
}

// Combinations expands the registry into its cross-product.
func (a *Accumulator) Combinations() []Combination {
	return Combinations(a.Registry)
}

// mergeRules selects how combination lines are applied to metadata.
type mergeRules struct {
	parallel map[string]bool
	exposed  map[string]bool
	fromUser bool
}

// merge applies each line of raw to meta in order and records raw into the
// accumulator. A user line is ignored unless all of its sub-keys are
// exposed. A line led by a parallel key merges its values into every
// sub-key's list and registers the line for the cross-product. Any other
// line overwrites each sub-key with its value from the tuple, so with
// several alternatives the last one wins.
func (a *Accumulator) merge(meta Metadata, raw *RawCombinations, rules mergeRules) {
	for _, key := range raw.Keys() {
		value, _ := raw.Get(key)
		a.Raw.Set(key, value)

		subKeys := strings.Split(key, ",")
		if rules.fromUser && !allIn(subKeys, rules.exposed) {
			continue
		}

		tuples, ok := parseTuples(subKeys, value)
		if !ok {
			continue
		}

		if rules.parallel[subKeys[0]] {
			for _, tuple := range tuples {
				for i, sk := range subKeys {
					meta.AppendUnique(sk, tuple[i])
				}
			}
			a.Registry.Keys = append(a.Registry.Keys, subKeys)
			a.Registry.Values = append(a.Registry.Values, tuples)
			continue
		}

		for _, tuple := range tuples {
			for i, sk := range subKeys {
				meta.Set(sk, []string{tuple[i]})
			}
		}
	}
}

// parseTuples splits a combination value into its alternatives. Every
// alternative must have one value per key; otherwise the whole line is
// rejected.
func parseTuples(keys []string, value string) ([][]string, bool) {
	alts := SplitAlternatives(value)
	tuples := make([][]string, 0, len(alts))
	for _, alt := range alts {
		tuple := splitTuple(alt)
		if len(tuple) != len(keys) {
			return nil, false
		}
		tuples = append(tuples, tuple)
	}
	return tuples, true
}

func allIn(keys []string, set map[string]bool) bool {
	for _, k := range keys {
		if !set[k] {
			return false
		}
	}
	return true
}

// Combinations computes the cartesian product of the registered groups.
// Fields are the singular forms of the flattened group keys; when a field
// repeats across groups the later group's value wins. Groups iterate
// left-to-right with the last group varying fastest, and exact duplicates
// are dropped keeping the first occurrence. An empty registry yields nil.
func Combinations(reg Registry) []Combination {
	if reg.Len() == 0 {
		return nil
	}

	var fields []string
	for _, group := range reg.Keys {
		for _, k := range group {
			fields = append(fields, Singular(k))
		}
	}

	idx := make([]int, reg.Len())
	out := make([]Combination, 0, reg.Size())
	for {
		comb := make(Combination, len(fields))
		pos := 0
		for g, tuples := range reg.Values {
			for _, v := range tuples[idx[g]] {
				comb[fields[pos]] = v
				pos++
			}
		}
		if !containsCombination(out, comb) {
			out = append(out, comb)
		}

		g := len(idx) - 1
		for ; g >= 0; g-- {
			idx[g]++
			if idx[g] < len(reg.Values[g]) {
				break
			}
			idx[g] = 0
		}
		if g < 0 {
			return out
		}
	}
}

func containsCombination(list []Combination, c Combination) bool {
	for _, existing := range list {
		if existing.Equal(c) {
			return true
		}
	}
	return false
}

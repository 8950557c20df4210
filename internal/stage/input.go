// Package stage expands parsed pipeline metadata into per-branch inputs.
package stage

import (
	"sort"

	"github.com/mitchellh/mapstructure"

	"github.com/meow-stack/stagefan/internal/params"
)

// JobField is the reserved field carrying a branch's job name.
const JobField = "job_name"

// Input is the complete input of one branch. A single-element slice stands
// for a scalar; longer slices are list fields carried over from metadata.
type Input map[string][]string

// FromCombination builds an input holding each field of c as a scalar.
func FromCombination(c params.Combination) Input {
	in := make(Input, len(c))
	for k, v := range c {
		in[k] = []string{v}
	}
	return in
}

// Scalar returns the value of field when it holds exactly one value.
func (in Input) Scalar(field string) (string, bool) {
	vals, ok := in[field]
	if !ok || len(vals) != 1 {
		return "", false
	}
	return vals[0], true
}

// Job returns the injected job name, or "" before injection.
func (in Input) Job() string {
	v, _ := in.Scalar(JobField)
	return v
}

// Fields returns the field names in sorted order.
func (in Input) Fields() []string {
	fields := make([]string, 0, len(in))
	for k := range in {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// Clone returns a deep copy.
func (in Input) Clone() Input {
	out := make(Input, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Matches reports whether every field of c is present in the input as a
// scalar with the same value.
func (in Input) Matches(c params.Combination) bool {
	for k, v := range c {
		got, ok := in.Scalar(k)
		if !ok || got != v {
			return false
		}
	}
	return true
}

// Flatten returns the input with scalars unwrapped to strings and list
// fields kept as []string.
func (in Input) Flatten() map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if len(v) == 1 {
			out[k] = v[0]
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Decode fills out, a pointer to a struct, from the input. Field matching
// uses `mapstructure` tags and string values convert to numbers and bools.
func (in Input) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in.Flatten())
}

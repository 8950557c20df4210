package stage

import (
	"strings"

	serrors "github.com/meow-stack/stagefan/internal/errors"
	"github.com/meow-stack/stagefan/internal/params"
)

// Generate expands meta into one input per value of the parallel key.
//
// Parallel keys are compared after normalization, so "targets" and
// "Targets" name the same key. With no parallel key the whole metadata is
// the single input. Only one parallel key is supported. Its first value is
// split on whitespace, and each token yields an input holding
// {Singular(key): token} plus every other metadata entry.
func Generate(meta params.Metadata, parallel []string) ([]Input, error) {
	keys := params.DistinctKeys(parallel)
	switch len(keys) {
	case 0:
		return []Input{Input(meta.Clone())}, nil
	case 1:
	default:
		return nil, serrors.StageMultipleParallel(keys)
	}

	key := keys[0]
	if !meta.Has(key) {
		return nil, serrors.StageParallelUndefined(key)
	}

	linear := meta.Clone()
	delete(linear, key)
	field := params.Singular(key)

	tokens := strings.Fields(meta.First(key))
	inputs := make([]Input, 0, len(tokens))
	for _, tok := range tokens {
		in := Input(linear.Clone())
		in[field] = []string{tok}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// Select returns the explicit combinations as inputs when the list is
// non-empty and every combination matches some generated input. Otherwise
// it returns generated unchanged.
func Select(generated []Input, explicit []params.Combination) ([]Input, bool) {
	if len(explicit) == 0 {
		return generated, false
	}
	for _, c := range explicit {
		if !anyMatches(generated, c) {
			return generated, false
		}
	}

	inputs := make([]Input, 0, len(explicit))
	for _, c := range explicit {
		inputs = append(inputs, FromCombination(c))
	}
	return inputs, true
}

func anyMatches(inputs []Input, c params.Combination) bool {
	for _, in := range inputs {
		if in.Matches(c) {
			return true
		}
	}
	return false
}

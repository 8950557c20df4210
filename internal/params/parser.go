package params

import (
	"io"
	"log/slog"
)

// Result is the outcome of a parse.
type Result struct {
	Args         Metadata      `json:"args" yaml:"args"`
	Combinations []Combination `json:"combinations,omitempty" yaml:"combinations,omitempty"`
}

// Parser merges defaults with user overrides. Parallel keys decide which
// combination lines feed the cross-product; exposed keys are the only ones
// a user may override.
type Parser struct {
	parallel map[string]bool
	exposed  map[string]bool
	logger   *slog.Logger
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithLogger sets the logger used for debug output about ignored input.
func WithLogger(logger *slog.Logger) ParserOption {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewParser creates a Parser. Keys are normalized the same way as parsed
// text.
func NewParser(parallel, exposed []string, opts ...ParserOption) *Parser {
	p := &Parser{
		parallel: keySet(parallel),
		exposed:  keySet(exposed),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func keySet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range DistinctKeys(keys) {
		set[k] = true
	}
	return set
}

// DistinctKeys normalizes keys and drops blanks and repeats, keeping first
// occurrence order.
func DistinctKeys(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = NormalizeKey(k); k != "" && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// Parse merges defaults, environment and message into a Result using a
// fresh accumulator.
func (p *Parser) Parse(defaults string, env map[string]string, message string) *Result {
	return p.ParseWith(NewAccumulator(), defaults, env, message)
}

// ParseWith runs the defaults pass and then the user pass against acc.
// acc keeps the combined raw lines and registry for inspection afterwards.
func (p *Parser) ParseWith(acc *Accumulator, defaults string, env map[string]string, message string) *Result {
	meta := p.MergeDefaults(acc, defaults)
	p.MergeUser(acc, meta, UserText(env, message))

	result := &Result{Args: meta}
	if acc.Registry.Len() > 0 {
		result.Combinations = acc.Combinations()
	}
	return result
}

// MergeDefaults parses the defaults text into fresh metadata and applies its
// combination lines, registering the parallel ones in acc.
func (p *Parser) MergeDefaults(acc *Accumulator, defaults string) Metadata {
	meta, raw := parseText(defaults)
	acc.merge(meta, raw, mergeRules{parallel: p.parallel})
	p.logger.Debug("merged defaults", "keys", len(meta), "combinations", raw.Len())
	return meta
}

// MergeUser parses userText separately, copies exposed scalar keys into
// meta, then applies user combination lines whose keys are all exposed.
func (p *Parser) MergeUser(acc *Accumulator, meta Metadata, userText string) {
	user, raw := parseText(userText)
	if ignored := mergeExposed(meta, user, p.exposed); len(ignored) > 0 {
		p.logger.Debug("ignored overrides for keys not exposed", "keys", ignored)
	}
	acc.merge(meta, raw, mergeRules{
		parallel: p.parallel,
		exposed:  p.exposed,
		fromUser: true,
	})
}

// IsParallel reports whether key was declared parallel.
func (p *Parser) IsParallel(key string) bool {
	return p.parallel[NormalizeKey(key)]
}

// IsExposed reports whether key may be overridden.
func (p *Parser) IsExposed(key string) bool {
	return p.exposed[NormalizeKey(key)]
}

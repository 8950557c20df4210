// Package pipeline loads pipeline definitions from TOML files.
//
// A definition names the parallel and exposed keys, the command each branch
// runs, and the defaults text the parameter parser starts from:
//
//	name = "build"
//	parallel = ["targets"]
//	exposed = ["targets", "flavor"]
//	command = "make $PIP_TARGET"
//	defaults = """
//	targets = linux mac
//	flavor = release
//	"""
package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	serrors "github.com/meow-stack/stagefan/internal/errors"
	"github.com/meow-stack/stagefan/internal/params"
)

// FileSuffix is the extension pipeline definitions are discovered by.
const FileSuffix = ".pipeline.toml"

// Definition is one pipeline as written on disk.
type Definition struct {
	Name          string   `toml:"name"`
	Description   string   `toml:"description,omitempty"`
	Parallel      []string `toml:"parallel,omitempty"`
	Exposed       []string `toml:"exposed,omitempty"`
	Command       string   `toml:"command"`
	Workdir       string   `toml:"workdir,omitempty"`
	MaxConcurrent int      `toml:"max_concurrent,omitempty"`
	Defaults      string   `toml:"defaults,omitempty"`

	// Path is the file the definition was loaded from.
	Path string `toml:"-"`
}

// Load reads and validates the definition at path. A missing file is
// PIPE_001; anything that does not decode or validate is PIPE_002.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, serrors.PipelineNotFound(path)
		}
		return nil, serrors.IOReadError(path, err)
	}

	def, err := Parse(string(data))
	if err != nil {
		return nil, serrors.PipelineParseError(path, err)
	}
	def.Path = path
	if def.Workdir != "" && !filepath.IsAbs(def.Workdir) {
		def.Workdir = filepath.Join(filepath.Dir(path), def.Workdir)
	}
	return def, nil
}

// Parse decodes and validates a definition from TOML content.
func Parse(content string) (*Definition, error) {
	var def Definition
	md, err := toml.Decode(content, &def)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown fields: %s", strings.Join(keys, ", "))
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks that the definition is usable.
func (d *Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(d.Command) == "" {
		return fmt.Errorf("command is required")
	}
	if d.MaxConcurrent < 0 {
		return fmt.Errorf("max_concurrent must not be negative")
	}
	for _, k := range append(append([]string{}, d.Parallel...), d.Exposed...) {
		if !params.ValidKey(k) {
			return fmt.Errorf("invalid key %q", k)
		}
	}
	return nil
}

// Parser returns a parameter parser for this pipeline's keys.
func (d *Definition) Parser(logger *slog.Logger) *params.Parser {
	if logger == nil {
		return params.NewParser(d.Parallel, d.Exposed)
	}
	return params.NewParser(d.Parallel, d.Exposed, params.WithLogger(logger))
}

// Discover loads every *.pipeline.toml file directly under dir, sorted by
// name. Files that fail to load are returned as errors alongside the rest.
func Discover(dir string) ([]*Definition, []error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+FileSuffix))
	if err != nil {
		return nil, []error{err}
	}
	sort.Strings(matches)

	var defs []*Definition
	var errs []error
	for _, path := range matches {
		def, err := Load(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		defs = append(defs, def)
	}
	return defs, errs
}

// Resolve finds a pipeline by file path or by name under dir.
func Resolve(ref, dir string) (*Definition, error) {
	if strings.HasSuffix(ref, ".toml") {
		return Load(ref)
	}
	return Load(filepath.Join(dir, ref+FileSuffix))
}

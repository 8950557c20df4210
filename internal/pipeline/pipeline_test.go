package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	serrors "github.com/meow-stack/stagefan/internal/errors"
)

const buildPipeline = `
name = "build"
description = "Build every target"
parallel = ["targets"]
exposed = ["targets", "flavor"]
command = "make $PIP_TARGET"
workdir = "src"
max_concurrent = 2
defaults = """
targets = linux mac
flavor = release
"""
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestParse(t *testing.T) {
	def, err := Parse(buildPipeline)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if def.Name != "build" {
		t.Errorf("Name = %q", def.Name)
	}
	if len(def.Parallel) != 1 || def.Parallel[0] != "targets" {
		t.Errorf("Parallel = %v", def.Parallel)
	}
	if def.MaxConcurrent != 2 {
		t.Errorf("MaxConcurrent = %d", def.MaxConcurrent)
	}
	if !strings.Contains(def.Defaults, "flavor = release") {
		t.Errorf("Defaults = %q", def.Defaults)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad toml", `name = `, ""},
		{"missing name", `command = "true"`, "name is required"},
		{"missing command", `name = "x"`, "command is required"},
		{"negative concurrency", "name = \"x\"\ncommand = \"true\"\nmax_concurrent = -1", "max_concurrent"},
		{"bad key", "name = \"x\"\ncommand = \"true\"\nparallel = [\"a b\"]", "invalid key"},
		{"unknown field", "name = \"x\"\ncommand = \"true\"\nparalel = [\"a\"]", "unknown fields: paralel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.content)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != "" && !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "build"+FileSuffix, buildPipeline)

	def, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if def.Path != path {
		t.Errorf("Path = %q", def.Path)
	}
	if def.Workdir != filepath.Join(dir, "src") {
		t.Errorf("Workdir = %q, want it resolved against the file", def.Workdir)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.pipeline.toml"))
	if !serrors.HasCode(err, serrors.CodePipelineNotFound) {
		t.Errorf("missing file: got %v, want PIPE_001", err)
	}

	bad := writeFile(t, dir, "bad"+FileSuffix, `name = "x"`)
	_, err = Load(bad)
	if !serrors.HasCode(err, serrors.CodePipelineParseError) {
		t.Errorf("invalid file: got %v, want PIPE_002", err)
	}
}

func TestDefinitionParser(t *testing.T) {
	def, err := Parse(buildPipeline)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	res := def.Parser(nil).Parse(def.Defaults, nil, "flavor = debug\ntargets = win")
	if got := res.Args.First("flavor"); got != "debug" {
		t.Errorf("flavor = %q, want debug", got)
	}
	if got := res.Args.First("targets"); got != "win" {
		t.Errorf("targets = %q, want win", got)
	}
	if !def.Parser(nil).IsParallel("TARGETS") {
		t.Error("targets should be parallel")
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b"+FileSuffix, "name = \"b\"\ncommand = \"true\"")
	writeFile(t, dir, "a"+FileSuffix, "name = \"a\"\ncommand = \"true\"")
	writeFile(t, dir, "broken"+FileSuffix, "name = \"c\"")
	writeFile(t, dir, "notes.toml", "name = \"ignored\"")

	defs, errs := Discover(dir)
	if len(defs) != 2 || defs[0].Name != "a" || defs[1].Name != "b" {
		t.Errorf("defs = %+v", defs)
	}
	if len(errs) != 1 {
		t.Errorf("expected one load error, got %v", errs)
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "lint"+FileSuffix, "name = \"lint\"\ncommand = \"true\"")

	byName, err := Resolve("lint", dir)
	if err != nil || byName.Name != "lint" {
		t.Fatalf("Resolve by name: %v, %v", byName, err)
	}
	byPath, err := Resolve(path, "/nonexistent")
	if err != nil || byPath.Path != path {
		t.Fatalf("Resolve by path: %v, %v", byPath, err)
	}
}

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	serrors "github.com/meow-stack/stagefan/internal/errors"
	"github.com/meow-stack/stagefan/internal/types"
)

// YAMLStore persists runs as YAML files with atomic writes.
type YAMLStore struct {
	dir string // .stagefan/runs
}

// NewYAMLStore creates the directory if needed and recovers files left by
// interrupted writes.
func NewYAMLStore(dir string) (*YAMLStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, serrors.IOWriteError(dir, err)
	}

	if err := recoverInterruptedWrites(dir); err != nil {
		return nil, fmt.Errorf("recovering interrupted writes: %w", err)
	}

	return &YAMLStore{dir: dir}, nil
}

// Dir returns the directory holding run files.
func (s *YAMLStore) Dir() string {
	return s.dir
}

// recoverInterruptedWrites handles .tmp files left from crashed writes.
func recoverInterruptedWrites(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".yaml.tmp") {
			continue
		}

		tmpPath := filepath.Join(dir, entry.Name())
		mainPath := strings.TrimSuffix(tmpPath, ".tmp")

		if _, err := os.Stat(mainPath); err == nil {
			// Main file exists, drop the orphan
			os.Remove(tmpPath)
		} else {
			// Main file missing, promote temp
			os.Rename(tmpPath, mainPath)
		}
	}
	return nil
}

// Save persists the run atomically (write-then-rename).
func (s *YAMLStore) Save(ctx context.Context, run *types.Run) error {
	if err := run.Validate(); err != nil {
		return serrors.StoreFailed("save", err)
	}

	data, err := yaml.Marshal(run)
	if err != nil {
		return serrors.StoreFailed("save", fmt.Errorf("marshaling run: %w", err))
	}

	mainPath := runPath(s.dir, run.ID)
	tmpPath := mainPath + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return serrors.IOWriteError(tmpPath, err)
	}
	if err := os.Rename(tmpPath, mainPath); err != nil {
		os.Remove(tmpPath)
		return serrors.IOWriteError(mainPath, err)
	}
	return nil
}

// Get retrieves a run by ID.
func (s *YAMLStore) Get(ctx context.Context, id string) (*types.Run, error) {
	path := runPath(s.dir, id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, serrors.RunNotFound(id)
		}
		return nil, serrors.IOReadError(path, err)
	}

	var run types.Run
	if err := yaml.Unmarshal(data, &run); err != nil {
		return nil, serrors.StoreFailed("get", fmt.Errorf("parsing run %s: %w", id, err))
	}
	return &run, nil
}

// List returns runs matching filter. Files that fail to parse are skipped.
func (s *YAMLStore) List(ctx context.Context, filter Filter) ([]*types.Run, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, serrors.IOReadError(s.dir, err)
	}

	var runs []*types.Run
	for _, entry := range entries {
		name := entry.Name()
		// .yaml.tmp ends in .tmp, so partial writes are skipped here
		if !strings.HasSuffix(name, ".yaml") {
			continue
		}
		run, err := s.Get(ctx, strings.TrimSuffix(name, ".yaml"))
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return filter.apply(runs), nil
}

// Delete removes a run.
func (s *YAMLStore) Delete(ctx context.Context, id string) error {
	if err := os.Remove(runPath(s.dir, id)); err != nil {
		if os.IsNotExist(err) {
			return serrors.RunNotFound(id)
		}
		return serrors.StoreFailed("delete", err)
	}
	return nil
}

// Close is a no-op.
func (s *YAMLStore) Close() error {
	return nil
}

var _ Store = (*YAMLStore)(nil)

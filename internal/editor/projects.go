package editor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/wavecut/wavecut-editor/internal/domain"
)

// ProjectsCache mirrors the project list to a file that other editor
// processes on the machine share. A change written by someone else is a hint
// to refresh from the audio service; the file is never trusted as state.
type ProjectsCache struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	written []byte
}

// NewProjectsCache creates a cache at path.
func NewProjectsCache(path string, logger *slog.Logger) *ProjectsCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectsCache{path: filepath.Clean(path), logger: logger}
}

// Path returns the cache file path.
func (c *ProjectsCache) Path() string {
	return c.path
}

// Store writes projects to the cache file.
func (c *ProjectsCache) Store(projects []domain.Project) error {
	data, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return fmt.Errorf("encode projects: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create projects cache directory: %w", err)
	}
	if err := writeFileAtomic(c.path, data); err != nil {
		return fmt.Errorf("write projects cache: %w", err)
	}
	c.written = data
	return nil
}

// Load reads the cached project list.
func (c *ProjectsCache) Load() ([]domain.Project, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, err
	}
	var projects []domain.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("decode projects cache: %w", err)
	}
	return projects, nil
}

// ChangedElsewhere reports whether the file differs from what this process
// last wrote.
func (c *ProjectsCache) ChangedElsewhere() bool {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !bytes.Equal(data, c.written)
}

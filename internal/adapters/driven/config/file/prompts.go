package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore serves the system prompts from <dir>/<name>.txt so users can
// tune synthesis and comparison without rebuilding. Missing files are
// seeded with driven.DefaultPrompts on first use; a missing, unreadable or
// blank file falls back to the built-in prompt.
//
// The whole set is read at once and held until Reload.
type PromptStore struct {
	dir string

	mu     sync.Mutex
	loaded map[string]string
	seeded bool
}

// NewPromptStore creates a store over dir, or ~/.sercha-synth/prompts when
// dir is empty. Nothing is touched on disk until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		root, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(root, "prompts")
	}
	return &PromptStore{dir: dir}, nil
}

// Load returns the named prompt. Only names in driven.DefaultPrompts exist.
func (s *PromptStore) Load(name string) (string, error) {
	if _, ok := driven.DefaultPrompts[name]; !ok {
		return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded == nil {
		s.loaded = s.readAll()
	}
	return s.loaded[name], nil
}

// Reload drops the loaded set so the next Load reads the files again.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.loaded = nil
	s.mu.Unlock()
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// readAll resolves every known prompt. Seeding is attempted once; if the
// directory cannot be created the defaults are served from memory.
func (s *PromptStore) readAll() map[string]string {
	if !s.seeded {
		s.seeded = true
		if err := s.seed(); err != nil {
			configLog.Warn("using built-in prompts: %v", err)
		}
	}

	prompts := make(map[string]string, len(driven.DefaultPrompts))
	for name, fallback := range driven.DefaultPrompts {
		prompts[name] = fallback
		data, err := os.ReadFile(s.path(name))
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				configLog.Warn("prompt %s: %v", name, err)
			}
			continue
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			prompts[name] = text
		}
	}
	return prompts
}

// seed writes the default of every prompt that has no file yet.
func (s *PromptStore) seed() error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}
	for name, text := range driven.DefaultPrompts {
		f, err := os.OpenFile(s.path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("create default prompt %q: %w", name, err)
		}
		_, werr := f.WriteString(text)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return fmt.Errorf("write default prompt %q: %w", name, werr)
		}
	}
	return nil
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

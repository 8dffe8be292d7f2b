package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Viewport is the persisted slice of a project's viewport: which simulated
// device was selected and how it was zoomed. Container size is deliberately
// not persisted, it is re-measured on every launch.
type Viewport struct {
	Device     string  `json:"device"`
	Rotated    bool    `json:"rotated"`
	ZoomMode   string  `json:"zoom_mode"`
	ManualZoom float64 `json:"manual_zoom"`
}

type fileFormat struct {
	Projects map[string]Viewport `json:"projects"`
}

// Store persists per-project viewport preferences in a single JSON file.
type Store struct {
	mu   sync.RWMutex
	path string
}

// DefaultPath returns the standard preferences location under the user's
// config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "frameview", "viewport.json"), nil
}

func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("prefs path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create prefs dir: %w", err)
	}
	return &Store{path: path}, nil
}

// Load returns the saved viewport for a project. The second return is false
// when nothing was saved yet; a missing file is not an error.
func (s *Store) Load(project string) (Viewport, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ff, err := s.readLocked()
	if err != nil {
		return Viewport{}, false, err
	}
	v, ok := ff.Projects[project]
	return v, ok, nil
}

// Save records the viewport for a project, preserving other projects'
// entries.
func (s *Store) Save(project string, v Viewport) error {
	if project == "" {
		return errors.New("project required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ff, err := s.readLocked()
	if err != nil {
		return err
	}
	if ff.Projects == nil {
		ff.Projects = make(map[string]Viewport)
	}
	ff.Projects[project] = v

	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func (s *Store) readLocked() (fileFormat, error) {
	var ff fileFormat
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ff, nil
		}
		return ff, fmt.Errorf("read prefs: %w", err)
	}
	if err := json.Unmarshal(data, &ff); err != nil {
		return ff, fmt.Errorf("parse prefs: %w", err)
	}
	return ff, nil
}

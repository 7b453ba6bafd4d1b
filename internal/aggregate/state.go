package aggregate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"yieldScope/internal/model"
)

// WindowFile persists the window map as a JSON object of
// pool -> [[minute, amount], ...].
type WindowFile struct {
	Path string
}

// Load returns an empty map when the file does not exist.
func (f *WindowFile) Load() (map[string][]model.VolumeBucket, error) {
	windows := make(map[string][]model.VolumeBucket)
	if f == nil || f.Path == "" {
		return windows, nil
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return windows, nil
		}
		return windows, fmt.Errorf("read volume cache: %w", err)
	}
	if len(data) == 0 {
		return windows, nil
	}
	if err := json.Unmarshal(data, &windows); err != nil {
		return make(map[string][]model.VolumeBucket), fmt.Errorf("parse volume cache: %w", err)
	}
	return windows, nil
}

// Save writes the full map through a temp file and rename.
func (f *WindowFile) Save(windows map[string][]model.VolumeBucket) error {
	if f == nil || f.Path == "" {
		return nil
	}
	dir := filepath.Dir(f.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create volume cache dir: %w", err)
		}
	}
	if windows == nil {
		windows = map[string][]model.VolumeBucket{}
	}
	data, err := json.Marshal(windows)
	if err != nil {
		return fmt.Errorf("marshal volume cache: %w", err)
	}

	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write volume cache tmp: %w", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return fmt.Errorf("rename volume cache: %w", err)
	}
	return nil
}

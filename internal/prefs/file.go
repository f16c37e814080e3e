package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileStore stores preferences in a local JSON file.
type FileStore struct {
	Path string
}

type fileRecord struct {
	Preferences
	UpdatedAt string `json:"updated_at"`
}

func (s *FileStore) Load(ctx context.Context) (Preferences, bool, error) {
	if s == nil || s.Path == "" {
		return Preferences{}, false, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Preferences{}, false, nil
		}
		return Preferences{}, false, fmt.Errorf("read preferences: %w", err)
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Preferences{}, false, fmt.Errorf("parse preferences: %w", err)
	}
	return rec.Preferences, true, nil
}

func (s *FileStore) Save(ctx context.Context, p Preferences) error {
	if s == nil || s.Path == "" {
		return nil
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create preferences dir: %w", err)
		}
	}

	data, err := json.Marshal(fileRecord{
		Preferences: p,
		UpdatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write preferences tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename preferences: %w", err)
	}
	return nil
}

package prefs

import "context"

// Preferences are the user's persisted choices.
type Preferences struct {
	AutoRestake bool `json:"auto_restake"`
}

// Store persists preferences. Load reports false when nothing was saved yet.
type Store interface {
	Load(ctx context.Context) (Preferences, bool, error)
	Save(ctx context.Context, p Preferences) error
}

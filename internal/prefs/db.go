package prefs

import (
	"context"

	"stakingScope/internal/storage/postgres"
)

// DBStore stores preferences in the preferences table under Name.
type DBStore struct {
	Store *postgres.Store
	Name  string
}

func (s *DBStore) Load(ctx context.Context) (Preferences, bool, error) {
	if s == nil || s.Store == nil {
		return Preferences{}, false, nil
	}
	restake, ok, err := s.Store.LoadPreference(ctx, s.Name)
	return Preferences{AutoRestake: restake}, ok, err
}

func (s *DBStore) Save(ctx context.Context, p Preferences) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SavePreference(ctx, s.Name, p.AutoRestake)
}

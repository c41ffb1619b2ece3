package inmemdb

import (
	"context"

	"github.com/apiwada/portal/core/settings"
)

type settingsRepository struct {
	db *settingsTable
}

var _ settings.Repository = (*settingsRepository)(nil) // interface compliance check

func NewSettingsRepository(db *DB) *settingsRepository {
	return &settingsRepository{db: db.settings}
}

func (repo *settingsRepository) GetSettings(_ context.Context) (settings.SiteSettings, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if repo.db.doc == nil {
		return settings.SiteSettings{}, settings.ErrNotFound
	}
	return *repo.db.doc, nil
}

func (repo *settingsRepository) SaveSettings(_ context.Context, s settings.SiteSettings) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.doc = &s
	return nil
}

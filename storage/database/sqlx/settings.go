package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/apiwada/portal/core/settings"
)

const siteSettingsID = "settings"

type settingsRepository struct {
	db *sqlx.DB
}

var _ settings.Repository = (*settingsRepository)(nil) // interface compliance check

func NewSettingsRepository(db *sqlx.DB) *settingsRepository {
	return &settingsRepository{db: db}
}

func (repo settingsRepository) GetSettings(ctx context.Context) (settings.SiteSettings, error) {
	var raw []byte
	err := repo.db.GetContext(ctx, &raw, "SELECT doc FROM site_settings WHERE id = $1", siteSettingsID)
	switch err {
	case nil:
	case sql.ErrNoRows:
		return settings.SiteSettings{}, settings.ErrNotFound
	default:
		return settings.SiteSettings{}, errors.Wrap(err, "getting site settings")
	}

	var s settings.SiteSettings
	if err = unmarshalDoc(raw, &s); err != nil {
		return settings.SiteSettings{}, err
	}
	return s, nil
}

func (repo settingsRepository) SaveSettings(ctx context.Context, s settings.SiteSettings) error {
	raw, err := marshalDoc(s)
	if err != nil {
		return err
	}
	q := `INSERT INTO site_settings (id, doc) VALUES ($1, $2)
		  ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`
	_, err = repo.db.ExecContext(ctx, q, siteSettingsID, raw)
	return errors.Wrap(err, "saving site settings")
}

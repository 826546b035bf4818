package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context) (*models.Settings, error) {
	query := `select pin_hash, pin_salt, db_key_salt, key_check, version from settings where id = 1`

	s := &models.Settings{}
	err := r.db.QueryRowContext(ctx, query).Scan(&s.PinHash, &s.PinSalt, &s.DBKeySalt, &s.KeyCheck, &s.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, s *models.Settings) error {
	query := `insert into settings (id, pin_hash, pin_salt, db_key_salt, key_check, version)
		values (1, ?, ?, ?, ?, ?)
		on conflict(id) do update set
			pin_hash = excluded.pin_hash,
			pin_salt = excluded.pin_salt,
			db_key_salt = excluded.db_key_salt,
			key_check = excluded.key_check,
			version = excluded.version`

	version := s.Version
	if version == 0 {
		version = models.SchemaVersion
	}

	if _, err := r.db.ExecContext(ctx, query, s.PinHash, s.PinSalt, s.DBKeySalt, s.KeyCheck, version); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `delete from settings`); err != nil {
		return fmt.Errorf("failed to delete settings: %w", err)
	}
	return nil
}

package store

import (
	"context"

	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/dmitrijs2005/docvault/internal/repositories/settings"
)

func (s *Store) Settings(ctx context.Context) (*models.Settings, error) {
	return settings.NewSQLiteRepository(s.db).Get(ctx)
}

// SavePinMaterial mirrors the PIN verifier and salts into the settings row.
// The key check value is preserved.
func (s *Store) SavePinMaterial(ctx context.Context, pinHash, pinSalt, dbKeySalt []byte) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := settings.NewSQLiteRepository(tx)
		cur, err := repo.Get(ctx)
		if err != nil {
			return err
		}
		cur.PinHash, cur.PinSalt, cur.DBKeySalt = pinHash, pinSalt, dbKeySalt
		return repo.Save(ctx, cur)
	})
}

// Package migrations embeds the vault schema migrations applied by goose.
// Migrations are additive: new tables, columns and indexes only.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

// NewProvider returns a goose provider over the embedded migrations.
func NewProvider(db *sql.DB) (*goose.Provider, error) {
	return goose.NewProvider(goose.DialectSQLite3, db, FS)
}

// Up applies pending migrations and returns how many ran. It is a no-op on
// an up-to-date database.
func Up(ctx context.Context, db *sql.DB) (int, error) {
	p, err := NewProvider(db)
	if err != nil {
		return 0, fmt.Errorf("failed to create migration provider: %w", err)
	}

	res, err := p.Up(ctx)
	if err != nil {
		return len(res), fmt.Errorf("failed to apply migrations: %w", err)
	}
	return len(res), nil
}

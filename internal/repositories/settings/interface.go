package settings

import (
	"context"

	"github.com/dmitrijs2005/docvault/internal/models"
)

// Repository reads and writes the settings singleton.
type Repository interface {
	// Get returns the settings row or common.ErrNotFound on a fresh database.
	Get(ctx context.Context) (*models.Settings, error)

	// Save inserts or replaces the singleton row.
	Save(ctx context.Context, s *models.Settings) error

	// Delete removes the row. Only used by a full reset.
	Delete(ctx context.Context) error
}

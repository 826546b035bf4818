package documents

import (
	"context"
	"time"

	"github.com/dmitrijs2005/docvault/internal/models"
)

// Repository persists document rows. Name and Description are ciphertext.
type Repository interface {
	Create(ctx context.Context, d *models.DocumentRecord) error

	// Update rewrites template, folder, name, description and updated_at.
	Update(ctx context.Context, d *models.DocumentRecord) error

	GetByID(ctx context.Context, id string) (*models.DocumentRecord, error)

	// List returns every document; with folderID set only that folder's.
	List(ctx context.Context, folderID *string) ([]models.DocumentRecord, error)

	// ListPinned returns pinned documents by pinned order.
	ListPinned(ctx context.Context) ([]models.DocumentRecord, error)

	// ListRecent returns unpinned documents by last activity, newest first.
	ListRecent(ctx context.Context, limit int) ([]models.DocumentRecord, error)

	// SetPinnedOrder pins (order != nil) or unpins (order == nil) a document.
	SetPinnedOrder(ctx context.Context, id string, order *int) error

	TouchOpened(ctx context.Context, id string, at time.Time) error
	SetFolder(ctx context.Context, id string, folderID *string) error

	// MoveFolderContents moves every document of folder from into to.
	MoveFolderContents(ctx context.Context, from string, to *string) error

	// CountByFolder returns document counts keyed by folder id.
	CountByFolder(ctx context.Context) (map[string]int, error)

	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

package attachments

import (
	"context"

	"github.com/dmitrijs2005/docvault/internal/models"
)

// Repository persists attachment rows. It never touches the files.
type Repository interface {
	Create(ctx context.Context, a *models.Attachment) error
	GetByID(ctx context.Context, id string) (*models.Attachment, error)
	ListByDocument(ctx context.Context, documentID string) ([]models.Attachment, error)

	// ListOrphans returns rows with no document.
	ListOrphans(ctx context.Context) ([]models.Attachment, error)
	ListAll(ctx context.Context) ([]models.Attachment, error)

	// Bind sets the owning document; documentID nil makes the row an orphan.
	Bind(ctx context.Context, id string, documentID *string) error

	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

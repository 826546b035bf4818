package fields

import (
	"context"

	"github.com/dmitrijs2005/docvault/internal/models"
)

// Repository persists document fields. ValueCiphertext is stored as given.
type Repository interface {
	// Replace deletes the document's fields and inserts fs in order.
	Replace(ctx context.Context, documentID string, fs []models.FieldRecord) error

	ListByDocument(ctx context.Context, documentID string) ([]models.FieldRecord, error)
	GetByID(ctx context.Context, id string) (*models.FieldRecord, error)
	DeleteAll(ctx context.Context) error
}

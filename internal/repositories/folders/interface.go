package folders

import (
	"context"

	"github.com/dmitrijs2005/docvault/internal/models"
)

// Repository persists the folder tree.
type Repository interface {
	Create(ctx context.Context, f *models.Folder) error
	GetByID(ctx context.Context, id string) (*models.Folder, error)

	// List returns every folder ordered by parent, ord, name.
	List(ctx context.Context) ([]models.Folder, error)

	Rename(ctx context.Context, id, name string) error
	SetParent(ctx context.Context, id string, parentID *string) error

	// ReparentChildren moves every child of from under to.
	ReparentChildren(ctx context.Context, from string, to *string) error

	// NextOrd returns the ord a new child of parentID should get.
	NextOrd(ctx context.Context, parentID *string) (int, error)

	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

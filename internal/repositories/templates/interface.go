package templates

import (
	"context"

	"github.com/dmitrijs2005/docvault/internal/models"
)

// Repository persists templates and their ordered fields.
type Repository interface {
	// Create inserts the template and all of its fields.
	Create(ctx context.Context, t *models.Template) error

	// Update rewrites name and timestamps and replaces the field list.
	Update(ctx context.Context, t *models.Template) error

	// GetByID returns the template with fields, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Template, error)

	// List returns all templates with fields, pinned first by pinned order,
	// then by name.
	List(ctx context.Context) ([]models.Template, error)

	// Delete removes a template; its fields cascade.
	Delete(ctx context.Context, id string) error

	// ListPinnedIDs returns pinned template ids by current pinned order.
	ListPinnedIDs(ctx context.Context) ([]string, error)

	// SetPinnedOrder pins (order != nil) or unpins (order == nil) a template.
	SetPinnedOrder(ctx context.Context, id string, order *int) error

	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

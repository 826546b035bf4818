package store

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/dmitrijs2005/docvault/internal/repositories/attachments"
	"github.com/dmitrijs2005/docvault/internal/repositories/documents"
)

// CreateAttachment registers an imported file. A nil DocumentID leaves it
// as an orphan until BindAttachment or CreateDocument claims it.
func (s *Store) CreateAttachment(ctx context.Context, a models.Attachment) (*models.Attachment, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return attachments.NewSQLiteRepository(tx).Create(ctx, &a)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetAttachment(ctx context.Context, id string) (*models.Attachment, error) {
	return attachments.NewSQLiteRepository(s.db).GetByID(ctx, id)
}

func (s *Store) ListAttachments(ctx context.Context, documentID string) ([]models.Attachment, error) {
	return attachments.NewSQLiteRepository(s.db).ListByDocument(ctx, documentID)
}

func (s *Store) BindAttachment(ctx context.Context, id, documentID string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := documents.NewSQLiteRepository(tx).GetByID(ctx, documentID); err != nil {
			return fmt.Errorf("document[%s]: %w", documentID, err)
		}
		return bindOrphans(ctx, tx, documentID, []string{id})
	})
}

// UnbindAttachment detaches an attachment, turning it into an orphan that
// the next garbage collection removes.
func (s *Store) UnbindAttachment(ctx context.Context, id string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return attachments.NewSQLiteRepository(tx).Bind(ctx, id, nil)
	})
}

// ListOrphans returns attachment rows bound to no document.
func (s *Store) ListOrphans(ctx context.Context) ([]models.Attachment, error) {
	return attachments.NewSQLiteRepository(s.db).ListOrphans(ctx)
}

// ListAllAttachments returns every attachment row.
func (s *Store) ListAllAttachments(ctx context.Context) ([]models.Attachment, error) {
	return attachments.NewSQLiteRepository(s.db).ListAll(ctx)
}

// DeleteAttachmentRow removes an attachment row. The file must already be
// gone.
func (s *Store) DeleteAttachmentRow(ctx context.Context, id string) error {
	return attachments.NewSQLiteRepository(s.db).Delete(ctx, id)
}

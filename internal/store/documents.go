package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/dmitrijs2005/docvault/internal/repositories/attachments"
	"github.com/dmitrijs2005/docvault/internal/repositories/documents"
	"github.com/dmitrijs2005/docvault/internal/repositories/fields"
	"github.com/dmitrijs2005/docvault/internal/repositories/folders"
)

// CreateDocument stores doc with its fields and binds the given orphan
// attachments to it, all in one transaction. A pinned doc is appended to the
// end of the pinned list. The returned document carries the assigned ids.
func (s *Store) CreateDocument(ctx context.Context, doc models.Document, attachmentIDs []string) (*models.Document, error) {
	if strings.TrimSpace(doc.Name) == "" {
		return nil, fmt.Errorf("%w: document name is empty", common.ErrInvalidArgument)
	}

	doc.Fields = append([]models.DocumentField(nil), doc.Fields...)
	now := s.now()
	if doc.ID == "" {
		doc.ID = common.NewID()
	}
	doc.CreatedAt, doc.UpdatedAt = now, now
	doc.PinnedOrder = nil

	rec, err := s.documentRecord(&doc)
	if err != nil {
		return nil, err
	}
	fs, err := s.fieldRecords(&doc)
	if err != nil {
		return nil, err
	}

	err = s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := checkFolder(ctx, tx, doc.FolderID); err != nil {
			return err
		}

		dr := documents.NewSQLiteRepository(tx)
		rec.IsPinned = false
		if err := dr.Create(ctx, rec); err != nil {
			return err
		}
		if err := fields.NewSQLiteRepository(tx).Replace(ctx, doc.ID, fs); err != nil {
			return err
		}
		if err := bindOrphans(ctx, tx, doc.ID, attachmentIDs); err != nil {
			return err
		}
		if doc.IsPinned {
			order, err := pinAtEnd(ctx, documentPins{dr}, doc.ID)
			if err != nil {
				return err
			}
			doc.PinnedOrder = &order
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "document created", "id", doc.ID, "fields", len(fs), "attachments", len(attachmentIDs))
	return &doc, nil
}

// UpdateDocument rewrites name, description, template, folder and replaces
// the field list. Pinning is changed with SetPinned only.
func (s *Store) UpdateDocument(ctx context.Context, doc models.Document) error {
	if strings.TrimSpace(doc.Name) == "" {
		return fmt.Errorf("%w: document name is empty", common.ErrInvalidArgument)
	}

	doc.Fields = append([]models.DocumentField(nil), doc.Fields...)
	doc.UpdatedAt = s.now()
	rec, err := s.documentRecord(&doc)
	if err != nil {
		return err
	}
	fs, err := s.fieldRecords(&doc)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := checkFolder(ctx, tx, doc.FolderID); err != nil {
			return err
		}
		if err := documents.NewSQLiteRepository(tx).Update(ctx, rec); err != nil {
			return err
		}
		return fields.NewSQLiteRepository(tx).Replace(ctx, doc.ID, fs)
	})
}

// GetDocument returns the decrypted document with fields and attachments and
// records the access time.
func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc *models.Document

	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		dr := documents.NewSQLiteRepository(tx)
		if err := dr.TouchOpened(ctx, id, s.now()); err != nil {
			return err
		}

		rec, err := dr.GetByID(ctx, id)
		if err != nil {
			return err
		}
		doc = s.openDocument(ctx, rec)

		frs, err := fields.NewSQLiteRepository(tx).ListByDocument(ctx, id)
		if err != nil {
			return err
		}
		for _, fr := range frs {
			doc.Fields = append(doc.Fields, s.openField(ctx, fr))
		}

		doc.Attachments, err = attachments.NewSQLiteRepository(tx).ListByDocument(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns decrypted documents without fields. A nil folderID
// lists every document.
func (s *Store) ListDocuments(ctx context.Context, folderID *string) ([]models.Document, error) {
	recs, err := documents.NewSQLiteRepository(s.db).List(ctx, folderID)
	if err != nil {
		return nil, err
	}
	return s.openDocuments(ctx, recs), nil
}

// SearchDocuments returns documents whose decrypted name or description
// contains query, case-insensitively. Names are encrypted with random nonces
// so matching happens after decryption.
func (s *Store) SearchDocuments(ctx context.Context, query string) ([]models.Document, error) {
	all, err := s.ListDocuments(ctx, nil)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}

	var out []models.Document
	for _, d := range all {
		if strings.Contains(strings.ToLower(d.Name), q) || strings.Contains(strings.ToLower(d.Description), q) {
			out = append(out, d)
		}
	}
	return out, nil
}

// MoveDocument puts a document into folderID, or at the root when nil.
func (s *Store) MoveDocument(ctx context.Context, id string, folderID *string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := checkFolder(ctx, tx, folderID); err != nil {
			return err
		}
		return documents.NewSQLiteRepository(tx).SetFolder(ctx, id, folderID)
	})
}

// DeleteDocument removes a document and its fields. Its attachments become
// orphans and are reclaimed by the next garbage collection.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		dr := documents.NewSQLiteRepository(tx)
		if err := dr.Delete(ctx, id); err != nil {
			return err
		}
		_, err := normalizePins(ctx, documentPins{dr})
		return err
	})
}

// RevealField decrypts a single field value. Unlike list reads, a damaged
// value is reported as common.ErrIntegrityViolation.
func (s *Store) RevealField(ctx context.Context, fieldID string) (string, error) {
	fr, err := fields.NewSQLiteRepository(s.db).GetByID(ctx, fieldID)
	if err != nil {
		return "", err
	}
	v, err := s.cipher.DecryptString(fr.ValueCiphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt field[%s]: %w", fieldID, err)
	}
	return v, nil
}

func (s *Store) documentRecord(doc *models.Document) (*models.DocumentRecord, error) {
	name, err := s.cipher.EncryptString(doc.Name)
	if err != nil {
		return nil, err
	}
	desc, err := s.cipher.EncryptString(doc.Description)
	if err != nil {
		return nil, err
	}

	return &models.DocumentRecord{
		ID:           doc.ID,
		TemplateID:   doc.TemplateID,
		FolderID:     doc.FolderID,
		Name:         name,
		Description:  desc,
		IsPinned:     doc.IsPinned,
		PinnedOrder:  doc.PinnedOrder,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
		LastOpenedAt: doc.LastOpenedAt,
	}, nil
}

// fieldRecords assigns ids, ords and previews to doc.Fields and encrypts the
// values.
func (s *Store) fieldRecords(doc *models.Document) ([]models.FieldRecord, error) {
	out := make([]models.FieldRecord, 0, len(doc.Fields))
	for i := range doc.Fields {
		f := &doc.Fields[i]
		if f.ID == "" {
			f.ID = common.NewID()
		}
		f.DocumentID = doc.ID
		f.Ord = i
		f.Preview = models.Preview(f.Value, f.IsSecret)

		ct, err := s.cipher.EncryptString(f.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, models.FieldRecord{
			ID:              f.ID,
			DocumentID:      doc.ID,
			Name:            f.Name,
			ValueCiphertext: ct,
			Preview:         f.Preview,
			IsSecret:        f.IsSecret,
			Ord:             f.Ord,
		})
	}
	return out, nil
}

func (s *Store) openDocument(ctx context.Context, rec *models.DocumentRecord) *models.Document {
	return &models.Document{
		ID:           rec.ID,
		TemplateID:   rec.TemplateID,
		FolderID:     rec.FolderID,
		Name:         s.decrypt(ctx, rec.Name, "document.name", rec.ID),
		Description:  s.decrypt(ctx, rec.Description, "document.description", rec.ID),
		IsPinned:     rec.IsPinned,
		PinnedOrder:  rec.PinnedOrder,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
		LastOpenedAt: rec.LastOpenedAt,
	}
}

func (s *Store) openDocuments(ctx context.Context, recs []models.DocumentRecord) []models.Document {
	out := make([]models.Document, 0, len(recs))
	for i := range recs {
		out = append(out, *s.openDocument(ctx, &recs[i]))
	}
	return out
}

func (s *Store) openField(ctx context.Context, fr models.FieldRecord) models.DocumentField {
	return models.DocumentField{
		ID:         fr.ID,
		DocumentID: fr.DocumentID,
		Name:       fr.Name,
		Value:      s.decrypt(ctx, fr.ValueCiphertext, "field.value", fr.ID),
		Preview:    fr.Preview,
		IsSecret:   fr.IsSecret,
		Ord:        fr.Ord,
	}
}

func checkFolder(ctx context.Context, tx dbx.DBTX, folderID *string) error {
	if folderID == nil {
		return nil
	}
	if _, err := folders.NewSQLiteRepository(tx).GetByID(ctx, *folderID); err != nil {
		return fmt.Errorf("folder[%s]: %w", *folderID, err)
	}
	return nil
}

func bindOrphans(ctx context.Context, tx dbx.DBTX, documentID string, ids []string) error {
	ar := attachments.NewSQLiteRepository(tx)
	for _, id := range ids {
		a, err := ar.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !a.IsOrphan() && *a.DocumentID != documentID {
			return fmt.Errorf("%w: attachment[%s] belongs to another document", common.ErrInvalidArgument, id)
		}
		if err := ar.Bind(ctx, id, &documentID); err != nil {
			return err
		}
	}
	return nil
}

// HasDocument reports whether a document exists without touching its
// last-opened time.
func (s *Store) HasDocument(ctx context.Context, id string) (bool, error) {
	_, err := documents.NewSQLiteRepository(s.db).GetByID(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

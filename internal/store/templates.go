package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/dmitrijs2005/docvault/internal/repositories/templates"
)

func (s *Store) CreateTemplate(ctx context.Context, t models.Template) (*models.Template, error) {
	if strings.TrimSpace(t.Name) == "" {
		return nil, fmt.Errorf("%w: template name is empty", common.ErrInvalidArgument)
	}

	now := s.now()
	if t.ID == "" {
		t.ID = common.NewID()
	}
	t.CreatedAt, t.UpdatedAt = now, now
	t.IsPinned, t.PinnedOrder = false, nil
	t.Fields = prepareTemplateFields(t.Fields)

	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return templates.NewSQLiteRepository(tx).Create(ctx, &t)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]models.Template, error) {
	return templates.NewSQLiteRepository(s.db).List(ctx)
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	return templates.NewSQLiteRepository(s.db).GetByID(ctx, id)
}

// UpdateTemplate renames a template and replaces its fields. Documents
// already created from it are unaffected.
func (s *Store) UpdateTemplate(ctx context.Context, t models.Template) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: template name is empty", common.ErrInvalidArgument)
	}
	t.UpdatedAt = s.now()
	t.Fields = prepareTemplateFields(t.Fields)

	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return templates.NewSQLiteRepository(tx).Update(ctx, &t)
	})
}

// DeleteTemplate removes a template and its fields. Documents keep their
// values and lose the template link.
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		tr := templates.NewSQLiteRepository(tx)
		if err := tr.Delete(ctx, id); err != nil {
			return err
		}
		_, err := normalizePins(ctx, templatePins{tr})
		return err
	})
}

func (s *Store) SetTemplatePinned(ctx context.Context, id string, pinned bool) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		tr := templates.NewSQLiteRepository(tx)
		if _, err := tr.GetByID(ctx, id); err != nil {
			return err
		}
		if pinned {
			_, err := pinAtEnd(ctx, templatePins{tr}, id)
			return err
		}
		return unpin(ctx, templatePins{tr}, id)
	})
}

// NewDocumentFromTemplate returns an unsaved document pre-filled with the
// template's fields and empty values.
func (s *Store) NewDocumentFromTemplate(ctx context.Context, templateID string) (*models.Document, error) {
	t, err := s.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{TemplateID: &t.ID, Name: t.Name}
	for _, f := range t.Fields {
		doc.Fields = append(doc.Fields, models.DocumentField{
			Name:     f.Name,
			IsSecret: f.Type.IsSecret(),
			Ord:      f.Ord,
		})
	}
	return doc, nil
}

func prepareTemplateFields(in []models.TemplateField) []models.TemplateField {
	out := make([]models.TemplateField, len(in))
	for i, f := range in {
		if f.ID == "" {
			f.ID = common.NewID()
		}
		if f.Type == "" {
			f.Type = models.FieldText
		}
		f.Ord = i
		out[i] = f
	}
	return out
}

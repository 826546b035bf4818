package store

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/dmitrijs2005/docvault/internal/repositories/attachments"
	"github.com/dmitrijs2005/docvault/internal/repositories/documents"
	"github.com/dmitrijs2005/docvault/internal/repositories/fields"
	"github.com/dmitrijs2005/docvault/internal/repositories/folders"
	"github.com/dmitrijs2005/docvault/internal/repositories/templates"
)

// Dump is a decrypted copy of the whole vault. Documents carry their fields
// and attachments.
type Dump struct {
	Templates []models.Template
	Folders   []models.Folder
	Documents []models.Document
}

// Dump reads every table. The reads are not one transaction, so the result
// may lag writes made while it runs.
func (s *Store) Dump(ctx context.Context) (*Dump, error) {
	tpls, err := templates.NewSQLiteRepository(s.db).List(ctx)
	if err != nil {
		return nil, err
	}
	fls, err := folders.NewSQLiteRepository(s.db).List(ctx)
	if err != nil {
		return nil, err
	}
	recs, err := documents.NewSQLiteRepository(s.db).List(ctx, nil)
	if err != nil {
		return nil, err
	}

	fr := fields.NewSQLiteRepository(s.db)
	ar := attachments.NewSQLiteRepository(s.db)

	docs := make([]models.Document, 0, len(recs))
	for i := range recs {
		doc := s.openDocument(ctx, &recs[i])

		frs, err := fr.ListByDocument(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		for _, f := range frs {
			doc.Fields = append(doc.Fields, s.openField(ctx, f))
		}

		if doc.Attachments, err = ar.ListByDocument(ctx, doc.ID); err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	return &Dump{Templates: tpls, Folders: fls, Documents: docs}, nil
}

// ReplaceAll deletes every folder, document, field and attachment row and
// inserts d in one transaction. Templates are replaced only when d carries
// any; a document pointing at an unknown template or folder loses the link.
// Attachment rows are inserted as given, so their paths must already point
// at the final files.
func (s *Store) ReplaceAll(ctx context.Context, d *Dump) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		ar := attachments.NewSQLiteRepository(tx)
		fr := fields.NewSQLiteRepository(tx)
		dr := documents.NewSQLiteRepository(tx)
		flr := folders.NewSQLiteRepository(tx)
		tr := templates.NewSQLiteRepository(tx)

		for _, del := range []func(context.Context) error{ar.DeleteAll, fr.DeleteAll, dr.DeleteAll, flr.DeleteAll} {
			if err := del(ctx); err != nil {
				return err
			}
		}

		if len(d.Templates) > 0 {
			if err := tr.DeleteAll(ctx); err != nil {
				return err
			}
			for i := range d.Templates {
				t := d.Templates[i]
				t.IsPinned = t.PinnedOrder != nil
				if err := tr.Create(ctx, &t); err != nil {
					return err
				}
			}
		}
		if _, err := normalizePins(ctx, templatePins{tr}); err != nil {
			return err
		}

		known := make(map[string]bool)
		for _, f := range orderFolders(d.Folders) {
			if f.ParentID != nil && !known[*f.ParentID] {
				f.ParentID = nil
			}
			if err := flr.Create(ctx, &f); err != nil {
				return err
			}
			known[f.ID] = true
		}

		tplIDs, err := templateIDs(ctx, tr)
		if err != nil {
			return err
		}

		now := s.now()
		for i := range d.Documents {
			doc := d.Documents[i]
			if doc.FolderID != nil && !known[*doc.FolderID] {
				doc.FolderID = nil
			}
			if doc.TemplateID != nil && !tplIDs[*doc.TemplateID] {
				doc.TemplateID = nil
			}
			if doc.CreatedAt.IsZero() {
				doc.CreatedAt = now
			}
			if doc.UpdatedAt.IsZero() {
				doc.UpdatedAt = doc.CreatedAt
			}
			doc.IsPinned = doc.PinnedOrder != nil
			doc.Fields = append([]models.DocumentField(nil), doc.Fields...)

			rec, err := s.documentRecord(&doc)
			if err != nil {
				return err
			}
			frs, err := s.fieldRecords(&doc)
			if err != nil {
				return err
			}

			if err := dr.Create(ctx, rec); err != nil {
				return err
			}
			if err := fr.Replace(ctx, doc.ID, frs); err != nil {
				return err
			}
			for _, a := range doc.Attachments {
				id := doc.ID
				a.DocumentID = &id
				if err := ar.Create(ctx, &a); err != nil {
					return fmt.Errorf("document[%s]: %w", doc.ID, err)
				}
			}
		}

		_, err = normalizePins(ctx, documentPins{dr})
		return err
	})
}

// orderFolders returns parents before their children. Folders whose parent
// is missing, or that sit on a cycle, come last and are made roots by the
// caller.
func orderFolders(in []models.Folder) []models.Folder {
	byParent := make(map[string][]models.Folder)
	ids := make(map[string]bool, len(in))
	for _, f := range in {
		ids[f.ID] = true
	}

	var out []models.Folder
	var pending []models.Folder
	for _, f := range in {
		switch {
		case f.ParentID == nil:
			out = append(out, f)
		case ids[*f.ParentID]:
			byParent[*f.ParentID] = append(byParent[*f.ParentID], f)
		default:
			pending = append(pending, f)
		}
	}

	for i := 0; i < len(out); i++ {
		out = append(out, byParent[out[i].ID]...)
		delete(byParent, out[i].ID)
	}
	for _, rest := range byParent {
		pending = append(pending, rest...)
	}
	return append(out, pending...)
}

func templateIDs(ctx context.Context, tr *templates.SQLiteRepository) (map[string]bool, error) {
	list, err := tr.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(list))
	for _, t := range list {
		out[t.ID] = true
	}
	return out, nil
}

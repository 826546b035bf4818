package store

import (
	"context"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/dmitrijs2005/docvault/internal/repositories/folders"
	"github.com/dmitrijs2005/docvault/internal/repositories/templates"
)

type seedField struct {
	name string
	typ  models.FieldType
}

var defaultTemplates = []struct {
	name   string
	fields []seedField
}{
	{"Passport", []seedField{
		{"Full name", models.FieldText},
		{"Number", models.FieldSecret},
		{"Nationality", models.FieldText},
		{"Date of birth", models.FieldDate},
		{"Issued", models.FieldDate},
		{"Expires", models.FieldDate},
	}},
	{"ID card", []seedField{
		{"Full name", models.FieldText},
		{"Number", models.FieldSecret},
		{"Personal code", models.FieldSecret},
		{"Expires", models.FieldDate},
	}},
	{"Bank card", []seedField{
		{"Cardholder", models.FieldText},
		{"Card number", models.FieldSecret},
		{"Expires", models.FieldText},
		{"CVV", models.FieldSecret},
		{"PIN", models.FieldSecret},
	}},
	{"Note", []seedField{
		{"Text", models.FieldMultiline},
	}},
}

var defaultFolders = []string{"Personal", "Family", "Work"}

func seed(ctx context.Context, tx dbx.DBTX, now time.Time) error {
	tr := templates.NewSQLiteRepository(tx)
	for _, dt := range defaultTemplates {
		t := &models.Template{ID: common.NewID(), Name: dt.name, CreatedAt: now, UpdatedAt: now}
		for i, f := range dt.fields {
			t.Fields = append(t.Fields, models.TemplateField{ID: common.NewID(), Name: f.name, Type: f.typ, Ord: i})
		}
		if err := tr.Create(ctx, t); err != nil {
			return err
		}
	}

	fr := folders.NewSQLiteRepository(tx)
	for i, name := range defaultFolders {
		if err := fr.Create(ctx, &models.Folder{ID: common.NewID(), Name: name, Ord: i}); err != nil {
			return err
		}
	}
	return nil
}

package templates

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/dmitrijs2005/docvault/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passport(id string) *models.Template {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Template{
		ID:        id,
		Name:      "Passport",
		CreatedAt: now,
		UpdatedAt: now,
		Fields: []models.TemplateField{
			{ID: id + "-f1", Name: "Number", Type: models.FieldText, Ord: 0},
			{ID: id + "-f2", Name: "Expires", Type: models.FieldDate, Ord: 1},
		},
	}
}

func TestTemplates_CreateGetList(t *testing.T) {
	ctx := context.Background()
	r := NewSQLiteRepository(testutil.OpenDB(t))

	require.NoError(t, r.Create(ctx, passport("t1")))

	got, err := r.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Passport", got.Name)
	require.Len(t, got.Fields, 2)
	assert.Equal(t, "Number", got.Fields[0].Name)
	assert.Equal(t, models.FieldDate, got.Fields[1].Type)
	assert.Equal(t, "t1", got.Fields[1].TemplateID)

	_, err = r.GetByID(ctx, "missing")
	require.ErrorIs(t, err, common.ErrNotFound)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTemplates_UpdateReplacesFields(t *testing.T) {
	ctx := context.Background()
	r := NewSQLiteRepository(testutil.OpenDB(t))

	tpl := passport("t1")
	require.NoError(t, r.Create(ctx, tpl))

	tpl.Name = "Passport (EU)"
	tpl.Fields = []models.TemplateField{{ID: "new", Name: "MRZ", Type: models.FieldMultiline}}
	require.NoError(t, r.Update(ctx, tpl))

	got, err := r.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Passport (EU)", got.Name)
	require.Len(t, got.Fields, 1)
	assert.Equal(t, "MRZ", got.Fields[0].Name)

	require.ErrorIs(t, r.Update(ctx, passport("nope")), common.ErrNotFound)
}

func TestTemplates_DeleteCascadesFields(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	r := NewSQLiteRepository(db)

	require.NoError(t, r.Create(ctx, passport("t1")))
	require.NoError(t, r.Delete(ctx, "t1"))

	var n int
	require.NoError(t, db.QueryRow(`select count(*) from template_fields`).Scan(&n))
	assert.Equal(t, 0, n)

	require.ErrorIs(t, r.Delete(ctx, "t1"), common.ErrNotFound)
}

func TestTemplates_Pinning(t *testing.T) {
	ctx := context.Background()
	r := NewSQLiteRepository(testutil.OpenDB(t))

	a, b := passport("a"), passport("b")
	b.Name = "Bank card"
	require.NoError(t, r.Create(ctx, a))
	require.NoError(t, r.Create(ctx, b))

	one, two := 1, 2
	require.NoError(t, r.SetPinnedOrder(ctx, "b", &one))
	require.NoError(t, r.SetPinnedOrder(ctx, "a", &two))

	ids, err := r.ListPinnedIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids)

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.True(t, list[0].IsPinned)
	assert.Len(t, list[1].Fields, 2)

	require.NoError(t, r.SetPinnedOrder(ctx, "b", nil))
	ids, err = r.ListPinnedIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)

	require.NoError(t, r.DeleteAll(ctx))
	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

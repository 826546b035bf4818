package fields

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/dmitrijs2005/docvault/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields_ReplaceAndList(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	_, err := db.Exec(`insert into documents (id, created_at, updated_at) values ('d1', 1, 1)`)
	require.NoError(t, err)

	r := NewSQLiteRepository(db)

	require.NoError(t, r.Replace(ctx, "d1", []models.FieldRecord{
		{ID: "f2", Name: "Expires", ValueCiphertext: []byte{2}, Preview: "2030", Ord: 1},
		{ID: "f1", Name: "Number", ValueCiphertext: []byte{1}, Preview: "••••4567", IsSecret: true, Ord: 0},
	}))

	list, err := r.ListByDocument(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Number", list[0].Name)
	assert.True(t, list[0].IsSecret)
	assert.Equal(t, "d1", list[0].DocumentID)
	assert.Equal(t, []byte{2}, list[1].ValueCiphertext)

	require.NoError(t, r.Replace(ctx, "d1", []models.FieldRecord{{ID: "f3", Name: "Note", Ord: 0}}))
	list, err = r.ListByDocument(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].ValueCiphertext)

	got, err := r.GetByID(ctx, "f3")
	require.NoError(t, err)
	assert.Equal(t, "Note", got.Name)

	_, err = r.GetByID(ctx, "f1")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestFields_ReplaceUnknownDocumentFails(t *testing.T) {
	r := NewSQLiteRepository(testutil.OpenDB(t))

	err := r.Replace(context.Background(), "ghost", []models.FieldRecord{{ID: "f", Name: "n"}})
	require.Error(t, err)
}

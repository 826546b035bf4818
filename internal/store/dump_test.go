package store

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpReplaceAll_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src, _, _ := openTestStore(t)

	travel, err := src.CreateFolder(ctx, "Travel", nil)
	require.NoError(t, err)
	visas, err := src.CreateFolder(ctx, "Visas", &travel.ID)
	require.NoError(t, err)

	att, err := src.CreateAttachment(ctx, models.Attachment{
		ID: common.NewID(), Name: "visa.jpg", Mime: "image/jpeg", Size: 10, SHA256: "h", Path: "/a/visa.jpg",
	})
	require.NoError(t, err)

	d := docNamed("Visa")
	d.FolderID = &visas.ID
	d.IsPinned = true
	visa, err := src.CreateDocument(ctx, d, []string{att.ID})
	require.NoError(t, err)
	_, err = src.CreateDocument(ctx, docNamed("Note"), nil)
	require.NoError(t, err)

	dump, err := src.Dump(ctx)
	require.NoError(t, err)
	require.Len(t, dump.Documents, 2)

	dst, _, _ := openTestStore(t)
	_, err = dst.CreateDocument(ctx, docNamed("Will be replaced"), nil)
	require.NoError(t, err)

	require.NoError(t, dst.ReplaceAll(ctx, dump))

	docs, err := dst.ListDocuments(ctx, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	got, err := dst.GetDocument(ctx, visa.ID)
	require.NoError(t, err)
	assert.Equal(t, "Visa", got.Name)
	assert.Equal(t, visas.ID, *got.FolderID)
	assert.True(t, got.IsPinned)
	assert.Equal(t, 1, *got.PinnedOrder)
	require.Len(t, got.Fields, 2)
	assert.Equal(t, "AB1234567", got.Fields[0].Value)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "visa.jpg", got.Attachments[0].Name)

	fls, err := dst.ListFolders(ctx)
	require.NoError(t, err)
	assert.Len(t, fls, len(defaultFolders)+2)

	tpls, err := dst.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, tpls, len(defaultTemplates))
}

func TestReplaceAll_DropsDanglingLinks(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	ghostFolder, ghostTpl, parent := "nope", "nope", "missing-parent"
	dump := &Dump{
		Folders: []models.Folder{
			{ID: "child", ParentID: &parent, Name: "Child"},
			{ID: "root", Name: "Root"},
		},
		Documents: []models.Document{
			{ID: "d1", Name: "Doc", FolderID: &ghostFolder, TemplateID: &ghostTpl},
		},
	}
	require.NoError(t, s.ReplaceAll(ctx, dump))

	child, err := s.GetFolder(ctx, "child")
	require.NoError(t, err)
	assert.Nil(t, child.ParentID)

	doc, err := s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Nil(t, doc.FolderID)
	assert.Nil(t, doc.TemplateID)
	assert.False(t, doc.CreatedAt.IsZero())
}

func TestOrderFolders_ParentsFirst(t *testing.T) {
	a, b := "a", "b"
	in := []models.Folder{
		{ID: "c", ParentID: &b},
		{ID: "b", ParentID: &a},
		{ID: "a"},
	}

	out := orderFolders(in)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{out[0].ID, out[1].ID, out[2].ID})
}

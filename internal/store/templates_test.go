package store

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	tpl, err := s.CreateTemplate(ctx, models.Template{
		Name: "Driver licence",
		Fields: []models.TemplateField{
			{Name: "Number", Type: models.FieldSecret},
			{Name: "Categories"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.FieldText, tpl.Fields[1].Type)
	assert.Equal(t, 1, tpl.Fields[1].Ord)

	tpl.Name = "Driving licence"
	tpl.Fields = tpl.Fields[:1]
	require.NoError(t, s.UpdateTemplate(ctx, *tpl))

	got, err := s.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Driving licence", got.Name)
	assert.Len(t, got.Fields, 1)

	_, err = s.CreateTemplate(ctx, models.Template{})
	require.ErrorIs(t, err, common.ErrInvalidArgument)

	require.NoError(t, s.DeleteTemplate(ctx, tpl.ID))
	_, err = s.GetTemplate(ctx, tpl.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestTemplates_PinningOrder(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	tpls, err := s.ListTemplates(ctx)
	require.NoError(t, err)

	require.NoError(t, s.SetTemplatePinned(ctx, tpls[2].ID, true))
	require.NoError(t, s.SetTemplatePinned(ctx, tpls[0].ID, true))

	list, err := s.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Equal(t, tpls[2].ID, list[0].ID)
	assert.Equal(t, 1, *list[0].PinnedOrder)
	assert.Equal(t, tpls[0].ID, list[1].ID)

	require.NoError(t, s.SetTemplatePinned(ctx, tpls[2].ID, false))
	list, err = s.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Equal(t, tpls[0].ID, list[0].ID)
	assert.Equal(t, 1, *list[0].PinnedOrder)
}

func TestNewDocumentFromTemplate(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	tpls, err := s.ListTemplates(ctx)
	require.NoError(t, err)

	var card models.Template
	for _, tpl := range tpls {
		if tpl.Name == "Bank card" {
			card = tpl
		}
	}
	require.NotEmpty(t, card.ID)

	doc, err := s.NewDocumentFromTemplate(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.ID, *doc.TemplateID)
	require.Len(t, doc.Fields, len(card.Fields))
	assert.Equal(t, "Card number", doc.Fields[1].Name)
	assert.True(t, doc.Fields[1].IsSecret)
	assert.False(t, doc.Fields[0].IsSecret)

	doc.Fields[1].Value = "4111111111111111"
	saved, err := s.CreateDocument(ctx, *doc, nil)
	require.NoError(t, err)
	assert.Equal(t, "••••1111", saved.Fields[1].Preview)

	_, err = s.NewDocumentFromTemplate(ctx, "ghost")
	require.ErrorIs(t, err, common.ErrNotFound)
}

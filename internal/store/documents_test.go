package store

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docNamed(name string) models.Document {
	return models.Document{
		Name:        name,
		Description: "main " + name,
		Fields: []models.DocumentField{
			{Name: "Number", Value: "AB1234567", IsSecret: true},
			{Name: "Country", Value: "Latvia"},
		},
	}
}

func TestDocuments_EncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	doc, err := s.CreateDocument(ctx, docNamed("Passport"), nil)
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)

	var name, value []byte
	var preview string
	require.NoError(t, s.db.QueryRow(`select name from documents where id = ?`, doc.ID).Scan(&name))
	require.NoError(t, s.db.QueryRow(`select value, preview from document_fields where document_id = ? and ord = 0`, doc.ID).Scan(&value, &preview))

	assert.NotContains(t, string(name), "Passport")
	assert.NotContains(t, string(value), "AB1234567")
	assert.Equal(t, "••••4567", preview)
}

func TestDocuments_CreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	fls, err := s.ListFolders(ctx)
	require.NoError(t, err)
	folderID := fls[0].ID

	in := docNamed("Passport")
	in.FolderID = &folderID
	created, err := s.CreateDocument(ctx, in, nil)
	require.NoError(t, err)
	assert.Empty(t, in.Fields[0].ID, "caller's fields are not mutated")

	got, err := s.GetDocument(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Passport", got.Name)
	assert.Equal(t, "main Passport", got.Description)
	require.Len(t, got.Fields, 2)
	assert.Equal(t, "AB1234567", got.Fields[0].Value)
	assert.Equal(t, "Latvia", got.Fields[1].Value)
	assert.Equal(t, "Lat…", got.Fields[1].Preview)
	assert.False(t, got.LastOpenedAt.IsZero())

	got.Name = "Passport (old)"
	got.Fields = append(got.Fields[:1], models.DocumentField{Name: "Issued by", Value: "PMLP"})
	require.NoError(t, s.UpdateDocument(ctx, *got))

	again, err := s.GetDocument(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Passport (old)", again.Name)
	require.Len(t, again.Fields, 2)
	assert.Equal(t, "Issued by", again.Fields[1].Name)

	value, err := s.RevealField(ctx, again.Fields[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "AB1234567", value)

	_, err = s.GetDocument(ctx, "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestDocuments_Validation(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	_, err := s.CreateDocument(ctx, models.Document{Name: "  "}, nil)
	require.ErrorIs(t, err, common.ErrInvalidArgument)

	ghost := "ghost"
	d := docNamed("x")
	d.FolderID = &ghost
	_, err = s.CreateDocument(ctx, d, nil)
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = s.CreateDocument(ctx, docNamed("y"), []string{"no-such-attachment"})
	require.ErrorIs(t, err, common.ErrNotFound)

	docs, err := s.ListDocuments(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, docs, "failed creates leave nothing behind")
}

func TestDocuments_CorruptFieldReadsEmpty(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	doc, err := s.CreateDocument(ctx, docNamed("Passport"), nil)
	require.NoError(t, err)

	_, err = s.db.Exec(`update document_fields set value = x'00112233445566778899aabbccddeeff00112233445566778899' where document_id = ? and ord = 0`, doc.ID)
	require.NoError(t, err)

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err, "a damaged field must not make the document unreadable")
	assert.Equal(t, "", got.Fields[0].Value)
	assert.Equal(t, "Latvia", got.Fields[1].Value)

	_, err = s.RevealField(ctx, got.Fields[0].ID)
	require.ErrorIs(t, err, common.ErrIntegrityViolation)
}

func TestDocuments_SearchMoveDelete(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	a, err := s.CreateDocument(ctx, docNamed("Passport"), nil)
	require.NoError(t, err)
	_, err = s.CreateDocument(ctx, docNamed("Bank card"), nil)
	require.NoError(t, err)

	found, err := s.SearchDocuments(ctx, "PASS")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.ID, found[0].ID)

	found, err = s.SearchDocuments(ctx, "main")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	f, err := s.CreateFolder(ctx, "Travel", nil)
	require.NoError(t, err)
	require.NoError(t, s.MoveDocument(ctx, a.ID, &f.ID))

	inFolder, err := s.ListDocuments(ctx, &f.ID)
	require.NoError(t, err)
	require.Len(t, inFolder, 1)

	require.NoError(t, s.DeleteDocument(ctx, a.ID))
	require.ErrorIs(t, s.DeleteDocument(ctx, a.ID), common.ErrNotFound)

	var n int
	require.NoError(t, s.db.QueryRow(`select count(*) from document_fields where document_id = ?`, a.ID).Scan(&n))
	assert.Zero(t, n)
}

func TestDocuments_AttachmentsBindAndOrphan(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	att, err := s.CreateAttachment(ctx, models.Attachment{
		ID: common.NewID(), Name: "scan.pdf", Mime: "application/pdf", Size: 3, SHA256: "abc", Path: "/tmp/scan.pdf",
	})
	require.NoError(t, err)

	orphans, err := s.ListOrphans(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)

	doc, err := s.CreateDocument(ctx, docNamed("Passport"), []string{att.ID})
	require.NoError(t, err)

	orphans, err = s.ListOrphans(ctx)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "scan.pdf", got.Attachments[0].Name)

	other, err := s.CreateDocument(ctx, docNamed("Other"), nil)
	require.NoError(t, err)
	require.ErrorIs(t, s.BindAttachment(ctx, att.ID, other.ID), common.ErrInvalidArgument)

	require.NoError(t, s.UnbindAttachment(ctx, att.ID))
	require.NoError(t, s.BindAttachment(ctx, att.ID, other.ID))

	require.NoError(t, s.DeleteDocument(ctx, other.ID))
	orphans, err = s.ListOrphans(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, att.ID, orphans[0].ID)

	require.NoError(t, s.DeleteAttachmentRow(ctx, att.ID))
	all, err := s.ListAllAttachments(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func pinnedOrders(t *testing.T, s *Store) []int {
	t.Helper()
	docs, err := s.ListDocuments(context.Background(), nil)
	require.NoError(t, err)

	var orders []int
	for _, d := range docs {
		if d.IsPinned {
			require.NotNil(t, d.PinnedOrder)
			orders = append(orders, *d.PinnedOrder)
		} else {
			require.Nil(t, d.PinnedOrder)
		}
	}
	sort.Ints(orders)
	return orders
}

func pinnedIDs(t *testing.T, s *Store) []string {
	t.Helper()
	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, d := range snap.Home {
		if d.IsPinned {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

func TestPinned_OrderStaysDense(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	var ids []string
	for i := 0; i < 6; i++ {
		d, err := s.CreateDocument(ctx, docNamed(string(rune('A'+i))), nil)
		require.NoError(t, err)
		ids = append(ids, d.ID)
	}

	rnd := rand.New(rand.NewSource(7))
	for step := 0; step < 200; step++ {
		id := ids[rnd.Intn(len(ids))]
		switch rnd.Intn(4) {
		case 0, 1:
			require.NoError(t, s.SetPinned(ctx, id, true))
		case 2:
			require.NoError(t, s.SetPinned(ctx, id, false))
		case 3:
			other := ids[rnd.Intn(len(ids))]
			err := s.SwapPinned(ctx, id, other)
			if err != nil {
				require.ErrorIs(t, err, common.ErrInvalidArgument)
			}
		}

		orders := pinnedOrders(t, s)
		for i, o := range orders {
			require.Equal(t, i+1, o, "step %d: orders %v", step, orders)
		}
	}
}

func TestPinned_SwapTwiceRestores(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	var ids []string
	for _, name := range []string{"A", "B", "C"} {
		d := docNamed(name)
		d.IsPinned = true
		created, err := s.CreateDocument(ctx, d, nil)
		require.NoError(t, err)
		require.NotNil(t, created.PinnedOrder)
		ids = append(ids, created.ID)
	}
	require.Equal(t, ids, pinnedIDs(t, s))

	require.NoError(t, s.SwapPinned(ctx, ids[0], ids[2]))
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, pinnedIDs(t, s))

	require.NoError(t, s.SwapPinned(ctx, ids[0], ids[2]))
	assert.Equal(t, ids, pinnedIDs(t, s))
}

func TestPinned_SwapRepairsDrift(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	var ids []string
	for _, name := range []string{"A", "B", "C"} {
		d, err := s.CreateDocument(ctx, docNamed(name), nil)
		require.NoError(t, err)
		require.NoError(t, s.SetPinned(ctx, d.ID, true))
		ids = append(ids, d.ID)
	}

	_, err := s.db.Exec(`update documents set pinned_order = pinned_order * 10 where is_pinned = 1`)
	require.NoError(t, err)

	require.NoError(t, s.SwapPinned(ctx, ids[1], ids[2]))
	assert.Equal(t, []int{1, 2, 3}, pinnedOrders(t, s))
	assert.Equal(t, []string{ids[0], ids[2], ids[1]}, pinnedIDs(t, s))
}

func TestPinned_SwapRequiresPinned(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	a, err := s.CreateDocument(ctx, docNamed("A"), nil)
	require.NoError(t, err)
	b, err := s.CreateDocument(ctx, docNamed("B"), nil)
	require.NoError(t, err)
	require.NoError(t, s.SetPinned(ctx, a.ID, true))

	require.ErrorIs(t, s.SwapPinned(ctx, a.ID, b.ID), common.ErrInvalidArgument)
	require.ErrorIs(t, s.SetPinned(ctx, "ghost", true), common.ErrNotFound)
}

func TestPinned_DeleteKeepsOrdersDense(t *testing.T) {
	ctx := context.Background()
	s, _, _ := openTestStore(t)

	var ids []string
	for _, name := range []string{"A", "B", "C"} {
		d := docNamed(name)
		d.IsPinned = true
		created, err := s.CreateDocument(ctx, d, nil)
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	require.NoError(t, s.DeleteDocument(ctx, ids[0]))
	assert.Equal(t, []int{1, 2}, pinnedOrders(t, s))
}

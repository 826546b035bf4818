package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/docvault/internal/attachments"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/dmitrijs2005/docvault/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bytesSource(name, data string) attachments.Source {
	return attachments.BytesSource{FileName: name, Data: []byte(data)}
}

func openVault(t *testing.T) *Vault {
	t.Helper()
	s := newTestSession(t, t.TempDir(), secrets.NewMemoryStore())
	v, err := s.Open(context.Background(), []byte("1234"), true)
	require.NoError(t, err)
	return v
}

func TestVault_ImportAndOpenAttachment(t *testing.T) {
	ctx := context.Background()
	v := openVault(t)

	doc, err := v.CreateDocument(ctx, models.Document{Name: "Visa"}, nil)
	require.NoError(t, err)

	a, err := v.ImportAttachment(ctx, bytesSource("visa.txt", "entry permit"), &doc.ID)
	require.NoError(t, err)
	require.NotNil(t, a.DocumentID)
	assert.Equal(t, doc.ID, *a.DocumentID)
	assert.Equal(t, int64(12), a.Size)

	got, rc, err := v.OpenAttachment(ctx, a.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "entry permit", string(data))
	assert.Equal(t, a.SHA256, got.SHA256)

	list, err := v.ListAttachments(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestVault_ImportAttachmentUnknownDocument(t *testing.T) {
	ctx := context.Background()
	v := openVault(t)
	missing := "no-such-document"

	_, err := v.ImportAttachment(ctx, bytesSource("a.txt", "a"), &missing)
	require.ErrorIs(t, err, common.ErrNotFound)

	entries, err := os.ReadDir(v.Files().Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestVault_CollectGarbageAndVerify(t *testing.T) {
	ctx := context.Background()
	v := openVault(t)

	doc, err := v.CreateDocument(ctx, models.Document{Name: "Bill"}, nil)
	require.NoError(t, err)
	kept, err := v.ImportAttachment(ctx, bytesSource("bill.txt", "same"), &doc.ID)
	require.NoError(t, err)
	dropped, err := v.ImportAttachment(ctx, bytesSource("bill.txt", "same"), nil)
	require.NoError(t, err)
	assert.NotEqual(t, kept.Path, dropped.Path)

	rep, err := v.Verify(ctx, false, true)
	require.NoError(t, err)
	assert.True(t, rep.OK())
	assert.Equal(t, 2, rep.Checked)

	res, err := v.CollectGarbage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Orphans)
	assert.Equal(t, res.DeletedFiles, res.DeletedRecords)
	assert.Empty(t, res.Failures)

	_, err = os.Stat(dropped.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(kept.Path)
	assert.NoError(t, err)

	require.NoError(t, v.UnbindAttachment(ctx, kept.ID))
	rep, err = v.Verify(ctx, true, false)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Checked)
}

func TestVault_DeleteAttachment(t *testing.T) {
	ctx := context.Background()
	v := openVault(t)

	a, err := v.ImportAttachment(ctx, bytesSource("x.txt", "x"), nil)
	require.NoError(t, err)
	require.NoError(t, v.DeleteAttachment(ctx, a.ID))

	_, err = v.GetAttachment(ctx, a.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = os.Stat(a.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestVault_DeleteAttachmentKeepsRowWhenFileStays(t *testing.T) {
	ctx := context.Background()
	v := openVault(t)

	a, err := v.ImportAttachment(ctx, bytesSource("scan.pdf", "pages"), nil)
	require.NoError(t, err)

	// A non-empty directory in place of the file makes removal fail.
	require.NoError(t, os.Remove(a.Path))
	require.NoError(t, os.Mkdir(a.Path, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(a.Path, "inner"), []byte("x"), 0o600))

	err = v.DeleteAttachment(ctx, a.ID)
	require.ErrorIs(t, err, common.ErrTransactionFailed)

	got, err := v.GetAttachment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Path, got.Path)
}

func TestVault_BackupBetweenVaults(t *testing.T) {
	ctx := context.Background()
	src := openVault(t)

	doc, err := src.CreateDocument(ctx, models.Document{
		Name:   "ID card",
		Fields: []models.DocumentField{{Name: "Personal code", Value: "010190-12345", IsSecret: true}},
	}, nil)
	require.NoError(t, err)
	_, err = src.ImportAttachment(ctx, bytesSource("front.jpg", "front side"), &doc.ID)
	require.NoError(t, err)

	out, err := src.ExportBackup(ctx, t.TempDir(), "pw")
	require.NoError(t, err)

	dst := openVault(t)
	_, err = dst.ImportBackup(ctx, out.Path, "nope")
	require.ErrorIs(t, err, common.ErrPasswordRequired)

	info, err := dst.InspectBackup(ctx, out.Path, "pw")
	require.NoError(t, err)
	assert.Equal(t, 1, info.Documents)

	res, err := dst.ImportBackup(ctx, out.Path, "pw")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attachments)

	got, err := dst.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "010190-12345", got.Fields[0].Value)
	require.Len(t, got.Attachments, 1)

	_, rc, err := dst.OpenAttachment(ctx, got.Attachments[0].ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "front side", string(data))
}

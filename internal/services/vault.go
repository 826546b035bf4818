package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/docvault/internal/attachments"
	"github.com/dmitrijs2005/docvault/internal/backup"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/dmitrijs2005/docvault/internal/store"
)

// UntrackedGrace is how old a file with no row must be before GC removes
// it. Younger files may belong to an import still in progress.
const UntrackedGrace = time.Hour

// Vault is the handle of an unlocked vault. The embedded store provides
// templates, folders, documents and observers; Vault adds the operations
// that also touch attachment files or archives.
type Vault struct {
	*store.Store
	files   *attachments.Store
	backups *backup.Manager
	logger  logging.Logger
}

func newVault(st *store.Store, files *attachments.Store, backups *backup.Manager, logger logging.Logger) *Vault {
	return &Vault{Store: st, files: files, backups: backups, logger: logger.With("component", "vault")}
}

func (v *Vault) Files() *attachments.Store { return v.files }

// ImportAttachment copies src into the attachments directory and registers
// it. With a nil documentID the attachment stays an orphan until bound.
func (v *Vault) ImportAttachment(ctx context.Context, src attachments.Source, documentID *string) (*models.Attachment, error) {
	if documentID != nil {
		ok, err := v.HasDocument(ctx, *documentID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("document[%s]: %w", *documentID, common.ErrNotFound)
		}
	}

	imp, err := v.files.ImportFrom(ctx, src)
	if err != nil {
		return nil, err
	}

	a, err := v.CreateAttachment(ctx, models.Attachment{
		ID:     common.NewID(),
		Name:   imp.Name,
		Mime:   imp.Mime,
		Size:   imp.Size,
		SHA256: imp.SHA256,
		Path:   imp.Path,
		URI:    imp.URI,
	})
	if err != nil {
		v.files.DeletePhysical(ctx, models.Attachment{Path: imp.Path})
		return nil, fmt.Errorf("failed to register attachment: %w", err)
	}

	if documentID != nil {
		if err := v.BindAttachment(ctx, a.ID, *documentID); err != nil {
			// The orphan row and file are left for GC.
			return nil, err
		}
		a.DocumentID = documentID
	}
	return a, nil
}

// OpenAttachment returns the attachment row and a reader over its file.
func (v *Vault) OpenAttachment(ctx context.Context, id string) (*models.Attachment, io.ReadCloser, error) {
	a, err := v.GetAttachment(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := v.files.Retrieve(*a)
	if err != nil {
		return nil, nil, err
	}
	return a, rc, nil
}

// DeleteAttachment removes an attachment's file and then its row. The row
// is kept when the file cannot be removed.
func (v *Vault) DeleteAttachment(ctx context.Context, id string) error {
	a, err := v.GetAttachment(ctx, id)
	if err != nil {
		return err
	}
	if !v.files.DeletePhysical(ctx, *a) {
		return fmt.Errorf("%w: file of attachment %s could not be removed", common.ErrTransactionFailed, id)
	}
	return v.DeleteAttachmentRow(ctx, id)
}

// GCReport combines the orphan sweep with the untracked-file sweep.
type GCReport struct {
	*attachments.GCResult
	Untracked int
}

// CollectGarbage deletes orphan attachments and files no row refers to.
func (v *Vault) CollectGarbage(ctx context.Context) (*GCReport, error) {
	res, err := v.files.CleanupOrphans(ctx, v.Store)
	if err != nil {
		return nil, err
	}
	n, err := v.files.CleanupUntracked(ctx, v.Store, UntrackedGrace)
	if err != nil {
		return nil, err
	}
	v.logger.Info(ctx, "gc finished", "orphans", res.Orphans, "files", res.DeletedFiles,
		"rows", res.DeletedRecords, "failures", len(res.Failures), "untracked", n)
	return &GCReport{GCResult: res, Untracked: n}, nil
}

// Verify audits attachment rows against their files. With orphansOnly set
// only orphan rows are checked.
func (v *Vault) Verify(ctx context.Context, orphansOnly, hashes bool) (*attachments.IntegrityReport, error) {
	var (
		rows []models.Attachment
		err  error
	)
	if orphansOnly {
		rows, err = v.ListOrphans(ctx)
	} else {
		rows, err = v.ListAllAttachments(ctx)
	}
	if err != nil {
		return nil, err
	}
	return v.files.ValidateIntegrity(ctx, rows, hashes)
}

func (v *Vault) ExportBackup(ctx context.Context, destDir, password string) (*backup.ExportResult, error) {
	return v.backups.Export(ctx, destDir, password)
}

// ImportBackup replaces the vault contents with the archive at path.
func (v *Vault) ImportBackup(ctx context.Context, path, password string) (*backup.ImportResult, error) {
	return v.backups.Import(ctx, path, password)
}

func (v *Vault) InspectBackup(ctx context.Context, path, password string) (*backup.Inspection, error) {
	return v.backups.Inspect(ctx, path, password)
}

// Close closes the database. The session calls it on Lock.
func (v *Vault) Close() error {
	if v.Store == nil {
		return nil
	}
	err := v.Store.Close()
	v.Store = nil
	return err
}

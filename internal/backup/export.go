package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/yeka/zip"
)

const archiveTimeLayout = "20060102-150405"

// ExportResult describes a written archive. Skipped counts attachments whose
// files were missing and were left out.
type ExportResult struct {
	Path        string
	Documents   int
	Attachments int
	Skipped     int
	Encrypted   bool
}

// Export writes the vault to a new archive in destDir. An empty password
// produces an unencrypted archive.
func (m *Manager) Export(ctx context.Context, destDir, password string) (*ExportResult, error) {
	dump, err := m.vault.Dump(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read vault: %w", err)
	}

	if err := os.MkdirAll(destDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", destDir, err)
	}
	tmp, err := os.CreateTemp(destDir, ".docvault-backup-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	tmpPath := tmp.Name()
	done := false
	defer func() {
		if !done {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	now := m.now().UTC()
	man := &Manifest{
		Version:    Version,
		ExportedAt: now,
		Templates:  templatesToManifest(dump.Templates),
		Folders:    foldersToManifest(dump.Folders),
		Documents:  make([]DocumentEntry, 0, len(dump.Documents)),
	}
	res := &ExportResult{Encrypted: password != ""}

	zw := zip.NewWriter(tmp)
	for _, doc := range dump.Documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry := documentToManifest(doc)
		for _, a := range doc.Attachments {
			name := EntryName(a.ID, a.Name)
			digest, err := m.writeAttachment(zw, name, password, a.Path)
			if errors.Is(err, common.ErrNotFound) {
				m.logger.Warn(ctx, "attachment file missing, skipped", "id", a.ID, "path", a.Path)
				res.Skipped++
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to write attachment[%s]: %w", a.ID, err)
			}
			if digest != a.SHA256 {
				m.logger.Warn(ctx, "attachment content differs from recorded hash", "id", a.ID)
			}
			entry.Attachments = append(entry.Attachments, AttachmentEntry{
				ID:        a.ID,
				Name:      a.Name,
				Mime:      a.Mime,
				Size:      a.Size,
				SHA256:    digest,
				File:      name,
				CreatedAt: a.CreatedAt,
			})
			res.Attachments++
		}
		man.Documents = append(man.Documents, entry)
		res.Documents++
	}

	w, err := createEntry(zw, ManifestName, password)
	if err != nil {
		return nil, err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(man); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}

	final := availableName(destDir, "docvault-backup-"+now.Format(archiveTimeLayout))
	if err := os.Rename(tmpPath, final); err != nil {
		return nil, fmt.Errorf("failed to rename archive: %w", err)
	}
	done = true
	res.Path = final

	m.logger.Info(ctx, "backup exported", "path", final, "documents", res.Documents,
		"attachments", res.Attachments, "skipped", res.Skipped, "encrypted", res.Encrypted)
	return res, nil
}

// writeAttachment copies the file at path into a new entry and returns the
// hex SHA-256 of what was written.
func (m *Manager) writeAttachment(zw *zip.Writer, name, password, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", common.ErrNotFound
		}
		return "", err
	}
	defer f.Close()

	w, err := createEntry(zw, name, password)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(w, h), f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func createEntry(zw *zip.Writer, name, password string) (io.Writer, error) {
	var (
		w   io.Writer
		err error
	)
	if password != "" {
		w, err = zw.Encrypt(name, password, zip.AES256Encryption)
	} else {
		w, err = zw.Create(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add %s: %w", name, err)
	}
	return w, nil
}

// availableName returns dir/base.zip, or dir/base-N.zip when that exists.
func availableName(dir, base string) string {
	path := filepath.Join(dir, base+".zip")
	for n := 1; n < 1000; n++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
		path = filepath.Join(dir, base+"-"+strconv.Itoa(n)+".zip")
	}
	return path
}

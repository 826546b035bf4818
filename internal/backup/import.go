package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dmitrijs2005/docvault/internal/attachments"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/yeka/zip"
)

// ImportResult counts what an import restored.
type ImportResult struct {
	Folders     int
	Documents   int
	Attachments int
	Purged      int
}

// staged is an attachment extracted and verified but not yet adopted.
type staged struct {
	id   string
	name string
	path string
}

// Import replaces the vault contents with the archive at archivePath.
//
// Every attachment is extracted and hash-checked in a staging directory
// before anything is changed. A wrong or missing password, an unsupported
// version or a damaged entry leaves the vault untouched. Once the new rows
// are committed, files no longer referenced by any row are deleted.
func (m *Manager) Import(ctx context.Context, archivePath, password string) (*ImportResult, error) {
	stage, err := os.MkdirTemp(m.workDir, ".import-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer os.RemoveAll(stage)

	local := filepath.Join(stage, "archive.zip")
	if err := copyFile(archivePath, local); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSourceUnreadable, err)
	}

	zr, err := zip.OpenReader(local)
	if err != nil {
		return nil, fmt.Errorf("%w: not a backup archive: %v", common.ErrIntegrityViolation, err)
	}
	defer zr.Close()

	entries := indexEntries(zr.File)
	man, _, err := readManifest(entries, password)
	if err != nil {
		return nil, err
	}

	files, err := m.extract(ctx, man, entries, password, stage)
	if err != nil {
		return nil, err
	}

	paths := make(map[string]string, len(files))
	adopted := make([]string, 0, len(files))
	rollback := func() {
		for _, p := range adopted {
			_ = os.Remove(p)
		}
	}
	for _, f := range files {
		p, err := m.files.Adopt(f.path, f.name)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("failed to place attachment[%s]: %w", f.id, err)
		}
		adopted = append(adopted, p)
		paths[f.id] = p
	}

	if err := m.vault.ReplaceAll(ctx, man.toDump(paths)); err != nil {
		rollback()
		return nil, fmt.Errorf("failed to replace vault contents: %w", err)
	}

	keep := make(map[string]bool, len(adopted))
	for _, p := range adopted {
		keep[p] = true
	}
	purged, err := m.files.PurgeExcept(ctx, keep)
	if err != nil {
		m.logger.Warn(ctx, "failed to remove some old attachment files", "error", err)
	}

	res := &ImportResult{
		Folders:     len(man.Folders),
		Documents:   len(man.Documents),
		Attachments: len(files),
		Purged:      purged,
	}
	m.logger.Info(ctx, "backup imported", "documents", res.Documents, "attachments", res.Attachments, "purged", res.Purged)
	return res, nil
}

// extract writes every attachment entry named by man into stage and checks
// its SHA-256 against the manifest.
func (m *Manager) extract(ctx context.Context, man *Manifest, entries map[string]*zip.File, password, stage string) ([]staged, error) {
	dir := filepath.Join(stage, "files")
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, err
	}

	var out []staged
	for _, d := range man.Documents {
		for _, a := range d.Attachments {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			zf, ok := entries[a.File]
			if !ok {
				return nil, fmt.Errorf("%w: attachment[%s] entry %q is missing", common.ErrIntegrityViolation, a.ID, a.File)
			}

			path := filepath.Join(dir, strconv.Itoa(len(out)))
			digest, err := extractEntry(zf, password, path)
			if err != nil {
				return nil, fmt.Errorf("failed to extract attachment[%s]: %w", a.ID, err)
			}
			if digest != a.SHA256 {
				return nil, fmt.Errorf("%w: attachment[%s] hash mismatch", common.ErrIntegrityViolation, a.ID)
			}
			out = append(out, staged{id: a.ID, name: a.Name, path: path})
		}
	}
	return out, nil
}

func extractEntry(zf *zip.File, password, dst string) (string, error) {
	if zf.IsEncrypted() {
		if password == "" {
			return "", common.ErrPasswordRequired
		}
		zf.SetPassword(password)
	}
	rc, err := zf.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", err
	}
	digest, err := attachments.HashReader(io.TeeReader(rc, out))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}
	return digest, nil
}

func indexEntries(files []*zip.File) map[string]*zip.File {
	out := make(map[string]*zip.File, len(files))
	for _, f := range files {
		out[f.Name] = f
	}
	return out
}

// readManifest decodes backup.json and checks its version. The second
// result reports whether the manifest entry is encrypted.
func readManifest(entries map[string]*zip.File, password string) (*Manifest, bool, error) {
	zf, ok := entries[ManifestName]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s not found", common.ErrIntegrityViolation, ManifestName)
	}

	encrypted := zf.IsEncrypted()
	if encrypted {
		if password == "" {
			return nil, true, common.ErrPasswordRequired
		}
		zf.SetPassword(password)
	}

	man, err := decodeManifest(zf)
	if err != nil {
		if encrypted {
			return nil, true, fmt.Errorf("%w: cannot decrypt manifest: %v", common.ErrPasswordRequired, err)
		}
		return nil, false, fmt.Errorf("%w: %v", common.ErrIntegrityViolation, err)
	}
	if man.Version != Version {
		return nil, encrypted, fmt.Errorf("%w: %d", common.ErrUnsupportedVersion, man.Version)
	}
	return man, encrypted, nil
}

func decodeManifest(zf *zip.File) (*Manifest, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	// Read fully so the entry's checksum or MAC is verified before decoding.
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	var man Manifest
	if err := json.Unmarshal(data, &man); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &man, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}


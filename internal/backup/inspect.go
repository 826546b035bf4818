package backup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/yeka/zip"
)

// Inspection summarizes an archive without touching the vault.
type Inspection struct {
	Version     int
	ExportedAt  time.Time
	Encrypted   bool
	Documents   int
	Attachments int
	Entries     int
}

// Inspect reads the manifest of the archive at path. For an encrypted
// archive opened without a password it returns what is visible without
// decrypting together with common.ErrPasswordRequired.
func (m *Manager) Inspect(ctx context.Context, path, password string) (*Inspection, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: not a backup archive: %v", common.ErrIntegrityViolation, err)
	}
	defer zr.Close()

	info := &Inspection{}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		info.Entries++
	}

	man, encrypted, err := readManifest(indexEntries(zr.File), password)
	info.Encrypted = encrypted
	if err != nil {
		if errors.Is(err, common.ErrPasswordRequired) {
			return info, err
		}
		return nil, err
	}

	info.Version = man.Version
	info.ExportedAt = man.ExportedAt
	info.Documents = len(man.Documents)
	info.Attachments = man.attachmentCount()
	m.logger.Debug(ctx, "backup inspected", "path", path, "documents", info.Documents)
	return info, nil
}

// Package backup writes and restores portable vault archives.
//
// An archive is a ZIP file holding backup.json and one entry per attachment
// under attachments/. When a password is given every entry is AES-256
// encrypted, so the plaintext manifest is never written unprotected.
package backup

import (
	"context"
	"time"

	"github.com/dmitrijs2005/docvault/internal/attachments"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dmitrijs2005/docvault/internal/store"
)

// Vault is the part of the store a backup needs.
type Vault interface {
	Dump(ctx context.Context) (*store.Dump, error)
	ReplaceAll(ctx context.Context, d *store.Dump) error
}

// Manager exports and imports archives of one vault.
type Manager struct {
	vault   Vault
	files   *attachments.Store
	workDir string
	logger  logging.Logger
	now     func() time.Time
}

// NewManager returns a Manager. workDir holds staging directories during
// import and should be on the same filesystem as the attachments directory.
func NewManager(vault Vault, files *attachments.Store, workDir string, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Manager{
		vault:   vault,
		files:   files,
		workDir: workDir,
		logger:  logger.With("component", "backup"),
		now:     time.Now,
	}
}

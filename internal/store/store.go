// Package store is the vault's encrypted relational store. It owns the
// SQLite handle, applies migrations, seeds a fresh vault and encrypts
// document names, descriptions and field values with a cryptox.FieldCipher
// on the way to the repositories.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/cryptox"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/dmitrijs2005/docvault/internal/repositories/documents"
	"github.com/dmitrijs2005/docvault/internal/repositories/folders"
	"github.com/dmitrijs2005/docvault/internal/repositories/settings"
	"github.com/dmitrijs2005/docvault/internal/repositories/templates"
	"github.com/dmitrijs2005/docvault/internal/store/migrations"

	_ "modernc.org/sqlite"
)

// keyCheckPlaintext is encrypted into settings.key_check on creation and
// decrypted on every open to prove the key matches the database.
const keyCheckPlaintext = "docvault-key-check"

var errKeyCheck = errors.New("key check failed")

// sideFileSuffixes are the SQLite companions removed with a corrupt database.
var sideFileSuffixes = []string{"-wal", "-shm", "-journal"}

// Store is an open vault database. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	path   string
	cipher *cryptox.FieldCipher
	logger logging.Logger
	hub    *hub
	now    func() time.Time
}

// Open opens or creates the database at path and validates it with key.
//
// When an existing file cannot be opened, migrated or validated with key it
// is treated as corrupt: the file and its side files are deleted, a fresh
// database is created and Open returns the usable store together with
// common.ErrDatabaseRecreated. Callers must surface that error as a warning.
func Open(ctx context.Context, path string, key []byte, logger logging.Logger) (*Store, error) {
	if len(key) == 0 {
		return nil, common.ErrKeyMissing
	}
	if logger == nil {
		logger = logging.Nop()
	}

	cipher, err := cryptox.NewFieldCipher(key)
	if err != nil {
		return nil, err
	}

	_, statErr := os.Stat(path)
	existed := statErr == nil

	s, err := open(ctx, path, cipher, logger)
	if err == nil {
		return s, nil
	}
	if !existed {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	logger.Warn(ctx, "database unreadable, recreating", "path", path, "error", err)
	if rmErr := RemoveFiles(path); rmErr != nil {
		return nil, fmt.Errorf("failed to remove corrupt database: %w", rmErr)
	}

	s, err = open(ctx, path, cipher, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to recreate database: %w", err)
	}
	return s, common.ErrDatabaseRecreated
}

func open(ctx context.Context, path string, cipher *cryptox.FieldCipher, logger logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbx.SQLiteDSN(path))
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:     db,
		path:   path,
		cipher: cipher,
		logger: logger.With("component", "store"),
		hub:    newHub(),
		now:    func() time.Time { return time.Now().UTC() },
	}

	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	applied, err := migrations.Up(ctx, s.db)
	if err != nil {
		return err
	}
	if applied > 0 {
		s.logger.Info(ctx, "migrations applied", "count", applied)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := settings.NewSQLiteRepository(tx)

		current, err := repo.Get(ctx)
		switch {
		case errors.Is(err, common.ErrNotFound):
			return s.initFresh(ctx, tx)
		case err != nil:
			return err
		}

		if len(current.KeyCheck) == 0 {
			check, err := s.cipher.EncryptString(keyCheckPlaintext)
			if err != nil {
				return err
			}
			current.KeyCheck = check
			return repo.Save(ctx, current)
		}

		got, err := s.cipher.DecryptString(current.KeyCheck)
		if err != nil || got != keyCheckPlaintext {
			return errKeyCheck
		}
		return nil
	})
}

// initFresh writes the settings row and, on an empty database, the default
// templates and folders.
func (s *Store) initFresh(ctx context.Context, tx dbx.DBTX) error {
	check, err := s.cipher.EncryptString(keyCheckPlaintext)
	if err != nil {
		return err
	}
	if err := settings.NewSQLiteRepository(tx).Save(ctx, &models.Settings{KeyCheck: check}); err != nil {
		return err
	}

	empty, err := isEmpty(ctx, tx)
	if err != nil || !empty {
		return err
	}

	s.logger.Info(ctx, "seeding new vault")
	return seed(ctx, tx, s.now())
}

func isEmpty(ctx context.Context, tx dbx.DBTX) (bool, error) {
	counters := []func(context.Context) (int, error){
		templates.NewSQLiteRepository(tx).Count,
		folders.NewSQLiteRepository(tx).Count,
		documents.NewSQLiteRepository(tx).Count,
	}
	for _, count := range counters {
		n, err := count(ctx)
		if err != nil {
			return false, err
		}
		if n > 0 {
			return false, nil
		}
	}
	return true, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database and all subscriber channels.
func (s *Store) Close() error {
	s.hub.close()
	return s.db.Close()
}

// RemoveFiles deletes the database at path and its side files. Missing files
// are ignored.
func RemoveFiles(path string) error {
	var errs []error
	for _, p := range append([]string{path}, sidePaths(path)...) {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func sidePaths(path string) []string {
	out := make([]string, 0, len(sideFileSuffixes))
	for _, suffix := range sideFileSuffixes {
		out = append(out, path+suffix)
	}
	return out
}

// withTx runs fn in a transaction and, when it succeeds, publishes a fresh
// snapshot to subscribers.
func (s *Store) withTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	if err := dbx.WithTx(ctx, s.db, nil, fn); err != nil {
		return err
	}
	s.publish(ctx)
	return nil
}

// decrypt opens a stored blob. Failures are logged and yield "" so one bad
// field never makes a document unreadable.
func (s *Store) decrypt(ctx context.Context, blob []byte, what, id string) string {
	v, err := s.cipher.DecryptString(blob)
	if err != nil {
		s.logger.Warn(ctx, "failed to decrypt value", "what", what, "id", id, "size", len(blob), "error", err)
		return ""
	}
	return v
}

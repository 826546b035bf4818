package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/docvault/internal/attachments"
	"github.com/dmitrijs2005/docvault/internal/backup"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/cryptox"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dmitrijs2005/docvault/internal/secrets"
	"github.com/dmitrijs2005/docvault/internal/store"
)

// State is the lock state of a Session.
type State int32

const (
	Locked State = iota
	Unlocking
	Unlocked
)

func (s State) String() string {
	switch s {
	case Locked:
		return "locked"
	case Unlocking:
		return "unlocking"
	case Unlocked:
		return "unlocked"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Paths locates the vault's files.
type Paths struct {
	DataDir        string
	Database       string
	AttachmentsDir string
}

// Session owns the lock state of one vault.
//
// While unlocked the database key is kept in a guarded buffer and the
// database is open. All transitions are serialized; State may be read at
// any time.
type Session struct {
	mu    sync.Mutex
	state atomic.Int32

	paths    Paths
	secrets  secrets.Store
	pins     *PinService
	logger   logging.Logger
	fileOpts []attachments.Option

	key   *memguard.LockedBuffer
	vault *Vault
}

type SessionOption func(*Session)

// WithAttachmentOptions passes options to the attachments store opened on
// unlock.
func WithAttachmentOptions(opts ...attachments.Option) SessionOption {
	return func(s *Session) { s.fileOpts = append(s.fileOpts, opts...) }
}

func NewSession(paths Paths, sec secrets.Store, kdf cryptox.KDF, logger logging.Logger, opts ...SessionOption) *Session {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Session{
		paths:   paths,
		secrets: sec,
		pins:    NewPinService(sec, kdf, logger),
		logger:  logger.With("component", "session"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) IsPinSet(ctx context.Context) (bool, error) {
	return s.pins.IsSet(ctx)
}

// SetInitialPin stores the first PIN and a new random database key. The
// session stays locked.
func (s *Session) SetInitialPin(ctx context.Context, pin []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pins.SetInitial(ctx, pin)
}

// VerifyPin checks pin without changing the state.
func (s *Session) VerifyPin(ctx context.Context, pin []byte) error {
	key, err := s.pins.Verify(ctx, pin)
	if err != nil {
		return err
	}
	common.WipeByteArray(key)
	return nil
}

// ChangePin replaces the PIN. The database key, and so all stored data,
// stays as it is.
func (s *Session) ChangePin(ctx context.Context, oldPin, newPin []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pins.Change(ctx, oldPin, newPin); err != nil {
		return err
	}
	if s.vault != nil {
		s.mirrorPin(ctx, s.vault.Store)
	}
	return nil
}

// Open unlocks the vault, first setting pin as the initial PIN when isNew
// is true.
func (s *Session) Open(ctx context.Context, pin []byte, isNew bool) (*Vault, error) {
	if isNew {
		if err := s.SetInitialPin(ctx, pin); err != nil {
			return nil, err
		}
	}
	return s.Unlock(ctx, pin)
}

// Unlock verifies pin and opens the vault. Unlocking an unlocked session
// verifies the PIN and returns the existing handle.
//
// When the database had to be recreated the usable vault is returned
// together with common.ErrDatabaseRecreated.
func (s *Session) Unlock(ctx context.Context, pin []byte) (*Vault, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() == Unlocked {
		if err := s.VerifyPin(ctx, pin); err != nil {
			return nil, err
		}
		return s.vault, nil
	}

	s.state.Store(int32(Unlocking))
	v, err := s.unlock(ctx, pin)
	if v == nil {
		s.state.Store(int32(Locked))
		return nil, err
	}
	s.state.Store(int32(Unlocked))
	s.logger.Info(ctx, "vault unlocked", "db", s.paths.Database, "recreated", err != nil)
	return v, err
}

func (s *Session) unlock(ctx context.Context, pin []byte) (*Vault, error) {
	raw, err := s.pins.Verify(ctx, pin)
	if err != nil {
		return nil, err
	}
	// NewBufferFromBytes wipes raw.
	key := memguard.NewBufferFromBytes(raw)
	key.Freeze()

	if err := os.MkdirAll(s.paths.DataDir, 0o700); err != nil {
		key.Destroy()
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	st, err := store.Open(ctx, s.paths.Database, key.Bytes(), s.logger)
	var warn error
	if errors.Is(err, common.ErrDatabaseRecreated) {
		warn = err
	} else if err != nil {
		key.Destroy()
		return nil, err
	}

	files, err := attachments.New(s.paths.AttachmentsDir, s.logger, s.fileOpts...)
	if err != nil {
		_ = st.Close()
		key.Destroy()
		return nil, err
	}

	s.mirrorPin(ctx, st)

	s.key = key
	s.vault = newVault(st, files, backup.NewManager(st, files, s.paths.DataDir, s.logger), s.logger)
	return s.vault, warn
}

// Lock closes the vault and destroys the key copy. Locking a locked session
// is a no-op.
func (s *Session) Lock(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock(ctx)
}

func (s *Session) lock(ctx context.Context) error {
	var err error
	if s.vault != nil {
		err = s.vault.Close()
		s.vault = nil
	}
	if s.key != nil {
		s.key.Destroy()
		s.key = nil
	}
	if s.State() != Locked {
		s.logger.Info(ctx, "vault locked")
	}
	s.state.Store(int32(Locked))
	return err
}

// Reset locks the session and erases every trace of the vault: secrets,
// the database with its side files and the attachments directory.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if err := s.lock(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.secrets.Clear(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to clear secrets: %w", err))
	}
	if err := store.RemoveFiles(s.paths.Database); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove database: %w", err))
	}
	if err := os.RemoveAll(s.paths.AttachmentsDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove attachments: %w", err))
	}
	s.logger.Warn(ctx, "vault reset", "db", s.paths.Database)
	return errors.Join(errs...)
}

// Vault returns the open vault or common.ErrLocked.
func (s *Session) Vault() (*Vault, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vault == nil {
		return nil, common.ErrLocked
	}
	return s.vault, nil
}

// Close locks the session and releases the secret store.
func (s *Session) Close(ctx context.Context) error {
	return errors.Join(s.Lock(ctx), s.secrets.Close())
}

func (s *Session) mirrorPin(ctx context.Context, st *store.Store) {
	m, err := s.pins.Material(ctx)
	if err == nil {
		err = st.SavePinMaterial(ctx, m.Hash, m.Salt, m.DBKeySalt)
	}
	if err != nil {
		s.logger.Warn(ctx, "failed to mirror pin material", "error", err)
	}
}

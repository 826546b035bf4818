// Package attachments manages the vault's attachment files: importing
// external files into a managed directory, retrieval, deletion, orphan
// garbage collection and integrity audits.
//
// Rows describing attachments live in the vault database. This package only
// sees them through small interfaces, so it never depends on the store.
package attachments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dmitrijs2005/docvault/internal/models"
	"github.com/gabriel-vasile/mimetype"
)

const (
	DefaultMaxNameAttempts = 100
	defaultName            = "attachment"
	sniffLen               = 3072
)

// ImportedFile describes a file copied into the managed directory.
type ImportedFile struct {
	Name   string
	Mime   string
	Size   int64
	SHA256 string
	Path   string
	URI    string
}

// Store is a managed attachments directory.
type Store struct {
	dir         string
	maxAttempts int
	logger      logging.Logger
	now         func() time.Time
}

type Option func(*Store)

// WithMaxNameAttempts bounds the "name (n).ext" attempts before a timestamp
// suffix is used.
func WithMaxNameAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store over dir, creating it with mode 0700.
func New(dir string, logger logging.Logger, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", abs, err)
	}

	s := &Store{
		dir:         abs,
		maxAttempts: DefaultMaxNameAttempts,
		logger:      logger.With("component", "attachments"),
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Store) Dir() string { return s.dir }

// ImportFrom copies src into the managed directory under a unique name,
// hashing and sniffing the content in the same pass. The file is synced to
// disk before ImportFrom returns. A source that cannot be opened or read
// fails with common.ErrSourceUnreadable.
func (s *Store) ImportFrom(ctx context.Context, src Source) (*ImportedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrSourceUnreadable, src.Name(), err)
	}
	defer in.Close()

	name := cleanName(src.Name())
	out, path, err := s.createUnique(name)
	if err != nil {
		return nil, err
	}

	imported, err := s.copyInto(out, in)
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	imported.Name = name
	imported.Path = path
	imported.URI = src.URI()

	s.logger.Debug(ctx, "attachment imported", "name", name, "path", path, "size", imported.Size)
	return imported, nil
}

// copyInto streams r into out, closes out and reports size, hash and mime.
func (s *Store) copyInto(out *os.File, r io.Reader) (*ImportedFile, error) {
	h := sha256.New()
	head := &prefixBuffer{limit: sniffLen}

	n, err := io.Copy(io.MultiWriter(out, h, head), r)
	if err != nil {
		_ = out.Close()
		var pe *os.PathError
		if errors.As(err, &pe) && pe.Path == out.Name() {
			return nil, fmt.Errorf("write %s: %w", out.Name(), err)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrSourceUnreadable, err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("sync %s: %w", out.Name(), err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", out.Name(), err)
	}

	return &ImportedFile{
		Mime:   mimetype.Detect(head.buf).String(),
		Size:   n,
		SHA256: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// CreateUnique creates an empty file for name in the managed directory and
// returns it open for writing with its path.
func (s *Store) CreateUnique(name string) (*os.File, string, error) {
	return s.createUnique(cleanName(name))
}

func (s *Store) createUnique(name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < s.maxAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		f, path, err := s.createExclusive(candidate)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}

	for {
		candidate := fmt.Sprintf("%s-%s%s", stem, s.now().UTC().Format("20060102-150405.000000000"), ext)
		f, path, err := s.createExclusive(candidate)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
}

func (s *Store) createExclusive(name string) (*os.File, string, error) {
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

// Retrieve opens an attachment's file for reading. A missing file fails
// with common.ErrNotFound.
func (s *Store) Retrieve(a models.Attachment) (io.ReadCloser, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("attachment[%s] %s: %w", a.ID, a.Path, common.ErrNotFound)
		}
		return nil, fmt.Errorf("open attachment[%s]: %w", a.ID, err)
	}
	return f, nil
}

// DeletePhysical removes an attachment's file and reports whether it is
// gone. A file that was already missing counts as removed. Paths outside
// the managed directory are never touched.
func (s *Store) DeletePhysical(ctx context.Context, a models.Attachment) bool {
	if err := s.deletePhysical(a); err != nil {
		s.logger.Warn(ctx, "failed to delete attachment file", "id", a.ID, "path", a.Path, "error", err)
		return false
	}
	return true
}

func (s *Store) deletePhysical(a models.Attachment) error {
	if !s.owns(a.Path) {
		return fmt.Errorf("%w: %s is outside %s", common.ErrInvalidArgument, a.Path, s.dir)
	}
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// owns reports whether path is a file directly inside the managed
// directory.
func (s *Store) owns(path string) bool {
	if path == "" {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return filepath.Dir(abs) == s.dir
}

// Adopt moves a file into the managed directory under a unique variant of
// name and returns the new path.
func (s *Store) Adopt(srcPath, name string) (string, error) {
	f, path, err := s.CreateUnique(name)
	if err != nil {
		return "", err
	}
	_ = f.Close()

	if err := moveFile(srcPath, path); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("move %s: %w", srcPath, err)
	}
	return path, nil
}

var rename = os.Rename

// moveFile renames src to dst, copying and syncing instead when they are on
// different filesystems.
func moveFile(src, dst string) error {
	err := rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	_ = in.Close()
	return os.Remove(src)
}

// PurgeExcept deletes every regular file in the managed directory whose
// path is not in keep and returns how many were removed.
func (s *Store) PurgeExcept(ctx context.Context, keep map[string]bool) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", s.dir, err)
	}

	removed := 0
	var errs []error
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if keep[path] {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info(ctx, "purged unreferenced files", "count", removed)
	}
	return removed, errors.Join(errs...)
}

// RemoveAll deletes the managed directory and everything in it.
func (s *Store) RemoveAll() error {
	return os.RemoveAll(s.dir)
}

// cleanName reduces an external name to a safe base file name.
func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == ':' {
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" || name == ".." {
		return defaultName
	}
	return name
}

// prefixBuffer keeps the first limit bytes written to it.
type prefixBuffer struct {
	buf   []byte
	limit int
}

func (p *prefixBuffer) Write(b []byte) (int, error) {
	if room := p.limit - len(p.buf); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		p.buf = append(p.buf, b[:room]...)
	}
	return len(b), nil
}

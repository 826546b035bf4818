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
	"sync"
	"time"

	"github.com/dmitrijs2005/docvault/internal/models"
	"golang.org/x/sync/errgroup"
)

// OrphanIndex is the database side of garbage collection.
type OrphanIndex interface {
	ListOrphans(ctx context.Context) ([]models.Attachment, error)
	DeleteAttachmentRow(ctx context.Context, id string) error
}

// RowLister lists every attachment row.
type RowLister interface {
	ListAllAttachments(ctx context.Context) ([]models.Attachment, error)
}

// GCFailure records one orphan that could not be fully collected.
type GCFailure struct {
	ID   string
	Path string
	Err  error
}

type GCResult struct {
	Orphans        int
	DeletedFiles   int
	DeletedRecords int
	Failures       []GCFailure
}

// CleanupOrphans deletes every orphan's file and then its row. A row is
// only deleted after its file is gone, so a failed file deletion keeps the
// row for the next sweep. Per-item failures are collected in the result and
// never stop the sweep.
func (s *Store) CleanupOrphans(ctx context.Context, idx OrphanIndex) (*GCResult, error) {
	orphans, err := idx.ListOrphans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orphans: %w", err)
	}

	res := &GCResult{Orphans: len(orphans)}
	for _, a := range orphans {
		if err := s.deletePhysical(a); err != nil {
			s.logger.Warn(ctx, "gc: file kept", "id", a.ID, "path", a.Path, "error", err)
			res.Failures = append(res.Failures, GCFailure{ID: a.ID, Path: a.Path, Err: err})
			continue
		}
		res.DeletedFiles++

		if err := idx.DeleteAttachmentRow(ctx, a.ID); err != nil {
			s.logger.Warn(ctx, "gc: row kept", "id", a.ID, "error", err)
			res.Failures = append(res.Failures, GCFailure{ID: a.ID, Path: a.Path, Err: err})
			continue
		}
		res.DeletedRecords++
	}

	s.logger.Info(ctx, "gc finished",
		"orphans", res.Orphans, "files", res.DeletedFiles, "records", res.DeletedRecords, "failures", len(res.Failures))
	return res, nil
}

// CleanupUntracked removes files in the managed directory that no row
// references and that are older than grace. Younger files may belong to an
// import whose row is not written yet.
func (s *Store) CleanupUntracked(ctx context.Context, rows RowLister, grace time.Duration) (int, error) {
	all, err := rows.ListAllAttachments(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list attachments: %w", err)
	}

	keep := make(map[string]bool, len(all))
	for _, a := range all {
		if abs, err := filepath.Abs(a.Path); err == nil {
			keep[abs] = true
		}
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", s.dir, err)
	}

	cutoff := s.now().Add(-grace)
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
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// IntegrityReport is the outcome of a read-only audit.
type IntegrityReport struct {
	Checked    int
	Missing    []string
	Mismatched []string
}

// OK reports whether every checked file exists (and matched its hash).
func (r *IntegrityReport) OK() bool {
	return len(r.Missing) == 0 && len(r.Mismatched) == 0
}

// ValidateIntegrity checks that each row's file exists and, with
// verifyHash, that its SHA-256 matches. It never modifies anything. Files
// are checked concurrently.
func (s *Store) ValidateIntegrity(ctx context.Context, rows []models.Attachment, verifyHash bool) (*IntegrityReport, error) {
	var (
		mu     sync.Mutex
		report = &IntegrityReport{Checked: len(rows)}
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, a := range rows {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			missing, mismatch, err := checkFile(a, verifyHash)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if missing {
				report.Missing = append(report.Missing, a.ID)
			}
			if mismatch {
				report.Mismatched = append(report.Mismatched, a.ID)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !report.OK() {
		s.logger.Warn(ctx, "integrity audit found problems",
			"checked", report.Checked, "missing", len(report.Missing), "mismatched", len(report.Mismatched))
	}
	return report, nil
}

func checkFile(a models.Attachment, verifyHash bool) (missing, mismatch bool, err error) {
	f, err := os.Open(a.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, false, nil
		}
		return false, false, fmt.Errorf("open attachment[%s]: %w", a.ID, err)
	}
	defer f.Close()

	if !verifyHash {
		return false, false, nil
	}

	sum, err := HashReader(f)
	if err != nil {
		return false, false, fmt.Errorf("hash attachment[%s]: %w", a.ID, err)
	}
	return false, sum != a.SHA256, nil
}

// HashReader returns the hex SHA-256 of everything read from r.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

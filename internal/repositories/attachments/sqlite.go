package attachments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/models"
)

const columns = `id, document_id, name, mime, size, sha256, path, uri, created_at`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, a *models.Attachment) error {
	query := `insert into attachments (` + columns + `) values (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, a.ID, dbx.NullString(a.DocumentID), a.Name, a.Mime, a.Size,
		a.SHA256, a.Path, a.URI, dbx.Millis(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert attachment[%s]: %w", a.Name, err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Attachment, error) {
	row := r.db.QueryRowContext(ctx, `select `+columns+` from attachments where id = ?`, id)

	a, err := scanAttachment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get attachment[%s]: %w", id, err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListByDocument(ctx context.Context, documentID string) ([]models.Attachment, error) {
	return r.query(ctx, `select `+columns+` from attachments where document_id = ? order by created_at, id`, documentID)
}

func (r *SQLiteRepository) ListOrphans(ctx context.Context) ([]models.Attachment, error) {
	return r.query(ctx, `select `+columns+` from attachments where document_id is null order by created_at, id`)
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]models.Attachment, error) {
	return r.query(ctx, `select `+columns+` from attachments order by created_at, id`)
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]models.Attachment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select attachments: %w", err)
	}
	defer rows.Close()

	var result []models.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) Bind(ctx context.Context, id string, documentID *string) error {
	res, err := r.db.ExecContext(ctx, `update attachments set document_id = ? where id = ?`, dbx.NullString(documentID), id)
	if err != nil {
		return fmt.Errorf("failed to bind attachment[%s]: %w", id, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `delete from attachments where id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete attachment[%s]: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `delete from attachments`); err != nil {
		return fmt.Errorf("failed to delete attachments: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttachment(s scanner) (*models.Attachment, error) {
	var (
		a       models.Attachment
		docID   sql.NullString
		created int64
	)
	if err := s.Scan(&a.ID, &docID, &a.Name, &a.Mime, &a.Size, &a.SHA256, &a.Path, &a.URI, &created); err != nil {
		return nil, err
	}
	a.DocumentID = dbx.StringPtr(docID)
	a.CreatedAt = dbx.FromMillis(created)
	return &a, nil
}

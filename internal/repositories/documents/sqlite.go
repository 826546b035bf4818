package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/models"
)

const columns = `id, template_id, folder_id, name, description, is_pinned, pinned_order,
	created_at, updated_at, last_opened_at`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, d *models.DocumentRecord) error {
	query := `insert into documents (` + columns + `) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		d.ID, dbx.NullString(d.TemplateID), dbx.NullString(d.FolderID), d.Name, d.Description,
		d.IsPinned, dbx.NullInt(d.PinnedOrder),
		dbx.Millis(d.CreatedAt), dbx.Millis(d.UpdatedAt), dbx.Millis(d.LastOpenedAt))
	if err != nil {
		return fmt.Errorf("failed to insert document[%s]: %w", d.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, d *models.DocumentRecord) error {
	query := `update documents set template_id = ?, folder_id = ?, name = ?, description = ?, updated_at = ?
		where id = ?`

	res, err := r.db.ExecContext(ctx, query,
		dbx.NullString(d.TemplateID), dbx.NullString(d.FolderID), d.Name, d.Description,
		dbx.Millis(d.UpdatedAt), d.ID)
	if err != nil {
		return fmt.Errorf("failed to update document[%s]: %w", d.ID, err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx, `select `+columns+` from documents where id = ?`, id)

	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document[%s]: %w", id, err)
	}
	return d, nil
}

func (r *SQLiteRepository) List(ctx context.Context, folderID *string) ([]models.DocumentRecord, error) {
	if folderID == nil {
		return r.query(ctx, `select `+columns+` from documents order by created_at, id`)
	}
	return r.query(ctx, `select `+columns+` from documents where folder_id = ? order by created_at, id`, *folderID)
}

func (r *SQLiteRepository) ListPinned(ctx context.Context) ([]models.DocumentRecord, error) {
	return r.query(ctx, `select `+columns+` from documents where is_pinned = 1 order by pinned_order, updated_at, id`)
}

func (r *SQLiteRepository) ListRecent(ctx context.Context, limit int) ([]models.DocumentRecord, error) {
	query := `select ` + columns + ` from documents where is_pinned = 0
		order by max(last_opened_at, updated_at) desc, id limit ?`
	return r.query(ctx, query, limit)
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]models.DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	var result []models.DocumentRecord
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) SetPinnedOrder(ctx context.Context, id string, order *int) error {
	res, err := r.db.ExecContext(ctx, `update documents set is_pinned = ?, pinned_order = ? where id = ?`,
		order != nil, dbx.NullInt(order), id)
	if err != nil {
		return fmt.Errorf("failed to set pinned order[%s]: %w", id, err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) TouchOpened(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `update documents set last_opened_at = ? where id = ?`, dbx.Millis(at), id)
	if err != nil {
		return fmt.Errorf("failed to touch document[%s]: %w", id, err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) SetFolder(ctx context.Context, id string, folderID *string) error {
	res, err := r.db.ExecContext(ctx, `update documents set folder_id = ? where id = ?`, dbx.NullString(folderID), id)
	if err != nil {
		return fmt.Errorf("failed to move document[%s]: %w", id, err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) MoveFolderContents(ctx context.Context, from string, to *string) error {
	if _, err := r.db.ExecContext(ctx, `update documents set folder_id = ? where folder_id = ?`, dbx.NullString(to), from); err != nil {
		return fmt.Errorf("failed to move documents of folder[%s]: %w", from, err)
	}
	return nil
}

func (r *SQLiteRepository) CountByFolder(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `select folder_id, count(*) from documents where folder_id is not null group by folder_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `delete from documents where id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document[%s]: %w", id, err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `select count(*) from documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `delete from documents`); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*models.DocumentRecord, error) {
	var (
		d                        models.DocumentRecord
		templateID, folderID     sql.NullString
		order                    sql.NullInt64
		created, updated, opened int64
	)
	err := s.Scan(&d.ID, &templateID, &folderID, &d.Name, &d.Description, &d.IsPinned, &order,
		&created, &updated, &opened)
	if err != nil {
		return nil, err
	}

	d.TemplateID = dbx.StringPtr(templateID)
	d.FolderID = dbx.StringPtr(folderID)
	d.PinnedOrder = dbx.IntPtr(order)
	d.CreatedAt = dbx.FromMillis(created)
	d.UpdatedAt = dbx.FromMillis(updated)
	d.LastOpenedAt = dbx.FromMillis(opened)
	return &d, nil
}

func expectOne(res sql.Result) error {
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

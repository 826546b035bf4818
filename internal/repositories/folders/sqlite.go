package folders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, f *models.Folder) error {
	_, err := r.db.ExecContext(ctx, `insert into folders (id, parent_id, name, ord) values (?, ?, ?, ?)`,
		f.ID, dbx.NullString(f.ParentID), f.Name, f.Ord)
	if err != nil {
		return fmt.Errorf("failed to insert folder[%s]: %w", f.Name, err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	row := r.db.QueryRowContext(ctx, `select id, parent_id, name, ord from folders where id = ?`, id)

	f, err := scanFolder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get folder[%s]: %w", id, err)
	}
	return f, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Folder, error) {
	rows, err := r.db.QueryContext(ctx, `select id, parent_id, name, ord from folders order by parent_id, ord, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to select folders: %w", err)
	}
	defer rows.Close()

	var result []models.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *f)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) Rename(ctx context.Context, id, name string) error {
	res, err := r.db.ExecContext(ctx, `update folders set name = ? where id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("failed to rename folder[%s]: %w", id, err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) SetParent(ctx context.Context, id string, parentID *string) error {
	res, err := r.db.ExecContext(ctx, `update folders set parent_id = ? where id = ?`, dbx.NullString(parentID), id)
	if err != nil {
		return fmt.Errorf("failed to move folder[%s]: %w", id, err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) ReparentChildren(ctx context.Context, from string, to *string) error {
	if _, err := r.db.ExecContext(ctx, `update folders set parent_id = ? where parent_id = ?`, dbx.NullString(to), from); err != nil {
		return fmt.Errorf("failed to reparent children of folder[%s]: %w", from, err)
	}
	return nil
}

func (r *SQLiteRepository) NextOrd(ctx context.Context, parentID *string) (int, error) {
	var maxOrd sql.NullInt64
	err := r.db.QueryRowContext(ctx, `select max(ord) from folders where parent_id is ?`, dbx.NullString(parentID)).Scan(&maxOrd)
	if err != nil {
		return 0, fmt.Errorf("failed to get folder ord: %w", err)
	}
	if !maxOrd.Valid {
		return 0, nil
	}
	return int(maxOrd.Int64) + 1, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `delete from folders where id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete folder[%s]: %w", id, err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `select count(*) from folders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count folders: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `delete from folders`); err != nil {
		return fmt.Errorf("failed to delete folders: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFolder(s scanner) (*models.Folder, error) {
	var (
		f      models.Folder
		parent sql.NullString
	)
	if err := s.Scan(&f.ID, &parent, &f.Name, &f.Ord); err != nil {
		return nil, err
	}
	f.ParentID = dbx.StringPtr(parent)
	return &f, nil
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

package templates

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

func (r *SQLiteRepository) Create(ctx context.Context, t *models.Template) error {
	query := `insert into templates (id, name, is_pinned, pinned_order, created_at, updated_at)
		values (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, t.ID, t.Name, t.IsPinned, dbx.NullInt(t.PinnedOrder),
		dbx.Millis(t.CreatedAt), dbx.Millis(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert template[%s]: %w", t.ID, err)
	}

	return r.insertFields(ctx, t)
}

func (r *SQLiteRepository) Update(ctx context.Context, t *models.Template) error {
	res, err := r.db.ExecContext(ctx, `update templates set name = ?, updated_at = ? where id = ?`,
		t.Name, dbx.Millis(t.UpdatedAt), t.ID)
	if err != nil {
		return fmt.Errorf("failed to update template[%s]: %w", t.ID, err)
	}
	if err := expectOne(res); err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, `delete from template_fields where template_id = ?`, t.ID); err != nil {
		return fmt.Errorf("failed to delete template fields[%s]: %w", t.ID, err)
	}
	return r.insertFields(ctx, t)
}

func (r *SQLiteRepository) insertFields(ctx context.Context, t *models.Template) error {
	query := `insert into template_fields (id, template_id, name, type, ord) values (?, ?, ?, ?, ?)`
	for i := range t.Fields {
		f := &t.Fields[i]
		f.TemplateID = t.ID
		if _, err := r.db.ExecContext(ctx, query, f.ID, t.ID, f.Name, string(f.Type), f.Ord); err != nil {
			return fmt.Errorf("failed to insert template field[%s]: %w", f.Name, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Template, error) {
	query := `select id, name, is_pinned, pinned_order, created_at, updated_at from templates where id = ?`

	t, err := scanTemplate(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get template[%s]: %w", id, err)
	}

	fields, err := r.fields(ctx, `where template_id = ?`, id)
	if err != nil {
		return nil, err
	}
	t.Fields = fields[id]
	return t, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Template, error) {
	query := `select id, name, is_pinned, pinned_order, created_at, updated_at from templates
		order by is_pinned desc, pinned_order, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select templates: %w", err)
	}
	defer rows.Close()

	var result []models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fields, err := r.fields(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Fields = fields[result[i].ID]
	}
	return result, nil
}

func (r *SQLiteRepository) fields(ctx context.Context, where string, args ...any) (map[string][]models.TemplateField, error) {
	query := `select id, template_id, name, type, ord from template_fields ` + where + ` order by template_id, ord`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select template fields: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.TemplateField)
	for rows.Next() {
		var f models.TemplateField
		var typ string
		if err := rows.Scan(&f.ID, &f.TemplateID, &f.Name, &typ, &f.Ord); err != nil {
			return nil, err
		}
		f.Type = models.FieldType(typ)
		out[f.TemplateID] = append(out[f.TemplateID], f)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `delete from templates where id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template[%s]: %w", id, err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) ListPinnedIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `select id from templates where is_pinned = 1 order by pinned_order, updated_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select pinned templates: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) SetPinnedOrder(ctx context.Context, id string, order *int) error {
	res, err := r.db.ExecContext(ctx, `update templates set is_pinned = ?, pinned_order = ? where id = ?`,
		order != nil, dbx.NullInt(order), id)
	if err != nil {
		return fmt.Errorf("failed to set pinned order[%s]: %w", id, err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `select count(*) from templates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count templates: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `delete from templates`); err != nil {
		return fmt.Errorf("failed to delete templates: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(s scanner) (*models.Template, error) {
	var (
		t                  models.Template
		order              sql.NullInt64
		created, updatedAt int64
	)
	if err := s.Scan(&t.ID, &t.Name, &t.IsPinned, &order, &created, &updatedAt); err != nil {
		return nil, err
	}
	t.PinnedOrder = dbx.IntPtr(order)
	t.CreatedAt = dbx.FromMillis(created)
	t.UpdatedAt = dbx.FromMillis(updatedAt)
	return &t, nil
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

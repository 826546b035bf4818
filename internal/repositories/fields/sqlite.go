package fields

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

func (r *SQLiteRepository) Replace(ctx context.Context, documentID string, fs []models.FieldRecord) error {
	if _, err := r.db.ExecContext(ctx, `delete from document_fields where document_id = ?`, documentID); err != nil {
		return fmt.Errorf("failed to delete fields of document[%s]: %w", documentID, err)
	}

	query := `insert into document_fields (id, document_id, name, value, preview, is_secret, ord)
		values (?, ?, ?, ?, ?, ?, ?)`
	for _, f := range fs {
		_, err := r.db.ExecContext(ctx, query, f.ID, documentID, f.Name, f.ValueCiphertext, f.Preview, f.IsSecret, f.Ord)
		if err != nil {
			return fmt.Errorf("failed to insert field[%s]: %w", f.Name, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) ListByDocument(ctx context.Context, documentID string) ([]models.FieldRecord, error) {
	query := `select id, document_id, name, value, preview, is_secret, ord from document_fields
		where document_id = ? order by ord, id`

	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to select fields of document[%s]: %w", documentID, err)
	}
	defer rows.Close()

	var result []models.FieldRecord
	for rows.Next() {
		var f models.FieldRecord
		if err := rows.Scan(&f.ID, &f.DocumentID, &f.Name, &f.ValueCiphertext, &f.Preview, &f.IsSecret, &f.Ord); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.FieldRecord, error) {
	query := `select id, document_id, name, value, preview, is_secret, ord from document_fields where id = ?`

	var f models.FieldRecord
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&f.ID, &f.DocumentID, &f.Name, &f.ValueCiphertext, &f.Preview, &f.IsSecret, &f.Ord)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get field[%s]: %w", id, err)
	}
	return &f, nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `delete from document_fields`); err != nil {
		return fmt.Errorf("failed to delete fields: %w", err)
	}
	return nil
}

package customfield

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	txcontext "custodia/pkg/platform/tx"
)

// PostgresStore persists custom fields in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) dbConn {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, f *CustomField) error {
	query := `
		INSERT INTO custom_fields (attribute_id, description, catalog_hint, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := s.conn(ctx).QueryRowContext(ctx, query,
		int64(f.AttributeID), f.Description, f.CatalogHint, f.Active, f.CreatedAt, f.UpdatedAt,
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("insert custom field: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, fieldID id.CustomFieldID) (*CustomField, error) {
	query := `
		SELECT id, attribute_id, description, catalog_hint, is_active, created_at, updated_at
		FROM custom_fields WHERE id = $1
	`
	var f CustomField
	err := s.conn(ctx).QueryRowContext(ctx, query, int64(fieldID)).Scan(
		&f.ID, &f.AttributeID, &f.Description, &f.CatalogHint, &f.Active, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find custom field: %w", err)
	}
	return &f, nil
}

func (s *PostgresStore) List(ctx context.Context, activeOnly bool) ([]*CustomField, error) {
	query := `
		SELECT id, attribute_id, description, catalog_hint, is_active, created_at, updated_at
		FROM custom_fields
	`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY id`
	rows, err := s.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list custom fields: %w", err)
	}
	defer rows.Close()
	var out []*CustomField
	for rows.Next() {
		var f CustomField
		err := rows.Scan(&f.ID, &f.AttributeID, &f.Description, &f.CatalogHint, &f.Active, &f.CreatedAt, &f.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan custom field: %w", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, f *CustomField) error {
	query := `
		UPDATE custom_fields
		SET description = $2, catalog_hint = $3, is_active = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := s.conn(ctx).ExecContext(ctx, query,
		int64(f.ID), f.Description, f.CatalogHint, f.Active, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update custom field: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, fieldID id.CustomFieldID) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM custom_fields WHERE id = $1`, int64(fieldID))
	if err != nil {
		return fmt.Errorf("delete custom field: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

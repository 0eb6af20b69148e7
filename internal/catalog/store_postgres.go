package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	txcontext "custodia/pkg/platform/tx"
)

// PostgresStore persists all catalogs in one table keyed by kind.
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

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (s *PostgresStore) Create(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO catalog_entries (kind, name, description, parent_id, level, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := s.conn(ctx).QueryRowContext(ctx, query,
		string(e.Kind), e.Name, e.Description, parentArg(e.ParentID), e.Level, e.Active, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert catalog entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, kind Kind, entryID id.CatalogID) (*Entry, error) {
	query := `
		SELECT id, kind, name, description, parent_id, level, is_active, created_at, updated_at
		FROM catalog_entries WHERE kind = $1 AND id = $2
	`
	e, err := scanEntry(s.conn(ctx).QueryRowContext(ctx, query, string(kind), int64(entryID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find catalog entry: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) List(ctx context.Context, kind Kind, filter ListFilter) ([]*Entry, error) {
	query := `
		SELECT id, kind, name, description, parent_id, level, is_active, created_at, updated_at
		FROM catalog_entries WHERE kind = $1
	`
	args := []any{string(kind)}
	if filter.ActiveOnly {
		query += ` AND is_active`
	}
	if filter.NameFilter != "" {
		args = append(args, "%"+filter.NameFilter+"%")
		query += fmt.Sprintf(` AND name ILIKE $%d`, len(args))
	}
	query += ` ORDER BY id`
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list catalog entries: %w", err)
	}
	defer rows.Close()
	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, e *Entry) error {
	query := `
		UPDATE catalog_entries
		SET name = $3, description = $4, parent_id = $5, level = $6, is_active = $7, updated_at = $8
		WHERE kind = $1 AND id = $2
	`
	res, err := s.conn(ctx).ExecContext(ctx, query,
		string(e.Kind), int64(e.ID), e.Name, e.Description, parentArg(e.ParentID), e.Level, e.Active, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update catalog entry: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, kind Kind, entryID id.CatalogID) error {
	res, err := s.conn(ctx).ExecContext(ctx,
		`DELETE FROM catalog_entries WHERE kind = $1 AND id = $2`, string(kind), int64(entryID))
	if err != nil {
		return fmt.Errorf("delete catalog entry: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) CountChildren(ctx context.Context, kind Kind, entryID id.CatalogID) (int, error) {
	var count int
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT count(*) FROM catalog_entries WHERE kind = $1 AND parent_id = $2`,
		string(kind), int64(entryID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count catalog children: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ListChildren(ctx context.Context, kind Kind, entryID id.CatalogID) ([]*Entry, error) {
	query := `
		SELECT id, kind, name, description, parent_id, level, is_active, created_at, updated_at
		FROM catalog_entries WHERE kind = $1 AND parent_id = $2
		ORDER BY id
	`
	rows, err := s.conn(ctx).QueryContext(ctx, query, string(kind), int64(entryID))
	if err != nil {
		return nil, fmt.Errorf("list catalog children: %w", err)
	}
	defer rows.Close()
	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func parentArg(parentID *id.CatalogID) any {
	if parentID == nil {
		return nil
	}
	return int64(*parentID)
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

func scanEntry(row interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		e        Entry
		parentID sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.Kind, &e.Name, &e.Description, &parentID, &e.Level,
		&e.Active, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		pid := id.CatalogID(parentID.Int64)
		e.ParentID = &pid
	}
	return &e, nil
}

package attribute

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

// PostgresStore persists attributes in PostgreSQL. Writes join an ambient
// transaction when one is carried in context.
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

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (s *PostgresStore) Create(ctx context.Context, attr *Attribute) error {
	query := `
		INSERT INTO attributes (name, slug, datatype, choices, is_active, created_at, updated_at)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := s.conn(ctx).QueryRowContext(ctx, query,
		attr.Name, attr.Slug, string(attr.Datatype), pq.Array(attr.Choices),
		attr.Active, attr.CreatedAt, attr.UpdatedAt,
	).Scan(&attr.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert attribute: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, attrID id.AttributeID) (*Attribute, error) {
	return s.findOne(ctx, `WHERE id = $1`, int64(attrID))
}

func (s *PostgresStore) FindBySlug(ctx context.Context, slug string) (*Attribute, error) {
	return s.findOne(ctx, `WHERE slug = lower($1)`, slug)
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*Attribute, error) {
	query := `
		SELECT id, name, slug, datatype, choices, is_active, created_at, updated_at
		FROM attributes ` + where
	attr, err := scanAttribute(s.conn(ctx).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find attribute: %w", err)
	}
	return attr, nil
}

func (s *PostgresStore) List(ctx context.Context, activeOnly bool) ([]*Attribute, error) {
	query := `
		SELECT id, name, slug, datatype, choices, is_active, created_at, updated_at
		FROM attributes
	`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY id`

	rows, err := s.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	defer rows.Close()

	var out []*Attribute
	for rows.Next() {
		attr, err := scanAttribute(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		out = append(out, attr)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, attr *Attribute) error {
	query := `
		UPDATE attributes
		SET name = $2, datatype = $3, choices = $4, is_active = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := s.conn(ctx).ExecContext(ctx, query,
		int64(attr.ID), attr.Name, string(attr.Datatype), pq.Array(attr.Choices),
		attr.Active, attr.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update attribute: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, attrID id.AttributeID) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM attributes WHERE id = $1`, int64(attrID))
	if err != nil {
		return fmt.Errorf("delete attribute: %w", err)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttribute(row rowScanner) (*Attribute, error) {
	var (
		attr     Attribute
		datatype string
		choices  pq.StringArray
	)
	err := row.Scan(&attr.ID, &attr.Name, &attr.Slug, &datatype, &choices,
		&attr.Active, &attr.CreatedAt, &attr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	attr.Datatype = Datatype(datatype)
	attr.Choices = []string(choices)
	return &attr, nil
}

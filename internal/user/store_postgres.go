package user

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

// PostgresStore persists users in PostgreSQL.
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

func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (name, email, division_id, is_active, created_at, updated_at)
		VALUES ($1, lower($2), $3, $4, $5, $6)
		RETURNING id
	`
	err := s.conn(ctx).QueryRowContext(ctx, query,
		u.Name, u.Email, int64(u.DivisionID), u.Active, u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*User, error) {
	query := `
		SELECT id, name, email, division_id, is_active, created_at, updated_at
		FROM users WHERE id = $1
	`
	var u User
	err := s.conn(ctx).QueryRowContext(ctx, query, int64(userID)).Scan(
		&u.ID, &u.Name, &u.Email, &u.DivisionID, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) List(ctx context.Context, activeOnly bool) ([]*User, error) {
	query := `
		SELECT id, name, email, division_id, is_active, created_at, updated_at
		FROM users
	`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY id`
	rows, err := s.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var out []*User
	for rows.Next() {
		var u User
		err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.DivisionID, &u.Active, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, u *User) error {
	query := `
		UPDATE users
		SET name = $2, division_id = $3, is_active = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := s.conn(ctx).ExecContext(ctx, query,
		int64(u.ID), u.Name, int64(u.DivisionID), u.Active, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	txcontext "custodia/pkg/platform/tx"
)

// PostgresStore persists notifications in PostgreSQL.
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

func (s *PostgresStore) Create(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO notifications (evidence_id, user_id, content, opened, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := s.conn(ctx).QueryRowContext(ctx, query,
		int64(n.EvidenceID), int64(n.UserID), n.Content, n.Opened, n.CreatedAt, n.UpdatedAt,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, notificationID id.NotificationID) (*Notification, error) {
	query := `
		SELECT id, evidence_id, user_id, content, opened, created_at, updated_at
		FROM notifications WHERE id = $1
	`
	var n Notification
	err := s.conn(ctx).QueryRowContext(ctx, query, int64(notificationID)).Scan(
		&n.ID, &n.EvidenceID, &n.UserID, &n.Content, &n.Opened, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find notification: %w", err)
	}
	return &n, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*Notification, error) {
	query := `
		SELECT id, evidence_id, user_id, content, opened, created_at, updated_at
		FROM notifications WHERE user_id = $1 ORDER BY id DESC
	`
	rows, err := s.conn(ctx).QueryContext(ctx, query, int64(userID))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	var out []*Notification
	for rows.Next() {
		var n Notification
		err := rows.Scan(&n.ID, &n.EvidenceID, &n.UserID, &n.Content, &n.Opened, &n.CreatedAt, &n.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, n *Notification) error {
	query := `
		UPDATE notifications SET opened = $2, updated_at = $3 WHERE id = $1
	`
	res, err := s.conn(ctx).ExecContext(ctx, query, int64(n.ID), n.Opened, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	txcontext "custodia/pkg/platform/tx"
)

// PostgresOutbox persists outbox entries in PostgreSQL. Append joins the
// caller's transaction when one is in the context; the relay reads and
// marks entries outside any transaction.
type PostgresOutbox struct {
	db *sql.DB
}

func NewPostgresOutbox(db *sql.DB) *PostgresOutbox {
	return &PostgresOutbox{db: db}
}

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresOutbox) conn(ctx context.Context) dbConn {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresOutbox) Append(ctx context.Context, entry *OutboxEntry) error {
	query := `
		INSERT INTO audit_outbox (id, payload, created_at)
		VALUES ($1, $2, $3)
	`
	if _, err := s.conn(ctx).ExecContext(ctx, query, entry.ID, entry.Payload, entry.CreatedAt); err != nil {
		return fmt.Errorf("append audit outbox entry: %w", err)
	}
	return nil
}

func (s *PostgresOutbox) ListUnpublished(ctx context.Context, limit int) ([]*OutboxEntry, error) {
	query := `
		SELECT id, payload, created_at
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.conn(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unpublished audit entries: %w", err)
	}
	defer rows.Close()
	var out []*OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit outbox entry: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *PostgresOutbox) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	query := `
		UPDATE audit_outbox
		SET published_at = $2
		WHERE id = ANY($1) AND published_at IS NULL
	`
	if _, err := s.conn(ctx).ExecContext(ctx, query, pq.Array(ids), at); err != nil {
		return fmt.Errorf("mark audit entries published: %w", err)
	}
	return nil
}

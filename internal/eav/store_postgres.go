package eav

import (
	"context"
	"database/sql"
	"fmt"

	"custodia/internal/attribute"
	id "custodia/pkg/domain"
	txcontext "custodia/pkg/platform/tx"
)

// PostgresStore persists dynamic values in a single generic table with one
// typed column per datatype. The attribute slug is denormalized at write
// time so enumeration is a single scan.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) conn(ctx context.Context) dbConn {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Upsert(ctx context.Context, v *Value) error {
	query := `
		INSERT INTO evidence_values
			(evidence_id, attribute_id, attribute_slug, datatype,
			 value_text, value_number, value_date, value_bool, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (evidence_id, attribute_id) DO UPDATE SET
			value_text = EXCLUDED.value_text,
			value_number = EXCLUDED.value_number,
			value_date = EXCLUDED.value_date,
			value_bool = EXCLUDED.value_bool,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.conn(ctx).ExecContext(ctx, query,
		int64(v.EvidenceID), int64(v.AttributeID), v.Slug, string(v.Datatype),
		v.Text, v.Number, v.Date, v.Bool, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert evidence value: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByEvidence(ctx context.Context, evidenceID id.EvidenceID) ([]*Value, error) {
	query := `
		SELECT evidence_id, attribute_id, attribute_slug, datatype,
		       value_text, value_number, value_date, value_bool, updated_at
		FROM evidence_values
		WHERE evidence_id = $1
		ORDER BY attribute_id
	`
	rows, err := s.conn(ctx).QueryContext(ctx, query, int64(evidenceID))
	if err != nil {
		return nil, fmt.Errorf("list evidence values: %w", err)
	}
	defer rows.Close()

	var out []*Value
	for rows.Next() {
		var (
			v        Value
			datatype string
		)
		err := rows.Scan(&v.EvidenceID, &v.AttributeID, &v.Slug, &datatype,
			&v.Text, &v.Number, &v.Date, &v.Bool, &v.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan evidence value: %w", err)
		}
		v.Datatype = attribute.Datatype(datatype)
		out = append(out, &v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteByEvidence(ctx context.Context, evidenceID id.EvidenceID) error {
	_, err := s.conn(ctx).ExecContext(ctx,
		`DELETE FROM evidence_values WHERE evidence_id = $1`, int64(evidenceID))
	if err != nil {
		return fmt.Errorf("delete evidence values: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteByAttribute(ctx context.Context, attrID id.AttributeID) error {
	_, err := s.conn(ctx).ExecContext(ctx,
		`DELETE FROM evidence_values WHERE attribute_id = $1`, int64(attrID))
	if err != nil {
		return fmt.Errorf("delete attribute values: %w", err)
	}
	return nil
}

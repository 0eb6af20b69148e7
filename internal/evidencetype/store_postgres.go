package evidencetype

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

// PostgresStore persists evidence types and schema links in PostgreSQL.
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

const typeColumns = `id, name, alias, level, parent_id, group_id,
	attachment_required, signature_required, auth_required, is_active, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, t *EvidenceType) error {
	query := `
		INSERT INTO evidence_types
			(name, alias, level, parent_id, group_id,
			 attachment_required, signature_required, auth_required, is_active, created_at, updated_at)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err := s.conn(ctx).QueryRowContext(ctx, query,
		t.Name, t.Alias, t.Level, parentArg(t.ParentID), int64(t.GroupID),
		t.AttachmentRequired, t.SignatureRequired, t.AuthRequired, t.Active, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert evidence type: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, typeID id.EvidenceTypeID) (*EvidenceType, error) {
	return s.findOne(ctx, `WHERE id = $1`, int64(typeID))
}

func (s *PostgresStore) FindByAlias(ctx context.Context, alias string) (*EvidenceType, error) {
	return s.findOne(ctx, `WHERE alias = lower($1)`, alias)
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*EvidenceType, error) {
	query := `SELECT ` + typeColumns + ` FROM evidence_types ` + where
	t, err := scanType(s.conn(ctx).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find evidence type: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) List(ctx context.Context, activeOnly bool) ([]*EvidenceType, error) {
	query := `SELECT ` + typeColumns + ` FROM evidence_types`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY id`
	rows, err := s.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list evidence types: %w", err)
	}
	defer rows.Close()
	var out []*EvidenceType
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evidence type: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, t *EvidenceType) error {
	query := `
		UPDATE evidence_types
		SET name = $2, level = $3, parent_id = $4, group_id = $5,
		    attachment_required = $6, signature_required = $7, auth_required = $8,
		    is_active = $9, updated_at = $10
		WHERE id = $1
	`
	res, err := s.conn(ctx).ExecContext(ctx, query,
		int64(t.ID), t.Name, t.Level, parentArg(t.ParentID), int64(t.GroupID),
		t.AttachmentRequired, t.SignatureRequired, t.AuthRequired, t.Active, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update evidence type: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, typeID id.EvidenceTypeID) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM evidence_types WHERE id = $1`, int64(typeID))
	if err != nil {
		return fmt.Errorf("delete evidence type: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) CountChildren(ctx context.Context, typeID id.EvidenceTypeID) (int, error) {
	var count int
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT count(*) FROM evidence_types WHERE parent_id = $1`, int64(typeID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count children: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ListChildren(ctx context.Context, typeID id.EvidenceTypeID) ([]*EvidenceType, error) {
	query := `SELECT ` + typeColumns + ` FROM evidence_types WHERE parent_id = $1 ORDER BY id`
	rows, err := s.conn(ctx).QueryContext(ctx, query, int64(typeID))
	if err != nil {
		return nil, fmt.Errorf("list child types: %w", err)
	}
	defer rows.Close()
	var out []*EvidenceType
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evidence type: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AttachCustomField(ctx context.Context, link *TypeCustomField) error {
	query := `
		INSERT INTO evidence_type_custom_fields
			(type_id, custom_field_id, mandatory, group_label, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.conn(ctx).ExecContext(ctx, query,
		int64(link.TypeID), int64(link.CustomFieldID), link.Mandatory, link.GroupLabel, link.Active, link.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("attach custom field: %w", err)
	}
	return nil
}

func (s *PostgresStore) DetachCustomField(ctx context.Context, typeID id.EvidenceTypeID, fieldID id.CustomFieldID) error {
	res, err := s.conn(ctx).ExecContext(ctx,
		`DELETE FROM evidence_type_custom_fields WHERE type_id = $1 AND custom_field_id = $2`,
		int64(typeID), int64(fieldID))
	if err != nil {
		return fmt.Errorf("detach custom field: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) ListCustomFields(ctx context.Context, typeID id.EvidenceTypeID) ([]*TypeCustomField, error) {
	query := `
		SELECT type_id, custom_field_id, mandatory, group_label, is_active, created_at
		FROM evidence_type_custom_fields
		WHERE type_id = $1
		ORDER BY custom_field_id
	`
	rows, err := s.conn(ctx).QueryContext(ctx, query, int64(typeID))
	if err != nil {
		return nil, fmt.Errorf("list type custom fields: %w", err)
	}
	defer rows.Close()
	var out []*TypeCustomField
	for rows.Next() {
		var link TypeCustomField
		err := rows.Scan(&link.TypeID, &link.CustomFieldID, &link.Mandatory, &link.GroupLabel, &link.Active, &link.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan type custom field: %w", err)
		}
		out = append(out, &link)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountCustomFieldRefs(ctx context.Context, fieldID id.CustomFieldID) (int, error) {
	var count int
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT count(*) FROM evidence_type_custom_fields WHERE custom_field_id = $1`,
		int64(fieldID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count custom field refs: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ListCustomFieldRefs(ctx context.Context, fieldID id.CustomFieldID) ([]id.EvidenceTypeID, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT type_id FROM evidence_type_custom_fields WHERE custom_field_id = $1 ORDER BY type_id`,
		int64(fieldID))
	if err != nil {
		return nil, fmt.Errorf("list custom field refs: %w", err)
	}
	defer rows.Close()
	var out []id.EvidenceTypeID
	for rows.Next() {
		var typeID id.EvidenceTypeID
		if err := rows.Scan(&typeID); err != nil {
			return nil, fmt.Errorf("scan custom field ref: %w", err)
		}
		out = append(out, typeID)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AttachQualityControl(ctx context.Context, link *TypeQualityControl) error {
	query := `
		INSERT INTO evidence_type_quality_controls (type_id, quality_control_id, created_at)
		VALUES ($1, $2, $3)
	`
	_, err := s.conn(ctx).ExecContext(ctx, query,
		int64(link.TypeID), int64(link.QualityControlID), link.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("attach quality control: %w", err)
	}
	return nil
}

func (s *PostgresStore) DetachQualityControl(ctx context.Context, typeID id.EvidenceTypeID, qcID id.QualityControlID) error {
	res, err := s.conn(ctx).ExecContext(ctx,
		`DELETE FROM evidence_type_quality_controls WHERE type_id = $1 AND quality_control_id = $2`,
		int64(typeID), int64(qcID))
	if err != nil {
		return fmt.Errorf("detach quality control: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) ListQualityControls(ctx context.Context, typeID id.EvidenceTypeID) ([]*TypeQualityControl, error) {
	query := `
		SELECT type_id, quality_control_id, created_at
		FROM evidence_type_quality_controls
		WHERE type_id = $1
		ORDER BY quality_control_id
	`
	rows, err := s.conn(ctx).QueryContext(ctx, query, int64(typeID))
	if err != nil {
		return nil, fmt.Errorf("list type quality controls: %w", err)
	}
	defer rows.Close()
	var out []*TypeQualityControl
	for rows.Next() {
		var link TypeQualityControl
		if err := rows.Scan(&link.TypeID, &link.QualityControlID, &link.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan type quality control: %w", err)
		}
		out = append(out, &link)
	}
	return out, rows.Err()
}

func parentArg(parentID *id.EvidenceTypeID) any {
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

func scanType(row interface{ Scan(dest ...any) error }) (*EvidenceType, error) {
	var (
		t        EvidenceType
		parentID sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.Name, &t.Alias, &t.Level, &parentID, &t.GroupID,
		&t.AttachmentRequired, &t.SignatureRequired, &t.AuthRequired, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		pid := id.EvidenceTypeID(parentID.Int64)
		t.ParentID = &pid
	}
	return &t, nil
}

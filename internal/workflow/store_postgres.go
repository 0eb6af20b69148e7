package workflow

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

// PostgresStore persists the workflow catalogs in PostgreSQL.
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

func (s *PostgresStore) CreateGroup(ctx context.Context, g *EvidenceGroup) error {
	query := `
		INSERT INTO evidence_groups (name, alias, description, is_active, created_at, updated_at)
		VALUES ($1, lower($2), $3, $4, $5, $6)
		RETURNING id
	`
	err := s.conn(ctx).QueryRowContext(ctx, query,
		g.Name, g.Alias, g.Description, g.Active, g.CreatedAt, g.UpdatedAt,
	).Scan(&g.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert evidence group: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindGroup(ctx context.Context, groupID id.EvidenceGroupID) (*EvidenceGroup, error) {
	query := `
		SELECT id, name, alias, description, is_active, created_at, updated_at
		FROM evidence_groups WHERE id = $1
	`
	var g EvidenceGroup
	err := s.conn(ctx).QueryRowContext(ctx, query, int64(groupID)).Scan(
		&g.ID, &g.Name, &g.Alias, &g.Description, &g.Active, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find evidence group: %w", err)
	}
	return &g, nil
}

func (s *PostgresStore) ListGroups(ctx context.Context, activeOnly bool) ([]*EvidenceGroup, error) {
	query := `
		SELECT id, name, alias, description, is_active, created_at, updated_at
		FROM evidence_groups
	`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY id`
	rows, err := s.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list evidence groups: %w", err)
	}
	defer rows.Close()
	var out []*EvidenceGroup
	for rows.Next() {
		var g EvidenceGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Alias, &g.Description, &g.Active, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan evidence group: %w", err)
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateGroup(ctx context.Context, g *EvidenceGroup) error {
	query := `
		UPDATE evidence_groups
		SET name = $2, description = $3, is_active = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := s.conn(ctx).ExecContext(ctx, query,
		int64(g.ID), g.Name, g.Description, g.Active, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update evidence group: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) CreateStage(ctx context.Context, st *EvidenceStage) error {
	query := `
		INSERT INTO evidence_stages (name, position, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := s.conn(ctx).QueryRowContext(ctx, query,
		st.Name, st.Position, st.Description, st.Active, st.CreatedAt, st.UpdatedAt,
	).Scan(&st.ID)
	if err != nil {
		return fmt.Errorf("insert evidence stage: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindStage(ctx context.Context, stageID id.EvidenceStageID) (*EvidenceStage, error) {
	query := `
		SELECT id, name, position, description, is_active, created_at, updated_at
		FROM evidence_stages WHERE id = $1
	`
	var st EvidenceStage
	err := s.conn(ctx).QueryRowContext(ctx, query, int64(stageID)).Scan(
		&st.ID, &st.Name, &st.Position, &st.Description, &st.Active, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find evidence stage: %w", err)
	}
	return &st, nil
}

func (s *PostgresStore) ListStages(ctx context.Context, activeOnly bool) ([]*EvidenceStage, error) {
	query := `
		SELECT id, name, position, description, is_active, created_at, updated_at
		FROM evidence_stages
	`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY position, id`
	rows, err := s.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list evidence stages: %w", err)
	}
	defer rows.Close()
	var out []*EvidenceStage
	for rows.Next() {
		var st EvidenceStage
		if err := rows.Scan(&st.ID, &st.Name, &st.Position, &st.Description, &st.Active, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan evidence stage: %w", err)
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateStage(ctx context.Context, st *EvidenceStage) error {
	query := `
		UPDATE evidence_stages
		SET name = $2, position = $3, description = $4, is_active = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := s.conn(ctx).ExecContext(ctx, query,
		int64(st.ID), st.Name, st.Position, st.Description, st.Active, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update evidence stage: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) CreateStatus(ctx context.Context, st *EvidenceStatus) error {
	query := `
		INSERT INTO evidence_statuses
			(name, position, color, description, stage_id, group_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := s.conn(ctx).QueryRowContext(ctx, query,
		st.Name, st.Position, st.Color, st.Description,
		int64(st.StageID), int64(st.GroupID), st.CreatedAt, st.UpdatedAt,
	).Scan(&st.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert evidence status: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindStatus(ctx context.Context, statusID id.EvidenceStatusID) (*EvidenceStatus, error) {
	query := `
		SELECT id, name, position, color, description, stage_id, group_id, created_at, updated_at
		FROM evidence_statuses WHERE id = $1
	`
	var st EvidenceStatus
	err := s.conn(ctx).QueryRowContext(ctx, query, int64(statusID)).Scan(
		&st.ID, &st.Name, &st.Position, &st.Color, &st.Description,
		&st.StageID, &st.GroupID, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find evidence status: %w", err)
	}
	return &st, nil
}

func (s *PostgresStore) ListStatuses(ctx context.Context, groupID id.EvidenceGroupID) ([]*EvidenceStatus, error) {
	query := `
		SELECT id, name, position, color, description, stage_id, group_id, created_at, updated_at
		FROM evidence_statuses
	`
	var args []any
	if !groupID.IsNil() {
		query += ` WHERE group_id = $1`
		args = append(args, int64(groupID))
	}
	query += ` ORDER BY position, id`
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list evidence statuses: %w", err)
	}
	defer rows.Close()
	var out []*EvidenceStatus
	for rows.Next() {
		var st EvidenceStatus
		err := rows.Scan(&st.ID, &st.Name, &st.Position, &st.Color, &st.Description,
			&st.StageID, &st.GroupID, &st.CreatedAt, &st.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan evidence status: %w", err)
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateQualityControl(ctx context.Context, qc *QualityControl) error {
	query := `
		INSERT INTO quality_controls (name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := s.conn(ctx).QueryRowContext(ctx, query,
		qc.Name, qc.Active, qc.CreatedAt, qc.UpdatedAt,
	).Scan(&qc.ID)
	if err != nil {
		return fmt.Errorf("insert quality control: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindQualityControl(ctx context.Context, qcID id.QualityControlID) (*QualityControl, error) {
	query := `
		SELECT id, name, is_active, created_at, updated_at
		FROM quality_controls WHERE id = $1
	`
	var qc QualityControl
	err := s.conn(ctx).QueryRowContext(ctx, query, int64(qcID)).Scan(
		&qc.ID, &qc.Name, &qc.Active, &qc.CreatedAt, &qc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find quality control: %w", err)
	}
	return &qc, nil
}

func (s *PostgresStore) ListQualityControls(ctx context.Context, activeOnly bool) ([]*QualityControl, error) {
	query := `
		SELECT id, name, is_active, created_at, updated_at
		FROM quality_controls
	`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY id`
	rows, err := s.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list quality controls: %w", err)
	}
	defer rows.Close()
	var out []*QualityControl
	for rows.Next() {
		var qc QualityControl
		if err := rows.Scan(&qc.ID, &qc.Name, &qc.Active, &qc.CreatedAt, &qc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan quality control: %w", err)
		}
		out = append(out, &qc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateQualityControl(ctx context.Context, qc *QualityControl) error {
	query := `
		UPDATE quality_controls
		SET name = $2, is_active = $3, updated_at = $4
		WHERE id = $1
	`
	res, err := s.conn(ctx).ExecContext(ctx, query,
		int64(qc.ID), qc.Name, qc.Active, qc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update quality control: %w", err)
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

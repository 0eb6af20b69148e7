package evidence

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

// PostgresStore persists evidences and workflow records in PostgreSQL.
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

const evidenceColumns = `id, status_id, type_id, owner_id, parent_id, dirty,
	pending_auth, pending_signature, uploaded_file_id, version, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, e *Evidence) error {
	query := `
		INSERT INTO evidences
			(status_id, type_id, owner_id, parent_id, dirty,
			 pending_auth, pending_signature, uploaded_file_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err := s.conn(ctx).QueryRowContext(ctx, query,
		int64(e.StatusID), int64(e.TypeID), int64(e.OwnerID), nullableEvidenceID(e.ParentID), e.Dirty,
		e.PendingAuth, e.PendingSignature, nullableFileID(e.UploadedFileID), e.Version, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert evidence: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, evidenceID id.EvidenceID) (*Evidence, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidences WHERE id = $1`
	e, err := scanEvidence(s.conn(ctx).QueryRowContext(ctx, query, int64(evidenceID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find evidence: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*Evidence, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidences WHERE parent_id IS NULL`
	var args []any
	if filter.StatusID != nil {
		args = append(args, int64(*filter.StatusID))
		query += fmt.Sprintf(` AND status_id = $%d`, len(args))
	}
	query += ` ORDER BY id DESC`
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list evidences: %w", err)
	}
	defer rows.Close()
	var out []*Evidence
	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, e *Evidence) error {
	query := `
		UPDATE evidences
		SET status_id = $2, dirty = $3, pending_auth = $4, pending_signature = $5,
		    uploaded_file_id = $6, version = $7, updated_at = $8
		WHERE id = $1
	`
	res, err := s.conn(ctx).ExecContext(ctx, query,
		int64(e.ID), int64(e.StatusID), e.Dirty, e.PendingAuth, e.PendingSignature,
		nullableFileID(e.UploadedFileID), e.Version, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update evidence: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) CreateAuth(ctx context.Context, a *EvidenceAuth) error {
	query := `
		INSERT INTO evidence_auths (evidence_id, user_id, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := s.conn(ctx).QueryRowContext(ctx, query,
		int64(a.EvidenceID), int64(a.UserID), string(a.Status), a.Version, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert evidence auth: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindAuth(ctx context.Context, authID id.AuthID) (*EvidenceAuth, error) {
	query := `
		SELECT id, evidence_id, user_id, status, version, created_at, updated_at
		FROM evidence_auths WHERE id = $1
	`
	var a EvidenceAuth
	err := s.conn(ctx).QueryRowContext(ctx, query, int64(authID)).Scan(
		&a.ID, &a.EvidenceID, &a.UserID, &a.Status, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find evidence auth: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) ListAuths(ctx context.Context, evidenceID id.EvidenceID) ([]*EvidenceAuth, error) {
	query := `
		SELECT id, evidence_id, user_id, status, version, created_at, updated_at
		FROM evidence_auths WHERE evidence_id = $1 ORDER BY id
	`
	rows, err := s.conn(ctx).QueryContext(ctx, query, int64(evidenceID))
	if err != nil {
		return nil, fmt.Errorf("list evidence auths: %w", err)
	}
	defer rows.Close()
	var out []*EvidenceAuth
	for rows.Next() {
		var a EvidenceAuth
		err := rows.Scan(&a.ID, &a.EvidenceID, &a.UserID, &a.Status, &a.Version, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan evidence auth: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateAuth(ctx context.Context, a *EvidenceAuth) error {
	query := `
		UPDATE evidence_auths
		SET status = $2, version = $3, updated_at = $4
		WHERE id = $1
	`
	res, err := s.conn(ctx).ExecContext(ctx, query,
		int64(a.ID), string(a.Status), a.Version, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update evidence auth: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) CreateSignature(ctx context.Context, sig *EvidenceSignature) error {
	query := `
		INSERT INTO evidence_signatures (evidence_id, user_id, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := s.conn(ctx).QueryRowContext(ctx, query,
		int64(sig.EvidenceID), int64(sig.UserID), string(sig.Status), sig.Version, sig.CreatedAt, sig.UpdatedAt,
	).Scan(&sig.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert evidence signature: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindSignature(ctx context.Context, sigID id.SignatureID) (*EvidenceSignature, error) {
	query := `
		SELECT id, evidence_id, user_id, status, version, created_at, updated_at
		FROM evidence_signatures WHERE id = $1
	`
	var sig EvidenceSignature
	err := s.conn(ctx).QueryRowContext(ctx, query, int64(sigID)).Scan(
		&sig.ID, &sig.EvidenceID, &sig.UserID, &sig.Status, &sig.Version, &sig.CreatedAt, &sig.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find evidence signature: %w", err)
	}
	return &sig, nil
}

func (s *PostgresStore) ListSignatures(ctx context.Context, evidenceID id.EvidenceID) ([]*EvidenceSignature, error) {
	query := `
		SELECT id, evidence_id, user_id, status, version, created_at, updated_at
		FROM evidence_signatures WHERE evidence_id = $1 ORDER BY id
	`
	rows, err := s.conn(ctx).QueryContext(ctx, query, int64(evidenceID))
	if err != nil {
		return nil, fmt.Errorf("list evidence signatures: %w", err)
	}
	defer rows.Close()
	var out []*EvidenceSignature
	for rows.Next() {
		var sig EvidenceSignature
		err := rows.Scan(&sig.ID, &sig.EvidenceID, &sig.UserID, &sig.Status, &sig.Version, &sig.CreatedAt, &sig.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan evidence signature: %w", err)
		}
		out = append(out, &sig)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateSignature(ctx context.Context, sig *EvidenceSignature) error {
	query := `
		UPDATE evidence_signatures
		SET status = $2, version = $3, updated_at = $4
		WHERE id = $1
	`
	res, err := s.conn(ctx).ExecContext(ctx, query,
		int64(sig.ID), string(sig.Status), sig.Version, sig.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update evidence signature: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) CreateFinding(ctx context.Context, f *EvidenceFinding) error {
	query := `
		INSERT INTO evidence_findings
			(evidence_id, quality_control_id, status, comments, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := s.conn(ctx).QueryRowContext(ctx, query,
		int64(f.EvidenceID), int64(f.QualityControlID), string(f.Status), f.Comments, f.Version, f.CreatedAt, f.UpdatedAt,
	).Scan(&f.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert evidence finding: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindFinding(ctx context.Context, findingID id.FindingID) (*EvidenceFinding, error) {
	query := `
		SELECT id, evidence_id, quality_control_id, status, comments, version, created_at, updated_at
		FROM evidence_findings WHERE id = $1
	`
	var f EvidenceFinding
	err := s.conn(ctx).QueryRowContext(ctx, query, int64(findingID)).Scan(
		&f.ID, &f.EvidenceID, &f.QualityControlID, &f.Status, &f.Comments, &f.Version, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find evidence finding: %w", err)
	}
	return &f, nil
}

func (s *PostgresStore) ListFindings(ctx context.Context, evidenceID id.EvidenceID) ([]*EvidenceFinding, error) {
	query := `
		SELECT id, evidence_id, quality_control_id, status, comments, version, created_at, updated_at
		FROM evidence_findings WHERE evidence_id = $1 ORDER BY id
	`
	rows, err := s.conn(ctx).QueryContext(ctx, query, int64(evidenceID))
	if err != nil {
		return nil, fmt.Errorf("list evidence findings: %w", err)
	}
	defer rows.Close()
	var out []*EvidenceFinding
	for rows.Next() {
		var f EvidenceFinding
		err := rows.Scan(&f.ID, &f.EvidenceID, &f.QualityControlID, &f.Status, &f.Comments, &f.Version, &f.CreatedAt, &f.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan evidence finding: %w", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateFinding(ctx context.Context, f *EvidenceFinding) error {
	query := `
		UPDATE evidence_findings
		SET status = $2, comments = $3, version = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := s.conn(ctx).ExecContext(ctx, query,
		int64(f.ID), string(f.Status), f.Comments, f.Version, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update evidence finding: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) CreateComment(ctx context.Context, c *EvidenceComment) error {
	query := `
		INSERT INTO evidence_comments (evidence_id, user_id, text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := s.conn(ctx).QueryRowContext(ctx, query,
		int64(c.EvidenceID), int64(c.UserID), c.Text, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert evidence comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListComments(ctx context.Context, evidenceID id.EvidenceID) ([]*EvidenceComment, error) {
	query := `
		SELECT id, evidence_id, user_id, text, created_at, updated_at
		FROM evidence_comments WHERE evidence_id = $1 ORDER BY id
	`
	rows, err := s.conn(ctx).QueryContext(ctx, query, int64(evidenceID))
	if err != nil {
		return nil, fmt.Errorf("list evidence comments: %w", err)
	}
	defer rows.Close()
	var out []*EvidenceComment
	for rows.Next() {
		var c EvidenceComment
		err := rows.Scan(&c.ID, &c.EvidenceID, &c.UserID, &c.Text, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan evidence comment: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateFile(ctx context.Context, f *UploadedFile) error {
	query := `
		INSERT INTO uploaded_files (name, content_type, size, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := s.conn(ctx).QueryRowContext(ctx, query, f.Name, f.ContentType, f.Size, f.CreatedAt).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("insert uploaded file: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindFile(ctx context.Context, fileID id.FileID) (*UploadedFile, error) {
	query := `
		SELECT id, name, content_type, size, created_at
		FROM uploaded_files WHERE id = $1
	`
	var f UploadedFile
	err := s.conn(ctx).QueryRowContext(ctx, query, int64(fileID)).Scan(
		&f.ID, &f.Name, &f.ContentType, &f.Size, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find uploaded file: %w", err)
	}
	return &f, nil
}

func nullableEvidenceID(evidenceID *id.EvidenceID) any {
	if evidenceID == nil {
		return nil
	}
	return int64(*evidenceID)
}

func nullableFileID(fileID *id.FileID) any {
	if fileID == nil {
		return nil
	}
	return int64(*fileID)
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

func scanEvidence(row interface{ Scan(dest ...any) error }) (*Evidence, error) {
	var (
		e        Evidence
		parentID sql.NullInt64
		fileID   sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.StatusID, &e.TypeID, &e.OwnerID, &parentID, &e.Dirty,
		&e.PendingAuth, &e.PendingSignature, &fileID, &e.Version, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		pid := id.EvidenceID(parentID.Int64)
		e.ParentID = &pid
	}
	if fileID.Valid {
		fid := id.FileID(fileID.Int64)
		e.UploadedFileID = &fid
	}
	return &e, nil
}

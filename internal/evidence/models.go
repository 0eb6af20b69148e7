// Package evidence manages the evidence lifecycle: creation with dynamic
// attributes, authorization and signature sub-workflows, quality-control
// findings and comments.
package evidence

import (
	"fmt"
	"time"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// ReviewStatus is the state of an authorization or signature record.
type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "PENDING"
	ReviewCompleted ReviewStatus = "COMPLETED"
)

func ParseReviewStatus(s string) (ReviewStatus, error) {
	switch ReviewStatus(s) {
	case ReviewPending, ReviewCompleted:
		return ReviewStatus(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown review status %q", s)
	}
}

// FindingStatus is the state of a quality-control finding.
type FindingStatus string

const (
	FindingPending          FindingStatus = "PENDING"
	FindingSent             FindingStatus = "SENT"
	FindingWaitingForReview FindingStatus = "WAITING_FOR_REVIEW"
	FindingReviewed         FindingStatus = "REVIEWED"
	FindingCompleted        FindingStatus = "COMPLETED"
	FindingRejected         FindingStatus = "REJECTED"
)

func ParseFindingStatus(s string) (FindingStatus, error) {
	switch FindingStatus(s) {
	case FindingPending, FindingSent, FindingWaitingForReview,
		FindingReviewed, FindingCompleted, FindingRejected:
		return FindingStatus(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown finding status %q", s)
	}
}

// Terminal reports whether the finding no longer keeps its evidence in
// review.
func (s FindingStatus) Terminal() bool {
	return s == FindingCompleted || s == FindingRejected
}

// Evidence is one compliance record. Its fixed columns live here; the
// dynamic attributes live in the EAV store keyed by the evidence ID.
type Evidence struct {
	ID               id.EvidenceID        `json:"id"`
	StatusID         id.EvidenceStatusID  `json:"status_id"`
	TypeID           id.EvidenceTypeID    `json:"type_id"`
	OwnerID          id.UserID            `json:"owner_id"`
	ParentID         *id.EvidenceID       `json:"parent_id,omitempty"`
	Dirty            bool                 `json:"dirty"`
	PendingAuth      bool                 `json:"pending_auth"`
	PendingSignature bool                 `json:"pending_signature"`
	UploadedFileID   *id.FileID           `json:"uploaded_file_id,omitempty"`
	Version          int                  `json:"version"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// EvidenceAuth is one authorization assignment at one evidence version.
// The (evidence, user, version) triple is unique.
type EvidenceAuth struct {
	ID         id.AuthID     `json:"id"`
	EvidenceID id.EvidenceID `json:"evidence_id"`
	UserID     id.UserID     `json:"user_id"`
	Status     ReviewStatus  `json:"status"`
	Version    int           `json:"version"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// EvidenceSignature is one signature assignment at one evidence version.
// The (evidence, user, version) triple is unique.
type EvidenceSignature struct {
	ID         id.SignatureID `json:"id"`
	EvidenceID id.EvidenceID  `json:"evidence_id"`
	UserID     id.UserID      `json:"user_id"`
	Status     ReviewStatus   `json:"status"`
	Version    int            `json:"version"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// EvidenceFinding is one quality-control observation against an evidence.
// The (evidence, quality control, version) triple is unique.
type EvidenceFinding struct {
	ID               id.FindingID        `json:"id"`
	EvidenceID       id.EvidenceID       `json:"evidence_id"`
	QualityControlID id.QualityControlID `json:"quality_control_id"`
	Status           FindingStatus       `json:"status"`
	Comments         string              `json:"comments"`
	Version          int                 `json:"version"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// EvidenceComment is a free-form remark on an evidence.
type EvidenceComment struct {
	ID         id.CommentID  `json:"id"`
	EvidenceID id.EvidenceID `json:"evidence_id"`
	UserID     id.UserID     `json:"user_id"`
	Text       string        `json:"text"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// UploadedFile is the metadata of an attachment referenced by evidences.
type UploadedFile struct {
	ID          id.FileID `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

func (f *UploadedFile) String() string {
	return fmt.Sprintf("%s (%d bytes)", f.Name, f.Size)
}

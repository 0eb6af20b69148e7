package evidence

import (
	"context"

	id "custodia/pkg/domain"
)

// ListFilter narrows evidence listings. Listings only return top-level
// evidences (no parent), newest first.
type ListFilter struct {
	StatusID *id.EvidenceStatusID
}

// Store persists evidences and their workflow records.
// Implementations return ErrNotFound for missing rows and ErrConflict for
// duplicate (evidence, user, version) and (evidence, quality control,
// version) triples.
type Store interface {
	Create(ctx context.Context, e *Evidence) error
	FindByID(ctx context.Context, evidenceID id.EvidenceID) (*Evidence, error)
	List(ctx context.Context, filter ListFilter) ([]*Evidence, error)
	Update(ctx context.Context, e *Evidence) error

	CreateAuth(ctx context.Context, a *EvidenceAuth) error
	FindAuth(ctx context.Context, authID id.AuthID) (*EvidenceAuth, error)
	ListAuths(ctx context.Context, evidenceID id.EvidenceID) ([]*EvidenceAuth, error)
	UpdateAuth(ctx context.Context, a *EvidenceAuth) error

	CreateSignature(ctx context.Context, sig *EvidenceSignature) error
	FindSignature(ctx context.Context, sigID id.SignatureID) (*EvidenceSignature, error)
	ListSignatures(ctx context.Context, evidenceID id.EvidenceID) ([]*EvidenceSignature, error)
	UpdateSignature(ctx context.Context, sig *EvidenceSignature) error

	CreateFinding(ctx context.Context, f *EvidenceFinding) error
	FindFinding(ctx context.Context, findingID id.FindingID) (*EvidenceFinding, error)
	ListFindings(ctx context.Context, evidenceID id.EvidenceID) ([]*EvidenceFinding, error)
	UpdateFinding(ctx context.Context, f *EvidenceFinding) error

	CreateComment(ctx context.Context, c *EvidenceComment) error
	ListComments(ctx context.Context, evidenceID id.EvidenceID) ([]*EvidenceComment, error)

	CreateFile(ctx context.Context, f *UploadedFile) error
	FindFile(ctx context.Context, fileID id.FileID) (*UploadedFile, error)
}

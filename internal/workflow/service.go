package workflow

import (
	"context"
	"errors"
	"log/slog"

	"custodia/internal/authz"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// Service manages the workflow catalogs.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

func (s *Service) CreateGroup(ctx context.Context, name, alias, description string) (*EvidenceGroup, error) {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionAdd, authz.ResourceWorkflow); err != nil {
		return nil, err
	}
	g, err := NewEvidenceGroup(name, alias, description, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateGroup(ctx, g); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "group alias %q already exists", alias)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create group")
	}
	return g, nil
}

func (s *Service) GetGroup(ctx context.Context, groupID id.EvidenceGroupID) (*EvidenceGroup, error) {
	g, err := s.store.FindGroup(ctx, groupID)
	if err != nil {
		return nil, wrapLookupErr(err, "evidence group")
	}
	return g, nil
}

func (s *Service) ListGroups(ctx context.Context, activeOnly bool) ([]*EvidenceGroup, error) {
	groups, err := s.store.ListGroups(ctx, activeOnly)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list groups")
	}
	return groups, nil
}

func (s *Service) CreateStage(ctx context.Context, name string, position int, description string) (*EvidenceStage, error) {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionAdd, authz.ResourceWorkflow); err != nil {
		return nil, err
	}
	st, err := NewEvidenceStage(name, position, description, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateStage(ctx, st); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create stage")
	}
	return st, nil
}

func (s *Service) ListStages(ctx context.Context, activeOnly bool) ([]*EvidenceStage, error) {
	stages, err := s.store.ListStages(ctx, activeOnly)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list stages")
	}
	return stages, nil
}

// CreateStatus attaches a named state to a (stage, group). The triple
// (stage, group, name) must be unique.
func (s *Service) CreateStatus(ctx context.Context, name string, position int, color, description string,
	stageID id.EvidenceStageID, groupID id.EvidenceGroupID) (*EvidenceStatus, error) {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionAdd, authz.ResourceWorkflow); err != nil {
		return nil, err
	}
	st, err := NewEvidenceStatus(name, position, color, description, stageID, groupID, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if _, err := s.store.FindStage(ctx, stageID); err != nil {
		return nil, wrapLookupErr(err, "evidence stage")
	}
	if _, err := s.store.FindGroup(ctx, groupID); err != nil {
		return nil, wrapLookupErr(err, "evidence group")
	}
	if err := s.store.CreateStatus(ctx, st); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "status %q already exists in this stage and group", name)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create status")
	}
	return st, nil
}

func (s *Service) GetStatus(ctx context.Context, statusID id.EvidenceStatusID) (*EvidenceStatus, error) {
	st, err := s.store.FindStatus(ctx, statusID)
	if err != nil {
		return nil, wrapLookupErr(err, "evidence status")
	}
	return st, nil
}

func (s *Service) ListStatuses(ctx context.Context, groupID id.EvidenceGroupID) ([]*EvidenceStatus, error) {
	statuses, err := s.store.ListStatuses(ctx, groupID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list statuses")
	}
	return statuses, nil
}

func (s *Service) CreateQualityControl(ctx context.Context, name string) (*QualityControl, error) {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionAdd, authz.ResourceQualityControl); err != nil {
		return nil, err
	}
	qc, err := NewQualityControl(name, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateQualityControl(ctx, qc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create quality control")
	}
	return qc, nil
}

func (s *Service) GetQualityControl(ctx context.Context, qcID id.QualityControlID) (*QualityControl, error) {
	qc, err := s.store.FindQualityControl(ctx, qcID)
	if err != nil {
		return nil, wrapLookupErr(err, "quality control")
	}
	return qc, nil
}

func (s *Service) ListQualityControls(ctx context.Context, activeOnly bool) ([]*QualityControl, error) {
	qcs, err := s.store.ListQualityControls(ctx, activeOnly)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list quality controls")
	}
	return qcs, nil
}

// DeactivateQualityControl retires a control; existing findings keep it.
func (s *Service) DeactivateQualityControl(ctx context.Context, qcID id.QualityControlID) (*QualityControl, error) {
	if err := authz.SubjectFromContext(ctx).Require(authz.ActionChange, authz.ResourceQualityControl); err != nil {
		return nil, err
	}
	qc, err := s.store.FindQualityControl(ctx, qcID)
	if err != nil {
		return nil, wrapLookupErr(err, "quality control")
	}
	if qc.Active {
		qc.Active = false
		qc.UpdatedAt = requestcontext.Now(ctx)
		if err := s.store.UpdateQualityControl(ctx, qc); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate quality control")
		}
	}
	return qc, nil
}

func wrapLookupErr(err error, what string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "%s not found", what)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
}

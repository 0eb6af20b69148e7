package workflow

import (
	"context"

	id "custodia/pkg/domain"
)

// Store persists the workflow catalogs. Implementations return sentinel
// errors: ErrNotFound for missing rows, ErrConflict for unique violations
// (group alias, (stage, group, name) status triple).
type Store interface {
	CreateGroup(ctx context.Context, g *EvidenceGroup) error
	FindGroup(ctx context.Context, groupID id.EvidenceGroupID) (*EvidenceGroup, error)
	ListGroups(ctx context.Context, activeOnly bool) ([]*EvidenceGroup, error)
	UpdateGroup(ctx context.Context, g *EvidenceGroup) error

	CreateStage(ctx context.Context, st *EvidenceStage) error
	FindStage(ctx context.Context, stageID id.EvidenceStageID) (*EvidenceStage, error)
	ListStages(ctx context.Context, activeOnly bool) ([]*EvidenceStage, error)
	UpdateStage(ctx context.Context, st *EvidenceStage) error

	CreateStatus(ctx context.Context, st *EvidenceStatus) error
	FindStatus(ctx context.Context, statusID id.EvidenceStatusID) (*EvidenceStatus, error)
	ListStatuses(ctx context.Context, groupID id.EvidenceGroupID) ([]*EvidenceStatus, error)

	CreateQualityControl(ctx context.Context, qc *QualityControl) error
	FindQualityControl(ctx context.Context, qcID id.QualityControlID) (*QualityControl, error)
	ListQualityControls(ctx context.Context, activeOnly bool) ([]*QualityControl, error)
	UpdateQualityControl(ctx context.Context, qc *QualityControl) error
}

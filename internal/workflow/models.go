// Package workflow holds the catalogs that shape evidence lifecycles:
// groups partition the domain, stages order the macro-phases, statuses are
// the human-facing states inside a (stage, group), and quality controls name
// the checks a type can be inspected against.
package workflow

import (
	"time"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// EvidenceGroup is a top-level domain partition ("internal audit",
// "third-party deliverables"). Statuses and types belong to exactly one
// group; an evidence may only hold a status from its type's group.
type EvidenceGroup struct {
	ID          id.EvidenceGroupID `json:"id"`
	Name        string             `json:"name"`
	Alias       string             `json:"alias"`
	Description string             `json:"description,omitempty"`
	Active      bool               `json:"is_active"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// EvidenceStage is a workflow macro-phase ordered by Position.
type EvidenceStage struct {
	ID          id.EvidenceStageID `json:"id"`
	Name        string             `json:"name"`
	Position    int                `json:"position"`
	Description string             `json:"description,omitempty"`
	Active      bool               `json:"is_active"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// EvidenceStatus is a named state within one stage and one group.
// (stage, group, name) is unique.
type EvidenceStatus struct {
	ID          id.EvidenceStatusID `json:"id"`
	Name        string              `json:"name"`
	Position    int                 `json:"position"`
	Color       string              `json:"color,omitempty"`
	Description string              `json:"description,omitempty"`
	StageID     id.EvidenceStageID  `json:"stage_id"`
	GroupID     id.EvidenceGroupID  `json:"group_id"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// QualityControl is an inspectable control/check category.
type QualityControl struct {
	ID        id.QualityControlID `json:"id"`
	Name      string              `json:"name"`
	Active    bool                `json:"is_active"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func NewEvidenceGroup(name, alias, description string, now time.Time) (*EvidenceGroup, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "group name cannot be empty")
	}
	if alias == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "group alias cannot be empty")
	}
	return &EvidenceGroup{
		Name: name, Alias: alias, Description: description,
		Active: true, CreatedAt: now, UpdatedAt: now,
	}, nil
}

func NewEvidenceStage(name string, position int, description string, now time.Time) (*EvidenceStage, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "stage name cannot be empty")
	}
	return &EvidenceStage{
		Name: name, Position: position, Description: description,
		Active: true, CreatedAt: now, UpdatedAt: now,
	}, nil
}

func NewEvidenceStatus(name string, position int, color, description string,
	stageID id.EvidenceStageID, groupID id.EvidenceGroupID, now time.Time) (*EvidenceStatus, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "status name cannot be empty")
	}
	if stageID.IsNil() || groupID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "status requires a stage and a group")
	}
	return &EvidenceStatus{
		Name: name, Position: position, Color: color, Description: description,
		StageID: stageID, GroupID: groupID,
		CreatedAt: now, UpdatedAt: now,
	}, nil
}

func NewQualityControl(name string, now time.Time) (*QualityControl, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "quality control name cannot be empty")
	}
	return &QualityControl{Name: name, Active: true, CreatedAt: now, UpdatedAt: now}, nil
}

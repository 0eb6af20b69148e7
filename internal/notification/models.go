// Package notification delivers in-app workflow notifications to evidence
// owners. Dispatch is synchronous and best-effort: a failed write is logged
// and never rolls back the mutation that triggered it.
package notification

import (
	"time"

	id "custodia/pkg/domain"
)

type Notification struct {
	ID         id.NotificationID `json:"id"`
	EvidenceID id.EvidenceID     `json:"evidence_id"`
	UserID     id.UserID         `json:"user_id"`
	Content    string            `json:"content"`
	Opened     bool              `json:"opened"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

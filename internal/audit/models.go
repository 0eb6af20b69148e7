// Package audit records compliance-relevant mutations through a
// transactional outbox: events are appended in the same database
// transaction as the mutation and relayed to Kafka by a background worker,
// so the trail never references state that was rolled back.
package audit

import (
	"time"

	id "custodia/pkg/domain"
)

// Event is one audit trail entry.
type Event struct {
	Action   string    `json:"action"`
	Entity   string    `json:"entity"`
	EntityID int64     `json:"entity_id"`
	ActorID  id.UserID `json:"actor_id"`
	At       time.Time `json:"at"`
}

// OutboxEntry is the persisted form of an event awaiting relay.
type OutboxEntry struct {
	ID          string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}

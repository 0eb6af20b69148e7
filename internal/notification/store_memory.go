package notification

import (
	"context"
	"slices"
	"sync"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemoryStore keeps notifications in process memory.
type InMemoryStore struct {
	mu            sync.RWMutex
	nextID        id.NotificationID
	notifications map[id.NotificationID]*Notification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{notifications: make(map[id.NotificationID]*Notification)}
}

func (s *InMemoryStore) Create(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	n.ID = s.nextID
	clone := *n
	s.notifications[n.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, notificationID id.NotificationID) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[notificationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *n
	return &clone, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			clone := *n
			out = append(out, &clone)
		}
	}
	slices.SortFunc(out, func(a, b *Notification) int { return int(b.ID - a.ID) })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[n.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *n
	s.notifications[n.ID] = &clone
	return nil
}

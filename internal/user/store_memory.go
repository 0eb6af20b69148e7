package user

import (
	"context"
	"slices"
	"strings"
	"sync"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemoryStore keeps users in process memory.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID id.UserID
	users  map[id.UserID]*User
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{users: make(map[id.UserID]*User)}
}

func (s *InMemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return sentinel.ErrConflict
		}
	}
	s.nextID++
	u.ID = s.nextID
	clone := *u
	s.users[u.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *InMemoryStore) List(_ context.Context, activeOnly bool) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*User
	for _, u := range s.users {
		if activeOnly && !u.Active {
			continue
		}
		clone := *u
		out = append(out, &clone)
	}
	slices.SortFunc(out, func(a, b *User) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *u
	s.users[u.ID] = &clone
	return nil
}

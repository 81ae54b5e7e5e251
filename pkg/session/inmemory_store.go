package session

import (
	"context"
	"sync"

	"github.com/psiforge/commit-lib/pkg/common/session"
)

// InMemorySessionStore keeps sessions in a mutex-guarded map, the same shape
// as the in-memory commitment store.
type InMemorySessionStore struct {
	lock     sync.RWMutex
	sessions map[string]*session.Record
	invites  map[string]string
}

var _ session.Store = (*InMemorySessionStore)(nil)

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[string]*session.Record),
		invites:  make(map[string]string),
	}
}

func (s *InMemorySessionStore) Import(_ context.Context, record *session.Record) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.sessions[record.ID] = record.Clone()
	if record.InviteCode != "" {
		s.invites[record.InviteCode] = record.ID
	}
	return nil
}

func (s *InMemorySessionStore) Get(_ context.Context, id string) (*session.Record, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	record, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return record.Clone(), nil
}

func (s *InMemorySessionStore) GetByInvite(_ context.Context, inviteCode string) (*session.Record, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	id, ok := s.invites[inviteCode]
	if !ok {
		return nil, session.ErrInviteNotFound
	}
	record, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return record.Clone(), nil
}

func (s *InMemorySessionStore) Update(_ context.Context, id string, fn func(*session.Record) error) (*session.Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	record, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}

	updated := record.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	s.sessions[id] = updated
	return updated.Clone(), nil
}

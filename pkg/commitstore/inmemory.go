package commitstore

import (
	"context"
	"sync"

	"github.com/psiforge/commit-lib/pkg/common/commitstore"
)

// InMemoryCommitStore keeps records in a mutex-guarded map. It is the
// degraded-mode and test implementation; nothing survives a restart.
type InMemoryCommitStore struct {
	lock  sync.RWMutex
	store map[string]*commitstore.Record
}

var _ commitstore.Store = (*InMemoryCommitStore)(nil)

func NewInMemoryCommitStore() *InMemoryCommitStore {
	return &InMemoryCommitStore{
		store: make(map[string]*commitstore.Record),
	}
}

func (cs *InMemoryCommitStore) Put(_ context.Context, record *commitstore.Record) error {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	if _, ok := cs.store[record.ID]; ok {
		return commitstore.ErrDuplicateID
	}

	cs.store[record.ID] = record.Clone()
	return nil
}

func (cs *InMemoryCommitStore) Get(_ context.Context, id string) (*commitstore.Record, error) {
	cs.lock.RLock()
	defer cs.lock.RUnlock()

	record, ok := cs.store[id]
	if !ok {
		return nil, commitstore.ErrNotFound
	}

	return record.Clone(), nil
}

func (cs *InMemoryCommitStore) CompareAndMarkRevealed(_ context.Context, id string) error {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	record, ok := cs.store[id]
	if !ok {
		return commitstore.ErrNotFound
	}
	if record.Revealed {
		return commitstore.ErrAlreadyRevealed
	}

	record.Revealed = true
	return nil
}

func (cs *InMemoryCommitStore) SetScore(_ context.Context, id string, score *commitstore.ScoreSummary) error {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	record, ok := cs.store[id]
	if !ok {
		return commitstore.ErrNotFound
	}

	s := *score
	record.Score = &s
	return nil
}

func (cs *InMemoryCommitStore) FindBySession(_ context.Context, sessionID string) ([]*commitstore.Record, error) {
	cs.lock.RLock()
	defer cs.lock.RUnlock()

	var out []*commitstore.Record
	for _, record := range cs.store {
		if record.SessionID == sessionID {
			out = append(out, record.Clone())
		}
	}
	return out, nil
}

package commitstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/psiforge/commit-lib/pkg/common/commitstore"
)

// FileCommitStore is the durable implementation: one CBOR-encoded file per
// record under a base directory, written with a temp-file-and-rename so that
// a crash never leaves a half-written record behind.
//
// A single process-wide mutex serializes CompareAndMarkRevealed, which keeps
// the check-and-set atomic for every caller sharing this store instance. A
// multi-process deployment needs a store backed by something with real
// row-level atomicity instead.
type FileCommitStore struct {
	dir  string
	lock sync.Mutex
}

var _ commitstore.Store = (*FileCommitStore)(nil)

func NewFileCommitStore(dir string) (*FileCommitStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.WithMessage(err, "commitstore: create base directory")
	}
	return &FileCommitStore{dir: dir}, nil
}

func (cs *FileCommitStore) path(id string) string {
	return filepath.Join(cs.dir, id+".cbor")
}

func (cs *FileCommitStore) Put(_ context.Context, record *commitstore.Record) error {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	if _, err := os.Stat(cs.path(record.ID)); err == nil {
		return commitstore.ErrDuplicateID
	}
	return cs.write(record)
}

func (cs *FileCommitStore) Get(_ context.Context, id string) (*commitstore.Record, error) {
	cs.lock.Lock()
	defer cs.lock.Unlock()
	return cs.read(id)
}

func (cs *FileCommitStore) CompareAndMarkRevealed(_ context.Context, id string) error {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	record, err := cs.read(id)
	if err != nil {
		return err
	}
	if record.Revealed {
		return commitstore.ErrAlreadyRevealed
	}

	record.Revealed = true
	return cs.write(record)
}

func (cs *FileCommitStore) SetScore(_ context.Context, id string, score *commitstore.ScoreSummary) error {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	record, err := cs.read(id)
	if err != nil {
		return err
	}

	s := *score
	record.Score = &s
	return cs.write(record)
}

func (cs *FileCommitStore) FindBySession(_ context.Context, sessionID string) ([]*commitstore.Record, error) {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	entries, err := os.ReadDir(cs.dir)
	if err != nil {
		return nil, errors.WithMessage(err, "commitstore: list records")
	}

	var out []*commitstore.Record
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".cbor") {
			continue
		}
		record, err := cs.read(strings.TrimSuffix(name, ".cbor"))
		if err != nil {
			return nil, err
		}
		if record.SessionID == sessionID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (cs *FileCommitStore) read(id string) (*commitstore.Record, error) {
	data, err := os.ReadFile(cs.path(id))
	if os.IsNotExist(err) {
		return nil, commitstore.ErrNotFound
	}
	if err != nil {
		return nil, errors.WithMessage(err, "commitstore: read record")
	}

	var record commitstore.Record
	if err := cbor.Unmarshal(data, &record); err != nil {
		return nil, errors.WithMessagef(err, "commitstore: corrupted record %s", id)
	}
	return &record, nil
}

func (cs *FileCommitStore) write(record *commitstore.Record) error {
	data, err := cbor.Marshal(record)
	if err != nil {
		return errors.WithMessage(err, "commitstore: encode record")
	}

	tmp := filepath.Join(cs.dir, "tmp-"+uuid.New().String())
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.WithMessage(err, "commitstore: write record")
	}
	if err := os.Rename(tmp, cs.path(record.ID)); err != nil {
		_ = os.Remove(tmp)
		return errors.WithMessage(err, "commitstore: publish record")
	}
	return nil
}

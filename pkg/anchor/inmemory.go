package anchor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// InMemoryStorage is a content-addressed map: the locator is the hex SHA-256
// of the blob. Used for tests and degraded mode when the real anchor service
// is unavailable.
type InMemoryStorage struct {
	lock  sync.RWMutex
	blobs map[string][]byte
}

var _ Storage = (*InMemoryStorage)(nil)

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		blobs: make(map[string][]byte),
	}
}

// Locator returns the content address for blob without storing it.
func Locator(blob []byte) string {
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

func (s *InMemoryStorage) Store(_ context.Context, blob []byte) (string, error) {
	if len(blob) == 0 {
		return "", ErrEmptyBlob
	}

	locator := Locator(blob)

	s.lock.Lock()
	defer s.lock.Unlock()
	s.blobs[locator] = append([]byte(nil), blob...)
	return locator, nil
}

func (s *InMemoryStorage) Retrieve(_ context.Context, locator string) ([]byte, error) {
	s.lock.RLock()
	blob, ok := s.blobs[locator]
	s.lock.RUnlock()
	if !ok {
		return nil, ErrBlobNotFound
	}

	// paranoia against a corrupted map entry
	if Locator(blob) != locator {
		return nil, ErrContentMismatch
	}
	return append([]byte(nil), blob...), nil
}

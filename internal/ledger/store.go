// Package ledger persists day-partitioned snapshot history in a remote,
// version-controlled object store under optimistic concurrency.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// ErrNotFound reports that the requested object does not exist yet.
var ErrNotFound = errors.New("ledger object not found")

// ErrRevisionMismatch reports that the object changed since it was pulled:
// the revision-token precondition on push failed.
var ErrRevisionMismatch = errors.New("ledger revision mismatch")

// ObjectStore is the remote content store boundary: object-level reads
// returning a revision token, and conditional writes presenting one.
type ObjectStore interface {
	// Get returns the object's content and its revision token.
	Get(ctx context.Context, path string) (data []byte, rev string, err error)
	// Put writes content under path. A non-empty rev demands the object
	// is unchanged since that revision was read; an empty rev demands
	// the object does not exist yet. Either violation is
	// ErrRevisionMismatch. Returns the new revision token.
	Put(ctx context.Context, path string, data []byte, rev string) (newRev string, err error)
}

// MemoryStore is an in-process ObjectStore used by tests and dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data []byte
	gen  int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

// Get implements ObjectStore.
func (s *MemoryStore) Get(_ context.Context, path string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[path]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return append([]byte(nil), obj.data...), strconv.FormatInt(obj.gen, 10), nil
}

// Put implements ObjectStore with generation-style preconditions.
func (s *MemoryStore) Put(_ context.Context, path string, data []byte, rev string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, exists := s.objects[path]

	if rev == "" {
		if exists {
			return "", fmt.Errorf("%w: %s already exists", ErrRevisionMismatch, path)
		}
		next := memoryObject{data: append([]byte(nil), data...), gen: 1}
		s.objects[path] = next
		return "1", nil
	}

	if !exists || strconv.FormatInt(obj.gen, 10) != rev {
		return "", fmt.Errorf("%w: %s", ErrRevisionMismatch, path)
	}
	next := memoryObject{data: append([]byte(nil), data...), gen: obj.gen + 1}
	s.objects[path] = next
	return strconv.FormatInt(next.gen, 10), nil
}

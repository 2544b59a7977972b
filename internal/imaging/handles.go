package imaging

import (
	"sync"

	"github.com/google/uuid"
)

// HandleStore holds the bytes behind transient "blob:" locators.
//
// A handle starts with one reference. Retain adds a reference and Release
// drops one; when the count reaches zero the bytes are freed and any later
// dereference fails with ErrHandleNotFound.
//
// HandleStore is safe for concurrent use.
type HandleStore struct {
	mu      sync.Mutex
	entries map[Locator]*handleEntry
}

type handleEntry struct {
	data []byte
	refs int
}

// NewHandleStore creates an empty handle store.
func NewHandleStore() *HandleStore {
	return &HandleStore{
		entries: make(map[Locator]*handleEntry),
	}
}

// Create stores a copy of data and returns a new transient handle for it.
func (s *HandleStore) Create(data []byte) Locator {
	buf := make([]byte, len(data))
	copy(buf, data)

	loc := Locator(handlePrefix + uuid.NewString())

	s.mu.Lock()
	s.entries[loc] = &handleEntry{data: buf, refs: 1}
	s.mu.Unlock()

	return loc
}

// Retain adds a reference to an existing handle.
func (s *HandleStore) Retain(loc Locator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[loc]
	if !ok {
		return ErrHandleNotFound
	}
	e.refs++
	return nil
}

// Release drops a reference. It returns true when the handle was freed.
// Releasing an unknown handle is a no-op.
func (s *HandleStore) Release(loc Locator) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[loc]
	if !ok {
		return false
	}
	e.refs--
	if e.refs <= 0 {
		delete(s.entries, loc)
		return true
	}
	return false
}

// Len returns the number of live handles.
func (s *HandleStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *HandleStore) bytes(loc Locator) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[loc]
	if !ok {
		return nil, ErrHandleNotFound
	}
	return e.data, nil
}

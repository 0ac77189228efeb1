package reqlog

import (
	"sync"

	"github.com/dgnsrekt/netmonitor/internal/types"
)

// ChangeKind names a store mutation.
type ChangeKind string

const (
	ChangeAppend ChangeKind = "append"
	ChangeUpdate ChangeKind = "update"
	ChangeClear  ChangeKind = "clear"
)

// Change describes one mutation. Record is the post-mutation state and is
// empty for ChangeClear.
type Change struct {
	Kind   ChangeKind          `json:"kind"`
	Record types.RequestRecord `json:"record"`
}

// Store is the ordered, in-memory request log. Records are kept in append
// order and replaced whole on update, so a reader never observes a partial
// merge.
type Store struct {
	mu        sync.RWMutex
	records   []types.RequestRecord
	index     map[string]int
	observers []func(Change)
}

func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// Observe registers fn to be called after every mutation. Observers run in
// registration order while the store lock is held and must not block or call
// back into the store.
func (s *Store) Observe(fn func(Change)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Append adds rec at the end of the log. No deduplication is done; a repeated
// id shadows the earlier record for Update and Get.
func (s *Store) Append(rec types.RequestRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index[rec.ID] = len(s.records)
	s.records = append(s.records, rec)
	s.notify(Change{Kind: ChangeAppend, Record: rec})
}

// Update applies patch to a copy of the record with the given id and swaps the
// copy in place. It returns false, without error, when the id is not present,
// e.g. because the log was cleared while the call was in flight.
func (s *Store) Update(id string, patch func(*types.RequestRecord)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return false
	}
	next := s.records[i].Clone()
	if patch != nil {
		patch(&next)
	}
	next.ID = id
	s.records[i] = next
	s.notify(Change{Kind: ChangeUpdate, Record: next})
	return true
}

// UpdatePending is Update restricted to records that are still pending. It
// returns false, and notifies no observer, when the id is absent or the record
// has already settled.
func (s *Store) UpdatePending(id string, patch func(*types.RequestRecord)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok || s.records[i].Status != types.StatusPending {
		return false
	}
	next := s.records[i].Clone()
	if patch != nil {
		patch(&next)
	}
	next.ID = id
	s.records[i] = next
	s.notify(Change{Kind: ChangeUpdate, Record: next})
	return true
}

// Clear empties the log.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.index = make(map[string]int)
	s.notify(Change{Kind: ChangeClear})
}

// Snapshot returns the records in initiation order. The slice is owned by the
// caller. Maps inside the records are shared but never mutated by the store.
func (s *Store) Snapshot() []types.RequestRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.RequestRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (types.RequestRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return types.RequestRecord{}, false
	}
	return s.records[i], true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) notify(c Change) {
	for _, fn := range s.observers {
		fn(c)
	}
}

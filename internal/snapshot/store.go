package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/dgnsrekt/netmonitor/internal/types"
)

var uuidRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

var (
	ErrInvalidID = errors.New("invalid snapshot id")
	ErrNotFound  = errors.New("snapshot not found")
)

// SnapshotMeta describes a saved copy of the request log.
type SnapshotMeta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Count     int       `json:"count"`
	Pending   int       `json:"pending"`
	Errors    int       `json:"errors"`
	Domains   []string  `json:"domains,omitempty"`
	SizeBytes int       `json:"size_bytes"`
	Notes     string    `json:"notes,omitempty"`
}

// Store keeps request log snapshots on disk as a metadata sidecar
// (<id>.json) next to the records file (<id>.records.json).
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates a Store and ensures the directory exists.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot store: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) validateID(id string) error {
	if !uuidRe.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func (s *Store) metaPath(id string) string    { return filepath.Join(s.dir, id+".json") }
func (s *Store) recordsPath(id string) string { return filepath.Join(s.dir, id+".records.json") }

// Save writes the records and their metadata. Count, Pending, Errors and
// SizeBytes are filled from records.
func (s *Store) Save(meta SnapshotMeta, records []types.RequestRecord) (SnapshotMeta, error) {
	if err := s.validateID(meta.ID); err != nil {
		return SnapshotMeta{}, err
	}
	if records == nil {
		records = []types.RequestRecord{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return SnapshotMeta{}, fmt.Errorf("snapshot store: marshal records: %w", err)
	}
	meta.Count = len(records)
	meta.Pending, meta.Errors = 0, 0
	for _, r := range records {
		switch r.Status {
		case types.StatusPending:
			meta.Pending++
		case types.StatusError:
			meta.Errors++
		}
	}
	meta.SizeBytes = len(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	recPath := s.recordsPath(meta.ID)
	if err := os.WriteFile(recPath, data, 0o644); err != nil {
		return SnapshotMeta{}, fmt.Errorf("snapshot store: write records: %w", err)
	}

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		_ = os.Remove(recPath)
		return SnapshotMeta{}, fmt.Errorf("snapshot store: marshal meta: %w", err)
	}
	if err := os.WriteFile(s.metaPath(meta.ID), metaBytes, 0o644); err != nil {
		_ = os.Remove(recPath)
		return SnapshotMeta{}, fmt.Errorf("snapshot store: write meta: %w", err)
	}

	return meta, nil
}

// Get reads snapshot metadata by ID.
func (s *Store) Get(id string) (SnapshotMeta, error) {
	if err := s.validateID(id); err != nil {
		return SnapshotMeta{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readMeta(id)
}

func (s *Store) readMeta(id string) (SnapshotMeta, error) {
	data, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return SnapshotMeta{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return SnapshotMeta{}, fmt.Errorf("snapshot store: read meta: %w", err)
	}

	var meta SnapshotMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return SnapshotMeta{}, fmt.Errorf("snapshot store: unmarshal meta: %w", err)
	}
	return meta, nil
}

// List returns all snapshots sorted by creation time (newest first).
func (s *Store) List() ([]SnapshotMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("snapshot store: glob: %w", err)
	}

	metas := make([]SnapshotMeta, 0, len(matches))
	for _, path := range matches {
		id := filepath.Base(path)
		id = id[:len(id)-len(".json")]
		if !uuidRe.MatchString(id) {
			continue
		}
		meta, err := s.readMeta(id)
		if err != nil {
			slog.Debug("snapshot meta unreadable", "path", path, "error", err)
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})

	return metas, nil
}

// ReadRecords returns the records saved with a snapshot.
func (s *Store) ReadRecords(id string) ([]types.RequestRecord, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.recordsPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: records for %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("snapshot store: read records: %w", err)
	}
	var records []types.RequestRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("snapshot store: unmarshal records: %w", err)
	}
	return records, nil
}

// Delete removes both the records and metadata files.
func (s *Store) Delete(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.recordsPath(id)); err != nil {
		slog.Debug("snapshot records cleanup failed", "id", id, "error", err)
	}
	if err := os.Remove(s.metaPath(id)); err != nil {
		return fmt.Errorf("snapshot store: remove meta: %w", err)
	}
	return nil
}

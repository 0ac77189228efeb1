package monitor

import (
	"errors"

	"github.com/google/uuid"

	"github.com/dgnsrekt/netmonitor/internal/snapshot"
	"github.com/dgnsrekt/netmonitor/internal/types"
)

func (s *Service) requireSnapshots() error {
	if s.snapshots == nil {
		return newError(CodeUnavailable, "snapshots are disabled", nil)
	}
	return nil
}

func mapSnapshotErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, snapshot.ErrInvalidID):
		return newError(CodeValidation, err.Error(), err)
	case errors.Is(err, snapshot.ErrNotFound):
		return newError(CodeNotFound, err.Error(), err)
	default:
		return err
	}
}

// SaveSnapshot writes the current log to disk.
func (s *Service) SaveSnapshot(notes string) (snapshot.SnapshotMeta, error) {
	if err := s.requireSnapshots(); err != nil {
		return snapshot.SnapshotMeta{}, err
	}
	meta := snapshot.SnapshotMeta{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
		Domains:   s.matcher.Domains(),
		Notes:     notes,
	}
	saved, err := s.snapshots.Save(meta, s.store.Snapshot())
	return saved, mapSnapshotErr(err)
}

func (s *Service) ListSnapshots() ([]snapshot.SnapshotMeta, error) {
	if err := s.requireSnapshots(); err != nil {
		return nil, err
	}
	metas, err := s.snapshots.List()
	return metas, mapSnapshotErr(err)
}

// GetSnapshot returns a saved snapshot and its records.
func (s *Service) GetSnapshot(id string) (snapshot.SnapshotMeta, []types.RequestRecord, error) {
	if err := s.requireSnapshots(); err != nil {
		return snapshot.SnapshotMeta{}, nil, err
	}
	if err := requireNonEmpty(id, "id"); err != nil {
		return snapshot.SnapshotMeta{}, nil, err
	}
	meta, err := s.snapshots.Get(id)
	if err != nil {
		return snapshot.SnapshotMeta{}, nil, mapSnapshotErr(err)
	}
	records, err := s.snapshots.ReadRecords(id)
	if err != nil {
		return snapshot.SnapshotMeta{}, nil, mapSnapshotErr(err)
	}
	return meta, records, nil
}

func (s *Service) DeleteSnapshot(id string) error {
	if err := s.requireSnapshots(); err != nil {
		return err
	}
	if err := requireNonEmpty(id, "id"); err != nil {
		return err
	}
	return mapSnapshotErr(s.snapshots.Delete(id))
}

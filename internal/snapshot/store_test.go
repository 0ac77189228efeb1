package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/netmonitor/internal/types"
)

const testID = "123e4567-e89b-12d3-a456-426614174000"

func TestSaveAndReadBack(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "snaps"))
	if err != nil {
		t.Fatalf("NewStore() = %v", err)
	}

	status := 500
	records := []types.RequestRecord{
		{ID: "a", Type: types.CallFetch, Method: "GET", URL: "https://events.launchdarkly.com/a", Status: types.StatusCompleted, Body: types.AbsentPayload()},
		{ID: "b", Type: types.CallXHR, Method: "POST", URL: "https://events.launchdarkly.com/b", Status: types.StatusError, ResponseStatus: &status, Error: "HTTP 500", Body: types.TextPayload("x")},
		{ID: "c", Type: types.CallFetch, Method: "GET", URL: "https://events.launchdarkly.com/c", Status: types.StatusPending},
	}
	meta, err := store.Save(SnapshotMeta{ID: testID, CreatedAt: time.Now().UTC(), Notes: "checkout flow"}, records)
	if err != nil {
		t.Fatalf("Save() = %v", err)
	}
	if meta.Count != 3 || meta.Pending != 1 || meta.Errors != 1 || meta.SizeBytes == 0 {
		t.Fatalf("Save() meta = %+v", meta)
	}

	got, err := store.Get(testID)
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if got.Notes != "checkout flow" || got.Count != 3 {
		t.Fatalf("Get() = %+v", got)
	}

	back, err := store.ReadRecords(testID)
	if err != nil {
		t.Fatalf("ReadRecords() = %v", err)
	}
	if len(back) != 3 || back[1].Error != "HTTP 500" || *back[1].ResponseStatus != 500 {
		t.Fatalf("ReadRecords() = %+v", back)
	}
	if back[1].Body.Kind != types.PayloadText || back[1].Body.Text != "x" {
		t.Fatalf("ReadRecords() body = %+v; want text x", back[1].Body)
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("List() = %v", err)
	}
	if len(list) != 1 || list[0].ID != testID {
		t.Fatalf("List() = %+v; want one snapshot", list)
	}
}

func TestInvalidAndMissingIDs(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() = %v", err)
	}
	if _, err := store.Get("../etc/passwd"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("Get(bad) = %v; want ErrInvalidID", err)
	}
	if _, err := store.Get(testID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) = %v; want ErrNotFound", err)
	}
	if err := store.Delete(testID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete(missing) = %v; want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() = %v", err)
	}
	older := "00000000-0000-4000-8000-000000000001"
	newer := "00000000-0000-4000-8000-000000000002"
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if _, err := store.Save(SnapshotMeta{ID: older, CreatedAt: base}, nil); err != nil {
		t.Fatalf("Save(older) = %v", err)
	}
	if _, err := store.Save(SnapshotMeta{ID: newer, CreatedAt: base.Add(time.Minute)}, nil); err != nil {
		t.Fatalf("Save(newer) = %v", err)
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("List() = %v", err)
	}
	if len(list) != 2 || list[0].ID != newer || list[1].ID != older {
		t.Fatalf("List() order = %+v", list)
	}
}

func TestDeleteLogsRecordsCleanupFailureWhenRecordsMissing(t *testing.T) {
	dir := t.TempDir()
	store := &Store{dir: dir}
	jsonPath := filepath.Join(dir, testID+".json")

	metaBytes, err := json.Marshal(SnapshotMeta{ID: testID})
	if err != nil {
		t.Fatalf("json.Marshal() failed: %v", err)
	}
	if err := os.WriteFile(jsonPath, metaBytes, 0o644); err != nil {
		t.Fatalf("os.WriteFile() failed: %v", err)
	}

	var buf bytes.Buffer
	oldLogger := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() {
		slog.SetDefault(oldLogger)
	})

	if err := store.Delete(testID); err != nil {
		t.Fatalf("Delete() = %v; want nil", err)
	}

	if !strings.Contains(buf.String(), "snapshot records cleanup failed") {
		t.Fatalf("expected records cleanup debug log, got %q", buf.String())
	}
	if _, err := os.Stat(jsonPath); !os.IsNotExist(err) {
		t.Fatalf("meta file still present: %v", err)
	}
}

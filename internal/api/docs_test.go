package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgnsrekt/netmonitor/internal/monitor"
	"github.com/dgnsrekt/netmonitor/internal/snapshot"
	"github.com/dgnsrekt/netmonitor/internal/types"
)

type stubService struct{}

func (s *stubService) Requests(f monitor.Filter) ([]types.RequestRecord, error) {
	return []types.RequestRecord{}, nil
}
func (s *stubService) Request(id string) (types.RequestRecord, error) {
	return types.RequestRecord{}, nil
}
func (s *stubService) Clear()                 {}
func (s *stubService) Activate() error        { return nil }
func (s *stubService) Deactivate() error      { return nil }
func (s *stubService) Status() monitor.Status { return monitor.Status{} }
func (s *stubService) Domains() []string      { return nil }
func (s *stubService) SetDomains(domains []string) ([]string, error) {
	return domains, nil
}
func (s *stubService) SaveSnapshot(notes string) (snapshot.SnapshotMeta, error) {
	return snapshot.SnapshotMeta{}, nil
}
func (s *stubService) ListSnapshots() ([]snapshot.SnapshotMeta, error) {
	return []snapshot.SnapshotMeta{}, nil
}
func (s *stubService) GetSnapshot(id string) (snapshot.SnapshotMeta, []types.RequestRecord, error) {
	return snapshot.SnapshotMeta{}, nil, nil
}
func (s *stubService) DeleteSnapshot(id string) error { return nil }

func TestDocsDarkMode(t *testing.T) {
	h := NewServer(&stubService{}, nil)
	for _, path := range []string{"/docs", "/docs/stream"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want %d", path, w.Code, http.StatusOK)
		}
		if !strings.Contains(w.Body.String(), `data-theme="dark"`) {
			t.Fatalf("%s missing dark theme marker", path)
		}
	}
}

func TestDocsListsRoutes(t *testing.T) {
	h := NewServer(&stubService{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/docs", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	body := w.Body.String()
	for _, route := range []string{
		"/api/v1/requests",
		"/api/v1/requests/{id}",
		"/api/v1/monitor/activate",
		"/api/v1/monitor/deactivate",
		"/api/v1/monitor/domains",
		"/api/v1/snapshots/{snapshot_id}",
		"/api/v1/requests/stream",
		"/api/v1/requests/ws",
		`href="/docs/stream"`,
	} {
		if !strings.Contains(body, route) {
			t.Fatalf("/docs missing %s", route)
		}
	}
}

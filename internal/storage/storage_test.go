package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgnsrekt/netmonitor/internal/reqlog"
	"github.com/dgnsrekt/netmonitor/internal/types"
)

func TestHostPathSegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://events.launchdarkly.com/bulk", "events.launchdarkly.com"},
		{"http://LocalHost:8080/x", "localhost_8080"},
		{"/relative", "unknown"},
		{"://bad", "unknown"},
	}
	for _, tt := range tests {
		if got := HostPathSegment(tt.in); got != tt.want {
			t.Fatalf("HostPathSegment(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestTransformURLToPathSegment(t *testing.T) {
	got, err := TransformURLToPathSegment("https://app.example.com/flags/overview/")
	if err != nil {
		t.Fatalf("TransformURLToPathSegment() error = %v", err)
	}
	if got != "flags_overview" {
		t.Fatalf("TransformURLToPathSegment() = %q; want %q", got, "flags_overview")
	}
	if got, _ := TransformURLToPathSegment("https://app.example.com"); got != "root" {
		t.Fatalf("TransformURLToPathSegment(no path) = %q; want root", got)
	}
}

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

func TestJSONLWriterWritesDatedFile(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLWriter(dir, "host.test", ExportFileName, 10, 1)
	w.now = func() time.Time { return time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC) }

	if err := w.Write(map[string]int{"n": 1}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Write(map[string]int{"n": 2}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	lines := readLines(t, filepath.Join(dir, "2024-05-01", "host.test", ExportFileName))
	if len(lines) != 2 || lines[1]["n"] != float64(2) {
		t.Fatalf("lines = %v", lines)
	}
	if err := w.Write("late"); err != ErrWriterClosed {
		t.Fatalf("Write() after Close = %v; want ErrWriterClosed", err)
	}
}

func TestExporterWritesOnlySettledRecords(t *testing.T) {
	dir := t.TempDir()
	exp := NewExporter(NewWriterRegistry(dir, 10, 1))
	store := reqlog.NewStore()
	store.Observe(exp.OnChange)

	store.Append(types.RequestRecord{ID: "a", URL: "https://events.launchdarkly.com/bulk", Status: types.StatusPending})
	store.Append(types.RequestRecord{ID: "b", URL: "https://other.example.com/", Status: types.StatusPending})
	store.Update("a", func(r *types.RequestRecord) { r.Status = types.StatusCompleted })
	store.Update("b", func(r *types.RequestRecord) { r.Headers = map[string]string{"x": "1"} })
	store.Clear()

	if n := exp.registry.Len(); n != 1 {
		t.Fatalf("writers = %d; want 1", n)
	}
	if err := exp.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*", "events.launchdarkly.com", ExportFileName))
	if err != nil || len(matches) != 1 {
		t.Fatalf("export files = %v, %v; want one", matches, err)
	}
	lines := readLines(t, matches[0])
	if len(lines) != 1 || lines[0]["id"] != "a" || lines[0]["status"] != "completed" {
		t.Fatalf("lines = %v; want the completed record only", lines)
	}
}

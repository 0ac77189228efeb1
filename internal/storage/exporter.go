package storage

import (
	"log/slog"

	"github.com/dgnsrekt/netmonitor/internal/reqlog"
)

// Exporter appends settled records to per-host JSONL files. Pending
// records are not written; each call produces exactly one line once it
// completes or fails.
type Exporter struct {
	registry *WriterRegistry
}

func NewExporter(registry *WriterRegistry) *Exporter {
	return &Exporter{registry: registry}
}

// OnChange has the signature of a reqlog.Store observer.
func (e *Exporter) OnChange(c reqlog.Change) {
	if c.Kind != reqlog.ChangeUpdate || !c.Record.Status.IsTerminal() {
		return
	}
	host := HostPathSegment(c.Record.URL)
	if err := e.registry.GetWriter(host).Write(c.Record); err != nil {
		slog.Debug("Export dropped record", "id", c.Record.ID, "host", host, "error", err)
	}
}

func (e *Exporter) Close() error {
	return e.registry.Close()
}

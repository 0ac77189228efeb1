package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/netmonitor/internal/monitor"
	"github.com/dgnsrekt/netmonitor/internal/relay"
	"github.com/dgnsrekt/netmonitor/internal/snapshot"
	"github.com/dgnsrekt/netmonitor/internal/types"
)

type Service interface {
	Requests(f monitor.Filter) ([]types.RequestRecord, error)
	Request(id string) (types.RequestRecord, error)
	Clear()
	Activate() error
	Deactivate() error
	Status() monitor.Status
	Domains() []string
	SetDomains(domains []string) ([]string, error)
	SaveSnapshot(notes string) (snapshot.SnapshotMeta, error)
	ListSnapshots() ([]snapshot.SnapshotMeta, error)
	GetSnapshot(id string) (snapshot.SnapshotMeta, []types.RequestRecord, error)
	DeleteSnapshot(id string) error
}

// Option adds optional gauges to the monitor status.
type Option func(*gauges)

type gauges struct {
	tabs     interface{ GetTabCount() int }
	inflight interface{ PendingCount() int }
	notify   interface{ Dropped() int64 }
}

// WithBrowser reports the attached tab count and the browser requests still
// awaiting a response.
func WithBrowser(tabs interface{ GetTabCount() int }, inflight interface{ PendingCount() int }) Option {
	return func(g *gauges) {
		g.tabs = tabs
		g.inflight = inflight
	}
}

// WithNotifier reports failure notifications dropped on a full queue.
func WithNotifier(n interface{ Dropped() int64 }) Option {
	return func(g *gauges) { g.notify = n }
}

// NewServer builds the debug API. The change feeds are mounted only when
// broker is non-nil.
func NewServer(svc Service, broker *relay.Broker, opts ...Option) http.Handler {
	var g gauges
	for _, opt := range opts {
		opt(&g)
	}

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Network Monitor API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	router.Get("/docs/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(streamDocsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})

	registerRequestHandlers(api, svc)
	registerMonitorHandlers(api, svc, broker, g)
	registerSnapshotHandlers(api, svc)

	if broker != nil {
		current := func() any {
			recs, _ := svc.Requests(monitor.Filter{})
			return recs
		}
		router.Get("/api/v1/requests/stream", relay.SSEHandler(broker, current))
		router.Get("/api/v1/requests/ws", relay.WebSocketHandler(broker, current))
	}

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *monitor.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case monitor.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case monitor.CodeNotFound:
			return huma.Error404NotFound(coded.Message)
		case monitor.CodeConflict:
			return huma.Error409Conflict(coded.Message)
		case monitor.CodeUnavailable:
			return huma.Error503ServiceUnavailable(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}

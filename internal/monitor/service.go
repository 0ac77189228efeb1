package monitor

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/netmonitor/internal/capture"
	"github.com/dgnsrekt/netmonitor/internal/reqlog"
	"github.com/dgnsrekt/netmonitor/internal/snapshot"
	"github.com/dgnsrekt/netmonitor/internal/types"
)

// Options configures a Service. Zero values pick defaults.
type Options struct {
	Domains      []string
	MaxBodyBytes int
	Redactor     *capture.Redactor
	// Fetch is the real promise-style primitive; nil uses
	// http.DefaultTransport.
	Fetch http.RoundTripper
	// XHR is the real event-style primitive; nil runs calls over Fetch.
	XHR capture.CallOpener
	// Snapshots enables saving copies of the log; nil disables it.
	Snapshots *snapshot.Store
	Now       func() time.Time
	NewID     func() string
}

// Filter narrows a request listing. Empty fields match everything.
type Filter struct {
	Status types.Status
	Type   types.CallType
}

// Status summarizes the monitor for the debug panel.
type Status struct {
	Active    bool     `json:"active"`
	Domains   []string `json:"domains"`
	Total     int      `json:"total"`
	Pending   int      `json:"pending"`
	Completed int      `json:"completed"`
	Errors    int      `json:"errors"`
}

// Service ties the host primitives, the interceptor and the request log
// together for the API and the binary.
type Service struct {
	host        *capture.Host
	store       *reqlog.Store
	matcher     *capture.DomainMatcher
	recorder    *capture.Recorder
	interceptor *capture.Interceptor
	snapshots   *snapshot.Store
	now         func() time.Time
}

func New(opts Options) *Service {
	domains := opts.Domains
	if domains == nil {
		domains = capture.DefaultDomains
	}
	store := reqlog.NewStore()
	matcher := capture.NewDomainMatcher(domains)
	recorder := capture.NewRecorder(store, capture.RecorderOptions{
		Matcher:      matcher,
		Redactor:     opts.Redactor,
		MaxBodyBytes: opts.MaxBodyBytes,
		Now:          opts.Now,
		NewID:        opts.NewID,
	})
	host := capture.NewHost(opts.Fetch, opts.XHR)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		host:        host,
		store:       store,
		matcher:     matcher,
		recorder:    recorder,
		interceptor: capture.NewInterceptor(host, recorder),
		snapshots:   opts.Snapshots,
		now:         now,
	}
}

func (s *Service) Store() *reqlog.Store { return s.store }

func (s *Service) Recorder() *capture.Recorder { return s.recorder }

// Client returns an HTTP client whose requests go through the monitored
// fetch primitive.
func (s *Service) Client() *http.Client { return s.host.Client() }

// NewCall opens an event-style call through the monitored primitive.
func (s *Service) NewCall() capture.Call { return s.host.NewCall() }

func (s *Service) Activate() error {
	if err := s.interceptor.Activate(); err != nil {
		if errors.Is(err, capture.ErrAlreadyActive) {
			return newError(CodeConflict, "monitor is already active", err)
		}
		return err
	}
	return nil
}

func (s *Service) Deactivate() error {
	if err := s.interceptor.Deactivate(); err != nil {
		if errors.Is(err, capture.ErrNotActive) {
			return newError(CodeConflict, "monitor is not active", err)
		}
		return err
	}
	return nil
}

func (s *Service) Active() bool { return s.interceptor.Active() }

func (s *Service) Clear() { s.store.Clear() }

// Requests lists records in initiation order.
func (s *Service) Requests(f Filter) ([]types.RequestRecord, error) {
	switch f.Status {
	case "", types.StatusPending, types.StatusCompleted, types.StatusError:
	default:
		return nil, newError(CodeValidation, "unknown status "+string(f.Status), nil)
	}
	switch f.Type {
	case "", types.CallFetch, types.CallXHR:
	default:
		return nil, newError(CodeValidation, "unknown type "+string(f.Type), nil)
	}

	all := s.store.Snapshot()
	if f.Status == "" && f.Type == "" {
		return all, nil
	}
	out := make([]types.RequestRecord, 0, len(all))
	for _, r := range all {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Type != "" && r.Type != f.Type {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Service) Request(id string) (types.RequestRecord, error) {
	if err := requireNonEmpty(id, "id"); err != nil {
		return types.RequestRecord{}, err
	}
	rec, ok := s.store.Get(strings.TrimSpace(id))
	if !ok {
		return types.RequestRecord{}, newError(CodeNotFound, "request "+id+" not found", nil)
	}
	return rec, nil
}

func (s *Service) Status() Status {
	st := Status{Active: s.Active(), Domains: s.matcher.Domains()}
	for _, r := range s.store.Snapshot() {
		st.Total++
		switch r.Status {
		case types.StatusPending:
			st.Pending++
		case types.StatusCompleted:
			st.Completed++
		case types.StatusError:
			st.Errors++
		}
	}
	return st
}

func (s *Service) Domains() []string { return s.matcher.Domains() }

// SetDomains replaces the capture scope. Entries are bare host fragments; an
// empty list disables capture without deactivating.
func (s *Service) SetDomains(domains []string) ([]string, error) {
	for i, d := range domains {
		field := "domains[" + strconv.Itoa(i) + "]"
		if err := requireNonEmpty(d, field); err != nil {
			return nil, err
		}
		if strings.ContainsAny(strings.TrimSpace(d), "/: ") {
			return nil, newError(CodeValidation, field+" must be a host name, not a URL", nil)
		}
	}
	s.matcher.SetDomains(domains)
	return s.matcher.Domains(), nil
}

func requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return newError(CodeValidation, fieldName+" is required", nil)
	}
	return nil
}

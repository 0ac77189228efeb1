package capture

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
)

var (
	ErrAlreadyActive = errors.New("interceptor already active")
	ErrNotActive     = errors.New("interceptor not active")
)

// Interceptor installs recording wrappers on a Host and restores the exact
// primitives it found when deactivated.
type Interceptor struct {
	host *Host
	rec  *Recorder

	mu        sync.Mutex
	active    bool
	origFetch http.RoundTripper
	origXHR   CallOpener
}

func NewInterceptor(host *Host, rec *Recorder) *Interceptor {
	return &Interceptor{host: host, rec: rec}
}

func (i *Interceptor) Recorder() *Recorder { return i.rec }

// Activate wraps both primitives. Calls already in flight keep the
// primitive they started with and are not recorded.
func (i *Interceptor) Activate() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.active {
		return ErrAlreadyActive
	}

	i.origFetch, i.origXHR = i.host.Replace(func(fetch http.RoundTripper, xhr CallOpener) (http.RoundTripper, CallOpener) {
		return &Transport{Base: fetch, Recorder: i.rec}, &trackingOpener{base: xhr, rec: i.rec}
	})
	i.active = true
	slog.Info("network interception activated", "domains", i.rec.Matcher().Domains())
	return nil
}

// Deactivate puts back the primitives captured by Activate. Calls started
// while active still settle their records.
func (i *Interceptor) Deactivate() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.active {
		return ErrNotActive
	}

	i.host.Install(i.origFetch, i.origXHR)
	i.origFetch, i.origXHR = nil, nil
	i.active = false
	slog.Info("network interception deactivated")
	return nil
}

func (i *Interceptor) Active() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.active
}

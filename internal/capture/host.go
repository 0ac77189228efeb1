package capture

import (
	"net/http"
	"sync"
)

// Host owns the two network primitives an application uses: a round tripper
// for promise-style calls and a call opener for event-style calls. Code that
// issues requests goes through the Host, so replacing a primitive here
// reaches every caller, including requests started by third-party clients
// built on Client.
type Host struct {
	mu    sync.RWMutex
	fetch http.RoundTripper
	xhr   CallOpener
}

// NewHost returns a Host with the given primitives. A nil fetch uses
// http.DefaultTransport; a nil xhr runs calls over the original fetch
// primitive, not over the Host, so that event-style calls are never seen by a
// fetch wrapper.
func NewHost(fetch http.RoundTripper, xhr CallOpener) *Host {
	if fetch == nil {
		fetch = http.DefaultTransport
	}
	if xhr == nil {
		xhr = NewHTTPCallOpener(fetch)
	}
	return &Host{fetch: fetch, xhr: xhr}
}

// Fetch returns the current promise-style primitive.
func (h *Host) Fetch() http.RoundTripper {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.fetch
}

// XHR returns the current event-style primitive.
func (h *Host) XHR() CallOpener {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.xhr
}

// Install sets both primitives and returns the previous ones.
func (h *Host) Install(fetch http.RoundTripper, xhr CallOpener) (http.RoundTripper, CallOpener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	prevFetch, prevXHR := h.fetch, h.xhr
	h.fetch, h.xhr = fetch, xhr
	return prevFetch, prevXHR
}

// Replace swaps both primitives atomically using fn, which receives the
// current ones. It returns the primitives that were replaced.
func (h *Host) Replace(fn func(http.RoundTripper, CallOpener) (http.RoundTripper, CallOpener)) (http.RoundTripper, CallOpener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	prevFetch, prevXHR := h.fetch, h.xhr
	h.fetch, h.xhr = fn(prevFetch, prevXHR)
	return prevFetch, prevXHR
}

// RoundTrip sends req through the current fetch primitive.
func (h *Host) RoundTrip(req *http.Request) (*http.Response, error) {
	return h.Fetch().RoundTrip(req)
}

// NewCall opens a call through the current event-style primitive.
func (h *Host) NewCall() Call {
	return h.XHR().NewCall()
}

// Client returns an http.Client that resolves the fetch primitive on every
// request.
func (h *Host) Client() *http.Client {
	return &http.Client{Transport: h}
}

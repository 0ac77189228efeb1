package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// ReadyState mirrors the staged lifecycle of an event-style call.
type ReadyState int

const (
	StateUnsent ReadyState = iota
	StateOpened
	StateHeadersReceived
	StateLoading
	StateDone
)

func (s ReadyState) String() string {
	switch s {
	case StateUnsent:
		return "unsent"
	case StateOpened:
		return "opened"
	case StateHeadersReceived:
		return "headers_received"
	case StateLoading:
		return "loading"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("ReadyState(%d)", int(s))
	}
}

// ErrInvalidState is returned when a call stage is invoked out of order.
var ErrInvalidState = errors.New("call: invalid state")

// Call is an event-style HTTP call: it is opened, configured and sent in
// separate steps and reports progress through ready-state notifications
// instead of a return value.
type Call interface {
	Open(method, rawURL string) error
	SetRequestHeader(name, value string) error
	// Send starts the request and returns without waiting for the response.
	Send(body any) error
	Abort()
	// OnReadyStateChange adds an observer. Observers are never replaced and
	// run in registration order.
	OnReadyStateChange(fn func(ReadyState))

	ReadyState() ReadyState
	Status() int
	ResponseHeader(name string) string
	AllResponseHeaders() string
	ResponseText() string
	Err() error
}

// CallOpener creates calls.
type CallOpener interface {
	NewCall() Call
}

// CallOpenerFunc adapts a function to CallOpener.
type CallOpenerFunc func() Call

func (f CallOpenerFunc) NewCall() Call { return f() }

// NewHTTPCallOpener returns an opener whose calls run over rt. A nil rt uses
// http.DefaultTransport.
func NewHTTPCallOpener(rt http.RoundTripper) CallOpener {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &httpCallOpener{rt: rt}
}

type httpCallOpener struct {
	rt http.RoundTripper
}

func (o *httpCallOpener) NewCall() Call { return &HTTPCall{rt: o.rt} }

// HTTPCall is the stock Call implementation. Send performs the round trip on
// its own goroutine. A transport failure ends the call in StateDone with
// status 0 and Err set.
type HTTPCall struct {
	rt http.RoundTripper

	mu        sync.Mutex
	state     ReadyState
	method    string
	url       *url.URL
	header    http.Header
	sent      bool
	gen       uint64
	cancel    context.CancelFunc
	status    int
	resHeader http.Header
	resBody   []byte
	err       error
	observers []func(ReadyState)
}

func (c *HTTPCall) Open(method, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("call open: %w", err)
	}
	if method == "" {
		method = http.MethodGet
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	c.state = StateOpened
	c.method = strings.ToUpper(method)
	c.url = u
	c.header = make(http.Header)
	c.sent = false
	c.cancel = nil
	c.status = 0
	c.resHeader = nil
	c.resBody = nil
	c.err = nil
	c.mu.Unlock()

	c.notify(StateOpened)
	return nil
}

func (c *HTTPCall) SetRequestHeader(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateOpened || c.sent {
		return ErrInvalidState
	}
	c.header.Add(name, value)
	return nil
}

func (c *HTTPCall) Send(body any) error {
	data, contentType, err := encodeSendBody(body)
	if err != nil {
		return fmt.Errorf("call send: %w", err)
	}

	c.mu.Lock()
	if c.state != StateOpened || c.sent {
		c.mu.Unlock()
		return ErrInvalidState
	}
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, c.method, c.url.String(), bytes.NewReader(data))
	if err != nil {
		c.mu.Unlock()
		cancel()
		return fmt.Errorf("call send: %w", err)
	}
	if data == nil {
		req.Body = http.NoBody
		req.GetBody = nil
		req.ContentLength = 0
	}
	req.Header = c.header.Clone()
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.sent = true
	c.cancel = cancel
	gen := c.gen
	c.mu.Unlock()

	go c.run(req, cancel, gen)
	return nil
}

// run performs one round trip. Results of a generation superseded by a later
// Open are dropped.
func (c *HTTPCall) run(req *http.Request, cancel context.CancelFunc, gen uint64) {
	defer cancel()

	resp, err := c.rt.RoundTrip(req)
	if err != nil {
		c.finish(gen, 0, nil, nil, err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.status = resp.StatusCode
	c.resHeader = resp.Header.Clone()
	c.state = StateHeadersReceived
	c.mu.Unlock()
	c.notify(StateHeadersReceived)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.state = StateLoading
	c.mu.Unlock()
	c.notify(StateLoading)

	data, readErr := io.ReadAll(resp.Body)
	c.finish(gen, resp.StatusCode, resp.Header, data, readErr)
}

func (c *HTTPCall) finish(gen uint64, status int, header http.Header, body []byte, err error) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	if err != nil {
		// Network errors leave no usable response, as with aborted calls.
		status = 0
		header = nil
		body = nil
	}
	c.status = status
	c.resHeader = header
	c.resBody = body
	c.err = err
	c.state = StateDone
	c.mu.Unlock()
	c.notify(StateDone)
}

func (c *HTTPCall) Abort() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *HTTPCall) OnReadyStateChange(fn func(ReadyState)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

func (c *HTTPCall) notify(state ReadyState) {
	c.mu.Lock()
	observers := make([]func(ReadyState), len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}

func (c *HTTPCall) ReadyState() ReadyState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *HTTPCall) Status() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *HTTPCall) ResponseHeader(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resHeader == nil {
		return ""
	}
	return strings.Join(c.resHeader.Values(name), ", ")
}

// AllResponseHeaders returns the response headers as a CRLF-separated
// "name: value" block with lower-cased, sorted names.
func (c *HTTPCall) AllResponseHeaders() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.resHeader) == 0 {
		return ""
	}
	names := make([]string, 0, len(c.resHeader))
	for name := range c.resHeader {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(strings.ToLower(name))
		b.WriteString(": ")
		b.WriteString(strings.Join(c.resHeader[name], ", "))
		b.WriteString("\r\n")
	}
	return b.String()
}

func (c *HTTPCall) ResponseText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.resBody)
}

func (c *HTTPCall) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// encodeSendBody converts a Send argument to wire bytes and the content type
// to use when the caller set none.
func encodeSendBody(body any) ([]byte, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(v), "text/plain;charset=UTF-8", nil
	case json.RawMessage:
		return []byte(v), "application/json", nil
	case []byte:
		return v, "", nil
	case url.Values:
		return []byte(v.Encode()), "application/x-www-form-urlencoded;charset=UTF-8", nil
	case io.Reader:
		data, err := io.ReadAll(v)
		if err != nil {
			return nil, "", err
		}
		return data, "", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return data, "application/json", nil
	}
}

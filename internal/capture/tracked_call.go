package capture

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/netmonitor/internal/types"
)

// trackingOpener wraps every call it opens.
type trackingOpener struct {
	base CallOpener
	rec  *Recorder
}

func (o *trackingOpener) NewCall() Call {
	return newTrackedCall(o.base.NewCall(), o.rec)
}

// trackedCall records an event-style call as it moves through its stages.
// It subscribes to the inner call once and fans completion out to its own
// observers, so the record is settled before any caller observer runs.
type trackedCall struct {
	inner Call
	rec   *Recorder

	mu          sync.Mutex
	id          string
	start       time.Time
	contentType string
	sent        bool
	settled     bool
	observers   []func(ReadyState)
}

func newTrackedCall(inner Call, rec *Recorder) *trackedCall {
	c := &trackedCall{inner: inner, rec: rec}
	inner.OnReadyStateChange(c.dispatch)
	return c
}

// Open starts a new record. A previous record still in flight is settled as
// aborted, since reopening cancels it.
func (c *trackedCall) Open(method, rawURL string) error {
	c.mu.Lock()
	prevID, prevStart := c.id, c.start
	prevOpen := c.id != "" && !c.settled
	c.id = ""
	c.contentType = ""
	c.sent = false
	c.settled = false
	c.mu.Unlock()

	if prevOpen {
		c.rec.Fail(prevID, prevStart, nil, "aborted")
	}

	if err := c.inner.Open(method, rawURL); err != nil {
		return err
	}
	if !c.rec.Match(rawURL) {
		return nil
	}
	m := method
	if m == "" {
		m = "GET"
	}
	id, start := c.rec.Begin(Request{
		Type:    types.CallXHR,
		URL:     rawURL,
		Method:  strings.ToUpper(m),
		Headers: map[string]string{},
		Body:    types.AbsentPayload(),
	})
	c.mu.Lock()
	c.id, c.start = id, start
	c.mu.Unlock()
	return nil
}

func (c *trackedCall) SetRequestHeader(name, value string) error {
	if err := c.inner.SetRequestHeader(name, value); err != nil {
		return err
	}

	c.mu.Lock()
	id := c.id
	if id != "" && strings.EqualFold(name, "Content-Type") {
		c.contentType = value
	}
	c.mu.Unlock()

	if id != "" {
		c.rec.SetHeader(id, name, value)
	}
	return nil
}

// Send forwards body to the inner call. Only the first Send after Open is
// recorded; a repeat is rejected by the inner call and leaves the record alone.
func (c *trackedCall) Send(body any) error {
	c.mu.Lock()
	id, start, contentType, resend := c.id, c.start, c.contentType, c.sent
	c.sent = true
	c.mu.Unlock()

	if id == "" || resend {
		return c.inner.Send(body)
	}

	forward := body
	if r, ok := body.(io.Reader); ok {
		// A reader can be consumed once; hand the inner call a fresh one.
		data, err := io.ReadAll(r)
		if err != nil {
			return c.inner.Send(body)
		}
		forward = bytes.NewReader(data)
		body = data
	}
	// The body goes on the record before the inner call starts, since the
	// call may settle before Send returns.
	data, defaultType, err := encodeSendBody(body)
	if err == nil && data != nil {
		if contentType == "" {
			contentType = defaultType
		}
		c.rec.SetBody(id, c.rec.DecodeBody(contentType, data))
	}

	if err := c.inner.Send(forward); err != nil {
		c.settleWith(func() { c.rec.Fail(id, start, nil, err.Error()) })
		return err
	}
	return nil
}

func (c *trackedCall) Abort() { c.inner.Abort() }

func (c *trackedCall) OnReadyStateChange(fn func(ReadyState)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

func (c *trackedCall) dispatch(state ReadyState) {
	if state == StateDone {
		c.settleWith(c.settleFromInner)
	}

	c.mu.Lock()
	observers := make([]func(ReadyState), len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}

// settleWith runs fn once per opened, in-scope call.
func (c *trackedCall) settleWith(fn func()) {
	c.mu.Lock()
	if c.id == "" || c.settled {
		c.mu.Unlock()
		return
	}
	c.settled = true
	c.mu.Unlock()
	fn()
}

func (c *trackedCall) settleFromInner() {
	c.mu.Lock()
	id, start := c.id, c.start
	c.mu.Unlock()

	resp := Response{
		Status:  c.inner.Status(),
		Headers: parseHeaderBlock(c.inner.AllResponseHeaders()),
		Body:    c.rec.DecodeBody(c.inner.ResponseHeader("Content-Type"), []byte(c.inner.ResponseText())),
	}
	c.rec.CompleteByStatus(id, start, resp)
}

func (c *trackedCall) ReadyState() ReadyState { return c.inner.ReadyState() }

func (c *trackedCall) Status() int { return c.inner.Status() }

func (c *trackedCall) ResponseHeader(name string) string { return c.inner.ResponseHeader(name) }

func (c *trackedCall) AllResponseHeaders() string { return c.inner.AllResponseHeaders() }

func (c *trackedCall) ResponseText() string { return c.inner.ResponseText() }

func (c *trackedCall) Err() error { return c.inner.Err() }

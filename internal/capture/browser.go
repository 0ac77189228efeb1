package capture

import (
	"encoding/base64"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/dgnsrekt/netmonitor/internal/types"
)

const (
	browserStaleAfter    = 5 * time.Minute
	browserSweepInterval = time.Minute
	browserAbandonedText = "no completion event from browser"
)

// BodyFetcher loads a finished response body from the browser.
type BodyFetcher func() ([]byte, error)

type pendingBrowserRequest struct {
	id       string
	start    time.Time
	callType types.CallType
	response *Response
	mimeType string
	seen     time.Time
}

// BrowserCapture records a browser's own fetch and XHR traffic from CDP
// network events. Events are correlated by request id; entries that never see
// a completion event are failed after five minutes.
type BrowserCapture struct {
	rec         *Recorder
	tabRegistry types.TabInfoProvider

	pending   map[network.RequestID]*pendingBrowserRequest
	pendingMu sync.Mutex

	now       func() time.Time
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewBrowserCapture(rec *Recorder, tabRegistry types.TabInfoProvider) *BrowserCapture {
	b := &BrowserCapture{
		rec:         rec,
		tabRegistry: tabRegistry,
		pending:     make(map[network.RequestID]*pendingBrowserRequest),
		now:         time.Now,
		done:        make(chan struct{}),
	}
	go b.cleanupLoop()
	return b
}

// Close stops the sweeper and waits for body fetches in progress.
func (b *BrowserCapture) Close() {
	b.closeOnce.Do(func() { close(b.done) })
	b.wg.Wait()
}

func browserCallType(t network.ResourceType) (types.CallType, bool) {
	switch t {
	case network.ResourceTypeFetch:
		return types.CallFetch, true
	case network.ResourceTypeXHR:
		return types.CallXHR, true
	default:
		return "", false
	}
}

func (b *BrowserCapture) OnRequestWillBeSent(tabID string, ev *network.EventRequestWillBeSent) {
	if ev.Request == nil {
		return
	}

	// A redirect reuses the request id; the hop that redirected is settled
	// with the redirect response before the next hop starts.
	if ev.RedirectResponse != nil {
		if prev := b.take(ev.RequestID); prev != nil {
			b.settle(prev, responseFromCDP(ev.RedirectResponse), nil)
		}
	}

	callType, ok := browserCallType(ev.Type)
	if !ok || !b.rec.Match(ev.Request.URL) {
		return
	}

	var tab string
	if info, ok := b.lookupTab(tabID); ok {
		tab = info.Label()
	}

	headers := headerMapToStringMap(ev.Request.Headers)
	id, start := b.rec.Begin(Request{
		Type:    callType,
		Source:  types.SourceBrowser,
		Tab:     tab,
		URL:     ev.Request.URL,
		Method:  ev.Request.Method,
		Headers: headers,
		Body:    b.rec.DecodeBody(headerValue(headers, "Content-Type"), postData(ev.Request)),
	})

	b.pendingMu.Lock()
	b.pending[ev.RequestID] = &pendingBrowserRequest{
		id:       id,
		start:    start,
		callType: callType,
		seen:     b.now(),
	}
	b.pendingMu.Unlock()

	slog.Debug("Browser request captured", "id", id, "tab", tab)
}

func (b *BrowserCapture) OnResponseReceived(tabID string, ev *network.EventResponseReceived) {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	pending, ok := b.pending[ev.RequestID]
	if !ok || ev.Response == nil {
		return
	}
	resp := responseFromCDP(ev.Response)
	pending.response = &resp
	pending.mimeType = ev.Response.MimeType
	pending.seen = b.now()
}

// OnLoadingFinished settles the record. The body is fetched on its own
// goroutine because fetching issues a CDP command, which must not run on
// the event listener.
func (b *BrowserCapture) OnLoadingFinished(tabID string, ev *network.EventLoadingFinished, getBody BodyFetcher) {
	pending := b.take(ev.RequestID)
	if pending == nil {
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		resp := Response{}
		if pending.response != nil {
			resp = *pending.response
		}
		if getBody != nil {
			body, err := getBody()
			if err != nil {
				slog.Debug("Failed to get response body", "request_id", ev.RequestID, "error", err)
			} else {
				contentType := headerValue(resp.Headers, "content-type")
				if contentType == "" {
					contentType = pending.mimeType
				}
				resp.Body = b.rec.DecodeBody(contentType, body)
			}
		}
		b.settle(pending, resp, nil)
	}()
}

func (b *BrowserCapture) OnLoadingFailed(tabID string, ev *network.EventLoadingFailed) {
	pending := b.take(ev.RequestID)
	if pending == nil {
		return
	}
	msg := ev.ErrorText
	if ev.Canceled && msg == "" {
		msg = "canceled"
	}
	if msg == "" {
		msg = "loading failed"
	}
	b.settle(pending, Response{}, &msg)
}

// PendingCount returns the number of browser requests awaiting completion.
func (b *BrowserCapture) PendingCount() int {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	return len(b.pending)
}

func (b *BrowserCapture) take(requestID network.RequestID) *pendingBrowserRequest {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	pending, ok := b.pending[requestID]
	if !ok {
		return nil
	}
	delete(b.pending, requestID)
	return pending
}

// settle applies the same outcome policy as the in-process wrappers: fetch
// completes on any response, XHR completes only on 2xx.
func (b *BrowserCapture) settle(p *pendingBrowserRequest, resp Response, failure *string) {
	switch {
	case failure != nil:
		var got *Response
		if p.response != nil {
			r := *p.response
			got = &r
		}
		b.rec.Fail(p.id, p.start, got, *failure)
	case p.callType == types.CallXHR:
		b.rec.CompleteByStatus(p.id, p.start, resp)
	default:
		b.rec.Complete(p.id, p.start, resp)
	}
}

func (b *BrowserCapture) lookupTab(tabID string) (*types.TabInfo, bool) {
	if b.tabRegistry == nil {
		return nil, false
	}
	return b.tabRegistry.GetByStringID(tabID)
}

func (b *BrowserCapture) cleanupLoop() {
	ticker := time.NewTicker(browserSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.cleanupStale()
		case <-b.done:
			return
		}
	}
}

func (b *BrowserCapture) cleanupStale() {
	threshold := b.now().Add(-browserStaleAfter)

	b.pendingMu.Lock()
	var stale []*pendingBrowserRequest
	for id, pending := range b.pending {
		if pending.seen.Before(threshold) {
			stale = append(stale, pending)
			delete(b.pending, id)
		}
	}
	b.pendingMu.Unlock()

	msg := browserAbandonedText
	for _, p := range stale {
		b.settle(p, Response{}, &msg)
	}
	if len(stale) > 0 {
		slog.Debug("Swept stale browser requests", "count", len(stale))
	}
}

func responseFromCDP(r *network.Response) Response {
	return Response{
		Status:  int(r.Status),
		Headers: lowerKeys(headerMapToStringMap(r.Headers)),
	}
}

func postData(req *network.Request) []byte {
	if !req.HasPostData || len(req.PostDataEntries) == 0 {
		return nil
	}
	var decoded []byte
	for _, entry := range req.PostDataEntries {
		if entry.Bytes == "" {
			continue
		}
		part, err := base64.StdEncoding.DecodeString(entry.Bytes)
		if err != nil {
			decoded = append(decoded, []byte(entry.Bytes)...)
		} else {
			decoded = append(decoded, part...)
		}
	}
	return decoded
}

func headerMapToStringMap(headers map[string]any) map[string]string {
	result := make(map[string]string, len(headers))
	for k, v := range headers {
		if s, ok := v.(string); ok {
			result[k] = s
		}
	}
	return result
}

func lowerKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

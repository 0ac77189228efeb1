package capture

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/dgnsrekt/netmonitor/internal/reqlog"
	"github.com/dgnsrekt/netmonitor/internal/types"
)

type stubTabs map[string]*types.TabInfo

func (s stubTabs) GetByStringID(id string) (*types.TabInfo, bool) {
	info, ok := s[id]
	return info, ok
}

func newBrowserHarness(t *testing.T) (*BrowserCapture, *reqlog.Store) {
	t.Helper()
	store := reqlog.NewStore()
	rec := NewRecorder(store, RecorderOptions{Matcher: NewDomainMatcher(DefaultDomains)})
	b := NewBrowserCapture(rec, stubTabs{"T1": {PathSegment: "root", BrowserID: "T1"}})
	t.Cleanup(b.Close)
	return b, store
}

func requestEvent(id, url string, rt network.ResourceType) *network.EventRequestWillBeSent {
	return &network.EventRequestWillBeSent{
		RequestID: network.RequestID(id),
		Type:      rt,
		Request: &network.Request{
			URL:         url,
			Method:      "POST",
			Headers:     network.Headers{"Content-Type": "application/json"},
			HasPostData: true,
			PostDataEntries: []*network.PostDataEntry{
				{Bytes: base64.StdEncoding.EncodeToString([]byte(`[{"kind":"custom"}]`))},
			},
		},
	}
}

func responseEvent(id string, status int64) *network.EventResponseReceived {
	return &network.EventResponseReceived{
		RequestID: network.RequestID(id),
		Response: &network.Response{
			Status:   status,
			Headers:  network.Headers{"Content-Type": "application/json"},
			MimeType: "application/json",
		},
	}
}

func finish(b *BrowserCapture, id string, body string, bodyErr error) {
	b.OnLoadingFinished("T1", &network.EventLoadingFinished{RequestID: network.RequestID(id)}, func() ([]byte, error) {
		return []byte(body), bodyErr
	})
	b.wg.Wait()
}

func TestBrowserFetchCompletesOnServerError(t *testing.T) {
	b, store := newBrowserHarness(t)

	b.OnRequestWillBeSent("T1", requestEvent("1", "https://events.launchdarkly.com/bulk", network.ResourceTypeFetch))
	if b.PendingCount() != 1 {
		t.Fatalf("PendingCount() = %d; want 1", b.PendingCount())
	}
	b.OnResponseReceived("T1", responseEvent("1", 500))
	finish(b, "1", `{"error":"x"}`, nil)

	recs := store.Snapshot()
	if len(recs) != 1 {
		t.Fatalf("records = %d; want 1", len(recs))
	}
	rec := recs[0]
	if rec.Source != types.SourceBrowser || rec.Type != types.CallFetch {
		t.Fatalf("record source/type = %q/%q", rec.Source, rec.Type)
	}
	if rec.Tab != "T1/root" {
		t.Fatalf("Tab = %q; want T1/root", rec.Tab)
	}
	if rec.Status != types.StatusCompleted || *rec.ResponseStatus != 500 {
		t.Fatalf("record = %q %v; want completed 500", rec.Status, *rec.ResponseStatus)
	}
	if rec.Body.Kind != types.PayloadStructured || rec.ResponseBody.Kind != types.PayloadStructured {
		t.Fatalf("bodies = %q / %q; want structured", rec.Body.Kind, rec.ResponseBody.Kind)
	}
	if rec.ResponseHeaders["content-type"] != "application/json" {
		t.Fatalf("ResponseHeaders = %v", rec.ResponseHeaders)
	}
	if b.PendingCount() != 0 {
		t.Fatalf("PendingCount() = %d; want 0", b.PendingCount())
	}
}

func TestBrowserXHRUsesStatusPolicy(t *testing.T) {
	b, store := newBrowserHarness(t)

	b.OnRequestWillBeSent("T1", requestEvent("2", "https://events.launchdarkly.com/bulk", network.ResourceTypeXHR))
	b.OnResponseReceived("T1", responseEvent("2", 500))
	finish(b, "2", "", errors.New("no body"))

	rec := store.Snapshot()[0]
	if rec.Status != types.StatusError || rec.Error != "HTTP 500" {
		t.Fatalf("record = %q %q; want error/HTTP 500", rec.Status, rec.Error)
	}
	if !rec.ResponseBody.IsAbsent() {
		t.Fatalf("ResponseBody = %+v; want absent", rec.ResponseBody)
	}
}

func TestBrowserLoadingFailed(t *testing.T) {
	b, store := newBrowserHarness(t)

	b.OnRequestWillBeSent("T1", requestEvent("3", "https://events.launchdarkly.com/bulk", network.ResourceTypeFetch))
	b.OnLoadingFailed("T1", &network.EventLoadingFailed{RequestID: "3", ErrorText: "net::ERR_CONNECTION_REFUSED"})

	rec := store.Snapshot()[0]
	if rec.Status != types.StatusError || rec.Error != "net::ERR_CONNECTION_REFUSED" {
		t.Fatalf("record = %q %q", rec.Status, rec.Error)
	}
	if rec.ResponseStatus != nil {
		t.Fatalf("ResponseStatus = %v; want nil", *rec.ResponseStatus)
	}

	// A second terminal event for the same id is ignored.
	b.OnLoadingFailed("T1", &network.EventLoadingFailed{RequestID: "3", Canceled: true})
	if got := store.Snapshot()[0].Error; got != "net::ERR_CONNECTION_REFUSED" {
		t.Fatalf("Error = %q; want first outcome kept", got)
	}
}

func TestBrowserIgnoresOtherResourcesAndDomains(t *testing.T) {
	b, store := newBrowserHarness(t)

	b.OnRequestWillBeSent("T1", requestEvent("4", "https://events.launchdarkly.com/x.js", network.ResourceTypeScript))
	b.OnRequestWillBeSent("T1", requestEvent("5", "https://api.example.com/", network.ResourceTypeFetch))
	finish(b, "4", "", nil)
	finish(b, "5", "", nil)

	if n := store.Len(); n != 0 {
		t.Fatalf("records = %d; want 0", n)
	}
}

func TestBrowserRedirectSettlesPreviousHop(t *testing.T) {
	b, store := newBrowserHarness(t)

	b.OnRequestWillBeSent("T1", requestEvent("6", "https://events.launchdarkly.com/a", network.ResourceTypeFetch))
	hop := requestEvent("6", "https://events.launchdarkly.com/b", network.ResourceTypeFetch)
	hop.RedirectResponse = &network.Response{Status: 307, Headers: network.Headers{"Location": "/b"}}
	b.OnRequestWillBeSent("T1", hop)
	finish(b, "6", "", nil)

	recs := store.Snapshot()
	if len(recs) != 2 {
		t.Fatalf("records = %d; want 2", len(recs))
	}
	if *recs[0].ResponseStatus != 307 || recs[0].ResponseHeaders["location"] != "/b" {
		t.Fatalf("first hop = %v %v", *recs[0].ResponseStatus, recs[0].ResponseHeaders)
	}
	if recs[1].Status != types.StatusCompleted {
		t.Fatalf("second hop status = %q", recs[1].Status)
	}
}

func TestBrowserSweepsStaleRequests(t *testing.T) {
	b, store := newBrowserHarness(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.OnRequestWillBeSent("T1", requestEvent("7", "https://events.launchdarkly.com/a", network.ResourceTypeFetch))
	now = now.Add(6 * time.Minute)
	b.cleanupStale()

	if b.PendingCount() != 0 {
		t.Fatalf("PendingCount() = %d; want 0", b.PendingCount())
	}
	rec := store.Snapshot()[0]
	if rec.Status != types.StatusError || rec.Error != browserAbandonedText {
		t.Fatalf("record = %q %q", rec.Status, rec.Error)
	}
}

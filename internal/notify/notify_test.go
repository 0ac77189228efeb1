package notify

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/dgnsrekt/netmonitor/internal/reqlog"
	"github.com/dgnsrekt/netmonitor/internal/types"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func okResponse() *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("ok")),
		Header:     make(http.Header),
	}
}

func TestSendPostsMessage(t *testing.T) {
	ctx := context.Background()

	var receivedMethod string
	var receivedPath string
	var receivedBody string
	var receivedContentType string

	client := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			receivedMethod = r.Method
			receivedPath = r.URL.Path
			receivedContentType = r.Header.Get("Content-Type")
			rawBody, err := io.ReadAll(r.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			receivedBody = string(rawBody)
			return okResponse(), nil
		}),
	}

	if err := Send(ctx, client, "http://example.com/notifications", "hello"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if got, want := receivedMethod, http.MethodPost; got != want {
		t.Fatalf("method = %q; want %q", got, want)
	}
	if got, want := receivedPath, "/notifications"; got != want {
		t.Fatalf("path = %q; want %q", got, want)
	}
	if got, want := receivedContentType, "text/plain"; got != want {
		t.Fatalf("content-type = %q; want %q", got, want)
	}
	if got, want := receivedBody, "hello"; got != want {
		t.Fatalf("body = %q; want %q", got, want)
	}
}

func TestSendReturnsErrorForServerError(t *testing.T) {
	client := &http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusInternalServerError,
				Body:       io.NopCloser(strings.NewReader("server failure")),
				Header:     make(http.Header),
			}, nil
		}),
	}

	err := Send(context.Background(), client, "http://example.com/notifications", "hello")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "ntfy notification failed") {
		t.Fatalf("error = %q; want to contain %q", err, "ntfy notification failed")
	}
}

func TestNotifierSendsOnlyErrorUpdates(t *testing.T) {
	var mu sync.Mutex
	var bodies []string
	client := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			b, _ := io.ReadAll(r.Body)
			mu.Lock()
			bodies = append(bodies, string(b))
			mu.Unlock()
			return okResponse(), nil
		}),
	}

	n := NewNotifier(client, "http://example.com/notifications", 8)
	dur := int64(12)
	failed := types.RequestRecord{
		ID: "1", Type: types.CallXHR, Method: "POST", URL: "https://events.launchdarkly.com/bulk",
		Status: types.StatusError, Duration: &dur, Error: "HTTP 500",
	}
	n.OnChange(reqlog.Change{Kind: reqlog.ChangeAppend, Record: types.RequestRecord{ID: "1", Status: types.StatusPending}})
	n.OnChange(reqlog.Change{Kind: reqlog.ChangeUpdate, Record: types.RequestRecord{ID: "2", Status: types.StatusCompleted}})
	n.OnChange(reqlog.Change{Kind: reqlog.ChangeUpdate, Record: failed})
	n.Close()

	if len(bodies) != 1 {
		t.Fatalf("notifications = %d; want 1", len(bodies))
	}
	want := "XHR POST https://events.launchdarkly.com/bulk failed after 12ms: HTTP 500"
	if bodies[0] != want {
		t.Fatalf("body = %q; want %q", bodies[0], want)
	}

	// Changes after Close are ignored.
	n.OnChange(reqlog.Change{Kind: reqlog.ChangeUpdate, Record: failed})
	if n.Dropped() != 0 {
		t.Fatalf("Dropped() = %d; want 0", n.Dropped())
	}
}

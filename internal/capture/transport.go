package capture

import (
	"bytes"
	"io"
	"net/http"
	"sync"

	"github.com/dgnsrekt/netmonitor/internal/types"
)

// Transport records in-scope round trips and otherwise behaves exactly like
// Base. The caller gets the same response or error Base produced, with a body
// that replays the bytes read for capture.
//
// Any resolved response counts as completed, whatever its status code. Only
// a transport error marks the record as an error.
type Transport struct {
	Base     http.RoundTripper
	Recorder *Recorder
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base()
	if t.Recorder == nil || req.URL == nil || !t.Recorder.Match(req.URL.String()) {
		return base.RoundTrip(req)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	contentType := req.Header.Get("Content-Type")
	out, reqBody, tap := t.tapRequestBody(req, contentType)
	id, start := t.Recorder.Begin(Request{
		Type:    types.CallFetch,
		URL:     req.URL.String(),
		Method:  method,
		Headers: flattenHeader(req.Header, false),
		Body:    reqBody,
	})

	resp, err := base.RoundTrip(out)
	if tap != nil {
		t.Recorder.SetBody(id, tap.payload(contentType))
	}
	if err != nil {
		t.Recorder.Fail(id, start, nil, err.Error())
		return nil, err
	}

	t.Recorder.Complete(id, start, Response{
		Status:  resp.StatusCode,
		Headers: flattenHeader(resp.Header, true),
		Body:    t.captureResponseBody(resp),
	})
	return resp, nil
}

// tapRequestBody returns the request to forward and, when the body can be
// produced again through GetBody, its payload. Otherwise the body is forwarded
// on a clone through a tap that keeps a bounded copy of whatever Base reads,
// so read errors reach Base and the caller unchanged.
func (t *Transport) tapRequestBody(req *http.Request, contentType string) (*http.Request, types.Payload, *bodyTap) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, types.AbsentPayload(), nil
	}
	limit := t.Recorder.bodyLimit()

	if req.GetBody != nil {
		if rc, err := req.GetBody(); err == nil {
			var src io.Reader = rc
			if limit > 0 {
				src = io.LimitReader(rc, int64(limit)+1)
			}
			data, readErr := io.ReadAll(src)
			_ = rc.Close()
			if readErr == nil {
				if limit > 0 && len(data) > limit {
					return req, prefixPayload(data[:limit], req.ContentLength), nil
				}
				return req, decodeBody(contentType, data, 0), nil
			}
		}
	}

	tap := &bodyTap{limit: limit, size: req.ContentLength}
	out := req.Clone(req.Context())
	out.Body = &tapBody{ReadCloser: req.Body, tap: tap}
	return out, types.AbsentPayload(), tap
}

// bodyTap keeps the first limit bytes written to it and counts the rest.
// limit <= 0 keeps everything.
type bodyTap struct {
	mu    sync.Mutex
	limit int
	buf   []byte
	n     int64
	size  int64
	eof   bool
}

func (b *bodyTap) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.n += int64(len(p))
	keep := p
	if b.limit > 0 {
		room := b.limit - len(b.buf)
		if room < 0 {
			room = 0
		}
		if len(keep) > room {
			keep = keep[:room]
		}
	}
	b.buf = append(b.buf, keep...)
	return len(p), nil
}

func (b *bodyTap) payload(contentType string) types.Payload {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limit <= 0 || b.n <= int64(b.limit) {
		return decodeBody(contentType, b.buf, 0)
	}
	size := b.size
	if b.eof {
		size = b.n
	}
	return prefixPayload(b.buf, size)
}

type tapBody struct {
	io.ReadCloser
	tap *bodyTap
}

func (r *tapBody) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if n > 0 {
		_, _ = r.tap.Write(p[:n])
	}
	if err == io.EOF {
		r.tap.mu.Lock()
		r.tap.eof = true
		r.tap.mu.Unlock()
	}
	return n, err
}

// captureResponseBody reads up to the body limit from resp and swaps in a
// body that replays those bytes followed by the unread remainder. Event
// streams are left alone.
func (t *Transport) captureResponseBody(resp *http.Response) types.Payload {
	if resp.Body == nil || resp.Body == http.NoBody {
		return types.AbsentPayload()
	}
	contentType := resp.Header.Get("Content-Type")
	if isEventStream(contentType) {
		return types.AbsentPayload()
	}

	orig := resp.Body
	limit := t.Recorder.bodyLimit()

	var src io.Reader = orig
	if limit > 0 {
		src = io.LimitReader(orig, int64(limit)+1)
	}
	data, err := io.ReadAll(src)

	switch {
	case err != nil:
		resp.Body = &replayBody{Reader: io.MultiReader(bytes.NewReader(data), errReader{err}), closer: orig}
	case limit > 0 && len(data) > limit:
		resp.Body = &replayBody{Reader: io.MultiReader(bytes.NewReader(data), orig), closer: orig}
	default:
		resp.Body = &replayBody{Reader: bytes.NewReader(data), closer: orig}
	}

	if limit > 0 && len(data) > limit {
		// The remainder streams to the caller, so the full size is only
		// known from Content-Length.
		return prefixPayload(data[:limit], resp.ContentLength)
	}
	return decodeBody(contentType, data, 0)
}

type replayBody struct {
	io.Reader
	closer io.Closer
}

func (b *replayBody) Close() error { return b.closer.Close() }

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

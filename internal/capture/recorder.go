package capture

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgnsrekt/netmonitor/internal/types"
)

// DefaultMaxBodyBytes caps how much of each body is kept on a record.
const DefaultMaxBodyBytes = 1 << 20

// RecordSink receives records. *reqlog.Store satisfies it. UpdatePending must
// leave settled records untouched.
type RecordSink interface {
	Append(rec types.RequestRecord)
	UpdatePending(id string, patch func(*types.RequestRecord)) bool
}

// RecorderOptions configures a Recorder. Zero values pick defaults.
type RecorderOptions struct {
	Matcher  *DomainMatcher
	Redactor *Redactor
	// MaxBodyBytes limits captured body bytes. Negative disables the limit.
	MaxBodyBytes int
	Now          func() time.Time
	NewID        func() string
}

// Request is the request half of a record, as known when a call starts.
type Request struct {
	Type   types.CallType
	Source string
	// Tab labels the browser tab a browser-sourced call came from.
	Tab     string
	URL     string
	Method  string
	Headers map[string]string
	Body    types.Payload
}

// Response is what a call produced. Status 0 means no HTTP response.
type Response struct {
	Status  int
	Headers map[string]string
	Body    types.Payload
}

// Recorder turns call lifecycle events into record appends and updates. It
// is shared by every interception path so that ids, timing and redaction are
// applied the same way.
type Recorder struct {
	sink     RecordSink
	matcher  *DomainMatcher
	redactor *Redactor
	maxBody  int
	now      func() time.Time
	newID    func() string
	epoch    time.Time
}

func NewRecorder(sink RecordSink, opts RecorderOptions) *Recorder {
	r := &Recorder{
		sink:     sink,
		matcher:  opts.Matcher,
		redactor: opts.Redactor,
		maxBody:  opts.MaxBodyBytes,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if r.matcher == nil {
		r.matcher = NewDomainMatcher(DefaultDomains)
	}
	if r.maxBody == 0 {
		r.maxBody = DefaultMaxBodyBytes
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newID == nil {
		r.newID = newRecordID
	}
	r.epoch = r.now()
	return r
}

func (r *Recorder) Matcher() *DomainMatcher { return r.matcher }

// Match reports whether rawURL is in capture scope.
func (r *Recorder) Match(rawURL string) bool {
	return r.matcher.Match(rawURL)
}

// DecodeBody converts captured bytes to a payload using the body limit.
func (r *Recorder) DecodeBody(contentType string, data []byte) types.Payload {
	return decodeBody(contentType, data, r.maxBody)
}

func (r *Recorder) bodyLimit() int {
	if r.maxBody < 0 {
		return 0
	}
	return r.maxBody
}

// Begin appends a pending record and returns its id and start time.
func (r *Recorder) Begin(req Request) (string, time.Time) {
	start := r.now()
	id := r.newID()

	source := req.Source
	if source == "" {
		source = types.SourceClient
	}
	headers := r.redactor.Headers(req.Headers)
	if headers == nil {
		headers = map[string]string{}
	}

	r.sink.Append(types.RequestRecord{
		ID:              id,
		URL:             req.URL,
		Method:          req.Method,
		Headers:         headers,
		Body:            r.redactor.Payload(req.Body),
		Timestamp:       start.UTC(),
		StartTime:       float64(start.Sub(r.epoch).Microseconds()) / 1000,
		Type:            req.Type,
		Source:          source,
		Tab:             req.Tab,
		Status:          types.StatusPending,
		ResponseBody:    types.AbsentPayload(),
		ResponseHeaders: nil,
	})
	slog.Debug("request captured", "id", id, "type", req.Type, "method", req.Method, "url", req.URL)
	return id, start
}

// SetHeader adds or overwrites one request header on a pending record.
func (r *Recorder) SetHeader(id, name, value string) {
	value = r.redactor.Header(name, value)
	r.sink.UpdatePending(id, func(rec *types.RequestRecord) {
		if rec.Headers == nil {
			rec.Headers = map[string]string{}
		}
		rec.Headers[name] = value
	})
}

// SetBody replaces the request body on a pending record.
func (r *Recorder) SetBody(id string, body types.Payload) {
	body = r.redactor.Payload(body)
	r.sink.UpdatePending(id, func(rec *types.RequestRecord) {
		rec.Body = body
	})
}

// Complete marks the record completed with the given response.
func (r *Recorder) Complete(id string, start time.Time, resp Response) {
	r.settle(id, start, types.StatusCompleted, &resp, "")
}

// Fail marks the record as an error. resp may be nil when no response was
// received.
func (r *Recorder) Fail(id string, start time.Time, resp *Response, msg string) {
	r.settle(id, start, types.StatusError, resp, msg)
}

// CompleteByStatus completes the record when the status is 2xx and marks it
// as an error carrying "HTTP <status>" otherwise. The response is recorded in
// both cases.
func (r *Recorder) CompleteByStatus(id string, start time.Time, resp Response) {
	if resp.Status >= 200 && resp.Status < 300 {
		r.Complete(id, start, resp)
		return
	}
	r.Fail(id, start, &resp, fmt.Sprintf("HTTP %d", resp.Status))
}

func (r *Recorder) settle(id string, start time.Time, status types.Status, resp *Response, msg string) {
	duration := r.now().Sub(start).Round(time.Millisecond).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	var (
		headers map[string]string
		body    = types.AbsentPayload()
	)
	if resp != nil {
		headers = r.redactor.Headers(resp.Headers)
		body = r.redactor.Payload(resp.Body)
	}

	ok := r.sink.UpdatePending(id, func(rec *types.RequestRecord) {
		rec.Status = status
		rec.Duration = &duration
		rec.Error = msg
		if resp != nil {
			code := resp.Status
			rec.ResponseStatus = &code
			rec.ResponseHeaders = headers
			rec.ResponseBody = body
		}
	})
	if !ok {
		slog.Debug("request already settled or cleared", "id", id)
		return
	}
	slog.Debug("request settled", "id", id, "status", status, "duration_ms", duration, "error", msg)
}

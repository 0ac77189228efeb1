package types

import "time"

// Status is the lifecycle state of a recorded request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// IsTerminal reports whether the status can no longer change.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// CallType identifies which network primitive produced a record.
type CallType string

const (
	CallFetch CallType = "fetch"
	CallXHR   CallType = "xhr"
)

// Record sources.
const (
	SourceClient  = "client"
	SourceBrowser = "browser"
)

// RequestRecord is one intercepted call. Response fields stay unset while the
// record is pending.
type RequestRecord struct {
	ID        string            `json:"id"`
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	Body      Payload           `json:"body"`
	Timestamp time.Time         `json:"timestamp"`
	StartTime float64           `json:"startTime"`
	Type      CallType          `json:"type"`
	Source    string            `json:"source,omitempty"`
	Tab       string            `json:"tab,omitempty"`
	Status    Status            `json:"status"`

	Duration        *int64            `json:"duration,omitempty"`
	ResponseStatus  *int              `json:"responseStatus,omitempty"`
	ResponseHeaders map[string]string `json:"responseHeaders,omitempty"`
	ResponseBody    Payload           `json:"responseBody"`
	Error           string            `json:"error,omitempty"`
}

// Clone returns a copy whose maps can be modified without affecting r.
func (r RequestRecord) Clone() RequestRecord {
	out := r
	out.Headers = cloneStringMap(r.Headers)
	out.ResponseHeaders = cloneStringMap(r.ResponseHeaders)
	if r.Duration != nil {
		d := *r.Duration
		out.Duration = &d
	}
	if r.ResponseStatus != nil {
		s := *r.ResponseStatus
		out.ResponseStatus = &s
	}
	return out
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

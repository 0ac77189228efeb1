package capture

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dgnsrekt/netmonitor/internal/types"
)

const DefaultRedactionReplacement = "[redacted]"

var DefaultSensitiveHeaders = []string{
	"authorization",
	"proxy-authorization",
	"cookie",
	"set-cookie",
	"x-api-key",
	"x-auth-token",
	"x-token",
}

// DefaultBodyPaths are the context attributes that analytics events mark as
// private.
var DefaultBodyPaths = []string{
	"context.name",
	"context.email",
	"context.birthdate",
	"context.phone",
	"context.ssn",
	"context.healthPlan",
	"context.accountNumber",
	"context.address",
}

type RedactorConfig struct {
	SensitiveHeaders []string
	ValuePatterns    []string
	// BodyPaths are gjson paths masked in JSON bodies. When the body is a
	// top-level array each path is applied to every element.
	BodyPaths   []string
	Replacement string
}

// Redactor masks sensitive values on records before they are stored. It never
// touches what goes over the wire. A nil *Redactor passes values through.
type Redactor struct {
	sensitiveHeaders map[string]struct{}
	valuePatterns    []*regexp.Regexp
	bodyPaths        []string
	replacement      string
}

func DefaultRedactor() *Redactor {
	r, _ := NewRedactor(RedactorConfig{
		SensitiveHeaders: DefaultSensitiveHeaders,
		BodyPaths:        DefaultBodyPaths,
	})
	return r
}

func NewRedactor(cfg RedactorConfig) (*Redactor, error) {
	sensitive := make(map[string]struct{}, len(cfg.SensitiveHeaders))
	for _, name := range cfg.SensitiveHeaders {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		sensitive[strings.ToLower(trimmed)] = struct{}{}
	}

	patterns := make([]*regexp.Regexp, 0, len(cfg.ValuePatterns))
	for _, pattern := range cfg.ValuePatterns {
		trimmed := strings.TrimSpace(pattern)
		if trimmed == "" {
			continue
		}
		re, err := regexp.Compile(trimmed)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, re)
	}

	paths := make([]string, 0, len(cfg.BodyPaths))
	for _, p := range cfg.BodyPaths {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}

	replacement := strings.TrimSpace(cfg.Replacement)
	if replacement == "" {
		replacement = DefaultRedactionReplacement
	}

	return &Redactor{
		sensitiveHeaders: sensitive,
		valuePatterns:    patterns,
		bodyPaths:        paths,
		replacement:      replacement,
	}, nil
}

// Header returns the value to record for one header.
func (r *Redactor) Header(name, value string) string {
	if r == nil {
		return value
	}
	if _, ok := r.sensitiveHeaders[strings.ToLower(name)]; ok || r.matchesValuePattern(value) {
		return r.replacement
	}
	return value
}

// Headers returns a redacted copy of headers.
func (r *Redactor) Headers(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for name, value := range headers {
		out[name] = r.Header(name, value)
	}
	return out
}

// Payload masks configured JSON paths in structured payloads and in text
// payloads that hold JSON. Binary and absent payloads pass through.
func (r *Redactor) Payload(p types.Payload) types.Payload {
	if r == nil || len(r.bodyPaths) == 0 {
		return p
	}
	switch p.Kind {
	case types.PayloadStructured:
		raw, err := json.Marshal(p.Value)
		if err != nil {
			return p
		}
		masked, changed := r.redactJSON(string(raw))
		if !changed {
			return p
		}
		var v any
		if err := json.Unmarshal([]byte(masked), &v); err != nil {
			return p
		}
		p.Value = v
	case types.PayloadText:
		if !gjson.Valid(p.Text) {
			return p
		}
		if masked, changed := r.redactJSON(p.Text); changed {
			p.Text = masked
		}
	}
	return p
}

func (r *Redactor) redactJSON(raw string) (string, bool) {
	targets := r.bodyPaths
	if root := gjson.Parse(raw); root.IsArray() {
		n := len(root.Array())
		targets = make([]string, 0, n*len(r.bodyPaths))
		for i := 0; i < n; i++ {
			for _, p := range r.bodyPaths {
				targets = append(targets, strconv.Itoa(i)+"."+p)
			}
		}
	}

	changed := false
	for _, path := range targets {
		if !gjson.Get(raw, path).Exists() {
			continue
		}
		next, err := sjson.Set(raw, path, r.replacement)
		if err != nil {
			continue
		}
		raw = next
		changed = true
	}
	return raw, changed
}

func (r *Redactor) matchesValuePattern(value string) bool {
	for _, re := range r.valuePatterns {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

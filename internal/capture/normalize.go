package capture

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/dgnsrekt/netmonitor/internal/types"
)

// flattenHeader collapses multi-valued headers into one comma-joined value.
func flattenHeader(h http.Header, lowerKeys bool) map[string]string {
	out := make(map[string]string, len(h))
	for k, vals := range h {
		if lowerKeys {
			k = strings.ToLower(k)
		}
		v := strings.Join(vals, ", ")
		if prev, ok := out[k]; ok && lowerKeys {
			v = prev + ", " + v
		}
		out[k] = v
	}
	return out
}

// parseHeaderBlock parses a raw "Name: value" block, one header per line, into
// a map with lower-cased names. Lines without ": " or with an empty name or
// value are skipped.
func parseHeaderBlock(raw string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")
		key, value, ok := strings.Cut(line, ": ")
		if !ok || key == "" || value == "" {
			continue
		}
		out[strings.ToLower(key)] = value
	}
	return out
}

// isJSONContentType reports whether a Content-Type names a JSON media type.
func isJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	if strings.Contains(contentType, "application/json") {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasSuffix(mediaType, "+json")
}

func isEventStream(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/event-stream")
}

// decodeBody turns captured bytes into a payload. JSON media types are parsed
// into structured values; anything that fails to parse, or any other media
// type, is kept as text. Bytes that are not valid UTF-8 are kept as binary.
func decodeBody(contentType string, data []byte, maxBytes int) types.Payload {
	if len(data) == 0 {
		return types.AbsentPayload()
	}

	kept, truncated, size, sum := capBytes(data, maxBytes)
	var p types.Payload
	switch {
	case !truncated && isJSONContentType(contentType) && parseJSON(kept, &p):
	case truncated && utf8.Valid(trimPartialRune(kept)):
		p = types.TextPayload(string(trimPartialRune(kept)))
	case utf8.Valid(kept):
		p = types.TextPayload(string(kept))
	default:
		b := make([]byte, len(kept))
		copy(b, kept)
		p = types.BinaryPayload(b)
	}
	if truncated {
		p.Truncated = true
		p.OriginalSize = size
		p.SHA256 = sum
	}
	return p
}

func parseJSON(data []byte, p *types.Payload) bool {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return false
	}
	*p = types.StructuredPayload(v)
	return true
}

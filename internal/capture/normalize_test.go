package capture

import (
	"net/http"
	"strings"
	"testing"

	"github.com/dgnsrekt/netmonitor/internal/types"
)

func TestParseHeaderBlock(t *testing.T) {
	raw := "Content-Type: application/json\r\nX-Trace: a: b\r\nbroken-line\r\nEmpty: \r\n\r\n"
	got := parseHeaderBlock(raw)

	want := map[string]string{
		"content-type": "application/json",
		"x-trace":      "a: b",
	}
	if len(got) != len(want) {
		t.Fatalf("parseHeaderBlock() = %v; want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("parseHeaderBlock()[%q] = %q; want %q", k, got[k], v)
		}
	}
}

func TestParseHeaderBlockEmpty(t *testing.T) {
	if got := parseHeaderBlock(""); len(got) != 0 {
		t.Fatalf("parseHeaderBlock(\"\") = %v; want empty", got)
	}
}

func TestFlattenHeader(t *testing.T) {
	h := http.Header{}
	h.Add("Accept", "a")
	h.Add("Accept", "b")
	h.Set("X-One", "1")

	got := flattenHeader(h, true)
	if got["accept"] != "a, b" {
		t.Fatalf("flattenHeader()[accept] = %q; want %q", got["accept"], "a, b")
	}
	if got["x-one"] != "1" {
		t.Fatalf("flattenHeader()[x-one] = %q; want %q", got["x-one"], "1")
	}

	kept := flattenHeader(h, false)
	if kept["Accept"] != "a, b" {
		t.Fatalf("flattenHeader(keep case)[Accept] = %q; want %q", kept["Accept"], "a, b")
	}
}

func TestIsJSONContentType(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"application/json", true},
		{"application/json; charset=utf-8", true},
		{"application/vnd.api+json", true},
		{"text/plain", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isJSONContentType(tt.in); got != tt.want {
			t.Fatalf("isJSONContentType(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestDecodeBody(t *testing.T) {
	t.Run("empty_is_absent", func(t *testing.T) {
		if p := decodeBody("application/json", nil, 0); !p.IsAbsent() {
			t.Fatalf("decodeBody(nil) kind = %q; want absent", p.Kind)
		}
	})

	t.Run("json_is_structured", func(t *testing.T) {
		p := decodeBody("application/json", []byte(`{"ok":true}`), 0)
		if p.Kind != types.PayloadStructured {
			t.Fatalf("kind = %q; want structured", p.Kind)
		}
		m, ok := p.Value.(map[string]any)
		if !ok || m["ok"] != true {
			t.Fatalf("value = %#v; want map with ok=true", p.Value)
		}
	})

	t.Run("invalid_json_falls_back_to_text", func(t *testing.T) {
		p := decodeBody("application/json", []byte(`{not json`), 0)
		if p.Kind != types.PayloadText || p.Text != "{not json" {
			t.Fatalf("decodeBody() = %+v; want text fallback", p)
		}
	})

	t.Run("json_without_json_type_is_text", func(t *testing.T) {
		p := decodeBody("text/plain", []byte(`{"a":1}`), 0)
		if p.Kind != types.PayloadText {
			t.Fatalf("kind = %q; want text", p.Kind)
		}
	})

	t.Run("binary", func(t *testing.T) {
		p := decodeBody("application/octet-stream", []byte{0xff, 0xfe, 0x00}, 0)
		if p.Kind != types.PayloadBinary || len(p.Data) != 3 {
			t.Fatalf("decodeBody() = %+v; want 3 binary bytes", p)
		}
	})

	t.Run("truncated_text_carries_metadata", func(t *testing.T) {
		body := strings.Repeat("x", 20)
		p := decodeBody("text/plain", []byte(body), 8)
		if p.Kind != types.PayloadText || p.Text != "xxxxxxxx" {
			t.Fatalf("decodeBody() = %+v; want 8 bytes of text", p)
		}
		if !p.Truncated || p.OriginalSize != 20 || p.SHA256 == "" {
			t.Fatalf("truncation metadata = %v/%d/%q", p.Truncated, p.OriginalSize, p.SHA256)
		}
	})

	t.Run("truncated_json_is_text", func(t *testing.T) {
		p := decodeBody("application/json", []byte(`{"key":"value"}`), 6)
		if p.Kind != types.PayloadText || !p.Truncated {
			t.Fatalf("decodeBody() = %+v; want truncated text", p)
		}
	})
}

package capture

import (
	"testing"

	"github.com/dgnsrekt/netmonitor/internal/types"
)

func TestRedactorHeaders(t *testing.T) {
	r := DefaultRedactor()
	got := r.Headers(map[string]string{
		"Authorization": "Bearer x",
		"Cookie":        "sid=1",
		"Accept":        "*/*",
	})
	if got["Authorization"] != DefaultRedactionReplacement || got["Cookie"] != DefaultRedactionReplacement {
		t.Fatalf("Headers() = %v; want credentials redacted", got)
	}
	if got["Accept"] != "*/*" {
		t.Fatalf("Headers()[Accept] = %q; want untouched", got["Accept"])
	}
}

func TestRedactorValuePatterns(t *testing.T) {
	r, err := NewRedactor(RedactorConfig{ValuePatterns: []string{`^sdk-[a-z0-9-]+$`}, Replacement: "***"})
	if err != nil {
		t.Fatalf("NewRedactor() error = %v", err)
	}
	if got := r.Header("X-Key", "sdk-abc-123"); got != "***" {
		t.Fatalf("Header() = %q; want %q", got, "***")
	}
	if got := r.Header("X-Key", "plain"); got != "plain" {
		t.Fatalf("Header() = %q; want untouched", got)
	}
}

func TestNewRedactorRejectsBadPattern(t *testing.T) {
	if _, err := NewRedactor(RedactorConfig{ValuePatterns: []string{"("}}); err == nil {
		t.Fatalf("NewRedactor() error = nil; want compile error")
	}
}

func TestRedactorPayloadObject(t *testing.T) {
	r := DefaultRedactor()
	p := r.Payload(types.StructuredPayload(map[string]any{
		"kind":    "identify",
		"context": map[string]any{"key": "u1", "phone": "555", "ssn": "000"},
	}))
	ctx := p.Value.(map[string]any)["context"].(map[string]any)
	if ctx["phone"] != DefaultRedactionReplacement || ctx["ssn"] != DefaultRedactionReplacement {
		t.Fatalf("context = %v; want phone and ssn redacted", ctx)
	}
	if ctx["key"] != "u1" {
		t.Fatalf("context key = %v; want u1", ctx["key"])
	}
}

func TestRedactorPayloadTextJSON(t *testing.T) {
	r := DefaultRedactor()
	p := r.Payload(types.TextPayload(`{"context":{"email":"a@b.c"}}`))
	if p.Text != `{"context":{"email":"[redacted]"}}` {
		t.Fatalf("Payload().Text = %q", p.Text)
	}

	plain := r.Payload(types.TextPayload("not json"))
	if plain.Text != "not json" {
		t.Fatalf("Payload() changed non-JSON text to %q", plain.Text)
	}
}

func TestNilRedactorPassesThrough(t *testing.T) {
	var r *Redactor
	if got := r.Header("Authorization", "x"); got != "x" {
		t.Fatalf("nil Header() = %q; want x", got)
	}
	p := types.TextPayload(`{"context":{"email":"a"}}`)
	if got := r.Payload(p); got.Text != p.Text {
		t.Fatalf("nil Payload() = %q; want unchanged", got.Text)
	}
}

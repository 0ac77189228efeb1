package types

import (
	"encoding/base64"
	"encoding/json"
)

// PayloadKind tags the representation held by a Payload.
type PayloadKind string

const (
	PayloadAbsent     PayloadKind = "absent"
	PayloadText       PayloadKind = "text"
	PayloadStructured PayloadKind = "structured"
	PayloadBinary     PayloadKind = "binary"
)

// Payload is a captured request or response body. Exactly one of Text, Value
// or Data is meaningful, selected by Kind. The zero value is absent.
type Payload struct {
	Kind  PayloadKind
	Text  string
	Value any
	Data  []byte

	// Set when the capture was cut at the configured body limit.
	Truncated    bool
	OriginalSize int
	SHA256       string
}

func AbsentPayload() Payload { return Payload{Kind: PayloadAbsent} }

func TextPayload(s string) Payload { return Payload{Kind: PayloadText, Text: s} }

func StructuredPayload(v any) Payload { return Payload{Kind: PayloadStructured, Value: v} }

func BinaryPayload(b []byte) Payload { return Payload{Kind: PayloadBinary, Data: b} }

// IsAbsent reports whether no body was captured.
func (p Payload) IsAbsent() bool {
	return p.Kind == "" || p.Kind == PayloadAbsent
}

type payloadJSON struct {
	Kind         PayloadKind `json:"kind"`
	Text         *string     `json:"text,omitempty"`
	Value        any         `json:"value,omitempty"`
	Base64       string      `json:"base64,omitempty"`
	Truncated    bool        `json:"truncated,omitempty"`
	OriginalSize int         `json:"original_size,omitempty"`
	SHA256       string      `json:"sha256,omitempty"`
}

// MarshalJSON renders an absent payload as null and every other kind as a
// tagged object.
func (p Payload) MarshalJSON() ([]byte, error) {
	if p.IsAbsent() {
		return []byte("null"), nil
	}
	out := payloadJSON{
		Kind:         p.Kind,
		Truncated:    p.Truncated,
		OriginalSize: p.OriginalSize,
		SHA256:       p.SHA256,
	}
	switch p.Kind {
	case PayloadText:
		text := p.Text
		out.Text = &text
	case PayloadStructured:
		out.Value = p.Value
	case PayloadBinary:
		out.Base64 = base64.StdEncoding.EncodeToString(p.Data)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the format produced by MarshalJSON.
func (p *Payload) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = AbsentPayload()
		return nil
	}
	var in payloadJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := Payload{
		Kind:         in.Kind,
		Truncated:    in.Truncated,
		OriginalSize: in.OriginalSize,
		SHA256:       in.SHA256,
	}
	switch in.Kind {
	case PayloadText:
		if in.Text != nil {
			out.Text = *in.Text
		}
	case PayloadStructured:
		out.Value = in.Value
	case PayloadBinary:
		b, err := base64.StdEncoding.DecodeString(in.Base64)
		if err != nil {
			return err
		}
		out.Data = b
	}
	*p = out
	return nil
}

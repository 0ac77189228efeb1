package capture

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestCapBytes(t *testing.T) {
	t.Run("no_truncation_when_within_limit", func(t *testing.T) {
		input := []byte("hello world")
		out, truncated, origLen, hash := capBytes(input, len(input))

		if truncated {
			t.Fatalf("expected truncated=false, got true")
		}
		if origLen != len(input) {
			t.Fatalf("expected original size %d, got %d", len(input), origLen)
		}
		if hash != "" {
			t.Fatalf("expected empty hash, got %q", hash)
		}
		if string(out) != string(input) {
			t.Fatalf("expected output %q, got %q", string(input), string(out))
		}
	})

	t.Run("truncate_large_slice", func(t *testing.T) {
		input := []byte("hello world")
		expectedHash := sha256.Sum256(input)
		out, truncated, origLen, hash := capBytes(input, 5)

		if !truncated {
			t.Fatalf("expected truncated=true, got false")
		}
		if origLen != len(input) {
			t.Fatalf("expected original size %d, got %d", len(input), origLen)
		}
		if string(out) != "hello" {
			t.Fatalf("expected output %q, got %q", "hello", string(out))
		}
		if hash != hex.EncodeToString(expectedHash[:]) {
			t.Fatalf("unexpected hash %q", hash)
		}
	})

	t.Run("non_positive_limit_keeps_everything", func(t *testing.T) {
		input := []byte("hello world")
		out, truncated, _, _ := capBytes(input, 0)
		if truncated || string(out) != "hello world" {
			t.Fatalf("capBytes(_, 0) = %q, %v; want full input", out, truncated)
		}
	})
}

func TestTrimPartialRune(t *testing.T) {
	// "é" is two bytes; cutting after the first leaves an invalid tail.
	cut := []byte("caf\xc3")
	if got := string(trimPartialRune(cut)); got != "caf" {
		t.Fatalf("trimPartialRune() = %q; want %q", got, "caf")
	}
	if got := string(trimPartialRune([]byte("café"))); got != "café" {
		t.Fatalf("trimPartialRune() = %q; want unchanged", got)
	}
}

package capture

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode/utf8"

	"github.com/dgnsrekt/netmonitor/internal/types"
)

// capBytes keeps at most maxBytes of in. When it cuts, it also reports the
// original length and the sha256 of the full input so the record still
// identifies the body. maxBytes <= 0 disables the limit.
func capBytes(in []byte, maxBytes int) (kept []byte, truncated bool, size int, sum string) {
	size = len(in)
	if maxBytes <= 0 || size <= maxBytes {
		return in, false, size, ""
	}
	digest := sha256.Sum256(in)
	return in[:maxBytes], true, size, hex.EncodeToString(digest[:])
}

// trimPartialRune drops a trailing incomplete UTF-8 sequence left by a cut.
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax-1 && len(b) > 0 && !utf8.Valid(b); i++ {
		b = b[:len(b)-1]
	}
	return b
}

// prefixPayload describes a body of which only prefix was kept. size is the
// full length, or 0 when it is unknown. There is no SHA256 because the full
// body never passed through memory at once.
func prefixPayload(prefix []byte, size int64) types.Payload {
	kept := trimPartialRune(prefix)
	var p types.Payload
	if utf8.Valid(kept) {
		p = types.TextPayload(string(kept))
	} else {
		b := make([]byte, len(kept))
		copy(b, kept)
		p = types.BinaryPayload(b)
	}
	p.Truncated = true
	if size > 0 {
		p.OriginalSize = int(size)
	}
	return p
}

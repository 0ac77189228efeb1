package capture

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// newRecordID returns a time-ordered id with a random tail.
func newRecordID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), hex.EncodeToString(buf))
}

package ingest

import (
	"crypto/rand"
	"fmt"
	"time"
)

const (
	internalIDPrefix = "CH"
	idAlphabet       = "ABCDEFGHIJKLMNPQRSTUVWXYZ0123456789"
	idRandomLength   = 8
)

// NewInternalID mints a globally unique order identifier. The embedded date
// keeps identifiers sortable by creation day; the random suffix is wide
// enough that collisions are not re-checked against the repository.
func NewInternalID(now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", internalIDPrefix, now.Format("20060102"), randomToken(idRandomLength))
}

func randomToken(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in serious trouble;
		// fall back to a time-derived suffix rather than panic.
		stamp := fmt.Sprintf("%d", time.Now().UnixNano())
		for i := range buf {
			buf[i] = stamp[i%len(stamp)]
		}
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(out)
}

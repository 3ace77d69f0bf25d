package settlements

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const idAlphabet = "ABCDEFGHIJKLMNPQRSTUVWXYZ0123456789"

// NewSettlementID encodes the driver and date into the identifier; the short
// random suffix keeps repeated submissions by one driver on one day distinct.
func NewSettlementID(driverID int64, settlementDate string) string {
	compact := strings.ReplaceAll(settlementDate, "-", "")
	return fmt.Sprintf("SET-%d-%s-%s", driverID, compact, randomSuffix(4))
}

func randomSuffix(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return strings.Repeat("X", length)
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(out)
}

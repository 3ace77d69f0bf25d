package orders

import (
	"crypto/rand"
	"strings"
)

// Alphabets exclude visually ambiguous characters (0/O, 1/I/L) so a code
// read over the phone or off a courier's screen cannot be mistyped.
const (
	otpLetters = "ABCDEFGHJKMNPQRSTUVWXYZ"
	otpDigits  = "23456789"
	otpLength  = 6
)

// GenerateOTP produces the delivery confirmation code issued at driver
// assignment: six characters alternating letter and digit.
func GenerateOTP() string {
	buf := make([]byte, otpLength)
	if _, err := rand.Read(buf); err != nil {
		// Degenerate but non-nil code; crypto/rand failing is a broken host.
		return "A2A2A2"
	}

	var sb strings.Builder
	sb.Grow(otpLength)
	for i, b := range buf {
		if i%2 == 0 {
			sb.WriteByte(otpLetters[int(b)%len(otpLetters)])
		} else {
			sb.WriteByte(otpDigits[int(b)%len(otpDigits)])
		}
	}
	return sb.String()
}

// MatchesOTP compares a caller-provided code against the stored one,
// case-insensitively. A nil stored code never matches.
func MatchesOTP(stored *string, provided string) bool {
	if stored == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(provided), *stored)
}

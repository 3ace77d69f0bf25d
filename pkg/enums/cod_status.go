package enums

import "fmt"

// CODStatus tracks cash custody for a cash-on-delivery order, independently
// of the delivery lifecycle.
type CODStatus string

const (
	CODStatusNone      CODStatus = "none"
	CODStatusPending   CODStatus = "pending"
	CODStatusCollected CODStatus = "collected"
	CODStatusSubmitted CODStatus = "submitted"
	CODStatusSettled   CODStatus = "settled"
)

var validCODStatuses = []CODStatus{
	CODStatusNone,
	CODStatusPending,
	CODStatusCollected,
	CODStatusSubmitted,
	CODStatusSettled,
}

// String implements fmt.Stringer.
func (s CODStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CODStatus.
func (s CODStatus) IsValid() bool {
	for _, candidate := range validCODStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCODStatus converts raw input into a CODStatus.
func ParseCODStatus(value string) (CODStatus, error) {
	for _, candidate := range validCODStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cod status %q", value)
}

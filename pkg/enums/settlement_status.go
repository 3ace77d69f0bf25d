package enums

import "fmt"

// SettlementStatus tracks a driver cash settlement batch. The vocabulary is
// deliberately distinct from CODStatus: a settlement batches many orders and
// the cash must additionally leave the business toward the merchant.
type SettlementStatus string

const (
	SettlementStatusSubmitted   SettlementStatus = "submitted"
	SettlementStatusVerified    SettlementStatus = "verified"
	SettlementStatusTransferred SettlementStatus = "transferred"
)

var validSettlementStatuses = []SettlementStatus{
	SettlementStatusSubmitted,
	SettlementStatusVerified,
	SettlementStatusTransferred,
}

// String implements fmt.Stringer.
func (s SettlementStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SettlementStatus.
func (s SettlementStatus) IsValid() bool {
	for _, candidate := range validSettlementStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSettlementStatus converts raw input into a SettlementStatus.
func ParseSettlementStatus(value string) (SettlementStatus, error) {
	for _, candidate := range validSettlementStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement status %q", value)
}

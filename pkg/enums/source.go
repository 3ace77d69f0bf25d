package enums

import "fmt"

// Source identifies the external system an order originated from.
type Source string

const (
	SourcePackwise   Source = "packwise"
	SourceShipio     Source = "shipio"
	SourceMegamart   Source = "megamart"
	SourceTransferro Source = "transferro"
)

var validSources = []Source{
	SourcePackwise,
	SourceShipio,
	SourceMegamart,
	SourceTransferro,
}

// String implements fmt.Stringer.
func (s Source) String() string {
	return string(s)
}

// IsValid reports whether the value is a known Source.
func (s Source) IsValid() bool {
	for _, candidate := range validSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSource converts raw input into a Source.
func ParseSource(value string) (Source, error) {
	for _, candidate := range validSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order source %q", value)
}

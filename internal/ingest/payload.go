package ingest

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Helpers for walking loosely-typed webhook payloads. All of them tolerate
// missing keys and wrong types so adapters stay total.

func getString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return decimal.NewFromFloat(v).String()
	default:
		return ""
	}
}

func getMap(payload map[string]any, key string) map[string]any {
	if payload == nil {
		return nil
	}
	if m, ok := payload[key].(map[string]any); ok {
		return m
	}
	return nil
}

func getSlice(payload map[string]any, key string) []any {
	if payload == nil {
		return nil
	}
	if s, ok := payload[key].([]any); ok {
		return s
	}
	return nil
}

func getFloat(payload map[string]any, key string) float64 {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case float64:
		return v
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			f, _ := d.Float64()
			return f
		}
	}
	return 0
}

func getDecimal(payload map[string]any, key string) decimal.Decimal {
	if payload == nil {
		return decimal.Zero
	}
	switch v := payload[key].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// joinAddress builds one address line from non-empty fragments.
func joinAddress(fragments ...string) string {
	parts := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		fragment = strings.TrimSpace(fragment)
		if fragment != "" {
			parts = append(parts, fragment)
		}
	}
	return strings.Join(parts, ", ")
}

const countryCallingCode = "+40"

// normalizePhone rewrites national numbers (leading zero, ten digits) into
// the international convention; already-prefixed numbers pass through.
func normalizePhone(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if cleaned == "" {
		return ""
	}
	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}
	if strings.HasPrefix(cleaned, "00") {
		return "+" + cleaned[2:]
	}
	if len(cleaned) == 10 && cleaned[0] == '0' && isDigits(cleaned) {
		return countryCallingCode + cleaned[1:]
	}
	return cleaned
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

package utils

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultWindowDays = 30
	MaxWindowDays     = 365
)

// ParseDays reads the reporting window from a ?days= query value. An empty
// value means the default window.
func ParseDays(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultWindowDays, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("days must be an integer: %q", raw)
	}
	if days < 1 || days > MaxWindowDays {
		return 0, fmt.Errorf("days must be between 1 and %d", MaxWindowDays)
	}
	return days, nil
}

// BearerToken strips an optional "Bearer " prefix from an Authorization header.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

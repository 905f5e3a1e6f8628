package property

import (
	"regexp"
	"strings"
)

const DefaultSizeHint = "2000"

var sqftPattern = regexp.MustCompile(`(?i)(\d+)\s*sq\s*ft`)

// SizeHint picks the size argument sent with a valuation request: an explicit size
// wins, then the first "<n> sq ft" in the description, then DefaultSizeHint.
func SizeHint(explicit string, description string) string {
	if trimmed := strings.TrimSpace(explicit); trimmed != "" {
		return trimmed
	}
	if match := sqftPattern.FindStringSubmatch(description); len(match) == 2 {
		return match[1]
	}
	return DefaultSizeHint
}

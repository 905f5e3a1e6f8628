package oracle

import (
	"fmt"
	"math/big"
	"strings"
)

// NormalizeEntityID maps the representations a property id shows up in (decimal,
// 0x-hex, padded) onto one decimal string so ids compare with plain equality.
func NormalizeEntityID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEntityIDRequired
	}

	value := new(big.Int)
	var ok bool
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		_, ok = value.SetString(trimmed[2:], 16)
	} else {
		_, ok = value.SetString(trimmed, 10)
	}
	if !ok || value.Sign() < 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntityID, raw)
	}
	return value.String(), nil
}

// EntityIDFromBig formats an on-chain uint256 property id.
func EntityIDFromBig(value *big.Int) string {
	if value == nil || value.Sign() < 0 {
		return ""
	}
	return value.String()
}

func normalizeOrEmpty(raw string) string {
	id, err := NormalizeEntityID(raw)
	if err != nil {
		return ""
	}
	return id
}

func normalizeRequestID(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

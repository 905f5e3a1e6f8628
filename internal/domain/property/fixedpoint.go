package property

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// TokenDecimals is the fixed-point scale the token contract uses for prices and
// income amounts.
const TokenDecimals = 18

// ToBaseUnits converts a human decimal such as "0.25" into an integer amount scaled
// by 10^decimals. More fractional digits than the scale allows is an error, never a
// silent truncation.
func ToBaseUnits(amount string, decimals int32) (*big.Int, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}

	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if value.IsNegative() {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, amount)
	}

	scaled := value.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidAmount, amount, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatBaseUnits renders a scaled integer amount back as a decimal string without
// trailing zeros.
func FormatBaseUnits(value *big.Int, decimals int32) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -decimals).String()
}

func ToWei(amount string) (*big.Int, error) {
	return ToBaseUnits(amount, TokenDecimals)
}

func FormatEther(value *big.Int) string {
	return FormatBaseUnits(value, TokenDecimals)
}

package models

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatUnits renders a minimal-unit amount as a human-readable decimal string
func FormatUnits(value *big.Int, decimals int) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, int32(-decimals)).String()
}

// ParseUnits converts a decimal string into minimal units.
// Amounts with more fractional digits than decimals are rejected.
func ParseUnits(value string, decimals int) (*big.Int, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	shifted := d.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than %d decimals", value, decimals)
	}
	return shifted.BigInt(), nil
}

package mint

import "math/big"

const (
	// BpsDenominator is the basis-point scale (10000 = 100%)
	BpsDenominator = 10_000

	// DefaultSlippageBps is the tolerated shortfall between quote and execution (1%)
	DefaultSlippageBps uint16 = 100
)

// RateScale is the fixed-point denominator of exchange rates (1e18)
var RateScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// ReceiveAmount converts a deposit into the expected receipt-token amount:
// depositAmount * 1e18 / rate, or depositAmount 1:1 when the rate is unknown (nil or zero)
func ReceiveAmount(depositAmount, rate *big.Int) *big.Int {
	if depositAmount == nil {
		return new(big.Int)
	}
	if rate == nil || rate.Sign() <= 0 {
		return new(big.Int).Set(depositAmount)
	}

	out := new(big.Int).Mul(depositAmount, RateScale)
	return out.Quo(out, rate)
}

// MinimumMint is the lowest receipt-token amount accepted for depositAmount at rate.
// With a known rate the expected amount is discounted by slippageBps, rounding down.
// With an unknown rate (nil or zero) the deposit amount passes through unchanged.
func MinimumMint(depositAmount, rate *big.Int, slippageBps uint16) *big.Int {
	if depositAmount == nil {
		return new(big.Int)
	}
	if rate == nil || rate.Sign() <= 0 {
		return new(big.Int).Set(depositAmount)
	}

	bps := int64(slippageBps)
	if bps > BpsDenominator {
		bps = BpsDenominator
	}

	out := ReceiveAmount(depositAmount, rate)
	out.Mul(out, big.NewInt(BpsDenominator-bps))
	return out.Quo(out, big.NewInt(BpsDenominator))
}

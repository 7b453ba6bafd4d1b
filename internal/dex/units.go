package dex

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// TokenDecimals is the decimal precision assumed for tracked tokens.
const TokenDecimals = 18

var q96 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 96), 0)

// ScaleBalance converts a raw token balance into whole decimal-adjusted units,
// truncating the fractional part. Values beyond uint64 saturate.
func ScaleBalance(raw *big.Int) uint64 {
	if raw == nil || raw.Sign() <= 0 {
		return 0
	}
	whole := decimal.NewFromBigInt(raw, -TokenDecimals).Truncate(0).BigInt()
	if !whole.IsUint64() {
		return math.MaxUint64
	}
	return whole.Uint64()
}

// PriceFromSqrtX96 converts a slot0 sqrt price into the price of token1
// expressed in token0, i.e. 1 / (sqrtPriceX96 / 2^96)^2.
func PriceFromSqrtX96(sqrtPriceX96 *big.Int) (float64, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return 0, fmt.Errorf("invalid sqrt price %v", sqrtPriceX96)
	}
	sqrtPrice := decimal.NewFromBigInt(sqrtPriceX96, 0).DivRound(q96, 36)
	ratio := sqrtPrice.Mul(sqrtPrice)
	if ratio.IsZero() {
		return 0, fmt.Errorf("sqrt price %s rounds to zero", sqrtPriceX96)
	}
	inverse := decimal.NewFromInt(1).DivRound(ratio, 18)
	if inverse.IsZero() {
		return 0, fmt.Errorf("price of sqrt price %s rounds to zero", sqrtPriceX96)
	}
	price, _ := inverse.Float64()
	return price, nil
}

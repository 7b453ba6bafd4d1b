package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	wbnb = "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c"
	usdt = "0x55d398326f99059ff775485246999027b3197955"
	cake = "0x0e09fabb73bd3ade0a17ecc321fd13a19e81ce82"
)

func TestQuoteSidePrefersToken0(t *testing.T) {
	q := NewQuoteTokens(wbnb, []string{"0x55D398326F99059FF775485246999027B3197955"})

	assert.Equal(t, Side0, q.Side(PoolInfo{Token0: usdt, Token1: wbnb}))
	assert.Equal(t, Side1, q.Side(PoolInfo{Token0: cake, Token1: wbnb}))
	assert.Equal(t, SideNone, q.Side(PoolInfo{Token0: cake, Token1: "0x01"}))
}

func TestQuoteLiquidityPricesNative(t *testing.T) {
	q := NewQuoteTokens(wbnb, []string{usdt})
	p := PoolInfo{Token0: cake, Token1: wbnb, Token0Liquidity: 9, Token1Liquidity: 40}

	assert.Equal(t, 24000.0, q.Liquidity(p, Side1, 600))

	p = PoolInfo{Token0: usdt, Token1: wbnb, Token0Liquidity: 5000, Token1Liquidity: 40}
	assert.Equal(t, 5000.0, q.Liquidity(p, Side0, 600))
}

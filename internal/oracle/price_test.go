package oracle

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"yieldScope/internal/dex"
	"yieldScope/internal/dex/dextest"
)

var refPool = common.HexToAddress("0x36696169C63e42cd08ce11f5deeBbCeBae652050")

func TestRefreshPublishesPrice(t *testing.T) {
	caller := dextest.NewCaller()
	// sqrtPriceX96 = 2^96 / 10 gives 1 / 0.01 = 100
	sqrt := new(big.Int).Div(new(big.Int).Lsh(big.NewInt(1), 96), big.NewInt(10))
	caller.SetPool(refPool, dextest.Pool{SqrtPriceX96: sqrt})

	price := &NativePrice{}
	r := NewRefresher(dex.NewPoolReader(caller), refPool, price, zaptest.NewLogger(t), nil)
	require.NoError(t, r.Refresh(context.Background()))
	assert.InDelta(t, 100.0, price.Get(), 1e-6)
}

func TestRefreshFailureKeepsPreviousValue(t *testing.T) {
	caller := dextest.NewCaller()
	caller.SetPool(refPool, dextest.Pool{SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 96)})
	caller.Fail("slot0", errors.New("rpc down"))

	price := &NativePrice{}
	price.Set(612.5)
	r := NewRefresher(dex.NewPoolReader(caller), refPool, price, zaptest.NewLogger(t), nil)

	require.Error(t, r.Refresh(context.Background()))
	assert.Equal(t, 612.5, price.Get())

	// zero sqrt price is rejected too
	caller.Fail("slot0", nil)
	caller.SetPool(refPool, dextest.Pool{})
	require.Error(t, r.Refresh(context.Background()))
	assert.Equal(t, 612.5, price.Get())
}

func TestRefreshRejectsPriceRoundingToZero(t *testing.T) {
	caller := dextest.NewCaller()
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)
	caller.SetPool(refPool, dextest.Pool{SqrtPriceX96: new(big.Int).Mul(q96, big.NewInt(1e10))})

	price := &NativePrice{}
	price.Set(612.5)
	r := NewRefresher(dex.NewPoolReader(caller), refPool, price, zaptest.NewLogger(t), nil)

	require.Error(t, r.Refresh(context.Background()))
	assert.Equal(t, 612.5, price.Get())
}

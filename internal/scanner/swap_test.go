package scanner

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"yieldScope/internal/aggregate"
	"yieldScope/internal/dex"
	"yieldScope/internal/model"
	"yieldScope/internal/oracle"
)

const (
	wbnb = "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c"
	usdt = "0x55d398326f99059ff775485246999027b3197955"
	cake = "0x0e09fabb73bd3ade0a17ecc321fd13a19e81ce82"

	blockTS = 1_700_000_040
)

var testQuotes = model.NewQuoteTokens(wbnb, []string{usdt})

type stubResolver struct {
	pools map[common.Address]model.PoolInfo
	err   error
	calls int
}

func (r *stubResolver) Resolve(_ context.Context, _ string, pool common.Address) (model.PoolInfo, bool, error) {
	r.calls++
	if r.err != nil {
		return model.PoolInfo{}, false, r.err
	}
	info, ok := r.pools[pool]
	return info, ok, nil
}

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func swapLog(t *testing.T, pool common.Address, amount0, amount1 *big.Int) *types.Log {
	t.Helper()
	poolABI, err := dex.V3PoolABI()
	require.NoError(t, err)
	data, err := poolABI.Events["Swap"].Inputs.NonIndexed().Pack(amount0, amount1, big.NewInt(1), big.NewInt(1), big.NewInt(0))
	require.NoError(t, err)
	return &types.Log{
		Address: pool,
		Topics:  []common.Hash{common.HexToHash(dex.PancakeSwapV3SwapTopic)},
		Data:    data,
	}
}

type handlerFixture struct {
	resolver *stubResolver
	windows  *aggregate.Windows
	price    *oracle.NativePrice
	handler  *SwapHandler
}

func newHandlerFixture(t *testing.T, pools map[common.Address]model.PoolInfo) *handlerFixture {
	t.Helper()
	decoder, err := dex.NewSwapDecoder(dex.DefaultSwapTopics())
	require.NoError(t, err)
	f := &handlerFixture{
		resolver: &stubResolver{pools: pools},
		windows:  aggregate.NewWindows(),
		price:    &oracle.NativePrice{},
	}
	f.price.Set(600)
	f.handler = NewSwapHandler(decoder, f.resolver, f.windows, f.price, testQuotes, zaptest.NewLogger(t), nil)
	return f
}

func TestHandleLogRecordsStableSide(t *testing.T) {
	addr := common.HexToAddress("0xa1")
	f := newHandlerFixture(t, map[common.Address]model.PoolInfo{
		addr: {Pool: "0xa1", Token0: usdt, Token1: cake, Fee: 500, Token0Liquidity: 20000},
	})

	require.NoError(t, f.handler.HandleLog(context.Background(), blockTS, swapLog(t, addr, units(-5000), units(12))))
	require.NoError(t, f.handler.HandleLog(context.Background(), blockTS+10, swapLog(t, addr, units(7), units(-1))))

	got, ok := f.windows.Get("0xa1")
	require.True(t, ok)
	assert.Equal(t, []model.VolumeBucket{{Minute: blockTS / 60, Amount: 5007}}, got)
}

func TestHandleLogPricesNativeSide(t *testing.T) {
	addr := common.HexToAddress("0xb2")
	f := newHandlerFixture(t, map[common.Address]model.PoolInfo{
		addr: {Pool: "0xb2", Token0: cake, Token1: wbnb, Fee: 2500, Token1Liquidity: 2000},
	})

	require.NoError(t, f.handler.HandleLog(context.Background(), blockTS, swapLog(t, addr, units(-900), units(2))))

	got, ok := f.windows.Get("0xb2")
	require.True(t, ok)
	assert.Equal(t, uint64(1200), got[0].Amount)
}

func TestHandleLogSkips(t *testing.T) {
	lowLiq := common.HexToAddress("0xc3")
	noQuote := common.HexToAddress("0xd4")
	dust := common.HexToAddress("0xe5")
	f := newHandlerFixture(t, map[common.Address]model.PoolInfo{
		lowLiq:  {Pool: "0xc3", Token0: usdt, Token1: cake, Fee: 500, Token0Liquidity: 999},
		noQuote: {Pool: "0xd4", Token0: cake, Token1: "0x01", Fee: 500, Token0Liquidity: 50000},
		dust:    {Pool: "0xe5", Token0: usdt, Token1: cake, Fee: 500, Token0Liquidity: 50000},
	})
	ctx := context.Background()

	require.NoError(t, f.handler.HandleLog(ctx, blockTS, swapLog(t, lowLiq, units(100), units(-1))))
	require.NoError(t, f.handler.HandleLog(ctx, blockTS, swapLog(t, noQuote, units(100), units(-1))))
	require.NoError(t, f.handler.HandleLog(ctx, blockTS, swapLog(t, dust, big.NewInt(0), units(-1))))
	// untracked pool
	require.NoError(t, f.handler.HandleLog(ctx, blockTS, swapLog(t, common.HexToAddress("0xf6"), units(100), units(-1))))
	assert.Zero(t, f.windows.Len())
	assert.Equal(t, 4, f.resolver.calls)

	// a transfer log never reaches the resolver
	transfer := &types.Log{Topics: []common.Hash{common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")}}
	require.NoError(t, f.handler.HandleLog(ctx, blockTS, transfer))
	assert.Equal(t, 4, f.resolver.calls)
}

func TestHandleLogPropagatesResolverError(t *testing.T) {
	f := newHandlerFixture(t, nil)
	rpcErr := errors.New("timeout")
	f.resolver.err = rpcErr

	err := f.handler.HandleLog(context.Background(), blockTS, swapLog(t, common.HexToAddress("0xa1"), units(1), units(-1)))
	assert.ErrorIs(t, err, rpcErr)
	assert.Zero(t, f.windows.Len())
}

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yieldScope/internal/model"
)

func TestStoreUpsertReplacesByPool(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(ctx, filepath.Join(t.TempDir(), "pools.sqlite"))
	require.NoError(t, err)
	defer store.Close()

	pool := model.PoolInfo{
		Protocol:        "PancakeSwapV3",
		Pool:            "0x1111111111111111111111111111111111111111",
		Factory:         "0x0bfbcf9fa4f9c56b0f40a671ad40e0805a091865",
		Token0:          "0x55d398326f99059ff775485246999027b3197955",
		Token1:          "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c",
		Fee:             500,
		Token0Liquidity: 100,
		Token1Liquidity: 200,
		Timestamp:       1700000000,
	}
	require.NoError(t, store.UpsertPool(ctx, pool))

	pool.Token0Liquidity = 150
	pool.Timestamp = 1700000300
	require.NoError(t, store.UpsertPool(ctx, pool))

	pools, err := store.LoadAllPools(ctx)
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.Equal(t, pool, pools[0])
}

func TestStoreLoadEmpty(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(ctx, filepath.Join(t.TempDir(), "pools.sqlite"))
	require.NoError(t, err)
	defer store.Close()

	pools, err := store.LoadAllPools(ctx)
	require.NoError(t, err)
	assert.Empty(t, pools)
}

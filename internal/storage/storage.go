package storage

import (
	"context"

	"yieldScope/internal/model"
)

// PoolStore is the durable backing store of the pool registry.
// UpsertPool must replace any existing row with the same pool address.
type PoolStore interface {
	UpsertPool(ctx context.Context, pool model.PoolInfo) error
	LoadAllPools(ctx context.Context) ([]model.PoolInfo, error)
	Close()
}

// CreatePoolsTable is the schema shared by the relational adapters.
const CreatePoolsTable = `
CREATE TABLE IF NOT EXISTS pools (
	protocol TEXT NOT NULL,
	pool TEXT PRIMARY KEY,
	factory TEXT NOT NULL,
	token0 TEXT NOT NULL,
	token1 TEXT NOT NULL,
	fee BIGINT NOT NULL,
	token0_liquidity BIGINT NOT NULL,
	token1_liquidity BIGINT NOT NULL,
	timestamp BIGINT NOT NULL
)`

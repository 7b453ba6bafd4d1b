package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"yieldScope/internal/model"
	"yieldScope/internal/storage"
)

// Store provides Postgres persistence for pool metadata.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, storage.CreatePoolsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create pools table: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertPool inserts or replaces pool metadata keyed by pool address.
func (s *Store) UpsertPool(ctx context.Context, p model.PoolInfo) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pools (
			protocol, pool, factory, token0, token1, fee, token0_liquidity, token1_liquidity, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (pool)
		DO UPDATE SET
			protocol = EXCLUDED.protocol,
			factory = EXCLUDED.factory,
			token0 = EXCLUDED.token0,
			token1 = EXCLUDED.token1,
			fee = EXCLUDED.fee,
			token0_liquidity = EXCLUDED.token0_liquidity,
			token1_liquidity = EXCLUDED.token1_liquidity,
			timestamp = EXCLUDED.timestamp
	`,
		p.Protocol,
		p.Pool,
		p.Factory,
		p.Token0,
		p.Token1,
		clampInt64(p.Fee),
		clampInt64(p.Token0Liquidity),
		clampInt64(p.Token1Liquidity),
		clampInt64(p.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("upsert pool %s: %w", p.Pool, err)
	}
	return nil
}

// LoadAllPools returns every stored pool.
func (s *Store) LoadAllPools(ctx context.Context) ([]model.PoolInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT protocol, pool, factory, token0, token1, fee, token0_liquidity, token1_liquidity, timestamp
		FROM pools
	`)
	if err != nil {
		return nil, fmt.Errorf("query pools: %w", err)
	}

	pools, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.PoolInfo, error) {
		var p model.PoolInfo
		var fee, liq0, liq1, ts int64
		if err := row.Scan(&p.Protocol, &p.Pool, &p.Factory, &p.Token0, &p.Token1, &fee, &liq0, &liq1, &ts); err != nil {
			return model.PoolInfo{}, err
		}
		p.Fee = uint64(fee)
		p.Token0Liquidity = uint64(liq0)
		p.Token1Liquidity = uint64(liq1)
		p.Timestamp = uint64(ts)
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan pools: %w", err)
	}
	return pools, nil
}

func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

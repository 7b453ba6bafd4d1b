package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	_ "github.com/mattn/go-sqlite3"

	"yieldScope/internal/model"
	"yieldScope/internal/storage"
)

// Store persists pool metadata in a local SQLite file.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if missing) the database and ensures the schema.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the ranking readers run while the scanner writes
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, storage.CreatePoolsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create pools table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// UpsertPool replaces the row keyed by pool address.
func (s *Store) UpsertPool(ctx context.Context, p model.PoolInfo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO pools (
			protocol, pool, factory, token0, token1, fee, token0_liquidity, token1_liquidity, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT protocol, pool, factory, token0, token1, fee, token0_liquidity, token1_liquidity, timestamp
		FROM pools`)
	if err != nil {
		return nil, fmt.Errorf("query pools: %w", err)
	}
	defer rows.Close()

	var pools []model.PoolInfo
	for rows.Next() {
		var p model.PoolInfo
		var fee, liq0, liq1, ts int64
		if err := rows.Scan(&p.Protocol, &p.Pool, &p.Factory, &p.Token0, &p.Token1, &fee, &liq0, &liq1, &ts); err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		p.Fee = uint64(fee)
		p.Token0Liquidity = uint64(liq0)
		p.Token1Liquidity = uint64(liq1)
		p.Timestamp = uint64(ts)
		pools = append(pools, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pools: %w", err)
	}
	return pools, nil
}

func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

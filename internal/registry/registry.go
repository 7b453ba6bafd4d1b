package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"yieldScope/internal/dex"
	"yieldScope/internal/metrics"
	"yieldScope/internal/model"
	"yieldScope/internal/storage"
)

// DefaultLiquidityTTL is how long cached balances are trusted.
const DefaultLiquidityTTL = 300 * time.Second

type outcome string

const (
	outcomeCached    outcome = "cached"
	outcomeRefreshed outcome = "refreshed"
	outcomeCreated   outcome = "created"
	outcomeUntracked outcome = "untracked_factory"
)

// Options configures a Registry.
type Options struct {
	// Factories is the allow-list of factory addresses.
	Factories []string
	TTL       time.Duration
	// Clock returns unix seconds; defaults to the wall clock.
	Clock   func() uint64
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Registry resolves pool addresses to metadata. Entries live in memory and
// are written through to the durable store.
type Registry struct {
	reader    *dex.PoolReader
	store     storage.PoolStore
	factories map[string]struct{}
	ttl       uint64
	now       func() uint64
	logger    *zap.Logger
	metrics   *metrics.Metrics

	mu    sync.RWMutex
	pools map[string]model.PoolInfo
}

func New(reader *dex.PoolReader, store storage.PoolStore, opts Options) *Registry {
	factories := make(map[string]struct{}, len(opts.Factories))
	for _, f := range opts.Factories {
		factories[normalize(f)] = struct{}{}
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultLiquidityTTL
	}
	clock := opts.Clock
	if clock == nil {
		clock = func() uint64 { return uint64(time.Now().Unix()) }
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.Nop()
	}
	return &Registry{
		reader:    reader,
		store:     store,
		factories: factories,
		ttl:       uint64(ttl / time.Second),
		now:       clock,
		logger:    logger,
		metrics:   m,
		pools:     make(map[string]model.PoolInfo),
	}
}

// Load warms the in-memory map from the durable store.
func (r *Registry) Load(ctx context.Context) (int, error) {
	pools, err := r.store.LoadAllPools(ctx)
	if err != nil {
		return 0, fmt.Errorf("load pools: %w", err)
	}
	r.mu.Lock()
	for _, p := range pools {
		p.Pool = normalize(p.Pool)
		r.pools[p.Pool] = p
	}
	r.mu.Unlock()
	return len(pools), nil
}

// Resolve returns the pool's metadata, reading the chain when the entry is
// missing or its liquidity is stale. ok is false when the pool's factory is
// not allow-listed. No entry is committed unless every read and the durable
// upsert succeed.
func (r *Registry) Resolve(ctx context.Context, protocol string, pool common.Address) (model.PoolInfo, bool, error) {
	info, out, err := r.resolve(ctx, protocol, pool)
	if err != nil {
		return model.PoolInfo{}, false, err
	}
	if out != outcomeCached {
		r.metrics.PoolsResolved.WithLabelValues(string(out)).Inc()
	}
	if out == outcomeUntracked {
		r.logger.Debug("pool factory not tracked", zap.String("pool", normalize(pool.Hex())))
		return model.PoolInfo{}, false, nil
	}
	return info, true, nil
}

func (r *Registry) resolve(ctx context.Context, protocol string, pool common.Address) (model.PoolInfo, outcome, error) {
	key := normalize(pool.Hex())
	now := r.now()

	r.mu.RLock()
	cached, ok := r.pools[key]
	r.mu.RUnlock()

	if ok && cached.IsFresh(now, r.ttl) {
		return cached, outcomeCached, nil
	}

	if ok {
		bal0, bal1, err := r.reader.Balances(ctx, pool, common.HexToAddress(cached.Token0), common.HexToAddress(cached.Token1))
		if err != nil {
			return model.PoolInfo{}, "", fmt.Errorf("refresh liquidity of %s: %w", key, err)
		}
		cached.Token0Liquidity = dex.ScaleBalance(bal0)
		cached.Token1Liquidity = dex.ScaleBalance(bal1)
		cached.Timestamp = now
		if err := r.commit(ctx, cached); err != nil {
			return model.PoolInfo{}, "", err
		}
		return cached, outcomeRefreshed, nil
	}

	factory, err := r.reader.Factory(ctx, pool)
	if err != nil {
		return model.PoolInfo{}, "", fmt.Errorf("read factory of %s: %w", key, err)
	}
	factoryKey := normalize(factory.Hex())
	if _, allowed := r.factories[factoryKey]; !allowed {
		return model.PoolInfo{}, outcomeUntracked, nil
	}

	id, err := r.reader.Identity(ctx, pool)
	if err != nil {
		return model.PoolInfo{}, "", fmt.Errorf("read identity of %s: %w", key, err)
	}
	bal0, bal1, err := r.reader.Balances(ctx, pool, id.Token0, id.Token1)
	if err != nil {
		return model.PoolInfo{}, "", fmt.Errorf("read liquidity of %s: %w", key, err)
	}

	info := model.PoolInfo{
		Protocol:        protocol,
		Pool:            key,
		Factory:         factoryKey,
		Token0:          normalize(id.Token0.Hex()),
		Token1:          normalize(id.Token1.Hex()),
		Fee:             id.Fee,
		Token0Liquidity: dex.ScaleBalance(bal0),
		Token1Liquidity: dex.ScaleBalance(bal1),
		Timestamp:       now,
	}
	if err := r.commit(ctx, info); err != nil {
		return model.PoolInfo{}, "", err
	}
	r.logger.Info("pool tracked",
		zap.String("pool", key),
		zap.String("protocol", protocol),
		zap.Uint64("fee", info.Fee),
		zap.String("token0", info.Token0),
		zap.String("token1", info.Token1),
	)
	return info, outcomeCreated, nil
}

// commit persists first so a failed upsert leaves memory untouched.
func (r *Registry) commit(ctx context.Context, info model.PoolInfo) error {
	if err := r.store.UpsertPool(ctx, info); err != nil {
		return fmt.Errorf("persist pool %s: %w", info.Pool, err)
	}
	r.mu.Lock()
	r.pools[info.Pool] = info
	r.mu.Unlock()
	return nil
}

// Get returns a copy of the cached entry without touching the chain.
func (r *Registry) Get(pool string) (model.PoolInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pools[normalize(pool)]
	return p, ok
}

// Snapshot copies the whole map.
func (r *Registry) Snapshot() map[string]model.PoolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]model.PoolInfo, len(r.pools))
	for k, v := range r.pools {
		out[k] = v
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}

func normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

package oracle

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"yieldScope/internal/dex"
	"yieldScope/internal/metrics"
)

// NativePrice is the latest native token price in the stable unit.
type NativePrice struct {
	mu    sync.RWMutex
	value float64
}

func (p *NativePrice) Get() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

func (p *NativePrice) Set(v float64) {
	p.mu.Lock()
	p.value = v
	p.mu.Unlock()
}

// Refresher reads the reference pool's slot0 and publishes the price.
type Refresher struct {
	reader  *dex.PoolReader
	pool    common.Address
	price   *NativePrice
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewRefresher(reader *dex.PoolReader, pool common.Address, price *NativePrice, logger *zap.Logger, m *metrics.Metrics) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Refresher{reader: reader, pool: pool, price: price, logger: logger, metrics: m}
}

// Refresh updates the published price. On error the previous value stays.
func (r *Refresher) Refresh(ctx context.Context) error {
	sqrt, err := r.reader.SqrtPriceX96(ctx, r.pool)
	if err != nil {
		return fmt.Errorf("read reference pool %s: %w", r.pool.Hex(), err)
	}
	value, err := dex.PriceFromSqrtX96(sqrt)
	if err != nil {
		return fmt.Errorf("price of reference pool %s: %w", r.pool.Hex(), err)
	}
	r.price.Set(value)
	r.metrics.NativePrice.Set(value)
	r.logger.Info("native price updated", zap.Float64("price", value))
	return nil
}

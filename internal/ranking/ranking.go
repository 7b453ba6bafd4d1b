package ranking

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"yieldScope/internal/aggregate"
	"yieldScope/internal/model"
)

// Options bounds a ranking pass.
type Options struct {
	TopN          int
	MinLiquidity  float64
	MinVolume     float64
	WindowMinutes float64
}

func DefaultOptions() Options {
	return Options{
		TopN:          10,
		MinLiquidity:  10000,
		MinVolume:     10000,
		WindowMinutes: aggregate.WindowMinutes,
	}
}

// Rank rates every pool that has both metadata and a volume window and
// returns the best TopN by fee rate, highest first. Inputs are not mutated.
func Rank(pools map[string]model.PoolInfo, windows map[string][]model.VolumeBucket, quotes model.QuoteTokens, nativePrice float64, opts Options) []model.PoolYield {
	if opts.WindowMinutes <= 0 {
		opts.WindowMinutes = aggregate.WindowMinutes
	}

	out := make([]model.PoolYield, 0, len(windows))
	for addr, buckets := range windows {
		info, ok := pools[addr]
		if !ok {
			continue
		}
		side := quotes.Side(info)
		if side == model.SideNone {
			continue
		}
		liquidity := quotes.Liquidity(info, side, nativePrice)
		if liquidity < opts.MinLiquidity {
			continue
		}
		volume := aggregate.TotalVolume(buckets)
		if volume < opts.MinVolume {
			continue
		}
		out = append(out, model.PoolYield{
			Pool:           addr,
			Protocol:       info.Protocol,
			Token:          info.Token(side),
			Fee:            info.Fee,
			Volume:         volume,
			Liquidity:      liquidity,
			FeeRatePerHour: aggregate.FeeRatePerHour(info.Fee, buckets, liquidity, opts.WindowMinutes),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].FeeRatePerHour != out[j].FeeRatePerHour {
			return out[i].FeeRatePerHour > out[j].FeeRatePerHour
		}
		return out[i].Pool < out[j].Pool
	})
	if opts.TopN > 0 && len(out) > opts.TopN {
		out = out[:opts.TopN]
	}
	return out
}

type poolSource interface {
	Snapshot() map[string]model.PoolInfo
}

type windowSource interface {
	Snapshot() map[string][]model.VolumeBucket
}

type priceSource interface {
	Get() float64
}

// Reporter periodically ranks the live state and keeps the latest result.
type Reporter struct {
	pools   poolSource
	windows windowSource
	price   priceSource
	quotes  model.QuoteTokens
	opts    Options
	logger  *zap.Logger

	mu     sync.RWMutex
	latest []model.PoolYield
}

func NewReporter(pools poolSource, windows windowSource, price priceSource, quotes model.QuoteTokens, opts Options, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		pools:   pools,
		windows: windows,
		price:   price,
		quotes:  quotes,
		opts:    opts,
		logger:  logger,
	}
}

// Report ranks, logs and stores the top pools.
func (r *Reporter) Report(_ context.Context) []model.PoolYield {
	top := Rank(r.pools.Snapshot(), r.windows.Snapshot(), r.quotes, r.price.Get(), r.opts)

	r.mu.Lock()
	r.latest = top
	r.mu.Unlock()

	r.logger.Info("top pools by fee rate per hour", zap.Int("count", len(top)))
	for i, p := range top {
		r.logger.Info("ranked pool",
			zap.Int("rank", i+1),
			zap.String("pool", p.Pool),
			zap.String("protocol", p.Protocol),
			zap.Float64("volume", p.Volume),
			zap.Float64("liquidity", p.Liquidity),
			zap.Float64("aph", p.FeeRatePerHour),
		)
	}
	return cloneYields(top)
}

// Latest returns the result of the last Report.
func (r *Reporter) Latest() []model.PoolYield {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneYields(r.latest)
}

func cloneYields(in []model.PoolYield) []model.PoolYield {
	out := make([]model.PoolYield, len(in))
	copy(out, in)
	return out
}

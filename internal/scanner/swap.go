package scanner

import (
	"context"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"yieldScope/internal/aggregate"
	"yieldScope/internal/dex"
	"yieldScope/internal/metrics"
	"yieldScope/internal/model"
)

// HighYieldAPH is the hourly fee rate above which a pool is flagged.
const HighYieldAPH = 0.1

const minNormalFloat = 0x1p-1022

var amountScale = math.Pow10(dex.TokenDecimals)

// PoolResolver looks up pool metadata; ok is false for untracked pools.
type PoolResolver interface {
	Resolve(ctx context.Context, protocol string, pool common.Address) (model.PoolInfo, bool, error)
}

type priceSource interface {
	Get() float64
}

// SwapHandler turns swap logs into window volume.
type SwapHandler struct {
	decoder *dex.SwapDecoder
	pools   PoolResolver
	windows *aggregate.Windows
	price   priceSource
	quotes  model.QuoteTokens
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewSwapHandler(decoder *dex.SwapDecoder, pools PoolResolver, windows *aggregate.Windows, price priceSource, quotes model.QuoteTokens, logger *zap.Logger, m *metrics.Metrics) *SwapHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &SwapHandler{
		decoder: decoder,
		pools:   pools,
		windows: windows,
		price:   price,
		quotes:  quotes,
		now:     time.Now,
		logger:  logger,
		metrics: m,
	}
}

// HandleLog records a swap into its pool's window. Logs that are not swaps,
// swaps in untracked or unpriceable pools, and dust amounts are skipped.
func (h *SwapHandler) HandleLog(ctx context.Context, blockTimestamp uint64, log *types.Log) error {
	ev, ok, err := h.decoder.Decode(log)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	info, ok, err := h.pools.Resolve(ctx, ev.Protocol, ev.Pool)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	side := h.quotes.Side(info)
	if side == model.SideNone {
		return nil
	}
	liquidity := float64(info.Liquidity(side))
	if liquidity < aggregate.MinInlineLiquidity {
		return nil
	}

	raw := ev.Amount0
	if side == model.Side1 {
		raw = ev.Amount1
	}
	amount, _ := new(big.Float).SetInt(new(big.Int).Abs(raw)).Float64()

	token := info.Token(side)
	if h.quotes.IsNative(token) {
		price := h.price.Get()
		amount *= price
		liquidity *= price
	}
	amount /= amountScale
	if !isNormal(amount) {
		return nil
	}

	minute := blockTimestamp / 60
	buckets := h.windows.Record(info.Pool, minute, toUint64(amount))
	aph := aggregate.FeeRatePerHour(info.Fee, buckets, liquidity, aggregate.WindowMinutes)
	h.metrics.SwapsRecorded.WithLabelValues(ev.Protocol).Inc()

	lag := int64(0)
	if now := h.now().Unix(); now > int64(blockTimestamp) {
		lag = now - int64(blockTimestamp)
	}
	h.logger.Info("swap",
		zap.Int64("lag_seconds", lag),
		zap.String("pool", info.Pool),
		zap.Uint64("fee", info.Fee),
		zap.Float64("amount", amount),
		zap.Float64("aph", aph),
		zap.Float64("total_volume", aggregate.TotalVolume(buckets)),
		zap.Float64("liquidity", liquidity),
	)
	if aph > HighYieldAPH {
		h.logger.Info("high yield pool",
			zap.String("protocol", ev.Protocol),
			zap.String("pool", info.Pool),
			zap.String("token", token),
			zap.Float64("aph", aph),
			zap.Float64("liquidity", liquidity),
		)
	}
	return nil
}

func isNormal(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return math.Abs(v) >= minNormalFloat
}

func toUint64(v float64) uint64 {
	if v >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(v)
}

package scanner

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"yieldScope/internal/metrics"
)

// DefaultPollInterval is the wait when the cursor is ahead of the head.
const DefaultPollInterval = time.Second

// ChainReader is the part of the chain client the scan loop needs.
type ChainReader interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	BlockReceipts(ctx context.Context, number uint64) ([]*types.Receipt, error)
}

// LogHandler consumes every log of a processed block.
type LogHandler interface {
	HandleLog(ctx context.Context, blockTimestamp uint64, log *types.Log) error
}

// Config holds scan loop settings.
type Config struct {
	PollInterval time.Duration
	Retry        RetryPolicy
}

// Scanner walks blocks forward from the chain head, one block at a time.
// A failed block is retried until it succeeds; the cursor never skips it.
type Scanner struct {
	chain   ChainReader
	handler LogHandler
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics

	cursor atomic.Uint64
}

func New(chain ChainReader, handler LogHandler, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Scanner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Retry == nil {
		cfg.Retry = FixedDelay{Delay: DefaultRetryDelay}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Scanner{chain: chain, handler: handler, cfg: cfg, logger: logger, metrics: m}
}

// Cursor returns the next block to process.
func (s *Scanner) Cursor() uint64 {
	return s.cursor.Load()
}

// Run scans until ctx is cancelled or the retry policy gives up.
func (s *Scanner) Run(ctx context.Context) error {
	if s.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if s.handler == nil {
		return fmt.Errorf("log handler is nil")
	}

	started := false
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		head, err := s.chain.LatestBlockNumber(ctx)
		if err != nil {
			s.logger.Warn("get latest block failed", zap.Error(err))
			if err := sleep(ctx, s.cfg.PollInterval); err != nil {
				return err
			}
			continue
		}
		if !started {
			s.cursor.Store(head)
			started = true
			s.logger.Info("scan started", zap.Uint64("block_number", head))
		}

		cursor := s.cursor.Load()
		if cursor > head {
			if err := sleep(ctx, s.cfg.PollInterval); err != nil {
				return err
			}
			continue
		}

		if err := s.ProcessBlock(ctx, cursor); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			attempt++
			s.metrics.BlockErrors.Inc()
			s.logger.Error("scan block failed", zap.Uint64("block_number", cursor), zap.Int("attempt", attempt), zap.Error(err))
			if err := s.cfg.Retry.Wait(ctx, cursor, attempt, err); err != nil {
				return err
			}
			continue
		}

		attempt = 0
		s.metrics.LastProcessedBlock.Set(float64(cursor))
		s.cursor.Store(cursor + 1)
	}
}

// ProcessBlock feeds every log of every receipt in the block to the handler.
// Any failure aborts the block so it can be retried as a whole.
func (s *Scanner) ProcessBlock(ctx context.Context, number uint64) error {
	start := time.Now()
	s.logger.Debug("scan block", zap.Uint64("block_number", number))

	ts, err := s.chain.BlockTimestamp(ctx, number)
	if err != nil {
		return &BlockError{BlockNumber: number, Err: fmt.Errorf("block timestamp: %w", err)}
	}
	receipts, err := s.chain.BlockReceipts(ctx, number)
	if err != nil {
		return &BlockError{BlockNumber: number, Err: fmt.Errorf("block receipts: %w", err)}
	}

	for _, receipt := range receipts {
		if receipt == nil {
			continue
		}
		for _, log := range receipt.Logs {
			if log == nil {
				continue
			}
			if err := s.handler.HandleLog(ctx, ts, log); err != nil {
				return &BlockError{BlockNumber: number, Err: err}
			}
		}
	}

	s.metrics.BlockDuration.Observe(time.Since(start).Seconds())
	return nil
}

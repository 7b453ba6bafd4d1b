package scanner

import (
	"context"
	"time"
)

// DefaultRetryDelay is the pause before a failed block is retried.
const DefaultRetryDelay = time.Second

// RetryPolicy decides how long to wait before retrying a failed block.
// Returning an error stops the scan loop.
type RetryPolicy interface {
	Wait(ctx context.Context, blockNumber uint64, attempt int, err error) error
}

// FixedDelay retries forever with a constant pause.
type FixedDelay struct {
	Delay time.Duration
}

func (f FixedDelay) Wait(ctx context.Context, _ uint64, _ int, _ error) error {
	delay := f.Delay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	return sleep(ctx, delay)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

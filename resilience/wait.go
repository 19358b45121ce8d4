package resilience

import (
	"context"
	"errors"
	"time"
)

// ErrWaitTimeout is returned by WaitFor when the condition never held.
var ErrWaitTimeout = errors.New("condition not met before timeout")

// WaitConfig configures condition polling.
type WaitConfig struct {
	// Timeout bounds the whole wait.
	Timeout time.Duration
	// PollingInterval is the delay between checks.
	PollingInterval time.Duration
}

// WaitFor polls condition until it returns true, returns an error, or the
// timeout expires. The condition is always checked at least once.
func WaitFor(ctx context.Context, cfg WaitConfig, condition func(ctx context.Context) (bool, error)) error {
	if cfg.PollingInterval <= 0 {
		cfg.PollingInterval = 300 * time.Millisecond
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	for {
		ok, err := condition(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if err := sleep(ctx, cfg.PollingInterval); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return ErrWaitTimeout
			}
			return err
		}
	}
}

package gcp

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/evidence-backend/internal/platform/apierr"
)

type PollConfig struct {
	Attempts int
	Interval time.Duration
}

// PollCheck reports whether the awaited operation has finished.
type PollCheck func(ctx context.Context) (done bool, err error)

// Poll calls check up to cfg.Attempts times, sleeping cfg.Interval between
// calls. Exhausting the attempts yields a timeout error.
func Poll(ctx context.Context, cfg PollConfig, code string, check PollCheck) error {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if i == attempts-1 {
			break
		}
		timer := time.NewTimer(cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return apierr.Timeout(code, ctx.Err())
		case <-timer.C:
		}
	}
	return apierr.Timeout(code, fmt.Errorf("operation not finished after %d polls", attempts))
}

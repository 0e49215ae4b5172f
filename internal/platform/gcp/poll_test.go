package gcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/evidence-backend/internal/platform/apierr"
)

func TestPollFinishes(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), PollConfig{Attempts: 5, Interval: time.Millisecond}, "ocr_timeout", func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls: want=3 got=%d", calls)
	}
}

func TestPollExhaustsToTimeout(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), PollConfig{Attempts: 4, Interval: time.Millisecond}, "ocr_timeout", func(context.Context) (bool, error) {
		calls++
		return false, nil
	})
	if apierr.KindOf(err) != apierr.KindTimeout {
		t.Fatalf("kind: want=%s got=%s (%v)", apierr.KindTimeout, apierr.KindOf(err), err)
	}
	if calls != 4 {
		t.Fatalf("calls: want=4 got=%d", calls)
	}
}

func TestPollPropagatesCheckError(t *testing.T) {
	boom := errors.New("boom")
	err := Poll(context.Background(), PollConfig{Attempts: 3, Interval: time.Millisecond}, "ocr_timeout", func(context.Context) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err: want=%v got=%v", boom, err)
	}
}

func TestPollStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Poll(ctx, PollConfig{Attempts: 10, Interval: time.Hour}, "ocr_timeout", func(context.Context) (bool, error) {
		return false, nil
	})
	if apierr.KindOf(err) != apierr.KindTimeout {
		t.Fatalf("kind: want=%s got=%s", apierr.KindTimeout, apierr.KindOf(err))
	}
}

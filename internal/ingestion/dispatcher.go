package ingestion

import (
	"context"

	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

// Dispatcher hands a triggering event to whatever runs the pipeline. A nil
// error means the event was accepted and the notification can be acked.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev ObjectEvent) error
}

type inlineDispatcher struct {
	log      *logger.Logger
	pipeline Pipeline
}

// NewInlineDispatcher runs the pipeline on the caller's goroutine. Failures
// surface to the notification source, which redelivers.
func NewInlineDispatcher(log *logger.Logger, pipeline Pipeline) Dispatcher {
	return &inlineDispatcher{log: log.With("dispatcher", "inline"), pipeline: pipeline}
}

func (d *inlineDispatcher) Dispatch(ctx context.Context, ev ObjectEvent) error {
	if !ev.Triggers() {
		d.log.Debug("Ignoring storage event", "event_type", ev.EventType, "object", ev.Name)
		return nil
	}
	return d.pipeline.Process(ctx, ev)
}

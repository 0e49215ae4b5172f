package ingest

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/evidence-backend/internal/ingestion"
	"github.com/yungbote/evidence-backend/internal/platform/apierr"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

type Activities struct {
	Log      *logger.Logger
	Pipeline ingestion.Pipeline
}

func (a *Activities) Ingest(ctx context.Context, in Input) error {
	if a == nil || a.Pipeline == nil {
		return fmt.Errorf("ingest: activity not configured")
	}
	attempt := int32(1)
	if activity.IsActivity(ctx) {
		attempt = activity.GetInfo(ctx).Attempt
	}
	err := a.Pipeline.Process(ctx, in.Event)
	if err == nil {
		return nil
	}
	if a.Log != nil {
		a.Log.Warn("Ingest attempt failed", "object", in.Event.Name, "attempt", attempt, "error", err)
	}
	return classify(err)
}

// classify stops retries for failures that will fail the same way again.
func classify(err error) error {
	if apierr.IsKind(err, apierr.KindValidation) {
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeValidation, err)
	}
	return err
}

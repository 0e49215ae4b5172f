package ingest

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ErrTypeValidation marks failures no retry can fix.
const ErrTypeValidation = "validation"

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	ActivityTimeout time.Duration
}

func (p Policy) RetryPolicy() *temporal.RetryPolicy {
	initial := p.InitialInterval
	if initial <= 0 {
		initial = 5 * time.Second
	}
	maxInterval := p.MaxInterval
	if maxInterval <= 0 {
		maxInterval = time.Minute
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &temporal.RetryPolicy{
		InitialInterval:        initial,
		BackoffCoefficient:     2.0,
		MaximumInterval:        maxInterval,
		MaximumAttempts:        int32(attempts),
		NonRetryableErrorTypes: []string{ErrTypeValidation},
	}
}

// Workflow runs the ingestion activity under the retry policy carried in
// the input. Retries live on the activity; the workflow itself runs once.
func Workflow(ctx workflow.Context, in WorkflowInput) error {
	if in.Event.Name == "" {
		return fmt.Errorf("ingest: missing object name")
	}
	timeout := in.Policy.ActivityTimeout
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy:         in.Policy.RetryPolicy(),
	})
	return workflow.ExecuteActivity(ctx, ActivityIngest, Input{Event: in.Event}).Get(ctx, nil)
}

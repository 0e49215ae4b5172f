package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/evidence-backend/internal/ingestion"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
	"github.com/yungbote/evidence-backend/internal/temporalx"
)

// Starter is the slice of the Temporal client the dispatcher needs.
type Starter interface {
	ExecuteWorkflow(ctx context.Context, options temporalsdkclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (temporalsdkclient.WorkflowRun, error)
}

type dispatcher struct {
	log    *logger.Logger
	tc     Starter
	queue  string
	policy Policy
}

// NewDispatcher starts one workflow per object generation. A notification
// for a generation that already has a running or completed workflow is
// accepted without starting another.
func NewDispatcher(log *logger.Logger, tc Starter, cfg temporalx.Config) ingestion.Dispatcher {
	return &dispatcher{
		log:    log.With("dispatcher", "temporal"),
		tc:     tc,
		queue:  cfg.TaskQueue,
		policy: PolicyFromConfig(cfg),
	}
}

func PolicyFromConfig(cfg temporalx.Config) Policy {
	return Policy{
		MaxAttempts:     cfg.IngestMaxAttempts,
		InitialInterval: cfg.IngestInitialInterval,
		MaxInterval:     cfg.IngestMaxInterval,
		ActivityTimeout: cfg.IngestActivityTimeout,
	}
}

func (d *dispatcher) Dispatch(ctx context.Context, ev ingestion.ObjectEvent) error {
	if !ev.Triggers() {
		d.log.Debug("Ignoring storage event", "event_type", ev.EventType, "object", ev.Name)
		return nil
	}
	id := WorkflowID(ev)
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                                       id,
		TaskQueue:                                d.queue,
		WorkflowIDReusePolicy:                    enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}
	run, err := d.tc.ExecuteWorkflow(ctx, opts, WorkflowName, WorkflowInput{Event: ev, Policy: d.policy})
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			d.log.Debug("Ingest workflow already started", "workflow_id", id)
			return nil
		}
		return fmt.Errorf("start ingest workflow %s: %w", id, err)
	}
	d.log.Info("Ingest workflow started", "workflow_id", id, "run_id", run.GetRunID())
	return nil
}

package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/evidence-backend/internal/data/repos"
	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/extraction"
	"github.com/yungbote/evidence-backend/internal/observability"
	"github.com/yungbote/evidence-backend/internal/platform/apierr"
	"github.com/yungbote/evidence-backend/internal/platform/dbctx"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
	OutcomeLostRace  = "lost_race"
)

// Pipeline drives one evidence record from UPLOADED to COMPLETED or FAILED.
// Process is safe to call any number of times for the same object.
type Pipeline interface {
	Process(ctx context.Context, ev ObjectEvent) error
}

// Publisher upserts search documents.
type Publisher interface {
	Publish(ctx context.Context, doc domain.SearchDocument) error
}

type pipeline struct {
	log       *logger.Logger
	evidence  repos.EvidenceRepo
	extractor extraction.Service
	index     Publisher
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewPipeline(log *logger.Logger, evidence repos.EvidenceRepo, extractor extraction.Service, index Publisher, metrics *observability.Metrics) Pipeline {
	return &pipeline{
		log:       log.With("service", "IngestionPipeline"),
		evidence:  evidence,
		extractor: extractor,
		index:     index,
		metrics:   metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var tracer = otel.Tracer("evidence-backend/ingestion")

func (p *pipeline) Process(ctx context.Context, ev ObjectEvent) (err error) {
	ctx, span := tracer.Start(ctx, "ingestion.process", trace.WithAttributes(
		attribute.String("object.name", ev.Name),
		attribute.Int64("object.generation", ev.Generation),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	started := time.Now()
	ref, refErr := ev.Ref()
	if refErr != nil {
		p.log.Warn("Dropping event for non-evidence path", "object", ev.Name, "error", refErr)
		return nil
	}
	span.SetAttributes(attribute.String("evidence.id", ref.EvidenceID.String()))
	log := p.log.With("case_id", ref.CaseID, "evidence_id", ref.EvidenceID)
	dbc := dbctx.Context{Ctx: ctx}

	rec, err := p.evidence.Get(dbc, ref.CaseID, ref.EvidenceID)
	if err != nil {
		return fmt.Errorf("load evidence: %w", err)
	}
	if rec == nil {
		log.Warn("No evidence record for uploaded object", "object", ev.Name)
		p.metrics.ObserveIngest("", OutcomeSkipped, time.Since(started))
		return nil
	}
	fileType := string(rec.FileType)
	if rec.AlreadyProcessed() {
		log.Debug("Evidence already processed", "processed_at", rec.ProcessedAt)
		p.metrics.ObserveIngest(fileType, OutcomeSkipped, time.Since(started))
		return nil
	}
	if rec.BlobPathRaw != ev.Name {
		log.Warn("Object does not match the evidence blob path", "object", ev.Name, "blob_path", rec.BlobPathRaw)
		p.metrics.ObserveIngest(fileType, OutcomeSkipped, time.Since(started))
		return nil
	}

	ok, err := p.evidence.MarkProcessing(dbc, rec.CaseID, rec.ID, rec.Version, p.now())
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	if !ok {
		log.Info("Another delivery owns this evidence", "version", rec.Version)
		p.metrics.ObserveIngest(fileType, OutcomeLostRace, time.Since(started))
		return nil
	}
	version := rec.Version + 1
	rec.Status = domain.EvidenceStatusProcessing

	extractStarted := time.Now()
	extractCtx, extractSpan := tracer.Start(ctx, "ingestion.extract", trace.WithAttributes(attribute.String("evidence.file_type", fileType)))
	res, err := p.extractor.Extract(extractCtx, rec)
	extractSpan.End()
	if err != nil {
		p.metrics.ObserveExtraction(fileType, OutcomeFailed, time.Since(extractStarted))
		return p.fail(dbc, log, rec, version, started, err)
	}
	status := OutcomeCompleted
	if res.Skipped {
		status = OutcomeSkipped
	}
	p.metrics.ObserveExtraction(fileType, status, time.Since(extractStarted))

	ok, err = p.evidence.MarkCompleted(dbc, rec.CaseID, rec.ID, version, fieldsFrom(res), p.now())
	if err != nil {
		return p.fail(dbc, log, rec, version, started, fmt.Errorf("mark completed: %w", err))
	}
	if !ok {
		log.Info("Lost completion to another delivery", "version", version)
		p.metrics.ObserveIngest(fileType, OutcomeLostRace, time.Since(started))
		return nil
	}
	version++

	done, err := p.evidence.Get(dbc, rec.CaseID, rec.ID)
	if err != nil {
		return fmt.Errorf("reload evidence: %w", err)
	}
	if done == nil {
		// Deleted while processing.
		p.metrics.ObserveIngest(fileType, OutcomeSkipped, time.Since(started))
		return nil
	}
	if err := p.index.Publish(ctx, domain.NewSearchDocument(done)); err != nil {
		return p.fail(dbc, log, done, version, started, fmt.Errorf("publish search document: %w", err))
	}

	log.Info("Evidence processed", "file_type", fileType, "skipped_extraction", res.Skipped, "duration_ms", time.Since(started).Milliseconds())
	p.metrics.ObserveIngest(fileType, OutcomeCompleted, time.Since(started))
	return nil
}

// fail records cause on the evidence and returns it so the caller can retry.
func (p *pipeline) fail(dbc dbctx.Context, log *logger.Logger, rec *domain.Evidence, version int64, started time.Time, cause error) error {
	p.metrics.ObserveIngest(string(rec.FileType), OutcomeFailed, time.Since(started))
	log.Warn("Evidence processing failed", "error", cause)

	ok, err := p.evidence.MarkFailed(dbc, rec.CaseID, rec.ID, version, FailureMessage(cause), p.now())
	if err != nil {
		return errors.Join(cause, fmt.Errorf("mark failed: %w", err))
	}
	if !ok {
		log.Info("Evidence changed before failure was recorded", "version", version)
	}
	return cause
}

type failure struct {
	Cause          string `json:"cause"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
	UpstreamCode   string `json:"upstreamCode,omitempty"`
}

// FailureMessage is the processingError stored on a FAILED record.
func FailureMessage(err error) string {
	f := failure{Cause: "unknown error"}
	if err != nil {
		f.Cause = err.Error()
	}
	if ae, ok := apierr.As(err); ok {
		f.UpstreamStatus = ae.UpstreamStatus
		f.UpstreamCode = ae.UpstreamCode
	}
	b, mErr := json.Marshal(f)
	if mErr != nil {
		return f.Cause
	}
	return string(b)
}

func fieldsFrom(res *extraction.Result) repos.ExtractionFields {
	var fields repos.ExtractionFields
	if res == nil || res.Skipped {
		return fields
	}
	text := res.Text
	lines := res.Lines
	fields.Text = &text
	fields.Lines = &lines
	if res.Language != "" {
		lang := res.Language
		fields.Language = &lang
	}
	return fields
}

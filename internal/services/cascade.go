package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/evidence-backend/internal/authz"
	"github.com/yungbote/evidence-backend/internal/data/repos"
	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/observability"
	"github.com/yungbote/evidence-backend/internal/platform/apierr"
	"github.com/yungbote/evidence-backend/internal/platform/dbctx"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

// CascadeReport summarizes a cascade delete. Warnings lists every
// best-effort cleanup that failed and was skipped.
type CascadeReport struct {
	DeletedCases    int      `json:"deletedCases"`
	DeletedEvidence int      `json:"deletedEvidence"`
	Warnings        []string `json:"warnings,omitempty"`
}

// BlobCleaner removes objects by prefix.
type BlobCleaner interface {
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// IndexRemover removes documents from the search index.
type IndexRemover interface {
	Remove(ctx context.Context, ids ...string) error
}

// CascadeOrchestrator deletes top-down: department, cases, evidence, then
// blobs and index documents. Object store and index failures are recorded
// as warnings; database failures abort the remaining cascade.
type CascadeOrchestrator interface {
	DeleteEvidence(dbc dbctx.Context, p authz.Principal, caseID, evidenceID uuid.UUID) (*CascadeReport, error)
	DeleteCase(dbc dbctx.Context, p authz.Principal, caseID uuid.UUID) (*CascadeReport, error)
	DeleteDepartment(dbc dbctx.Context, p authz.Principal, departmentID string) (*CascadeReport, error)
}

type cascadeOrchestrator struct {
	log     *logger.Logger
	guard   *authz.Guard
	repos   repos.Set
	blobs   BlobCleaner
	index   IndexRemover
	metrics *observability.Metrics
}

func NewCascadeOrchestrator(log *logger.Logger, guard *authz.Guard, rs repos.Set, blobs BlobCleaner, index IndexRemover, metrics *observability.Metrics) CascadeOrchestrator {
	return &cascadeOrchestrator{
		log:     log.With("service", "CascadeOrchestrator"),
		guard:   guard,
		repos:   rs,
		blobs:   blobs,
		index:   index,
		metrics: metrics,
	}
}

func (c *cascadeOrchestrator) DeleteEvidence(dbc dbctx.Context, p authz.Principal, caseID, evidenceID uuid.UUID) (*CascadeReport, error) {
	theCase, err := c.repos.Cases.GetByID(dbc, caseID)
	if err != nil {
		return nil, fmt.Errorf("load case: %w", err)
	}
	if theCase == nil {
		return nil, apierr.NotFound("case_not_found", "case not found")
	}
	if err := c.guard.Authorize(p, authz.ActionDelete, theCase.Department).Err(); err != nil {
		return nil, err
	}
	ev, err := c.repos.Evidence.Get(dbc, caseID, evidenceID)
	if err != nil {
		return nil, fmt.Errorf("load evidence: %w", err)
	}
	if ev == nil {
		return nil, apierr.NotFound("evidence_not_found", "evidence not found")
	}

	report := &CascadeReport{}
	err = c.deleteEvidence(dbc, ev, report)
	c.record(report)
	if err != nil {
		return report, err
	}
	c.log.Info("Evidence deleted", "evidence_id", evidenceID, "case_id", caseID, "warnings", len(report.Warnings))
	return report, nil
}

func (c *cascadeOrchestrator) DeleteCase(dbc dbctx.Context, p authz.Principal, caseID uuid.UUID) (*CascadeReport, error) {
	theCase, err := c.repos.Cases.GetByID(dbc, caseID)
	if err != nil {
		return nil, fmt.Errorf("load case: %w", err)
	}
	if theCase == nil {
		return nil, apierr.NotFound("case_not_found", "case not found")
	}
	if err := c.guard.Authorize(p, authz.ActionDelete, theCase.Department).Err(); err != nil {
		return nil, err
	}

	report := &CascadeReport{}
	err = c.deleteCase(dbc, theCase.Department, theCase.ID, report)
	c.record(report)
	if err != nil {
		return report, err
	}
	c.log.Info("Case deleted",
		"case_id", caseID,
		"department", theCase.Department,
		"deleted_evidence", report.DeletedEvidence,
		"warnings", len(report.Warnings),
	)
	return report, nil
}

func (c *cascadeOrchestrator) DeleteDepartment(dbc dbctx.Context, p authz.Principal, departmentID string) (*CascadeReport, error) {
	if err := c.guard.Authorize(p, authz.ActionDelete, departmentID).Err(); err != nil {
		return nil, err
	}
	dept, err := c.repos.Departments.GetByID(dbc, departmentID)
	if err != nil {
		return nil, fmt.Errorf("load department: %w", err)
	}
	if dept == nil {
		return nil, apierr.NotFound("department_not_found", "department not found")
	}

	report := &CascadeReport{}
	err = c.deleteDepartment(dbc, dept.ID, report)
	c.record(report)
	if err != nil {
		return report, err
	}
	c.log.Info("Department deleted",
		"department", departmentID,
		"deleted_cases", report.DeletedCases,
		"deleted_evidence", report.DeletedEvidence,
		"warnings", len(report.Warnings),
	)
	return report, nil
}

func (c *cascadeOrchestrator) deleteDepartment(dbc dbctx.Context, departmentID string, report *CascadeReport) error {
	cases, err := c.repos.Cases.List(dbc, repos.CaseFilter{Department: departmentID})
	if err != nil {
		return fmt.Errorf("list cases of department %s: %w", departmentID, err)
	}
	for _, cs := range cases {
		n, err := c.repos.Evidence.CountByCase(dbc, cs.ID)
		if err != nil {
			return fmt.Errorf("count evidence of case %s: %w", cs.ID, err)
		}
		c.log.Debug("Deleting case", "case_id", cs.ID, "evidence", n)
		if err := c.deleteCase(dbc, departmentID, cs.ID, report); err != nil {
			return err
		}
	}
	if _, err := c.repos.Departments.Delete(dbc, departmentID); err != nil {
		return fmt.Errorf("delete department %s: %w", departmentID, err)
	}
	return nil
}

func (c *cascadeOrchestrator) deleteCase(dbc dbctx.Context, department string, caseID uuid.UUID, report *CascadeReport) error {
	evidence, err := c.repos.Evidence.ListByCase(dbc, caseID)
	if err != nil {
		return fmt.Errorf("list evidence of case %s: %w", caseID, err)
	}
	for _, ev := range evidence {
		if err := c.deleteEvidence(dbc, ev, report); err != nil {
			return err
		}
	}
	if _, err := c.repos.Notes.DeleteByCase(dbc, caseID); err != nil {
		return fmt.Errorf("delete notes of case %s: %w", caseID, err)
	}
	n, err := c.repos.Cases.Delete(dbc, department, caseID)
	if err != nil {
		return fmt.Errorf("delete case %s: %w", caseID, err)
	}
	if n > 0 {
		report.DeletedCases++
	}

	// Residue such as never-confirmed uploads lives only in the store.
	c.deletePrefix(dbc.Ctx, domain.CasePrefix(caseID), report)
	c.deletePrefix(dbc.Ctx, domain.DerivedCasePrefix(caseID), report)
	return nil
}

func (c *cascadeOrchestrator) deleteEvidence(dbc dbctx.Context, ev *domain.Evidence, report *CascadeReport) error {
	if err := c.index.Remove(dbc.Ctx, ev.ID.String()); err != nil {
		c.warn(report, "search_index", fmt.Sprintf("remove document %s: %v", ev.ID, err))
	}
	c.deletePrefix(dbc.Ctx, domain.EvidencePrefix(ev.CaseID, ev.ID), report)
	c.deletePrefix(dbc.Ctx, domain.DerivedPrefix(ev.CaseID, ev.ID), report)

	n, err := c.repos.Evidence.Delete(dbc, ev.CaseID, ev.ID)
	if err != nil {
		return fmt.Errorf("delete evidence %s: %w", ev.ID, err)
	}
	if n > 0 {
		report.DeletedEvidence++
	}
	return nil
}

func (c *cascadeOrchestrator) deletePrefix(ctx context.Context, prefix string, report *CascadeReport) {
	if _, err := c.blobs.DeletePrefix(ctx, prefix); err != nil {
		c.warn(report, "object_store", fmt.Sprintf("delete prefix %s: %v", prefix, err))
	}
}

func (c *cascadeOrchestrator) warn(report *CascadeReport, store, msg string) {
	report.Warnings = append(report.Warnings, store+": "+msg)
	c.log.Warn("Cascade cleanup failed (continuing)", "store", store, "detail", msg)
	c.metrics.IncCascadeWarning(store)
}

func (c *cascadeOrchestrator) record(report *CascadeReport) {
	c.metrics.AddCascadeDeleted("case", report.DeletedCases)
	c.metrics.AddCascadeDeleted("evidence", report.DeletedEvidence)
}

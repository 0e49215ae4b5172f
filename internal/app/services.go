package app

import (
	"fmt"

	"github.com/yungbote/evidence-backend/internal/authz"
	"github.com/yungbote/evidence-backend/internal/data/repos"
	"github.com/yungbote/evidence-backend/internal/extraction"
	"github.com/yungbote/evidence-backend/internal/ingestion"
	"github.com/yungbote/evidence-backend/internal/observability"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
	"github.com/yungbote/evidence-backend/internal/search"
	"github.com/yungbote/evidence-backend/internal/services"
	"github.com/yungbote/evidence-backend/internal/temporalx/ingest"
)

type Services struct {
	Guard      *authz.Guard
	Principals services.PrincipalResolver
	Cascade    services.CascadeOrchestrator

	Departments services.DepartmentService
	Cases       services.CaseService
	Uploads     services.UploadCoordinator
	Evidence    services.EvidenceService
	Users       services.UserService

	Index      search.IndexManager
	Extraction extraction.Service
	Pipeline   ingestion.Pipeline
	// Dispatcher starts a durable workflow when Temporal is configured and
	// runs the pipeline in the request otherwise.
	Dispatcher ingestion.Dispatcher
}

func wireServices(log *logger.Logger, cfg Config, rs repos.Set, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	guard, err := authz.NewGuard()
	if err != nil {
		return Services{}, fmt.Errorf("init authorization guard: %w", err)
	}

	index := search.NewIndexManager(log, clients.Qdrant)
	extractor := extraction.NewService(log, clients.Bucket, clients.Document, clients.Vision, clients.Speech, clients.Video)
	pipeline := ingestion.NewPipeline(log, rs.Evidence, extractor, index, metrics)

	var dispatcher ingestion.Dispatcher
	if clients.Temporal != nil {
		dispatcher = ingest.NewDispatcher(log, clients.Temporal, cfg.Temporal)
	} else {
		dispatcher = ingestion.NewInlineDispatcher(log, pipeline)
	}

	principals := services.NewPrincipalResolver(log, rs.Users)
	cascade := services.NewCascadeOrchestrator(log, guard, rs, clients.Bucket, index, metrics)

	return Services{
		Guard:       guard,
		Principals:  principals,
		Cascade:     cascade,
		Departments: services.NewDepartmentService(log, guard, rs, cascade),
		Cases:       services.NewCaseService(log, guard, rs, cascade),
		Uploads:     services.NewUploadCoordinator(log, guard, rs, clients.Bucket, index, cfg.Upload),
		Evidence:    services.NewEvidenceService(log, guard, rs, clients.Bucket, index, cascade, metrics, cfg.ReadURLTTL),
		Users:       services.NewUserService(log, guard, rs, principals),
		Index:       index,
		Extraction:  extractor,
		Pipeline:    pipeline,
		Dispatcher:  dispatcher,
	}, nil
}

package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/evidence-backend/internal/http"
	httpH "github.com/yungbote/evidence-backend/internal/http/handlers"
	httpMW "github.com/yungbote/evidence-backend/internal/http/middleware"
	"github.com/yungbote/evidence-backend/internal/observability"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health     *httpH.HealthHandler
	User       *httpH.UserHandler
	Department *httpH.DepartmentHandler
	Case       *httpH.CaseHandler
	Evidence   *httpH.EvidenceHandler
	Event      *httpH.EventHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(),
		User:       httpH.NewUserHandler(log, services.Users),
		Department: httpH.NewDepartmentHandler(log, services.Departments),
		Case:       httpH.NewCaseHandler(log, services.Cases),
		Evidence:   httpH.NewEvidenceHandler(log, services.Uploads, services.Evidence),
		Event:      httpH.NewEventHandler(log, services.Dispatcher, cfg.PushToken),
	}
}

func wireMiddleware(log *logger.Logger, clients Clients, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, clients.Verifier, services.Principals),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:               log,
		ServiceName:       cfg.ServiceName,
		CORSOrigins:       cfg.CORSOrigins,
		Metrics:           metrics,
		AuthMiddleware:    middleware.Auth,
		HealthHandler:     handlers.Health,
		UserHandler:       handlers.User,
		DepartmentHandler: handlers.Department,
		CaseHandler:       handlers.Case,
		EvidenceHandler:   handlers.Evidence,
		EventHandler:      handlers.Event,
	})
}

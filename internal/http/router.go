package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/evidence-backend/internal/http/handlers"
	httpMW "github.com/yungbote/evidence-backend/internal/http/middleware"
	"github.com/yungbote/evidence-backend/internal/observability"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler     *httpH.HealthHandler
	UserHandler       *httpH.UserHandler
	DepartmentHandler *httpH.DepartmentHandler
	CaseHandler       *httpH.CaseHandler
	EvidenceHandler   *httpH.EvidenceHandler
	EventHandler      *httpH.EventHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// Storage notifications (Pub/Sub push, token checked by the handler)
	if cfg.EventHandler != nil {
		r.POST("/internal/events/storage", cfg.EventHandler.StorageEvent)
	}

	protected := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	} else {
		protected.Use(func(c *gin.Context) {
			c.AbortWithStatus(http.StatusUnauthorized)
		})
	}
	{
		// Users
		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
			protected.GET("/users", cfg.UserHandler.List)
			protected.PUT("/users/:id", cfg.UserHandler.Upsert)
		}

		// Departments
		if cfg.DepartmentHandler != nil {
			protected.POST("/departments", cfg.DepartmentHandler.Create)
			protected.GET("/departments", cfg.DepartmentHandler.List)
			protected.GET("/departments/:id", cfg.DepartmentHandler.Get)
			protected.PATCH("/departments/:id", cfg.DepartmentHandler.Update)
			protected.DELETE("/departments/:id", cfg.DepartmentHandler.Delete)
		}

		// Cases
		if cfg.CaseHandler != nil {
			protected.POST("/cases", cfg.CaseHandler.Create)
			protected.GET("/cases", cfg.CaseHandler.List)
			protected.GET("/cases/:id", cfg.CaseHandler.Get)
			protected.PATCH("/cases/:id", cfg.CaseHandler.Update)
			protected.DELETE("/cases/:id", cfg.CaseHandler.Delete)
			protected.POST("/cases/:id/notes", cfg.CaseHandler.AddNote)
			protected.DELETE("/cases/:id/notes/:noteId", cfg.CaseHandler.DeleteNote)
		}

		// Evidence
		if cfg.EvidenceHandler != nil {
			protected.POST("/cases/:id/evidence/uploads", cfg.EvidenceHandler.InitiateUpload)
			protected.POST("/cases/:id/evidence/:evidenceId/confirm", cfg.EvidenceHandler.ConfirmUpload)
			protected.GET("/cases/:id/evidence", cfg.EvidenceHandler.List)
			protected.GET("/cases/:id/evidence/:evidenceId", cfg.EvidenceHandler.Get)
			protected.GET("/cases/:id/evidence/:evidenceId/download", cfg.EvidenceHandler.Download)
			protected.DELETE("/cases/:id/evidence/:evidenceId", cfg.EvidenceHandler.Delete)
			protected.GET("/search", cfg.EvidenceHandler.Search)
		}
	}

	return r
}

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/evidence-backend/internal/data/db"
	"github.com/yungbote/evidence-backend/internal/data/repos"
	"github.com/yungbote/evidence-backend/internal/http"
	"github.com/yungbote/evidence-backend/internal/observability"
	"github.com/yungbote/evidence-backend/internal/platform/envutil"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
	"github.com/yungbote/evidence-backend/internal/temporalx/temporalworker"
)

// Mode selects which half of the system a process runs.
type Mode string

const (
	ModeServe  Mode = "serve"
	ModeWorker Mode = "worker"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Mode     Mode
	Repos    repos.Set
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics

	pg           *db.PostgresService
	worker       *temporalworker.Runner
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func newLogger() (*logger.Logger, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

func New(mode Mode) (*App, error) {
	log, err := newLogger()
	if err != nil {
		return nil, err
	}
	log = log.With("mode", string(mode))

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelCfg := observability.LoadOtelConfig()
	otelCfg.ServiceName = cfg.ServiceName
	otelCfg.Environment = cfg.Environment
	otelCfg.Version = cfg.Version
	otelCfg.Mode = string(mode)
	otelCfg.Bucket = cfg.Bucket.Name
	otelShutdown := observability.InitOTel(context.Background(), log, otelCfg)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if cfg.AutoMigrate {
		if err := pg.AutoMigrateAll(); err != nil {
			_ = pg.Close()
			log.Sync()
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
	}
	theDB := pg.DB()

	metrics := observability.Init(log)
	metrics.RegisterDB(log, theDB)

	clients, err := wireClients(log, cfg, mode)
	if err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	reposet := repos.New(theDB, log)

	serviceset, err := wireServices(log, cfg, reposet, clients, metrics)
	if err != nil {
		clients.Close()
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	a := &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Mode:         mode,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Metrics:      metrics,
		pg:           pg,
		otelShutdown: otelShutdown,
	}

	switch mode {
	case ModeServe:
		handlerset := wireHandlers(log, cfg, serviceset)
		middleware := wireMiddleware(log, clients, serviceset)
		a.Router = wireRouter(log, cfg, metrics, handlerset, middleware)
	case ModeWorker:
		runner, err := temporalworker.NewRunner(log, clients.Temporal, cfg.Temporal, serviceset.Pipeline)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init temporal worker: %w", err)
		}
		a.worker = runner
	default:
		a.Close()
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	return a, nil
}

// Run blocks until ctx is canceled. The search index is ensured before
// anything is accepted.
func (a *App) Run(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.cancel != nil {
		return fmt.Errorf("app already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	ensureCtx, ensureCancel := context.WithTimeout(ctx, 30*time.Second)
	err := a.Services.Index.EnsureIndex(ensureCtx)
	ensureCancel()
	if err != nil {
		return fmt.Errorf("ensure search index: %w", err)
	}

	switch a.Mode {
	case ModeServe:
		if a.Router == nil {
			return fmt.Errorf("router not initialized")
		}
		a.Log.Info("Serving HTTP", "addr", a.Cfg.Addr())
		srv := &http.Server{Engine: a.Router}
		return srv.Run(ctx, a.Cfg.Addr())
	case ModeWorker:
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		if err := a.worker.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		a.Log.Info("Worker stopping")
		return nil
	}
	return fmt.Errorf("unknown mode %q", a.Mode)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.Log.Warn("Postgres close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

// Migrate applies the schema and exits.
func Migrate() error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	pg, err := db.NewPostgresService(log)
	if err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	defer pg.Close()
	if err := pg.AutoMigrateAll(); err != nil {
		return fmt.Errorf("postgres automigrate: %w", err)
	}
	log.Info("Migrations applied")
	return nil
}

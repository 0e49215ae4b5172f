package app

import (
	"time"

	"github.com/yungbote/evidence-backend/internal/platform/envutil"
	"github.com/yungbote/evidence-backend/internal/platform/gcp"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
	"github.com/yungbote/evidence-backend/internal/services"
	"github.com/yungbote/evidence-backend/internal/temporalx"
)

type Config struct {
	Port        string
	ServiceName string
	Environment string
	Version     string
	CORSOrigins []string

	// PushToken guards the storage event endpoint. Empty disables the check.
	PushToken  string
	ReadURLTTL time.Duration

	// MetricsAddr serves /metrics from the worker, which has no router.
	MetricsAddr   string
	VisionEnabled bool
	AutoMigrate   bool

	Upload   services.UploadConfig
	Bucket   gcp.BucketConfig
	OCR      gcp.OCRConfig
	Speech   gcp.SpeechConfig
	Video    gcp.VideoConfig
	Temporal temporalx.Config
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:          envutil.String("PORT", "8080"),
		ServiceName:   envutil.String("OTEL_SERVICE_NAME", "evidence-backend"),
		Environment:   envutil.String("APP_ENV", "development"),
		Version:       envutil.String("APP_VERSION", "dev"),
		CORSOrigins:   envutil.List("CORS_ALLOWED_ORIGINS"),
		PushToken:     envutil.String("EVENTS_PUSH_TOKEN", ""),
		ReadURLTTL:    envutil.Minutes("READ_URL_TTL_MINUTES", gcp.DefaultReadURLTTL),
		MetricsAddr:   envutil.String("METRICS_ADDR", ":9090"),
		VisionEnabled: envutil.Bool("VISION_OCR_ENABLED", true),
		AutoMigrate:   envutil.Bool("AUTO_MIGRATE", true),
		Upload:        services.LoadUploadConfig(),
		Bucket:        gcp.LoadBucketConfig(),
		OCR:           gcp.LoadOCRConfig(),
		Speech:        gcp.LoadSpeechConfig(),
		Video:         gcp.LoadVideoConfig(),
		Temporal:      temporalx.LoadConfig(),
	}
	if cfg.PushToken == "" {
		log.Warn("EVENTS_PUSH_TOKEN not set; storage event endpoint is unauthenticated")
	}
	if !cfg.OCR.Enabled() {
		log.Warn("Document AI not configured; document evidence will fail extraction")
	}
	if !cfg.Speech.Enabled {
		log.Info("Speech-to-Text disabled; audio evidence completes without text")
	}
	if !cfg.Video.Enabled {
		log.Info("Video Intelligence disabled; video evidence completes without text")
	}
	return cfg
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

package temporalx

import (
	"time"

	"github.com/yungbote/evidence-backend/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	WorkerConcurrency int

	// Ingestion retry policy. Attempts include the first execution.
	IngestMaxAttempts     int
	IngestInitialInterval time.Duration
	IngestMaxInterval     time.Duration
	IngestActivityTimeout time.Duration
}

func LoadConfig() Config {
	cfg := Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "evidence"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "evidence-ingest"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		WorkerConcurrency: envutil.Int("WORKER_CONCURRENCY", 4),

		IngestMaxAttempts:     envutil.Int("INGEST_MAX_ATTEMPTS", 5),
		IngestInitialInterval: envutil.Seconds("INGEST_RETRY_INITIAL_SECONDS", 5*time.Second),
		IngestMaxInterval:     envutil.Seconds("INGEST_RETRY_MAX_SECONDS", time.Minute),
		IngestActivityTimeout: envutil.Minutes("INGEST_ACTIVITY_TIMEOUT_MINUTES", 15*time.Minute),
	}
	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 1
	}
	if cfg.IngestMaxAttempts < 1 {
		cfg.IngestMaxAttempts = 1
	}
	return cfg
}

func (c Config) Enabled() bool { return c.Address != "" }

package app

import (
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/evidence-backend/internal/platform/gcp"
	"github.com/yungbote/evidence-backend/internal/platform/identity"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
	"github.com/yungbote/evidence-backend/internal/platform/qdrant"
	"github.com/yungbote/evidence-backend/internal/temporalx"
)

type Clients struct {
	Bucket   gcp.ObjectStore
	Document gcp.DocumentOCR
	Vision   gcp.ImageOCR
	Speech   gcp.AudioTranscriber
	Video    gcp.VideoTranscriber
	Qdrant   *qdrant.Client
	Verifier identity.Verifier
	// Temporal is nil when TEMPORAL_ADDRESS is unset.
	Temporal temporalsdkclient.Client
}

func wireClients(log *logger.Logger, cfg Config, mode Mode) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	// Gcs
	bucket, err := gcp.NewBucketService(log, cfg.Bucket)
	if err != nil {
		return Clients{}, fmt.Errorf("init bucket client: %w", err)
	}
	c.Bucket = bucket

	// Gcp OCR
	if cfg.OCR.Enabled() {
		document, err := gcp.NewDocument(log, bucket, cfg.OCR)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init document client: %w", err)
		}
		c.Document = document
	}
	if cfg.VisionEnabled {
		vision, err := gcp.NewVision(log, bucket)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init vision client: %w", err)
		}
		c.Vision = vision
	}
	if cfg.Speech.Enabled {
		sp, err := gcp.NewSpeech(log, bucket, cfg.Speech)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init speech client: %w", err)
		}
		c.Speech = sp
	}
	if cfg.Video.Enabled {
		vid, err := gcp.NewVideo(log, bucket, cfg.Video)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init video client: %w", err)
		}
		c.Video = vid
	}

	// Qdrant
	qcfg, err := qdrant.ResolveConfigFromEnv()
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("qdrant config: %w", err)
	}
	qc, err := qdrant.NewClient(log, qcfg)
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init qdrant client: %w", err)
	}
	c.Qdrant = qc

	// Identity, only the API authenticates callers
	if mode == ModeServe {
		verifier, err := identity.NewVerifier(log, identity.LoadConfig())
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init identity verifier: %w", err)
		}
		c.Verifier = verifier
	}

	// Temporal
	tc, err := temporalx.NewClient(log, cfg.Temporal)
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
	}
	if tc != nil {
		c.Temporal = tc
	}
	if mode == ModeWorker && c.Temporal == nil {
		c.Close()
		return Clients{}, fmt.Errorf("worker requires TEMPORAL_ADDRESS")
	}

	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Video != nil {
		_ = c.Video.Close()
	}
	if c.Speech != nil {
		_ = c.Speech.Close()
	}
	if c.Vision != nil {
		_ = c.Vision.Close()
	}
	if c.Document != nil {
		_ = c.Document.Close()
	}
	if c.Bucket != nil {
		_ = c.Bucket.Close()
	}
}

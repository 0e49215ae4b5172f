package app

import (
	"testing"
	"time"

	"github.com/yungbote/evidence-backend/internal/data/repos"
	"github.com/yungbote/evidence-backend/internal/data/repos/testutil"
	"github.com/yungbote/evidence-backend/internal/platform/gcp"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "CORS_ALLOWED_ORIGINS", "EVENTS_PUSH_TOKEN", "READ_URL_TTL_MINUTES", "TEMPORAL_ADDRESS", "SPEECH_ENABLED", "VIDEO_AI_ENABLED"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig(testutil.Logger(t))
	if cfg.Addr() != ":8080" {
		t.Fatalf("addr: want=%q got=%q", ":8080", cfg.Addr())
	}
	if cfg.ReadURLTTL != gcp.DefaultReadURLTTL {
		t.Fatalf("read ttl: want=%v got=%v", gcp.DefaultReadURLTTL, cfg.ReadURLTTL)
	}
	if len(cfg.CORSOrigins) != 0 {
		t.Fatalf("cors: want=none got=%v", cfg.CORSOrigins)
	}
	if cfg.Temporal.Enabled() {
		t.Fatalf("temporal: want disabled")
	}
	if cfg.Speech.Enabled || cfg.Video.Enabled {
		t.Fatalf("speech/video: want disabled")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("EVENTS_PUSH_TOKEN", "s3cret")
	t.Setenv("READ_URL_TTL_MINUTES", "5")
	t.Setenv("SPEECH_ENABLED", "true")
	t.Setenv("SPEECH_LANGUAGE_CODE", "es-US")

	cfg := LoadConfig(testutil.Logger(t))
	if cfg.Addr() != ":9000" {
		t.Fatalf("addr: want=%q got=%q", ":9000", cfg.Addr())
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors: got=%v", cfg.CORSOrigins)
	}
	if cfg.PushToken != "s3cret" {
		t.Fatalf("push token: want=%q got=%q", "s3cret", cfg.PushToken)
	}
	if cfg.ReadURLTTL != 5*time.Minute {
		t.Fatalf("read ttl: want=%v got=%v", 5*time.Minute, cfg.ReadURLTTL)
	}
	if !cfg.Speech.Enabled || cfg.Speech.LanguageCode != "es-US" {
		t.Fatalf("speech: got=%+v", cfg.Speech)
	}
}

func TestWireServicesInlineWithoutTemporal(t *testing.T) {
	log := testutil.Logger(t)
	db := testutil.DB(t)
	svc, err := wireServices(log, Config{ReadURLTTL: time.Minute}, repos.New(db, log), Clients{}, nil)
	if err != nil {
		t.Fatalf("wireServices: %v", err)
	}
	if svc.Guard == nil || svc.Dispatcher == nil || svc.Pipeline == nil || svc.Index == nil {
		t.Fatalf("wireServices: missing component %+v", svc)
	}
	if svc.Uploads == nil || svc.Evidence == nil || svc.Cases == nil || svc.Departments == nil || svc.Users == nil {
		t.Fatalf("wireServices: missing domain service")
	}
}

package gcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"google.golang.org/grpc/codes"

	"github.com/yungbote/evidence-backend/internal/platform/apierr"
	"github.com/yungbote/evidence-backend/internal/platform/ctxutil"
	"github.com/yungbote/evidence-backend/internal/platform/envutil"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

const onScreenPrefix = "[on screen] "

type VideoConfig struct {
	Enabled      bool
	LanguageCode string
	Poll         PollConfig
}

func LoadVideoConfig() VideoConfig {
	return VideoConfig{
		Enabled:      envutil.Bool("VIDEO_AI_ENABLED", false),
		LanguageCode: envutil.String("SPEECH_LANGUAGE_CODE", "en-US"),
		Poll: PollConfig{
			Attempts: envutil.Int("VIDEO_POLL_ATTEMPTS", 180),
			Interval: envutil.Seconds("VIDEO_POLL_INTERVAL_SECONDS", 10*time.Second),
		},
	}
}

// VideoTranscriber recovers speech and on-screen text from footage.
type VideoTranscriber interface {
	TranscribeVideo(ctx context.Context, path string) (*OCRResult, error)
	Close() error
}

type videoService struct {
	log         *logger.Logger
	videoClient *videointelligence.Client
	store       ObjectStore
	cfg         VideoConfig
}

func NewVideo(log *logger.Logger, store ObjectStore, cfg VideoConfig) (VideoTranscriber, error) {
	slog := log.With("service", "gcp.Video")
	c, err := videointelligence.NewClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("videointelligence client: %w", err)
	}
	return &videoService{log: slog, videoClient: c, store: store, cfg: cfg}, nil
}

func (s *videoService) Close() error {
	if s == nil || s.videoClient == nil {
		return nil
	}
	return s.videoClient.Close()
}

// TranscribeVideo annotates the bucket object with speech transcription and
// text detection, polling the operation a bounded number of times.
func (s *videoService) TranscribeVideo(ctx context.Context, objectPath string) (*OCRResult, error) {
	ctx = ctxutil.Default(ctx)
	op, err := s.videoClient.AnnotateVideo(ctx, annotateRequest(s.store.ObjectURL(objectPath), s.cfg))
	if err != nil {
		return nil, AsUpstream("video_ai", fmt.Errorf("AnnotateVideo: %w", err))
	}
	s.log.Debug("Video annotation started", "operation", op.Name(), "source", objectPath)

	var resp *vipb.AnnotateVideoResponse
	err = Poll(ctx, s.cfg.Poll, "video_timeout", func(ctx context.Context) (bool, error) {
		r, err := op.Poll(ctx)
		if err != nil {
			return false, AsUpstream("video_ai", fmt.Errorf("poll %s: %w", op.Name(), err))
		}
		resp = r
		return op.Done(), nil
	})
	if err != nil {
		return nil, err
	}
	if resp != nil && len(resp.AnnotationResults) > 0 && resp.AnnotationResults[0] != nil {
		if st := resp.AnnotationResults[0].Error; st != nil && st.Code != 0 {
			c := codes.Code(st.Code)
			return nil, apierr.Upstream("video_ai", httpStatusFromCode(c), c.String(), errors.New(st.Message))
		}
	}
	res := summarizeVideo(resp, s.cfg.LanguageCode)
	return &res, nil
}

func annotateRequest(uri string, cfg VideoConfig) *vipb.AnnotateVideoRequest {
	lang := cfg.LanguageCode
	if lang == "" {
		lang = "en-US"
	}
	return &vipb.AnnotateVideoRequest{
		InputUri: uri,
		Features: []vipb.Feature{vipb.Feature_SPEECH_TRANSCRIPTION, vipb.Feature_TEXT_DETECTION},
		VideoContext: &vipb.VideoContext{
			SpeechTranscriptionConfig: &vipb.SpeechTranscriptionConfig{
				LanguageCode:               lang,
				EnableAutomaticPunctuation: true,
			},
			TextDetectionConfig: &vipb.TextDetectionConfig{},
		},
	}
}

// summarizeVideo puts transcript lines first, then each distinct piece of
// on-screen text once.
func summarizeVideo(resp *vipb.AnnotateVideoResponse, fallbackLang string) OCRResult {
	if resp == nil || len(resp.AnnotationResults) == 0 || resp.AnnotationResults[0] == nil {
		return OCRResult{}
	}
	ar := resp.AnnotationResults[0]

	var lines []string
	votes := languageVotes{}
	for _, tr := range ar.SpeechTranscriptions {
		if tr == nil || len(tr.Alternatives) == 0 || tr.Alternatives[0] == nil {
			continue
		}
		alt := tr.Alternatives[0]
		if t := strings.TrimSpace(alt.Transcript); t != "" {
			lines = append(lines, t)
			votes.add(tr.LanguageCode, alt.Confidence)
		}
	}
	transcribed := len(lines) > 0

	seen := map[string]struct{}{}
	for _, ta := range ar.TextAnnotations {
		if ta == nil {
			continue
		}
		t := strings.TrimSpace(ta.Text)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		lines = append(lines, onScreenPrefix+t)
	}
	if len(lines) == 0 {
		return OCRResult{}
	}

	lang := votes.best()
	if lang == "" && transcribed {
		lang = fallbackLang
	}
	return OCRResult{Text: strings.Join(lines, "\n"), Lines: len(lines), Language: lang}
}

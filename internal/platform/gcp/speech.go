package gcp

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/yungbote/evidence-backend/internal/platform/ctxutil"
	"github.com/yungbote/evidence-backend/internal/platform/envutil"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

type SpeechConfig struct {
	Enabled      bool
	LanguageCode string
	Model        string
	Poll         PollConfig
}

func LoadSpeechConfig() SpeechConfig {
	return SpeechConfig{
		Enabled:      envutil.Bool("SPEECH_ENABLED", false),
		LanguageCode: envutil.String("SPEECH_LANGUAGE_CODE", "en-US"),
		Model:        envutil.String("SPEECH_MODEL", ""),
		Poll: PollConfig{
			Attempts: envutil.Int("SPEECH_POLL_ATTEMPTS", 120),
			Interval: envutil.Seconds("SPEECH_POLL_INTERVAL_SECONDS", 5*time.Second),
		},
	}
}

// AudioTranscriber turns a recorded statement or call into text.
type AudioTranscriber interface {
	TranscribeAudio(ctx context.Context, path string) (*OCRResult, error)
	Close() error
}

type speechService struct {
	log          *logger.Logger
	speechClient *speech.Client
	store        ObjectStore
	cfg          SpeechConfig
}

func NewSpeech(log *logger.Logger, store ObjectStore, cfg SpeechConfig) (AudioTranscriber, error) {
	slog := log.With("service", "gcp.Speech")
	c, err := speech.NewClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	slog.Info("Speech-to-Text initialized", "language", cfg.LanguageCode, "model", cfg.Model)
	return &speechService{log: slog, speechClient: c, store: store, cfg: cfg}, nil
}

func (s *speechService) Close() error {
	if s == nil || s.speechClient == nil {
		return nil
	}
	return s.speechClient.Close()
}

// TranscribeAudio starts a long-running recognition over the bucket object
// and polls it a bounded number of times.
func (s *speechService) TranscribeAudio(ctx context.Context, objectPath string) (*OCRResult, error) {
	ctx = ctxutil.Default(ctx)
	uri := s.store.ObjectURL(objectPath)

	op, err := s.speechClient.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: recognitionConfig(objectPath, s.cfg),
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Uri{Uri: uri}},
	})
	if err != nil {
		return nil, AsUpstream("speech", fmt.Errorf("LongRunningRecognize: %w", err))
	}
	s.log.Debug("Transcription started", "operation", op.Name(), "source", objectPath)

	var resp *speechpb.LongRunningRecognizeResponse
	err = Poll(ctx, s.cfg.Poll, "speech_timeout", func(ctx context.Context) (bool, error) {
		r, err := op.Poll(ctx)
		if err != nil {
			return false, AsUpstream("speech", fmt.Errorf("poll %s: %w", op.Name(), err))
		}
		resp = r
		return op.Done(), nil
	})
	if err != nil {
		return nil, err
	}
	res := summarizeTranscript(resp, s.cfg.LanguageCode)
	return &res, nil
}

func recognitionConfig(objectPath string, cfg SpeechConfig) *speechpb.RecognitionConfig {
	lang := cfg.LanguageCode
	if lang == "" {
		lang = "en-US"
	}
	return &speechpb.RecognitionConfig{
		LanguageCode:               lang,
		Model:                      cfg.Model,
		Encoding:                   speechEncoding(objectPath),
		EnableAutomaticPunctuation: true,
	}
}

// speechEncoding maps the extension to an encoding. Unspecified lets the
// service read WAV and FLAC headers itself.
func speechEncoding(objectPath string) speechpb.RecognitionConfig_AudioEncoding {
	switch strings.ToLower(path.Ext(objectPath)) {
	case ".wav":
		return speechpb.RecognitionConfig_LINEAR16
	case ".flac":
		return speechpb.RecognitionConfig_FLAC
	case ".mp3":
		return speechpb.RecognitionConfig_MP3
	case ".ogg", ".opus":
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

// summarizeTranscript keeps the top alternative of each result, one line per
// result.
func summarizeTranscript(resp *speechpb.LongRunningRecognizeResponse, fallbackLang string) OCRResult {
	if resp == nil {
		return OCRResult{}
	}
	var lines []string
	votes := languageVotes{}
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		alt := r.Alternatives[0]
		t := strings.TrimSpace(alt.Transcript)
		if t == "" {
			continue
		}
		lines = append(lines, t)
		votes.add(r.LanguageCode, alt.Confidence)
	}
	if len(lines) == 0 {
		return OCRResult{}
	}
	lang := votes.best()
	if lang == "" {
		lang = fallbackLang
	}
	return OCRResult{Text: strings.Join(lines, "\n"), Lines: len(lines), Language: lang}
}

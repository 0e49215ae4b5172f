package extraction

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/platform/apierr"
	"github.com/yungbote/evidence-backend/internal/platform/gcp"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

// MaxTextBytes bounds the text stored on a record and published to the index.
const MaxTextBytes = 1 << 20

type Result struct {
	Text     string
	Lines    int
	Language string
	// Skipped is set for file types with no extraction path.
	Skipped bool
}

type Service interface {
	Extract(ctx context.Context, ev *domain.Evidence) (*Result, error)
}

// Blobs is the read side of the object store used for plain text.
type Blobs interface {
	Download(ctx context.Context, path string) ([]byte, error)
}

type service struct {
	log    *logger.Logger
	blobs  Blobs
	docOCR gcp.DocumentOCR
	imgOCR gcp.ImageOCR
	speech gcp.AudioTranscriber
	video  gcp.VideoTranscriber
}

// NewService wires the extractors. docOCR and imgOCR may be nil, in which
// case evidence of that type fails extraction with a validation error. A nil
// speech or video leaves that media without an extraction path.
func NewService(log *logger.Logger, blobs Blobs, docOCR gcp.DocumentOCR, imgOCR gcp.ImageOCR, speech gcp.AudioTranscriber, video gcp.VideoTranscriber) Service {
	return &service{
		log:    log.With("service", "ExtractionService"),
		blobs:  blobs,
		docOCR: docOCR,
		imgOCR: imgOCR,
		speech: speech,
		video:  video,
	}
}

func (s *service) Extract(ctx context.Context, ev *domain.Evidence) (*Result, error) {
	if ev == nil {
		return nil, fmt.Errorf("extract: nil evidence")
	}
	switch ev.FileType {
	case domain.FileTypeDocument:
		return s.extractDocument(ctx, ev)
	case domain.FileTypeImage:
		return s.extractImage(ctx, ev)
	case domain.FileTypeText:
		return s.extractText(ctx, ev)
	case domain.FileTypeAudio:
		if s.speech != nil {
			return s.extractAudio(ctx, ev)
		}
		s.log.Debug("Speech recognition not configured", "evidence_id", ev.ID)
		return &Result{Skipped: true}, nil
	case domain.FileTypeVideo:
		if s.video != nil {
			return s.extractVideo(ctx, ev)
		}
		s.log.Debug("Video annotation not configured", "evidence_id", ev.ID)
		return &Result{Skipped: true}, nil
	default:
		s.log.Debug("No extraction path for file type", "evidence_id", ev.ID, "file_type", ev.FileType)
		return &Result{Skipped: true}, nil
	}
}

func (s *service) extractDocument(ctx context.Context, ev *domain.Evidence) (*Result, error) {
	if s.docOCR == nil {
		return nil, apierr.Validation("ocr_unconfigured", "document OCR is not configured")
	}
	res, err := s.docOCR.OCRDocument(ctx, gcp.DocumentOCRRequest{
		SourcePath:   ev.BlobPathRaw,
		MimeType:     documentMimeType(ev),
		OutputPrefix: domain.DerivedPrefix(ev.CaseID, ev.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("document OCR: %w", err)
	}
	return fromOCR(res), nil
}

func (s *service) extractImage(ctx context.Context, ev *domain.Evidence) (*Result, error) {
	if s.imgOCR == nil {
		return nil, apierr.Validation("ocr_unconfigured", "image OCR is not configured")
	}
	res, err := s.imgOCR.OCRImage(ctx, ev.BlobPathRaw)
	if err != nil {
		return nil, fmt.Errorf("image OCR: %w", err)
	}
	return fromOCR(res), nil
}

func (s *service) extractAudio(ctx context.Context, ev *domain.Evidence) (*Result, error) {
	res, err := s.speech.TranscribeAudio(ctx, ev.BlobPathRaw)
	if err != nil {
		return nil, fmt.Errorf("transcribe audio: %w", err)
	}
	return fromOCR(res), nil
}

func (s *service) extractVideo(ctx context.Context, ev *domain.Evidence) (*Result, error) {
	res, err := s.video.TranscribeVideo(ctx, ev.BlobPathRaw)
	if err != nil {
		return nil, fmt.Errorf("annotate video: %w", err)
	}
	return fromOCR(res), nil
}

func (s *service) extractText(ctx context.Context, ev *domain.Evidence) (*Result, error) {
	raw, err := s.blobs.Download(ctx, ev.BlobPathRaw)
	if err != nil {
		return nil, fmt.Errorf("download text: %w", err)
	}
	text := DecodeText(raw)
	return &Result{Text: text, Lines: countLines(text)}, nil
}

// DecodeText strips a UTF-8 byte order mark, replaces invalid sequences and
// truncates to MaxTextBytes on a rune boundary.
func DecodeText(raw []byte) string {
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	text := string(raw)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return truncate(strings.TrimSpace(text))
}

func fromOCR(res *gcp.OCRResult) *Result {
	if res == nil {
		return &Result{}
	}
	return &Result{Text: truncate(res.Text), Lines: res.Lines, Language: res.Language}
}

func truncate(s string) string {
	if len(s) <= MaxTextBytes {
		return s
	}
	cut := MaxTextBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func documentMimeType(ev *domain.Evidence) string {
	switch domain.Extension(ev.FileName) {
	case "tif", "tiff":
		return "image/tiff"
	case "pdf":
		return "application/pdf"
	}
	if ev.ContentType != nil && *ev.ContentType != "" {
		return *ev.ContentType
	}
	return "application/pdf"
}

func countLines(text string) int {
	n := 0
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			n++
		}
	}
	return n
}

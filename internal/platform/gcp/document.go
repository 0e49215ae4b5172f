package gcp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/yungbote/evidence-backend/internal/platform/ctxutil"
	"github.com/yungbote/evidence-backend/internal/platform/envutil"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

// OCRResult is the text recovered from a document or image.
type OCRResult struct {
	Text     string
	Lines    int
	Language string
}

type OCRConfig struct {
	ProjectID   string
	Location    string
	ProcessorID string
	Poll        PollConfig
}

func LoadOCRConfig() OCRConfig {
	return OCRConfig{
		ProjectID:   envutil.String("DOCAI_PROJECT_ID", ""),
		Location:    envutil.String("DOCAI_LOCATION", "us"),
		ProcessorID: envutil.String("DOCAI_PROCESSOR_ID", ""),
		Poll: PollConfig{
			Attempts: envutil.Int("OCR_POLL_ATTEMPTS", 60),
			Interval: envutil.Seconds("OCR_POLL_INTERVAL_SECONDS", 5*time.Second),
		},
	}
}

func (c OCRConfig) Enabled() bool {
	return c.ProjectID != "" && c.ProcessorID != ""
}

type DocumentOCRRequest struct {
	// SourcePath and OutputPrefix are bucket-relative.
	SourcePath   string
	MimeType     string
	OutputPrefix string
}

type DocumentOCR interface {
	OCRDocument(ctx context.Context, req DocumentOCRRequest) (*OCRResult, error)
	Close() error
}

type documentService struct {
	log       *logger.Logger
	docClient *documentai.DocumentProcessorClient
	store     ObjectStore
	cfg       OCRConfig
}

func NewDocument(log *logger.Logger, store ObjectStore, cfg OCRConfig) (DocumentOCR, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("missing DOCAI_PROJECT_ID or DOCAI_PROCESSOR_ID")
	}
	slog := log.With("service", "gcp.Document")

	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
	docOpts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, ClientOptionsFromEnv()...)
	c, err := documentai.NewDocumentProcessorClient(context.Background(), docOpts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	slog.Info("Document AI initialized", "endpoint", endpoint, "processor", cfg.ProcessorID)

	return &documentService{log: slog, docClient: c, store: store, cfg: cfg}, nil
}

func (s *documentService) Close() error {
	if s == nil || s.docClient == nil {
		return nil
	}
	return s.docClient.Close()
}

// OCRDocument runs a batch OCR job over one object, polls the long-running
// operation a bounded number of times, then reads the JSON shards written
// under OutputPrefix.
func (s *documentService) OCRDocument(ctx context.Context, req DocumentOCRRequest) (*OCRResult, error) {
	ctx = ctxutil.Default(ctx)
	if req.MimeType == "" {
		req.MimeType = "application/pdf"
	}
	outPrefix := strings.TrimSuffix(req.OutputPrefix, "/") + "/"

	// Shards from an earlier delivery would otherwise be merged in.
	if n, err := s.store.DeletePrefix(ctx, outPrefix); err != nil {
		s.log.Warn("Clearing previous OCR output failed", "prefix", outPrefix, "error", err)
	} else if n > 0 {
		s.log.Debug("Cleared previous OCR output", "prefix", outPrefix, "objects", n)
	}

	br := &documentaipb.BatchProcessRequest{
		Name: processorName(s.cfg.ProjectID, s.cfg.Location, s.cfg.ProcessorID),
		InputDocuments: &documentaipb.BatchDocumentsInputConfig{
			Source: &documentaipb.BatchDocumentsInputConfig_GcsDocuments{
				GcsDocuments: &documentaipb.GcsDocuments{
					Documents: []*documentaipb.GcsDocument{{
						GcsUri:   s.store.ObjectURL(req.SourcePath),
						MimeType: req.MimeType,
					}},
				},
			},
		},
		DocumentOutputConfig: &documentaipb.DocumentOutputConfig{
			Destination: &documentaipb.DocumentOutputConfig_GcsOutputConfig_{
				GcsOutputConfig: &documentaipb.DocumentOutputConfig_GcsOutputConfig{
					GcsUri: s.store.ObjectURL(outPrefix),
				},
			},
		},
	}

	op, err := s.docClient.BatchProcessDocuments(ctx, br)
	if err != nil {
		return nil, AsUpstream("document_ai", fmt.Errorf("BatchProcessDocuments: %w", err))
	}
	s.log.Debug("OCR batch started", "operation", op.Name(), "source", req.SourcePath)

	err = Poll(ctx, s.cfg.Poll, "ocr_timeout", func(ctx context.Context) (bool, error) {
		if _, err := op.Poll(ctx); err != nil {
			return false, AsUpstream("document_ai", fmt.Errorf("poll %s: %w", op.Name(), err))
		}
		return op.Done(), nil
	})
	if err != nil {
		return nil, err
	}

	docs, err := s.readShards(ctx, outPrefix)
	if err != nil {
		return nil, err
	}
	res := summarizeDocuments(docs)
	return &res, nil
}

func (s *documentService) readShards(ctx context.Context, prefix string) ([]*documentaipb.Document, error) {
	keys, err := s.store.ListKeys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	jsonKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasSuffix(strings.ToLower(k), ".json") {
			jsonKeys = append(jsonKeys, k)
		}
	}
	sort.Strings(jsonKeys)

	docs := make([]*documentaipb.Document, 0, len(jsonKeys))
	for _, k := range jsonKeys {
		raw, err := s.store.Download(ctx, k)
		if err != nil {
			return nil, err
		}
		doc, err := parseDocumentJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("parse OCR shard %q: %w", k, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func parseDocumentJSON(raw []byte) (*documentaipb.Document, error) {
	doc := &documentaipb.Document{}
	if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(raw, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func summarizeDocuments(docs []*documentaipb.Document) OCRResult {
	var (
		texts []string
		lines int
		votes = languageVotes{}
	)
	for _, d := range docs {
		if d == nil {
			continue
		}
		if t := strings.TrimSpace(d.Text); t != "" {
			texts = append(texts, t)
		}
		for _, p := range d.Pages {
			if p == nil {
				continue
			}
			lines += len(p.Lines)
			for _, l := range p.DetectedLanguages {
				if l != nil {
					votes.add(l.LanguageCode, l.Confidence)
				}
			}
		}
	}
	text := strings.Join(texts, "\n")
	if lines == 0 {
		lines = countLines(text)
	}
	return OCRResult{Text: text, Lines: lines, Language: votes.best()}
}

func processorName(project, location, processorID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processorID)
}

// languageVotes sums detection confidence per language code.
type languageVotes map[string]float64

func (v languageVotes) add(code string, confidence float32) {
	code = strings.TrimSpace(code)
	if code == "" {
		return
	}
	if confidence <= 0 {
		confidence = 0.01
	}
	v[code] += float64(confidence)
}

func (v languageVotes) best() string {
	best, score := "", 0.0
	for code, s := range v {
		if s > score || (s == score && code < best) {
			best, score = code, s
		}
	}
	return best
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

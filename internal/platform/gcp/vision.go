package gcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/grpc/codes"

	"github.com/yungbote/evidence-backend/internal/platform/apierr"
	"github.com/yungbote/evidence-backend/internal/platform/ctxutil"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

type ImageOCR interface {
	OCRImage(ctx context.Context, path string) (*OCRResult, error)
	Close() error
}

type visionService struct {
	log          *logger.Logger
	visionClient *vision.ImageAnnotatorClient
	store        ObjectStore
}

func NewVision(log *logger.Logger, store ObjectStore) (ImageOCR, error) {
	slog := log.With("service", "gcp.Vision")
	vClient, err := vision.NewImageAnnotatorClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &visionService{log: slog, visionClient: vClient, store: store}, nil
}

func (s *visionService) Close() error {
	if s == nil || s.visionClient == nil {
		return nil
	}
	return s.visionClient.Close()
}

// OCRImage runs document text detection on a bucket object in place.
func (s *visionService) OCRImage(ctx context.Context, path string) (*OCRResult, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Source: &visionpb.ImageSource{GcsImageUri: s.store.ObjectURL(path)}},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
		},
	}
	resp, err := s.visionClient.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{req},
	})
	if err != nil {
		return nil, AsUpstream("vision", fmt.Errorf("BatchAnnotateImages: %w", err))
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return &OCRResult{}, nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Code != 0 {
		c := codes.Code(r0.Error.Code)
		return nil, apierr.Upstream("vision", httpStatusFromCode(c), c.String(), errors.New(r0.Error.Message))
	}
	res := summarizeAnnotation(r0.FullTextAnnotation)
	return &res, nil
}

func summarizeAnnotation(fta *visionpb.TextAnnotation) OCRResult {
	if fta == nil {
		return OCRResult{}
	}
	text := strings.TrimSpace(fta.Text)
	votes := languageVotes{}
	for _, pg := range fta.Pages {
		if pg == nil || pg.Property == nil {
			continue
		}
		for _, l := range pg.Property.DetectedLanguages {
			if l != nil {
				votes.add(l.LanguageCode, l.Confidence)
			}
		}
	}
	return OCRResult{Text: text, Lines: countLines(text), Language: votes.best()}
}

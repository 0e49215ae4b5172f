package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/platform/apierr"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
	"github.com/yungbote/evidence-backend/internal/platform/qdrant"
)

const (
	DefaultTop = 20
	MaxTop     = 100
)

// Backend is the subset of the Qdrant client the index manager drives.
type Backend interface {
	GetCollection(ctx context.Context) (*qdrant.CollectionInfo, error)
	CreateCollection(ctx context.Context) error
	CreatePayloadIndex(ctx context.Context, field string, schema any) error
	UpsertPoints(ctx context.Context, points []qdrant.Point) error
	DeletePoints(ctx context.Context, ids []string) error
	QueryPoints(ctx context.Context, q qdrant.QueryRequest) ([]qdrant.ScoredPoint, error)
	CountPoints(ctx context.Context, filter *qdrant.Filter) (int64, error)
}

type Query struct {
	Text       string
	CaseID     string
	Department string
	Status     string
	Tag        string
	Top        int
	Skip       int
}

type Result struct {
	Total     int64                   `json:"total"`
	Documents []domain.SearchDocument `json:"documents"`
}

type IndexManager interface {
	EnsureIndex(ctx context.Context) error
	Publish(ctx context.Context, doc domain.SearchDocument) error
	Remove(ctx context.Context, ids ...string) error
	Query(ctx context.Context, q Query) (*Result, error)
}

type fieldSchema struct {
	field  string
	schema any
}

var (
	keywordFields = []string{"id", "caseId", "department", "status", "tags", "fileType", "uploadedBy"}
	textFields    = []string{"extractedText", "fileName", "description"}
)

func schema() []fieldSchema {
	out := make([]fieldSchema, 0, len(keywordFields)+len(textFields)+1)
	for _, f := range keywordFields {
		out = append(out, fieldSchema{field: f, schema: qdrant.SchemaKeyword})
	}
	out = append(out, fieldSchema{field: "uploadedAt", schema: qdrant.SchemaDatetime})
	for _, f := range textFields {
		out = append(out, fieldSchema{field: f, schema: qdrant.WordTextIndex()})
	}
	return out
}

type indexManager struct {
	log     *logger.Logger
	backend Backend

	ready atomic.Bool
	group singleflight.Group
}

func NewIndexManager(log *logger.Logger, backend Backend) IndexManager {
	return &indexManager{
		log:     log.With("service", "SearchIndexManager"),
		backend: backend,
	}
}

// EnsureIndex creates the collection and its payload schema at most once per
// process. Concurrent callers share one attempt; a failed attempt is retried
// by the next caller.
func (m *indexManager) EnsureIndex(ctx context.Context) error {
	if m.ready.Load() {
		return nil
	}
	_, err, _ := m.group.Do("ensure", func() (interface{}, error) {
		if m.ready.Load() {
			return nil, nil
		}
		if err := m.ensure(ctx); err != nil {
			return nil, err
		}
		m.ready.Store(true)
		return nil, nil
	})
	return err
}

func (m *indexManager) ensure(ctx context.Context) error {
	_, err := m.backend.GetCollection(ctx)
	switch {
	case err == nil:
	case qdrant.IsNotFound(err):
		m.log.Info("Search collection missing, creating")
		if err := m.backend.CreateCollection(ctx); err != nil && !qdrant.IsConflict(err) {
			return classify(fmt.Errorf("create collection: %w", err))
		}
	default:
		return classify(fmt.Errorf("get collection: %w", err))
	}

	for _, fs := range schema() {
		if err := m.backend.CreatePayloadIndex(ctx, fs.field, fs.schema); err != nil {
			return classify(fmt.Errorf("payload index %s: %w", fs.field, err))
		}
	}
	return nil
}

func (m *indexManager) Publish(ctx context.Context, doc domain.SearchDocument) error {
	if strings.TrimSpace(doc.ID) == "" {
		return apierr.Validation("missing_id", "search document id is required")
	}
	if err := m.EnsureIndex(ctx); err != nil {
		return err
	}
	point := qdrant.Point{ID: doc.ID, Payload: doc.Payload()}
	if err := m.backend.UpsertPoints(ctx, []qdrant.Point{point}); err != nil {
		return classify(fmt.Errorf("publish %s: %w", doc.ID, err))
	}
	return nil
}

// Remove deletes documents by id. Missing documents and a missing collection
// count as removed.
func (m *indexManager) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	err := m.backend.DeletePoints(ctx, ids)
	if err == nil || qdrant.IsNotFound(err) {
		return nil
	}
	return classify(fmt.Errorf("remove: %w", err))
}

func (m *indexManager) Query(ctx context.Context, q Query) (*Result, error) {
	if err := m.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	top, skip := clampPaging(q.Top, q.Skip)
	filter := BuildFilter(q)

	points, err := m.backend.QueryPoints(ctx, qdrant.QueryRequest{Filter: filter, Limit: top, Offset: skip})
	if err != nil {
		return nil, classify(fmt.Errorf("query: %w", err))
	}
	total, err := m.backend.CountPoints(ctx, filter)
	if err != nil {
		return nil, classify(fmt.Errorf("count: %w", err))
	}

	docs := make([]domain.SearchDocument, 0, len(points))
	for _, p := range points {
		doc, err := decodeDocument(p)
		if err != nil {
			m.log.Warn("Skipping undecodable search hit", "id", qdrant.DecodePointID(p.ID), "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return &Result{Total: total, Documents: docs}, nil
}

// BuildFilter turns a query into structured conditions. Values are carried as
// JSON strings, never spliced into a query language.
func BuildFilter(q Query) *qdrant.Filter {
	f := &qdrant.Filter{}
	if v := strings.TrimSpace(q.CaseID); v != "" {
		f.Must = append(f.Must, qdrant.MatchValue("caseId", v))
	}
	if v := strings.TrimSpace(q.Department); v != "" {
		f.Must = append(f.Must, qdrant.MatchValue("department", v))
	}
	if v := strings.TrimSpace(q.Status); v != "" {
		f.Must = append(f.Must, qdrant.MatchValue("status", v))
	}
	if v := strings.TrimSpace(q.Tag); v != "" {
		f.Must = append(f.Must, qdrant.MatchValue("tags", strings.ToLower(v)))
	}
	if text := strings.TrimSpace(q.Text); text != "" {
		anyText := qdrant.Filter{}
		for _, field := range textFields {
			anyText.Should = append(anyText.Should, qdrant.MatchText(field, text))
		}
		f.Must = append(f.Must, anyText)
	}
	if f.Empty() {
		return nil
	}
	return f
}

func clampPaging(top, skip int) (int, int) {
	if top <= 0 {
		top = DefaultTop
	}
	if top > MaxTop {
		top = MaxTop
	}
	if skip < 0 {
		skip = 0
	}
	return top, skip
}

func decodeDocument(p qdrant.ScoredPoint) (domain.SearchDocument, error) {
	var doc domain.SearchDocument
	raw, err := json.Marshal(p.Payload)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, err
	}
	if doc.ID == "" {
		doc.ID = qdrant.DecodePointID(p.ID)
	}
	return doc, nil
}

func classify(err error) error {
	if qdrant.IsTimeout(err) {
		return apierr.Timeout("search_index_timeout", err)
	}
	code := ""
	var oe *qdrant.OperationError
	if errors.As(err, &oe) {
		code = string(oe.Code)
	}
	return apierr.Upstream("search_index", qdrant.StatusOf(err), code, err)
}

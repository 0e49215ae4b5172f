package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/evidence-backend/internal/platform/ctxutil"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

const (
	maxErrorBodyBytes = 1024
	maxResponseBytes  = 32 << 20
	defaultTimeout    = 10 * time.Second
)

// Client speaks the Qdrant REST API for a single collection.
type Client struct {
	log     *logger.Logger
	cfg     Config
	baseURL string
	http    *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type Point struct {
	ID      string         `json:"id"`
	Vector  map[string]any `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type ScoredPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

type CollectionInfo struct {
	Status       string         `json:"status"`
	PointsCount  int64          `json:"points_count"`
	PayloadIndex map[string]any `json:"payload_schema"`
}

type QueryRequest struct {
	Filter *Filter
	Limit  int
	Offset int
}

func NewClient(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		log:     log.With("service", "QdrantClient"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	log.Info("Qdrant search backend selected", "url", c.baseURL, "collection", cfg.Collection)
	return c, nil
}

func (c *Client) Collection() string { return c.cfg.Collection }

func (c *Client) GetCollection(ctx context.Context) (*CollectionInfo, error) {
	var info CollectionInfo
	if err := c.doJSON(ctx, "get_collection", http.MethodGet, c.collectionPath(""), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CreateCollection creates a payload-only collection (no vector space).
func (c *Client) CreateCollection(ctx context.Context) error {
	req := map[string]any{"vectors": map[string]any{}}
	return c.doJSON(ctx, "create_collection", http.MethodPut, c.collectionPath(""), req, nil)
}

// CreatePayloadIndex is idempotent for an unchanged schema.
func (c *Client) CreatePayloadIndex(ctx context.Context, field string, schema any) error {
	req := map[string]any{
		"field_name":   field,
		"field_schema": schema,
	}
	return c.doJSON(ctx, "create_payload_index", http.MethodPut, c.collectionPath("/index?wait=true"), req, nil)
}

func (c *Client) UpsertPoints(ctx context.Context, points []Point) error {
	const op = "upsert"
	if len(points) == 0 {
		return nil
	}
	for i := range points {
		if strings.TrimSpace(points[i].ID) == "" {
			return opErr(op, OperationErrorValidation, "point id is required", nil)
		}
		if points[i].Vector == nil {
			points[i].Vector = map[string]any{}
		}
	}
	req := map[string]any{"points": points}
	return c.doJSON(ctx, op, http.MethodPut, c.collectionPath("/points?wait=true"), req, nil)
}

func (c *Client) DeletePoints(ctx context.Context, ids []string) error {
	const op = "delete"
	pointIDs := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		pointIDs = append(pointIDs, id)
	}
	if len(pointIDs) == 0 {
		return nil
	}
	req := map[string]any{"points": pointIDs}
	return c.doJSON(ctx, op, http.MethodPost, c.collectionPath("/points/delete?wait=true"), req, nil)
}

func (c *Client) QueryPoints(ctx context.Context, q QueryRequest) ([]ScoredPoint, error) {
	req := map[string]any{
		"limit":        q.Limit,
		"offset":       q.Offset,
		"with_payload": true,
		"with_vector":  false,
	}
	if !q.Filter.Empty() {
		req["filter"] = q.Filter
	}
	var result struct {
		Points []ScoredPoint `json:"points"`
	}
	if err := c.doJSON(ctx, "query", http.MethodPost, c.collectionPath("/points/query"), req, &result); err != nil {
		return nil, err
	}
	return result.Points, nil
}

func (c *Client) CountPoints(ctx context.Context, filter *Filter) (int64, error) {
	req := map[string]any{"exact": true}
	if !filter.Empty() {
		req["filter"] = filter
	}
	var result struct {
		Count int64 `json:"count"`
	}
	if err := c.doJSON(ctx, "count", http.MethodPost, c.collectionPath("/points/count"), req, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, c.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("api-key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(envelope.Status); statusErr != "" {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    statusErr,
		}
	}

	if out == nil {
		return nil
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}

	var statusString string
	if err := json.Unmarshal(raw, &statusString); err == nil {
		if strings.EqualFold(statusString, "ok") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", statusString)
	}

	var statusObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &statusObject); err == nil {
		if strings.TrimSpace(statusObject.Error) != "" {
			return strings.TrimSpace(statusObject.Error)
		}
	}

	return fmt.Sprintf("qdrant status=%s", status)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func (c *Client) collectionPath(suffix string) string {
	path := "/collections/" + c.cfg.Collection
	if strings.TrimSpace(suffix) == "" {
		return path
	}
	return path + suffix
}

// DecodePointID renders a point id that may be a uuid string or an integer.
func DecodePointID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var idString string
	if err := json.Unmarshal(raw, &idString); err == nil {
		return strings.TrimSpace(idString)
	}
	var idNumber int64
	if err := json.Unmarshal(raw, &idNumber); err == nil {
		return fmt.Sprintf("%d", idNumber)
	}
	return strings.TrimSpace(string(raw))
}

package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/yungbote/evidence-backend/internal/platform/apierr"
	"github.com/yungbote/evidence-backend/internal/platform/ctxutil"
	"github.com/yungbote/evidence-backend/internal/platform/envutil"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

const (
	DefaultWriteURLTTL      = 10 * time.Minute
	DefaultReadURLTTL       = 15 * time.Minute
	DefaultMaxDownloadBytes = 64 << 20
)

// ObjectStore is the evidence bucket. Every path is relative to the bucket.
type ObjectStore interface {
	SignedWriteURL(ctx context.Context, path, contentType string, ttl time.Duration) (string, time.Time, error)
	SignedReadURL(ctx context.Context, path string, ttl time.Duration) (string, time.Time, error)
	Exists(ctx context.Context, path string) (bool, error)
	Download(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	ObjectURL(path string) string
	BucketName() string
	Close() error
}

type BucketConfig struct {
	Name             string
	SignerEmail      string
	MaxDownloadBytes int64
}

func LoadBucketConfig() BucketConfig {
	return BucketConfig{
		Name:             envutil.String("EVIDENCE_BUCKET", ""),
		SignerEmail:      envutil.String("GCS_SIGNER_EMAIL", ""),
		MaxDownloadBytes: int64(envutil.Int("MAX_DOWNLOAD_MB", DefaultMaxDownloadBytes>>20)) << 20,
	}
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	cfg           BucketConfig
}

func NewBucketService(log *logger.Logger, cfg BucketConfig) (ObjectStore, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, fmt.Errorf("missing env var EVIDENCE_BUCKET")
	}
	if cfg.MaxDownloadBytes <= 0 {
		cfg.MaxDownloadBytes = DefaultMaxDownloadBytes
	}
	serviceLog := log.With("service", "BucketService")

	opts := ClientOptionsFromEnv()
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	stClient, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info("Object storage initialized", "bucket", cfg.Name, "signer", cfg.SignerEmail)
	return &bucketService{
		log:           serviceLog,
		storageClient: stClient,
		cfg:           cfg,
	}, nil
}

func (bs *bucketService) BucketName() string { return bs.cfg.Name }

func (bs *bucketService) Close() error {
	if bs == nil || bs.storageClient == nil {
		return nil
	}
	return bs.storageClient.Close()
}

func (bs *bucketService) ObjectURL(path string) string {
	return fmt.Sprintf("gs://%s/%s", bs.cfg.Name, strings.TrimLeft(path, "/"))
}

// SignedWriteURL grants a single PUT of exactly path. The signature binds the
// method, so the URL cannot read, list or delete.
func (bs *bucketService) SignedWriteURL(ctx context.Context, path, contentType string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = DefaultWriteURLTTL
	}
	return bs.sign(path, signedURLOptions(http.MethodPut, contentType, ttl, bs.cfg.SignerEmail))
}

func (bs *bucketService) SignedReadURL(ctx context.Context, path string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = DefaultReadURLTTL
	}
	return bs.sign(path, signedURLOptions(http.MethodGet, "", ttl, bs.cfg.SignerEmail))
}

func (bs *bucketService) sign(path string, opts *storage.SignedURLOptions) (string, time.Time, error) {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" {
		return "", time.Time{}, fmt.Errorf("sign url: empty object path")
	}
	u, err := bs.storageClient.Bucket(bs.cfg.Name).SignedURL(path, opts)
	if err != nil {
		return "", time.Time{}, AsUpstream("object_store", fmt.Errorf("sign %s url: %w", opts.Method, err))
	}
	return u, opts.Expires.UTC(), nil
}

func signedURLOptions(method, contentType string, ttl time.Duration, signer string) *storage.SignedURLOptions {
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  method,
		Expires: time.Now().Add(ttl),
	}
	if signer != "" {
		opts.GoogleAccessID = signer
	}
	if method == http.MethodPut && contentType != "" {
		opts.ContentType = contentType
	}
	return opts
}

func (bs *bucketService) Exists(ctx context.Context, path string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), 30*time.Second)
	defer cancel()
	_, err := bs.storageClient.Bucket(bs.cfg.Name).Object(path).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, AsUpstream("object_store", fmt.Errorf("attrs %q: %w", path, err))
	}
	return true, nil
}

func (bs *bucketService) Download(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), 2*time.Minute)
	defer cancel()

	r, err := bs.storageClient.Bucket(bs.cfg.Name).Object(path).NewReader(ctx)
	if err != nil {
		return nil, AsUpstream("object_store", fmt.Errorf("open reader %q: %w", path, err))
	}
	defer r.Close()
	return readLimited(r, path, bs.cfg.MaxDownloadBytes)
}

// readLimited reads at most limit bytes. A larger object is a validation
// error so the ingest is not retried.
func readLimited(r io.Reader, path string, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, AsUpstream("object_store", fmt.Errorf("read %q: %w", path, err))
	}
	if int64(len(data)) > limit {
		return nil, apierr.Validation("object_too_large", fmt.Sprintf("object %q exceeds %d bytes", path, limit))
	}
	return data, nil
}

// Delete treats a missing object as already deleted.
func (bs *bucketService) Delete(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), 30*time.Second)
	defer cancel()
	err := bs.storageClient.Bucket(bs.cfg.Name).Object(path).Delete(ctx)
	if err == nil || errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return AsUpstream("object_store", fmt.Errorf("delete %q: %w", path, err))
}

func (bs *bucketService) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), 30*time.Second)
	defer cancel()
	it := bs.storageClient.Bucket(bs.cfg.Name).Objects(ctx, &storage.Query{Prefix: prefix})
	out := []string{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, AsUpstream("object_store", fmt.Errorf("list %q: %w", prefix, err))
		}
		out = append(out, attrs.Name)
	}
	return out, nil
}

// DeletePrefix removes every object under prefix, continuing past individual
// failures. It returns how many objects were removed.
func (bs *bucketService) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if strings.TrimSpace(prefix) == "" {
		return 0, fmt.Errorf("delete prefix: refusing empty prefix")
	}
	keys, err := bs.ListKeys(ctx, prefix)
	if err != nil {
		return 0, err
	}
	deleted := 0
	var errs []error
	for _, k := range keys {
		if err := bs.Delete(ctx, k); err != nil {
			bs.log.Warn("Delete object failed", "key", k, "error", err)
			errs = append(errs, err)
			continue
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}

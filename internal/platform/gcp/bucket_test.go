package gcp

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/storage"

	"github.com/yungbote/evidence-backend/internal/platform/apierr"
)

func TestSignedURLOptionsWrite(t *testing.T) {
	before := time.Now()
	opts := signedURLOptions(http.MethodPut, "application/pdf", 10*time.Minute, "signer@proj.iam.gserviceaccount.com")
	if opts.Method != http.MethodPut || opts.Scheme != storage.SigningSchemeV4 {
		t.Fatalf("method/scheme: got=%s/%v", opts.Method, opts.Scheme)
	}
	if opts.ContentType != "application/pdf" {
		t.Fatalf("content type: want=application/pdf got=%q", opts.ContentType)
	}
	if opts.GoogleAccessID != "signer@proj.iam.gserviceaccount.com" {
		t.Fatalf("signer: got=%q", opts.GoogleAccessID)
	}
	if d := opts.Expires.Sub(before); d < 10*time.Minute || d > 11*time.Minute {
		t.Fatalf("expiry: want~10m got=%s", d)
	}
}

func TestSignedURLOptionsReadIgnoresContentType(t *testing.T) {
	opts := signedURLOptions(http.MethodGet, "application/pdf", time.Minute, "")
	if opts.ContentType != "" {
		t.Fatalf("content type: want empty got=%q", opts.ContentType)
	}
	if opts.GoogleAccessID != "" {
		t.Fatalf("signer: want empty got=%q", opts.GoogleAccessID)
	}
}

func TestSignedWriteURLIsScopedToObject(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	opts := signedURLOptions(http.MethodPut, "image/png", 10*time.Minute, "signer@proj.iam.gserviceaccount.com")
	opts.PrivateKey = pemKey
	raw, err := storage.SignedURL("evidence-bucket", "case/ev/photo.png", opts)
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.HasSuffix(u.Path, "/evidence-bucket/case/ev/photo.png") {
		t.Fatalf("path: got=%s", u.Path)
	}
	q := u.Query()
	if q.Get("X-Goog-Algorithm") != "GOOG4-RSA-SHA256" {
		t.Fatalf("algorithm: got=%q", q.Get("X-Goog-Algorithm"))
	}
	// Expiry is measured from signing time, so a second may already be gone.
	expires, err := strconv.Atoi(q.Get("X-Goog-Expires"))
	if err != nil || expires < 599 || expires > 600 {
		t.Fatalf("expires: want=600 (+/-1) got=%q", q.Get("X-Goog-Expires"))
	}
	if !strings.Contains(q.Get("X-Goog-SignedHeaders"), "content-type") {
		t.Fatalf("signed headers should bind content-type: got=%q", q.Get("X-Goog-SignedHeaders"))
	}
}

func TestObjectURL(t *testing.T) {
	bs := &bucketService{cfg: BucketConfig{Name: "evidence-bucket"}}
	if got := bs.ObjectURL("/a/b/c.pdf"); got != "gs://evidence-bucket/a/b/c.pdf" {
		t.Fatalf("ObjectURL: got=%s", got)
	}
}

func TestReadLimitedRejectsOversizedObjectAsPermanent(t *testing.T) {
	data, err := readLimited(strings.NewReader("12345"), "case/ev/a.txt", 5)
	if err != nil || string(data) != "12345" {
		t.Fatalf("at limit: want=12345 got=%q err=%v", data, err)
	}

	_, err = readLimited(strings.NewReader("123456"), "case/ev/a.txt", 5)
	if apierr.KindOf(err) != apierr.KindValidation {
		t.Fatalf("kind: want=%s got=%s (%v)", apierr.KindValidation, apierr.KindOf(err), err)
	}
	if e, _ := apierr.As(err); e == nil || e.Code != "object_too_large" {
		t.Fatalf("code: want=object_too_large got=%v", err)
	}
}

package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

const testKeyID = "test-key"

type testTokenClaims struct {
	jwt.RegisteredClaims
	TenantID          string   `json:"tid,omitempty"`
	Roles             []string `json:"roles,omitempty"`
	Name              string   `json:"name,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
}

func buildJWKSetJSON(pub *rsa.PublicKey, kid string) json.RawMessage {
	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": kid,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	}
	data, _ := json.Marshal(jwks)
	return data
}

func newTestVerifier(t *testing.T, cfg Config) (*rsa.PrivateKey, Verifier) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	kf, err := keyfunc.NewJWKSetJSON(buildJWKSetJSON(&key.PublicKey, testKeyID))
	if err != nil {
		t.Fatalf("NewJWKSetJSON: %v", err)
	}
	return key, NewVerifierWithKeyfunc(logger.Nop(), kf, cfg)
}

func sign(t *testing.T, key *rsa.PrivateKey, claims testTokenClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

func TestVerifyExtractsClaims(t *testing.T) {
	key, v := newTestVerifier(t, Config{Issuer: "https://idp.test", Audience: "evidence-api"})
	token := sign(t, key, testTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    "https://idp.test",
			Audience:  jwt.ClaimStrings{"evidence-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		TenantID:          "tenant-1",
		Roles:             []string{"Case_Officer", " prosecutor "},
		Name:              "Jane Roe",
		PreferredUsername: "jroe",
	})

	c, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if c.Subject != "user-123" || c.Tenant != "tenant-1" || c.Username != "jroe" || c.DisplayName != "Jane Roe" {
		t.Fatalf("claims: got=%+v", c)
	}
	if len(c.Roles) != 2 || c.Roles[0] != "case_officer" || c.Roles[1] != "prosecutor" {
		t.Fatalf("roles: got=%v", c.Roles)
	}
}

func TestVerifyRejectsExpiredAndWrongIssuer(t *testing.T) {
	key, v := newTestVerifier(t, Config{Issuer: "https://idp.test"})

	expired := sign(t, key, testTokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u",
		Issuer:    "https://idp.test",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})
	if _, err := v.Verify(context.Background(), expired); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired: want ErrInvalidToken got=%v", err)
	}

	wrongIss := sign(t, key, testTokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u",
		Issuer:    "https://evil.test",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	if _, err := v.Verify(context.Background(), wrongIss); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong issuer: want ErrInvalidToken got=%v", err)
	}
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	key, v := newTestVerifier(t, Config{})
	token := sign(t, key, testTokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	if _, err := v.Verify(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("missing sub: want ErrInvalidToken got=%v", err)
	}
}

func TestClaimsContextRoundTrip(t *testing.T) {
	ctx := WithClaims(context.Background(), &Claims{Subject: "s"})
	if got := ClaimsFromContext(ctx); got == nil || got.Subject != "s" {
		t.Fatalf("ClaimsFromContext: got=%v", got)
	}
	if ClaimsFromContext(context.Background()) != nil {
		t.Fatalf("empty context: expected nil claims")
	}
}

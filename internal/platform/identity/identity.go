package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/evidence-backend/internal/platform/envutil"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

// Claims are the verified identity-provider claims this service consumes.
type Claims struct {
	Subject     string
	Tenant      string
	Roles       []string
	DisplayName string
	Username    string
}

type tokenClaims struct {
	jwt.RegisteredClaims
	TenantID          string   `json:"tid,omitempty"`
	Roles             []string `json:"roles,omitempty"`
	Name              string   `json:"name,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
}

type Config struct {
	JWKSURL         string
	Issuer          string
	Audience        string
	Leeway          time.Duration
	RefreshInterval time.Duration
	ClientTimeout   time.Duration
}

func LoadConfig() Config {
	return Config{
		JWKSURL:         envutil.String("AUTH_JWKS_URL", ""),
		Issuer:          envutil.String("AUTH_ISSUER", ""),
		Audience:        envutil.String("AUTH_AUDIENCE", ""),
		Leeway:          envutil.Seconds("AUTH_LEEWAY_SECONDS", 30*time.Second),
		RefreshInterval: envutil.Minutes("AUTH_JWKS_REFRESH_MINUTES", time.Hour),
		ClientTimeout:   envutil.Seconds("AUTH_JWKS_TIMEOUT_SECONDS", 10*time.Second),
	}
}

var ErrInvalidToken = errors.New("invalid token")

type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

type jwksVerifier struct {
	log  *logger.Logger
	jwks keyfunc.Keyfunc
	cfg  Config
}

func NewVerifier(log *logger.Logger, cfg Config) (Verifier, error) {
	if strings.TrimSpace(cfg.JWKSURL) == "" {
		return nil, fmt.Errorf("AUTH_JWKS_URL is required")
	}
	serviceLog := log.With("service", "IdentityVerifier")

	storage, err := jwkset.NewStorageFromHTTP(cfg.JWKSURL, jwkset.HTTPClientStorageOptions{
		Client:                    &http.Client{Timeout: cfg.ClientTimeout},
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           cfg.RefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			serviceLog.Error("JWKS refresh failed", "url", cfg.JWKSURL, "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("jwks storage: %w", err)
	}
	k, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("jwks keyfunc: %w", err)
	}
	return NewVerifierWithKeyfunc(serviceLog, k, cfg), nil
}

// NewVerifierWithKeyfunc builds a verifier over an existing key source.
func NewVerifierWithKeyfunc(log *logger.Logger, k keyfunc.Keyfunc, cfg Config) Verifier {
	return &jwksVerifier{log: log, jwks: k, cfg: cfg}
}

func (v *jwksVerifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.cfg.Leeway),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.Audience))
	}

	raw := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, raw, v.jwks.KeyfuncCtx(ctx), opts...)
	if err != nil {
		v.log.Debug("JWT validation failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	sub, err := raw.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}

	roles := make([]string, 0, len(raw.Roles))
	for _, r := range raw.Roles {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			roles = append(roles, r)
		}
	}
	return &Claims{
		Subject:     sub,
		Tenant:      raw.TenantID,
		Roles:       roles,
		DisplayName: raw.Name,
		Username:    raw.PreferredUsername,
	}, nil
}

type claimsKey struct{}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

func ClaimsFromContext(ctx context.Context) *Claims {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/evidence-backend/internal/authz"
	"github.com/yungbote/evidence-backend/internal/http/response"
	"github.com/yungbote/evidence-backend/internal/platform/apierr"
	"github.com/yungbote/evidence-backend/internal/platform/dbctx"
	"github.com/yungbote/evidence-backend/internal/platform/identity"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
	"github.com/yungbote/evidence-backend/internal/services"
)

type AuthMiddleware struct {
	log      *logger.Logger
	verifier identity.Verifier
	resolver services.PrincipalResolver
}

func NewAuthMiddleware(log *logger.Logger, verifier identity.Verifier, resolver services.PrincipalResolver) *AuthMiddleware {
	return &AuthMiddleware{
		log:      log.With("Middleware", "AuthMiddleware"),
		verifier: verifier,
		resolver: resolver,
	}
}

// RequireAuth verifies the bearer token and attaches the claims and the
// resolved principal to the request context.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.RespondAppError(c, am.log, apierr.Unauthenticated("missing bearer token"))
			return
		}
		claims, err := am.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			am.log.Debug("Token rejected", "error", err)
			response.RespondAppError(c, am.log, apierr.Unauthenticated("invalid token"))
			return
		}
		ctx := identity.WithClaims(c.Request.Context(), claims)
		p, _, err := am.resolver.Resolve(dbctx.Context{Ctx: ctx}, claims)
		if err != nil {
			response.RespondAppError(c, am.log, err)
			return
		}
		c.Request = c.Request.WithContext(authz.WithPrincipal(ctx, p))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

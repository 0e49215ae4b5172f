package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/evidence-backend/internal/authz"
	"github.com/yungbote/evidence-backend/internal/http/response"
	"github.com/yungbote/evidence-backend/internal/platform/apierr"
	"github.com/yungbote/evidence-backend/internal/platform/dbctx"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

// caller returns the principal attached by the auth middleware, answering
// 401 when there is none.
func caller(c *gin.Context, log *logger.Logger) (authz.Principal, bool) {
	p, ok := authz.PrincipalFromContext(c.Request.Context())
	if !ok {
		response.RespondAppError(c, log, apierr.Unauthenticated("no principal on request"))
		return authz.Principal{}, false
	}
	return p, true
}

func dbcOf(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}

func uuidParam(c *gin.Context, log *logger.Logger, name string) (uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		response.RespondAppError(c, log, apierr.Validation("invalid_"+name, name+" must be a uuid"))
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, log *logger.Logger, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondAppError(c, log, apierr.Validation("invalid_request", "request body is not valid json: "+err.Error()))
		return false
	}
	return true
}

func intQuery(c *gin.Context, log *logger.Logger, name string) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		response.RespondAppError(c, log, apierr.Validation("invalid_"+name, name+" must be a non-negative integer"))
		return 0, false
	}
	return n, true
}

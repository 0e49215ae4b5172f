package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/evidence-backend/internal/http/response"
	"github.com/yungbote/evidence-backend/internal/platform/apierr"
	"github.com/yungbote/evidence-backend/internal/platform/identity"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
	"github.com/yungbote/evidence-backend/internal/services"
)

type UserHandler struct {
	log   *logger.Logger
	users services.UserService
}

func NewUserHandler(log *logger.Logger, users services.UserService) *UserHandler {
	return &UserHandler{log: log.With("handler", "UserHandler"), users: users}
}

// GET /api/me
func (h *UserHandler) GetMe(c *gin.Context) {
	claims := identity.ClaimsFromContext(c.Request.Context())
	if claims == nil {
		response.RespondAppError(c, h.log, apierr.Unauthenticated("no claims on request"))
		return
	}
	me, err := h.users.Me(dbcOf(c), claims)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"me": me})
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	out, err := h.users.List(dbcOf(c), p)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"users": out})
}

// PUT /api/users/:id
// body: { "roles": ["case_officer"], "department": "homicide" }
func (h *UserHandler) Upsert(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	var req services.UpsertUserInput
	if !bindJSON(c, h.log, &req) {
		return
	}
	rec, err := h.users.Upsert(dbcOf(c), p, c.Param("id"), req)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"user": rec})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/evidence-backend/internal/http/response"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
	"github.com/yungbote/evidence-backend/internal/services"
)

type DepartmentHandler struct {
	log         *logger.Logger
	departments services.DepartmentService
}

func NewDepartmentHandler(log *logger.Logger, departments services.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{log: log.With("handler", "DepartmentHandler"), departments: departments}
}

// POST /api/departments
func (h *DepartmentHandler) Create(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	var req services.CreateDepartmentInput
	if !bindJSON(c, h.log, &req) {
		return
	}
	d, err := h.departments.Create(dbcOf(c), p, req)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"department": d})
}

// GET /api/departments
func (h *DepartmentHandler) List(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	out, err := h.departments.List(dbcOf(c), p)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"departments": out})
}

// GET /api/departments/:id
func (h *DepartmentHandler) Get(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	d, err := h.departments.Get(dbcOf(c), p, c.Param("id"))
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"department": d})
}

// PATCH /api/departments/:id
func (h *DepartmentHandler) Update(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	var req services.UpdateDepartmentInput
	if !bindJSON(c, h.log, &req) {
		return
	}
	d, err := h.departments.Update(dbcOf(c), p, c.Param("id"), req)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"department": d})
}

// DELETE /api/departments/:id
func (h *DepartmentHandler) Delete(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	report, err := h.departments.Delete(dbcOf(c), p, c.Param("id"))
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

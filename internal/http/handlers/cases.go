package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/evidence-backend/internal/http/response"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
	"github.com/yungbote/evidence-backend/internal/services"
)

type CaseHandler struct {
	log   *logger.Logger
	cases services.CaseService
}

func NewCaseHandler(log *logger.Logger, cases services.CaseService) *CaseHandler {
	return &CaseHandler{log: log.With("handler", "CaseHandler"), cases: cases}
}

// POST /api/cases
func (h *CaseHandler) Create(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	var req services.CreateCaseInput
	if !bindJSON(c, h.log, &req) {
		return
	}
	out, err := h.cases.Create(dbcOf(c), p, req)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"case": out})
}

// GET /api/cases?department=&status=
func (h *CaseHandler) List(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	out, err := h.cases.List(dbcOf(c), p, services.ListCasesInput{
		Department: c.Query("department"),
		Status:     c.Query("status"),
	})
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"cases": out})
}

// GET /api/cases/:id
func (h *CaseHandler) Get(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	id, ok := uuidParam(c, h.log, "id")
	if !ok {
		return
	}
	out, err := h.cases.Get(dbcOf(c), p, id)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"case": out})
}

// PATCH /api/cases/:id
func (h *CaseHandler) Update(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	id, ok := uuidParam(c, h.log, "id")
	if !ok {
		return
	}
	var req services.UpdateCaseInput
	if !bindJSON(c, h.log, &req) {
		return
	}
	out, err := h.cases.Update(dbcOf(c), p, id, req)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"case": out})
}

// DELETE /api/cases/:id
func (h *CaseHandler) Delete(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	id, ok := uuidParam(c, h.log, "id")
	if !ok {
		return
	}
	report, err := h.cases.Delete(dbcOf(c), p, id)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"report": report})
}

// POST /api/cases/:id/notes
// body: { "text": "..." }
func (h *CaseHandler) AddNote(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	id, ok := uuidParam(c, h.log, "id")
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if !bindJSON(c, h.log, &req) {
		return
	}
	note, err := h.cases.AddNote(dbcOf(c), p, id, req.Text)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"note": note})
}

// DELETE /api/cases/:id/notes/:noteId
func (h *CaseHandler) DeleteNote(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	id, ok := uuidParam(c, h.log, "id")
	if !ok {
		return
	}
	noteID, ok := uuidParam(c, h.log, "noteId")
	if !ok {
		return
	}
	if err := h.cases.DeleteNote(dbcOf(c), p, id, noteID); err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

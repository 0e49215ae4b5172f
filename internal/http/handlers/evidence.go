package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/evidence-backend/internal/http/response"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
	"github.com/yungbote/evidence-backend/internal/services"
)

type EvidenceHandler struct {
	log      *logger.Logger
	uploads  services.UploadCoordinator
	evidence services.EvidenceService
}

func NewEvidenceHandler(log *logger.Logger, uploads services.UploadCoordinator, evidence services.EvidenceService) *EvidenceHandler {
	return &EvidenceHandler{log: log.With("handler", "EvidenceHandler"), uploads: uploads, evidence: evidence}
}

// POST /api/cases/:id/evidence/uploads
// body: { "fileName": "...", "contentType": "...", "fileSize": 123 }
func (h *EvidenceHandler) InitiateUpload(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	caseID, ok := uuidParam(c, h.log, "id")
	if !ok {
		return
	}
	var req struct {
		FileName    string `json:"fileName"`
		ContentType string `json:"contentType"`
		FileSize    *int64 `json:"fileSize"`
	}
	if !bindJSON(c, h.log, &req) {
		return
	}
	out, err := h.uploads.Initiate(dbcOf(c), p, services.InitiateUploadInput{
		CaseID:      caseID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		FileSize:    req.FileSize,
	})
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"upload": out})
}

// POST /api/cases/:id/evidence/:evidenceId/confirm
// body: { "description": "...", "tags": ["..."] }
func (h *EvidenceHandler) ConfirmUpload(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	caseID, ok := uuidParam(c, h.log, "id")
	if !ok {
		return
	}
	evidenceID, ok := uuidParam(c, h.log, "evidenceId")
	if !ok {
		return
	}
	var req struct {
		Description *string  `json:"description"`
		Tags        []string `json:"tags"`
	}
	if !bindJSON(c, h.log, &req) {
		return
	}
	ev, err := h.uploads.Confirm(dbcOf(c), p, services.ConfirmUploadInput{
		EvidenceID:  evidenceID,
		CaseID:      caseID,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"evidence": ev})
}

// GET /api/cases/:id/evidence
func (h *EvidenceHandler) List(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	caseID, ok := uuidParam(c, h.log, "id")
	if !ok {
		return
	}
	out, err := h.evidence.ListByCase(dbcOf(c), p, caseID)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"evidence": out})
}

// GET /api/cases/:id/evidence/:evidenceId
func (h *EvidenceHandler) Get(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	caseID, ok := uuidParam(c, h.log, "id")
	if !ok {
		return
	}
	evidenceID, ok := uuidParam(c, h.log, "evidenceId")
	if !ok {
		return
	}
	ev, err := h.evidence.Get(dbcOf(c), p, caseID, evidenceID)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"evidence": ev})
}

// GET /api/cases/:id/evidence/:evidenceId/download
func (h *EvidenceHandler) Download(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	caseID, ok := uuidParam(c, h.log, "id")
	if !ok {
		return
	}
	evidenceID, ok := uuidParam(c, h.log, "evidenceId")
	if !ok {
		return
	}
	u, err := h.evidence.ReadURL(dbcOf(c), p, caseID, evidenceID)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"download": u})
}

// DELETE /api/cases/:id/evidence/:evidenceId
func (h *EvidenceHandler) Delete(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	caseID, ok := uuidParam(c, h.log, "id")
	if !ok {
		return
	}
	evidenceID, ok := uuidParam(c, h.log, "evidenceId")
	if !ok {
		return
	}
	report, err := h.evidence.Delete(dbcOf(c), p, caseID, evidenceID)
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"report": report})
}

// GET /api/search?q=&caseId=&department=&status=&tag=&top=&skip=
func (h *EvidenceHandler) Search(c *gin.Context) {
	p, ok := caller(c, h.log)
	if !ok {
		return
	}
	top, ok := intQuery(c, h.log, "top")
	if !ok {
		return
	}
	skip, ok := intQuery(c, h.log, "skip")
	if !ok {
		return
	}
	res, err := h.evidence.Search(dbcOf(c), p, services.SearchInput{
		Text:       c.Query("q"),
		CaseID:     c.Query("caseId"),
		Department: c.Query("department"),
		Status:     c.Query("status"),
		Tag:        c.Query("tag"),
		Top:        top,
		Skip:       skip,
	})
	if err != nil {
		response.RespondAppError(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}

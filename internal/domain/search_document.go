package domain

import "time"

// SearchDocument is the denormalized projection published to the search
// index. It is never authoritative and is always rebuilt from Evidence.
type SearchDocument struct {
	ID            string    `json:"id"`
	CaseID        string    `json:"caseId"`
	Department    string    `json:"department"`
	FileName      string    `json:"fileName"`
	FileType      string    `json:"fileType"`
	UploadedAt    time.Time `json:"uploadedAt"`
	UploadedBy    string    `json:"uploadedBy"`
	Status        string    `json:"status"`
	Description   string    `json:"description"`
	Tags          []string  `json:"tags"`
	ExtractedText string    `json:"extractedText"`
}

func NewSearchDocument(ev *Evidence) SearchDocument {
	doc := SearchDocument{
		ID:         ev.ID.String(),
		CaseID:     ev.CaseID.String(),
		Department: ev.DepartmentOrEmpty(),
		FileName:   ev.FileName,
		FileType:   string(ev.FileType),
		UploadedAt: ev.UploadedAt.UTC(),
		UploadedBy: ev.UploadedBy,
		Status:     string(ev.Status),
		Tags:       append([]string{}, ev.Tags...),
	}
	if ev.Description != nil {
		doc.Description = *ev.Description
	}
	if ev.ExtractedText != nil {
		doc.ExtractedText = *ev.ExtractedText
	}
	return doc
}

// Payload returns the document as index payload fields.
func (d SearchDocument) Payload() map[string]any {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"id":            d.ID,
		"caseId":        d.CaseID,
		"department":    d.Department,
		"fileName":      d.FileName,
		"fileType":      d.FileType,
		"uploadedAt":    d.UploadedAt.Format(time.RFC3339),
		"uploadedBy":    d.UploadedBy,
		"status":        d.Status,
		"description":   d.Description,
		"tags":          tags,
		"extractedText": d.ExtractedText,
	}
}

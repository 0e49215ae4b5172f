package ingest

import (
	"fmt"

	"github.com/yungbote/evidence-backend/internal/ingestion"
)

const (
	WorkflowName   = "evidence_ingest"
	ActivityIngest = "ingest_evidence"
)

type Input struct {
	Event ingestion.ObjectEvent `json:"event"`
}

type WorkflowInput struct {
	Event  ingestion.ObjectEvent `json:"event"`
	Policy Policy                `json:"policy"`
}

// WorkflowID is stable per object generation so a redelivered notification
// maps onto the workflow already started for it.
func WorkflowID(ev ingestion.ObjectEvent) string {
	id := ev.Name
	if ref, err := ev.Ref(); err == nil {
		id = ref.EvidenceID.String()
	}
	return fmt.Sprintf("ingest:%s:%d", id, ev.Generation)
}

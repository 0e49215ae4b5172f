package ingestion

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yungbote/evidence-backend/internal/domain"
)

const (
	EventObjectFinalize = "OBJECT_FINALIZE"
	EventObjectDelete   = "OBJECT_DELETE"
)

// ObjectEvent is a storage notification reduced to what the pipeline needs.
// It is also the Temporal activity input, so it must stay JSON-serializable.
type ObjectEvent struct {
	EventType   string `json:"eventType"`
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	Generation  int64  `json:"generation,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
	MessageID   string `json:"messageId,omitempty"`
}

// pushEnvelope is the Pub/Sub push subscription body.
type pushEnvelope struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// objectResource is the subset of the GCS object resource carried in data.
// Numeric fields arrive as strings.
type objectResource struct {
	Name        string `json:"name"`
	Bucket      string `json:"bucket"`
	Generation  string `json:"generation"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
}

var ErrMalformedEvent = errors.New("malformed storage notification")

// ParsePushEnvelope decodes a Pub/Sub push body carrying a GCS notification.
// Attributes win over the object resource when both name the object.
func ParsePushEnvelope(body []byte) (ObjectEvent, error) {
	var env pushEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ObjectEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	attrs := env.Message.Attributes
	ev := ObjectEvent{
		EventType: strings.TrimSpace(attrs["eventType"]),
		Bucket:    strings.TrimSpace(attrs["bucketId"]),
		Name:      strings.TrimSpace(attrs["objectId"]),
		MessageID: env.Message.MessageID,
	}
	if g, err := strconv.ParseInt(strings.TrimSpace(attrs["objectGeneration"]), 10, 64); err == nil {
		ev.Generation = g
	}

	if data := strings.TrimSpace(env.Message.Data); data != "" {
		raw, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return ObjectEvent{}, fmt.Errorf("%w: data is not base64: %v", ErrMalformedEvent, err)
		}
		var obj objectResource
		if err := json.Unmarshal(raw, &obj); err != nil {
			return ObjectEvent{}, fmt.Errorf("%w: data is not an object resource: %v", ErrMalformedEvent, err)
		}
		if ev.Name == "" {
			ev.Name = obj.Name
		}
		if ev.Bucket == "" {
			ev.Bucket = obj.Bucket
		}
		if ev.Generation == 0 {
			ev.Generation, _ = strconv.ParseInt(obj.Generation, 10, 64)
		}
		ev.ContentType = obj.ContentType
		ev.Size, _ = strconv.ParseInt(obj.Size, 10, 64)
	}

	if ev.Name == "" {
		return ObjectEvent{}, fmt.Errorf("%w: no object name", ErrMalformedEvent)
	}
	if ev.EventType == "" {
		ev.EventType = EventObjectFinalize
	}
	return ev, nil
}

// Ref decodes the correlation key from the object name. Derived output and
// foreign paths return domain.ErrNotEvidencePath.
func (e ObjectEvent) Ref() (domain.BlobRef, error) {
	return domain.ParseBlobPath(e.Name)
}

// Triggers reports whether the event should start ingestion.
func (e ObjectEvent) Triggers() bool {
	if !strings.EqualFold(e.EventType, EventObjectFinalize) {
		return false
	}
	_, err := e.Ref()
	return err == nil
}

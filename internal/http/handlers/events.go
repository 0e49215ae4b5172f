package handlers

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/http/response"
	"github.com/yungbote/evidence-backend/internal/ingestion"
	"github.com/yungbote/evidence-backend/internal/platform/apierr"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

const maxPushBodyBytes = 1 << 20

// EventHandler receives storage notifications from a Pub/Sub push
// subscription. A 2xx acks the message; anything else makes Pub/Sub redeliver.
type EventHandler struct {
	log        *logger.Logger
	dispatcher ingestion.Dispatcher
	pushToken  string
}

func NewEventHandler(log *logger.Logger, dispatcher ingestion.Dispatcher, pushToken string) *EventHandler {
	return &EventHandler{
		log:        log.With("handler", "EventHandler"),
		dispatcher: dispatcher,
		pushToken:  strings.TrimSpace(pushToken),
	}
}

// POST /internal/events/storage?token=
func (h *EventHandler) StorageEvent(c *gin.Context) {
	if h.pushToken != "" && subtle.ConstantTimeCompare([]byte(c.Query("token")), []byte(h.pushToken)) != 1 {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("invalid push token"))
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPushBodyBytes))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	ev, err := ingestion.ParsePushEnvelope(body)
	if err != nil {
		// Redelivering a malformed message cannot help.
		h.log.Warn("Dropping malformed storage notification", "error", err)
		c.Status(http.StatusNoContent)
		return
	}
	if _, err := ev.Ref(); err != nil {
		if !strings.HasPrefix(ev.Name, domain.DerivedRoot+"/") {
			h.log.Warn("Dropping notification for non-evidence object", "object", ev.Name, "error", err)
		}
		c.Status(http.StatusNoContent)
		return
	}

	if err := h.dispatcher.Dispatch(c.Request.Context(), ev); err != nil {
		if apierr.IsKind(err, apierr.KindValidation) {
			h.log.Warn("Ingestion failed permanently", "object", ev.Name, "error", err)
			c.Status(http.StatusNoContent)
			return
		}
		response.RespondAppError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/evidence-backend/internal/platform/apierr"
	"github.com/yungbote/evidence-backend/internal/platform/ctxutil"
	"github.com/yungbote/evidence-backend/internal/platform/logger"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAppError maps an error onto its HTTP status. Upstream, timeout and
// unclassified errors are logged in full and answered with a generic message.
func RespondAppError(c *gin.Context, log *logger.Logger, err error) {
	status, body := Render(err)
	if status >= http.StatusInternalServerError && log != nil {
		fields := append([]interface{}{"path", c.FullPath(), "status", status, "error", err}, ctxutil.LogFields(c.Request.Context())...)
		if ae, ok := apierr.As(err); ok && ae.UpstreamStatus != 0 {
			fields = append(fields, "upstream_status", ae.UpstreamStatus, "upstream_code", ae.UpstreamCode)
		}
		log.Error("Request failed", fields...)
	}
	c.AbortWithStatusJSON(status, body)
}

// Render returns the status and envelope for err without writing them.
func Render(err error) (int, ErrorEnvelope) {
	ae, ok := apierr.As(err)
	if !ok {
		return http.StatusInternalServerError, envelope("internal error", "internal", "")
	}
	switch apierr.KindOf(err) {
	case apierr.KindValidation:
		return http.StatusBadRequest, envelope(ae.Error(), ae.Code, "")
	case apierr.KindNotFound:
		return http.StatusNotFound, envelope(ae.Error(), ae.Code, "")
	case apierr.KindUnauthenticated:
		return http.StatusUnauthorized, envelope("authentication required", "unauthenticated", "")
	case apierr.KindAuthorization:
		return http.StatusForbidden, envelope("forbidden", "forbidden", string(ae.Reason))
	case apierr.KindConflict:
		return http.StatusConflict, envelope(ae.Error(), ae.Code, "")
	case apierr.KindUpstream:
		return http.StatusBadGateway, envelope("a backing service failed", orDefault(ae.Code, "upstream_error"), "")
	case apierr.KindTimeout:
		return http.StatusGatewayTimeout, envelope("a backing service timed out", orDefault(ae.Code, "timeout"), "")
	}
	return http.StatusInternalServerError, envelope("internal error", "internal", "")
}

func envelope(msg, code, reason string) ErrorEnvelope {
	return ErrorEnvelope{Error: APIError{Message: msg, Code: code, Reason: reason}}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

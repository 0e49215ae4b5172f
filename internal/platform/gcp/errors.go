package gcp

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/evidence-backend/internal/platform/apierr"
)

// UpstreamDetails extracts the status and code a Google API reported, from
// either the JSON (googleapi.Error) or the gRPC transport.
func UpstreamDetails(err error) (int, string) {
	if err == nil {
		return 0, ""
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		code := ""
		if len(gerr.Errors) > 0 {
			code = gerr.Errors[0].Reason
		}
		return gerr.Code, code
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return httpStatusFromCode(st.Code()), st.Code().String()
	}
	return 0, ""
}

// AsUpstream classifies a failure from a Google service. Already classified
// errors pass through and deadline expiry becomes a timeout.
func AsUpstream(service string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apierr.As(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apierr.Timeout(service+"_timeout", err)
	}
	if st, ok := status.FromError(err); ok && st.Code() == codes.DeadlineExceeded {
		return apierr.Timeout(service+"_timeout", err)
	}
	upStatus, upCode := UpstreamDetails(err)
	return apierr.Upstream(service, upStatus, upCode, err)
}

func httpStatusFromCode(c codes.Code) int {
	switch c {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Canceled:
		return 499
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

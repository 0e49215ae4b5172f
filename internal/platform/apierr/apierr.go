package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers that must branch on failure type.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindUnauthenticated Kind = "unauthenticated"
	KindAuthorization   Kind = "authorization"
	KindConflict        Kind = "conflict"
	KindUpstream        Kind = "upstream"
	KindTimeout         Kind = "timeout"
	KindInternal        Kind = "internal"
)

// Reason subdivides KindAuthorization.
type Reason string

const (
	ReasonMissingRole                 Reason = "missing_role"
	ReasonWrongDepartment             Reason = "wrong_department"
	ReasonMissingDepartmentAssignment Reason = "missing_department_assignment"
)

type Error struct {
	Kind   Kind
	Status int
	Code   string
	Reason Reason

	// Populated for KindUpstream when the backing service reported them.
	UpstreamStatus int
	UpstreamCode   string

	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Kind: kindForStatus(status), Status: status, Code: code, Err: err}
}

func Validation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Code: code, Err: errors.New(msg)}
}

func NotFound(code, msg string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Code: code, Err: errors.New(msg)}
}

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Status: http.StatusUnauthorized, Code: "unauthorized", Err: errors.New(msg)}
}

func Forbidden(reason Reason) *Error {
	return &Error{
		Kind:   KindAuthorization,
		Status: http.StatusForbidden,
		Code:   string(reason),
		Reason: reason,
		Err:    fmt.Errorf("forbidden: %s", reason),
	}
}

func Conflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusConflict, Code: code, Err: errors.New(msg)}
}

// Upstream wraps a failure from a backing store or extraction service.
// upstreamStatus and upstreamCode are zero values when the service did not report them.
func Upstream(service string, upstreamStatus int, upstreamCode string, err error) *Error {
	return &Error{
		Kind:           KindUpstream,
		Status:         http.StatusBadGateway,
		Code:           service + "_failed",
		UpstreamStatus: upstreamStatus,
		UpstreamCode:   upstreamCode,
		Err:            fmt.Errorf("%s: %w", service, err),
	}
}

func Timeout(code string, err error) *Error {
	return &Error{Kind: KindTimeout, Status: http.StatusGatewayTimeout, Code: code, Err: err}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err, KindInternal for anything unclassified.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		if e.Kind != "" {
			return e.Kind
		}
		return kindForStatus(e.Status)
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ReasonOf returns the authorization reason carried by err, if any.
func ReasonOf(err error) Reason {
	if e, ok := As(err); ok {
		return e.Reason
	}
	return ""
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusUnauthorized:
		return KindUnauthenticated
	case http.StatusForbidden:
		return KindAuthorization
	case http.StatusConflict:
		return KindConflict
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return KindUpstream
	case http.StatusGatewayTimeout:
		return KindTimeout
	default:
		return KindInternal
	}
}

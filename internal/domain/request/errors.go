// Package request defines the lifecycle error taxonomy surfaced to callers
// of transition operations. Callers switch on Kind rather than comparing
// strings; Code is the stable identifier exposed over the API.
package request

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a lifecycle error.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindIllegalTransition
	KindValidation
	KindTechnicianNotFound
)

// Error is a lifecycle error with a stable machine-readable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NotFound reports that the request does not exist or is soft-deleted.
func NotFound(id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    "REQUEST_NOT_FOUND",
		Message: fmt.Sprintf("request %s not found", id),
	}
}

// Forbidden reports that the actor is not authorized for the action.
func Forbidden(action, actorID string) *Error {
	return &Error{
		Kind:    KindForbidden,
		Code:    "FORBIDDEN",
		Message: fmt.Sprintf("actor %s may not %s this request", actorID, action),
	}
}

// IllegalTransition reports that the current status does not permit the
// action. It also covers the stale-state case where a concurrent transition
// won the compare-and-set race.
func IllegalTransition(action, status string) *Error {
	return &Error{
		Kind:    KindIllegalTransition,
		Code:    "CANNOT_" + strings.ToUpper(action),
		Message: fmt.Sprintf("cannot %s request in status %s", action, status),
	}
}

// Validation reports a malformed or missing action payload.
func Validation(msg string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    "VALIDATION_ERROR",
		Message: msg,
	}
}

// TechnicianNotFound reports that the technician referenced by an assign
// payload does not exist or is unavailable.
func TechnicianNotFound(id string) *Error {
	return &Error{
		Kind:    KindTechnicianNotFound,
		Code:    "TECHNICIAN_NOT_FOUND",
		Message: fmt.Sprintf("technician %s not found or unavailable", id),
	}
}

// KindOf extracts the Kind from err, or KindUnknown for non-lifecycle
// errors (persistence failures and the like).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf extracts the stable code from err, or empty for non-lifecycle
// errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

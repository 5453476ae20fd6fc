// Package apperr defines the error taxonomy shared by every domain package.
// Callers branch on the Kind (and, for gate failures, the Missing list) so
// the transport layer can map each failure class to a distinct response.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindQuotaExceeded
	KindForbidden
	KindValidation
	KindStateMachineViolation
	KindGateIncomplete
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindStateMachineViolation:
		return "state_machine_violation"
	case KindGateIncomplete:
		return "gate_incomplete"
	default:
		return "internal"
	}
}

// Error is the concrete error type returned by all domain services. Missing
// is populated for gate and validation failures that can name the unmet
// checklist items or readiness requirements.
type Error struct {
	Kind    Kind
	Msg     string
	Missing []string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Msg: entity + " not found"}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Msg: msg}
}

func QuotaExceeded(msg string) *Error {
	return &Error{Kind: KindQuotaExceeded, Msg: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func StateMachine(msg string) *Error {
	return &Error{Kind: KindStateMachineViolation, Msg: msg}
}

// GateIncomplete reports a blocked lifecycle gate together with the item
// names that are still unmet.
func GateIncomplete(msg string, missing []string) *Error {
	return &Error{Kind: KindGateIncomplete, Msg: msg, Missing: missing}
}

// Internal wraps an infrastructure failure (store unavailable, scan error).
// The cause is preserved for logging but callers only see the generic kind.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Msg: msg, cause: cause}
}

// KindOf extracts the Kind from err, defaulting to KindInternal for
// anything that is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// MissingItems returns the unmet item names carried by err, if any.
func MissingItems(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Missing
	}
	return nil
}

// ToHTTP returns the response status and JSON body for err. Gate failures
// include the missing item names so clients can show what is still unmet.
func ToHTTP(err error) (int, any) {
	status := HTTPStatus(err)
	var e *Error
	if errors.As(err, &e) {
		body := map[string]any{"error": e.Kind.String(), "message": e.Msg}
		if len(e.Missing) > 0 {
			body["missing"] = e.Missing
		}
		return status, body
	}
	return status, map[string]any{"error": KindInternal.String(), "message": err.Error()}
}

// HTTPStatus maps an error kind to the HTTP status used by handlers.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindStateMachineViolation:
		return http.StatusConflict
	case KindQuotaExceeded:
		return http.StatusTooManyRequests
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindGateIncomplete:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

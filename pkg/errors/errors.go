// Package errors defines the failures a contact resolution can end in. Every
// error names the field or target record it concerns so callers can retry or
// pick a different branch.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
)

type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindStoreWriteFailure Kind = "store_write_failure"
	KindStoreReadFailure  Kind = "store_read_failure"
	KindStaleMatches      Kind = "stale_matches"
	KindInvalidTransition Kind = "invalid_transition"
	KindLockTimeout       Kind = "lock_timeout"
)

type ContactError struct {
	Kind      Kind
	Message   string
	Field     string
	TargetID  string
	Operation string
	cause     error
}

func (e *ContactError) Error() string {
	if e.cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.cause)
}

func (e *ContactError) Unwrap() error {
	return e.cause
}

// StatusCode maps the error kind onto the HTTP status the API answers with.
func (e *ContactError) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindStaleMatches, KindInvalidTransition:
		return http.StatusConflict
	case KindStoreWriteFailure, KindStoreReadFailure, KindLockTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (e *ContactError) ToHTTPError() *httperror.HTTPError {
	message := e.Error()
	// driver details stay in the logs
	if e.StatusCode() >= http.StatusInternalServerError {
		message = e.Message
	}

	httpErr := httperror.NewHTTPError(e.StatusCode(), message).AddMetaValue("kind", string(e.Kind))
	if e.Field != "" {
		httpErr = httpErr.AddMetaValue("field", e.Field)
	}
	if e.TargetID != "" {
		httpErr = httpErr.AddMetaValue("target_id", e.TargetID)
	}
	if e.Operation != "" {
		httpErr = httpErr.AddMetaValue("operation", e.Operation)
	}
	return httpErr
}

func NewValidationError(field, format string, args ...any) *ContactError {
	return &ContactError{
		Kind:    KindValidation,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
	}
}

func NewNotFoundError(id string) *ContactError {
	return &ContactError{
		Kind:     KindNotFound,
		Message:  fmt.Sprintf("contact %s does not exist", id),
		TargetID: id,
	}
}

// NewSessionNotFoundError reports an unknown or expired resolution session
func NewSessionNotFoundError(id string) *ContactError {
	return &ContactError{
		Kind:     KindNotFound,
		Message:  fmt.Sprintf("resolution %s does not exist or has expired", id),
		Field:    "resolution_id",
		TargetID: id,
	}
}

func NewConflictError(id string) *ContactError {
	return &ContactError{
		Kind:     KindConflict,
		Message:  fmt.Sprintf("contact %s already exists", id),
		TargetID: id,
	}
}

func NewStoreWriteFailure(operation, id string, cause error) *ContactError {
	return &ContactError{
		Kind:      KindStoreWriteFailure,
		Message:   fmt.Sprintf("failed to %s contact", operation),
		TargetID:  id,
		Operation: operation,
		cause:     cause,
	}
}

func NewStoreReadFailure(operation string, cause error) *ContactError {
	return &ContactError{
		Kind:      KindStoreReadFailure,
		Message:   fmt.Sprintf("failed to %s contacts", operation),
		Operation: operation,
		cause:     cause,
	}
}

func NewStaleMatchesError(ids []string) *ContactError {
	return &ContactError{
		Kind:     KindStaleMatches,
		Message:  fmt.Sprintf("new matching contacts were saved since matching: %s", strings.Join(ids, ", ")),
		TargetID: strings.Join(ids, ","),
	}
}

func NewInvalidTransitionError(state, action string) *ContactError {
	return &ContactError{
		Kind:      KindInvalidTransition,
		Message:   fmt.Sprintf("cannot %s a resolution in state %s", action, state),
		Operation: action,
	}
}

// NewLockTimeoutError reports that another resolution held key for too long.
// Retrying later is safe, nothing was written.
func NewLockTimeoutError(key string, cause error) *ContactError {
	return &ContactError{
		Kind:      KindLockTimeout,
		Message:   "timed out waiting for another resolution to finish",
		Operation: "acquire_lock",
		TargetID:  key,
		cause:     cause,
	}
}

// KindOf returns the kind of the first ContactError in err's chain, or "".
func KindOf(err error) Kind {
	var contactErr *ContactError
	if stderrors.As(err, &contactErr) {
		return contactErr.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func IsNotFound(err error) bool {
	return Is(err, KindNotFound)
}

func IsValidation(err error) bool {
	return Is(err, KindValidation)
}

func IsStoreWriteFailure(err error) bool {
	return Is(err, KindStoreWriteFailure)
}

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so clones and wraps of a
// predefined error still match it with errors.Is.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// WrapAs wraps err using the code and status of a predefined error.
func WrapAs(err error, kind *Error, message string) *Error {
	if message == "" {
		message = kind.Message
	}
	return Wrap(err, kind.Code, kind.Status, message)
}

// Predefined errors for common scenarios.
var (
	ErrValidation = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal   = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrDisabled   = New("FEATURE_DISABLED", http.StatusServiceUnavailable, "feature disabled")

	// Portal authentication failures.
	ErrPortalInvalidCredentials = New("PORTAL_INVALID_CREDENTIALS", http.StatusUnauthorized, "portal login failed")
	ErrPortalTransport          = New("PORTAL_UNAVAILABLE", http.StatusBadGateway, "portal login request failed")
	ErrPortalMalformedResponse  = New("PORTAL_MALFORMED_RESPONSE", http.StatusBadGateway, "failed to parse portal login response")

	// Portal query failures.
	ErrPortalGraphQL        = New("PORTAL_GRAPHQL_ERROR", http.StatusBadGateway, "portal query returned errors")
	ErrPortalQueryTransport = New("PORTAL_QUERY_UNAVAILABLE", http.StatusBadGateway, "portal query request failed")
	ErrPortalQueryMalformed = New("PORTAL_QUERY_MALFORMED", http.StatusBadGateway, "failed to parse portal query response")

	// ErrPortalTimeout is attached alongside a transport error when the deadline expired.
	ErrPortalTimeout = New("PORTAL_TIMEOUT", http.StatusGatewayTimeout, "portal request timed out")

	ErrEnrichment  = New("ENRICHMENT_FAILED", http.StatusBadGateway, "document enrichment failed")
	ErrLedgerWrite = New("LEDGER_WRITE_FAILED", http.StatusBadGateway, "ledger write failed")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Package errors defines the error codes the API returns. Every code maps to
// exactly one HTTP status; handlers never pick a status themselves.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

// Session lifecycle
const (
	ErrCodeIllegalTransition        ErrorCode = "ILLEGAL_TRANSITION"
	ErrCodeConflictingActiveSession ErrorCode = "CONFLICTING_ACTIVE_SESSION"
	ErrCodeSessionNotFound          ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSubjectNotResolved       ErrorCode = "SUBJECT_NOT_RESOLVED"
	ErrCodeNotFound                 ErrorCode = "NOT_FOUND"
)

// Request shape
const (
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"
	ErrCodeBodyTooLarge    ErrorCode = "BODY_TOO_LARGE"
)

// Caller
const (
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidToken      ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired      ErrorCode = "TOKEN_EXPIRED"
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
)

// Server side
const (
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
)

var statusByCode = map[ErrorCode]int{
	ErrCodeIllegalTransition:        http.StatusConflict,
	ErrCodeConflictingActiveSession: http.StatusConflict,
	ErrCodeSessionNotFound:          http.StatusNotFound,
	ErrCodeSubjectNotResolved:       http.StatusNotFound,
	ErrCodeNotFound:                 http.StatusNotFound,
	ErrCodeValidation:               http.StatusBadRequest,
	ErrCodeInvalidInput:             http.StatusBadRequest,
	ErrCodeMissingRequired:          http.StatusBadRequest,
	ErrCodeBodyTooLarge:             http.StatusRequestEntityTooLarge,
	ErrCodeUnauthorized:             http.StatusUnauthorized,
	ErrCodeInvalidToken:             http.StatusUnauthorized,
	ErrCodeTokenExpired:             http.StatusUnauthorized,
	ErrCodeRateLimitExceeded:        http.StatusTooManyRequests,
}

// HTTPStatus is 500 for any code without an explicit mapping.
func (c ErrorCode) HTTPStatus() int {
	if status, ok := statusByCode[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// AppError is what a handler turns into a JSON error body. The cause is kept
// for logs and never serialized.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, cause: cause}
}

// IllegalTransition reports an event that the session's current status does
// not accept. Details carry both so a client can re-sync.
func IllegalTransition(from, event string) *AppError {
	return New(ErrCodeIllegalTransition, fmt.Sprintf("Cannot %s a session that is %s", event, from)).
		WithDetails(map[string]string{"from": from, "event": event})
}

// ConflictingActiveSession points the caller at the live session that blocks
// the request.
func ConflictingActiveSession(activeSessionID string) *AppError {
	return New(ErrCodeConflictingActiveSession, "Another study session is already in progress or paused").
		WithDetails(map[string]string{"activeSessionId": activeSessionID})
}

// SessionNotFound also covers sessions owned by someone else.
func SessionNotFound() *AppError {
	return New(ErrCodeSessionNotFound, "Study session not found")
}

func SubjectNotResolved(subjectCode string) *AppError {
	return New(ErrCodeSubjectNotResolved, fmt.Sprintf("Subject %s not found for this student profile", subjectCode))
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func BodyTooLarge(maxBytes int64) *AppError {
	return New(ErrCodeBodyTooLarge, "Request body too large").
		WithDetails(map[string]int64{"maxBytes": maxBytes})
}

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func InvalidToken(message string) *AppError {
	return New(ErrCodeInvalidToken, message)
}

func TokenExpired() *AppError {
	return New(ErrCodeTokenExpired, "Token has expired")
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode is ErrCodeInternal for errors that carry no code.
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

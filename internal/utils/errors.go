package utils

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Origin  error  `json:"-"` // Original error that caused this error, if any
}

func (appErr *AppError) Error() string {
	if appErr.Origin != nil {
		return appErr.Message + ": " + appErr.Origin.Error()
	}
	return appErr.Message
}

// Unwrap exposes the original error to errors.Is / errors.As.
func (appErr *AppError) Unwrap() error {
	return appErr.Origin
}

// Is matches any *AppError carrying the same code, so sentinel values below
// can be used with errors.Is.
func (appErr *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == appErr.Code
}

// Standard error codes for the application
const (
	// Resource errors
	ErrNotFound     = "NOT_FOUND"
	ErrDuplicate    = "DUPLICATE"
	ErrInvalidInput = "INVALID_INPUT"
	ErrConflict     = "CONFLICT" // Optimistic write lost a compare-and-swap

	// Authentication/Authorization errors
	ErrUnauthorized = "UNAUTHORIZED"
	ErrForbidden    = "FORBIDDEN" // User is authenticated but doesn't have permission
	ErrInvalidToken = "INVALID_TOKEN"

	// Reputation precondition errors
	ErrPostNotFound   = "POST_NOT_FOUND"
	ErrAlreadyReacted = "ALREADY_REACTED"
	ErrNotReacted     = "NOT_REACTED"
	ErrWrongPolarity  = "WRONG_POLARITY"
	ErrDuplicateLink  = "DUPLICATE_LINK"
	ErrQuotaExceeded  = "QUOTA_EXCEEDED"
	ErrLinkNotFound   = "LINK_NOT_FOUND"

	// Actor communication errors
	ErrActorTimeout    = "ACTOR_TIMEOUT"
	ErrMessageRejected = "MESSAGE_REJECTED"

	// Rate limiting
	ErrTooManyRequests = "TOO_MANY_REQUESTS"

	ErrDatabase = "database_error"
)

// Sentinels for errors.Is comparisons.
var (
	PostNotFound   = &AppError{Code: ErrPostNotFound, Message: "Freet not found"}
	AlreadyReacted = &AppError{Code: ErrAlreadyReacted, Message: "Already reacted"}
	NotReacted     = &AppError{Code: ErrNotReacted, Message: "Not reacted"}
	WrongPolarity  = &AppError{Code: ErrWrongPolarity, Message: "Wrong polarity"}
	DuplicateLink  = &AppError{Code: ErrDuplicateLink, Message: "Duplicate link"}
	QuotaExceeded  = &AppError{Code: ErrQuotaExceeded, Message: "Link quota exceeded"}
	LinkNotFound   = &AppError{Code: ErrLinkNotFound, Message: "Link not found"}
	Conflict       = &AppError{Code: ErrConflict, Message: "Concurrent modification"}
)

// Error creation helper functions
func NewAppError(code string, message string, originalErr error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Origin:  originalErr,
	}
}

func NewPostNotFoundError(freetID string) *AppError {
	return &AppError{
		Code:    ErrPostNotFound,
		Message: "Freet not found: " + freetID,
	}
}

func NewUnauthorizedError(reason string) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "Unauthorized: " + reason,
	}
}

func NewQuotaExceededError(quota int) *AppError {
	return &AppError{
		Code:    ErrQuotaExceeded,
		Message: fmt.Sprintf("At most %d evidence links may be attached per polarity", quota),
	}
}

func NewActorTimeoutError(actorName string) *AppError {
	return &AppError{
		Code:    ErrActorTimeout,
		Message: "Actor communication timeout: " + actorName,
	}
}

// NewDatabaseError wraps a storage failure unless it already is an AppError.
func NewDatabaseError(message string, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return NewAppError(ErrDatabase, message, err)
}

// AsAppError converts any error into an *AppError, defaulting to ErrDatabase.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewAppError(ErrDatabase, "internal error", err)
}

// Helper method to check if an error is of a specific type
func IsErrorCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Helper method to check if an error is related to authentication
func IsAuthError(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == ErrUnauthorized ||
			appErr.Code == ErrForbidden ||
			appErr.Code == ErrInvalidToken
	}
	return false
}

// IsPrecondition reports whether err is one of the reputation precondition
// failures. These are reported to the caller as-is and never retried.
func IsPrecondition(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case ErrPostNotFound, ErrAlreadyReacted, ErrNotReacted, ErrWrongPolarity,
		ErrDuplicateLink, ErrQuotaExceeded, ErrLinkNotFound,
		ErrForbidden, ErrInvalidInput:
		return true
	}
	return false
}

// AppErrorToHTTPStatus converts an AppError code to an HTTP status code.
func AppErrorToHTTPStatus(errorCode string) int {
	switch errorCode {
	case ErrNotFound, ErrPostNotFound, ErrLinkNotFound:
		return http.StatusNotFound
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrUnauthorized, ErrInvalidToken:
		return http.StatusUnauthorized
	case ErrForbidden, ErrNotReacted, ErrWrongPolarity, ErrQuotaExceeded:
		return http.StatusForbidden
	case ErrDuplicate, ErrAlreadyReacted, ErrDuplicateLink, ErrConflict:
		return http.StatusConflict
	case ErrTooManyRequests:
		return http.StatusTooManyRequests
	case ErrActorTimeout:
		return http.StatusGatewayTimeout
	case ErrDatabase, ErrMessageRejected:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

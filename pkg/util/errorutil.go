package util

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so wrapped variants of
// the sentinels below still satisfy errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// Account flow error kinds.
var (
	ErrDuplicateAccount   = NewDomainError("DUPLICATE_ACCOUNT", "an account with this email already exists", http.StatusConflict, nil)
	ErrMailDeliveryFailed = NewDomainError("MAIL_DELIVERY_FAILED", "verification code could not be delivered", http.StatusBadGateway, nil)
	ErrNotFound           = NewDomainError("NOT_FOUND", "account not found", http.StatusNotFound, nil)
	ErrNoPendingChallenge = NewDomainError("NO_PENDING_CHALLENGE", "no verification code pending", http.StatusConflict, nil)
	ErrChallengeExpired   = NewDomainError("CHALLENGE_EXPIRED", "verification code expired", http.StatusGone, nil)
	ErrChallengeMismatch  = NewDomainError("CHALLENGE_MISMATCH", "verification code does not match", http.StatusBadRequest, nil)
	ErrInvalidCredentials = NewDomainError("INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, nil)
	ErrNotVerified        = NewDomainError("NOT_VERIFIED", "account email not verified", http.StatusForbidden, nil)
	ErrInvalidToken       = NewDomainError("INVALID_TOKEN", "invalid or expired token", http.StatusUnauthorized, nil)
	ErrMissingCredential  = NewDomainError("MISSING_CREDENTIAL", "missing or malformed bearer credential", http.StatusUnauthorized, nil)
	ErrUnknownSubject     = NewDomainError("UNKNOWN_SUBJECT", "token subject no longer exists", http.StatusUnauthorized, nil)
	ErrConfiguration      = NewDomainError("CONFIGURATION_ERROR", "service misconfigured", http.StatusInternalServerError, nil)
)

// WithCause returns a copy of the sentinel wrapping err.
func WithCause(sentinel *DomainError, err error) error {
	clone := *sentinel
	clone.Err = err
	return &clone
}

// NewConfigurationError reports invalid runtime configuration.
func NewConfigurationError(message string) error {
	return NewDomainError(ErrConfiguration.Code, message, http.StatusInternalServerError, nil)
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

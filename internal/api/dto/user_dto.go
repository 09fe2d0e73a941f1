package dto

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/spec-kit/advisory-service/internal/auth"
	"github.com/spec-kit/advisory-service/internal/domain"
	apperrors "github.com/spec-kit/advisory-service/pkg/util"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

// Validate checks the registration payload.
func (r RegisterRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validationError(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.FullName, validation.Length(0, 200)),
		validation.Field(&r.Role, validation.Length(0, 50)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, auth.MaxPasswordBytes)),
	))
}

// VerifyRequest payload for OTP confirmation.
type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Validate checks the verification payload. The code itself is judged by the service.
func (r VerifyRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validationError(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	))
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the login payload.
func (r LoginRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validationError(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	))
}

// RegistrationResponse acknowledges a pending verification.
type RegistrationResponse struct {
	Status        string    `json:"status"`
	Email         string    `json:"email"`
	CodeExpiresAt time.Time `json:"code_expires_at"`
}

// AuthResponse standard response for token issuing endpoints.
type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewAuthResponse maps an issued token.
func NewAuthResponse(token *domain.AccessToken) AuthResponse {
	return AuthResponse{
		AccessToken: token.Token,
		TokenType:   domain.TokenTypeBearer,
		ExpiresAt:   token.ExpiresAt,
	}
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	details := make(map[string]any, len(fieldErrs))
	for field, fieldErr := range fieldErrs {
		details[field] = fieldErr.Error()
	}
	return apperrors.NewValidationError("invalid request payload", details)
}

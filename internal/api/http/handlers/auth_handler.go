package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/advisory-service/internal/api/dto"
	"github.com/spec-kit/advisory-service/internal/service"
	apperrors "github.com/spec-kit/advisory-service/pkg/util"
)

const statusVerificationPending = "verification_pending"

// AuthHandler exposes registration, verification and login.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload(err)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	ack, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"data": dto.RegistrationResponse{
			Status:        statusVerificationPending,
			Email:         ack.Email,
			CodeExpiresAt: ack.CodeExpiresAt,
		},
	})
}

// Verify handles POST /auth/verify.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req dto.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload(err)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	token, err := h.auth.Verify(c.UserContext(), req.Email, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAuthResponse(token)})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload(err)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	token, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAuthResponse(token)})
}

func invalidPayload(err error) error {
	return apperrors.NewValidationError("invalid payload", map[string]any{"body": err.Error()})
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/advisory-service/internal/auth"
	apperrors "github.com/spec-kit/advisory-service/pkg/util"
)

// UsersHandler exposes endpoints for the authenticated account.
type UsersHandler struct{}

// NewUsersHandler constructs handler.
func NewUsersHandler() *UsersHandler {
	return &UsersHandler{}
}

// Me handles GET /users/me. It must run behind the guard.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.ErrMissingCredential
	}
	return c.JSON(fiber.Map{"data": principal})
}

package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dlfdkwl/discord-tiket/internal/api/dto"
	"github.com/dlfdkwl/discord-tiket/internal/auth"
	apperrors "github.com/dlfdkwl/discord-tiket/pkg/util"
)

// AuthHandler exchanges the shared staff secret for API tokens.
type AuthHandler struct {
	tokens     *auth.TokenManager
	secretHash string
}

// NewAuthHandler constructs handler. secretHash is the bcrypt hash of the
// staff secret; when empty, token issuance is disabled.
func NewAuthHandler(tokens *auth.TokenManager, secretHash string) *AuthHandler {
	return &AuthHandler{tokens: tokens, secretHash: secretHash}
}

// IssueToken POST /auth/staff/token.
func (h *AuthHandler) IssueToken(c *fiber.Ctx) error {
	if h.secretHash == "" {
		return apperrors.NewUnauthorized("staff authentication is not configured")
	}
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := auth.CompareSecret(h.secretHash, req.Secret); err != nil {
		return apperrors.NewUnauthorized("invalid secret")
	}

	token, expiresAt, err := h.tokens.GenerateToken("staff")
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": dto.TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	}})
}

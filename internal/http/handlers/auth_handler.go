package handlers

import (
	"crypto/subtle"

	"github.com/askledger/backend/internal/auth"
	"github.com/askledger/backend/internal/config"
	"github.com/askledger/backend/internal/http/dto"
	"github.com/askledger/backend/internal/rbac"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthHandler exchanges a pre-verified identity for a JWT. Who verified that
// identity is a deployment concern; this endpoint is guarded by a shared
// secret and is how operators and gateways mint caller tokens.
type AuthHandler struct {
	cfg *config.Config
	log *zap.Logger
}

func NewAuthHandler(cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, log: log}
}

func (h *AuthHandler) IssueToken(c *fiber.Ctx) error {
	if h.cfg.TokenIssueSecret == "" {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "token endpoint disabled"})
	}
	provided := c.Get("X-Token-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.cfg.TokenIssueSecret)) != 1 {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "invalid token secret"})
	}

	var req dto.IssueTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil || userID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid user_id"})
	}

	roles := []string{rbac.RoleRequester}
	if h.cfg.IsResponder(userID) {
		roles = append(roles, rbac.RoleResponder)
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, userID, roles, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("token generation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.TokenResponse{Token: token, Roles: roles})
}

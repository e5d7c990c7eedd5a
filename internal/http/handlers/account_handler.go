package handlers

import (
	"fmt"

	"github.com/askledger/backend/internal/config"
	"github.com/askledger/backend/internal/http/dto"
	"github.com/askledger/backend/internal/ledger"
	"github.com/askledger/backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AccountHandler struct {
	ledger *ledger.Ledger
	cfg    *config.Config
	log    *zap.Logger
}

func NewAccountHandler(l *ledger.Ledger, cfg *config.Config, log *zap.Logger) *AccountHandler {
	return &AccountHandler{ledger: l, cfg: cfg, log: log}
}

func (h *AccountHandler) GetBalance(c *fiber.Ctx) error {
	actorID := middleware.GetUserID(c)
	balance, err := h.ledger.Balance(c.Context(), actorID)
	if err != nil {
		h.log.Error("get balance failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.BalanceResponse{UserID: actorID.String(), BalanceNano: balance})
}

// GetDepositInfo tells the caller where to send TON to top up their account.
// The deposit indexer matches the memo to credit the right balance.
func (h *AccountHandler) GetDepositInfo(c *fiber.Ctx) error {
	if h.cfg.TONHotWalletAddress == "" {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "deposits are not configured"})
	}

	actorID := middleware.GetUserID(c)
	return c.JSON(dto.DepositInfoResponse{
		WalletAddress: h.cfg.TONHotWalletAddress,
		Memo:          fmt.Sprintf("acct:%s", actorID.String()),
		Network:       h.cfg.TONNetwork,
	})
}

package handlers

import (
	"errors"
	"time"

	"github.com/askledger/backend/internal/http/dto"
	"github.com/askledger/backend/internal/ledger"
	"github.com/askledger/backend/internal/middleware"
	"github.com/askledger/backend/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RequestHandler struct {
	ledger *ledger.Ledger
	audit  *store.AuditRepo
	log    *zap.Logger
}

func NewRequestHandler(l *ledger.Ledger, audit *store.AuditRepo, log *zap.Logger) *RequestHandler {
	return &RequestHandler{ledger: l, audit: audit, log: log}
}

// statusForError maps the ledger taxonomy to HTTP codes. Clients branch on
// these; the mapping is part of the API contract.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ledger.ErrUnauthorized):
		return fiber.StatusForbidden
	case errors.Is(err, ledger.ErrNotExpired),
		errors.Is(err, ledger.ErrAlreadyFulfilled),
		errors.Is(err, ledger.ErrAlreadyReclaimed),
		errors.Is(err, ledger.ErrInvalidState):
		return fiber.StatusConflict
	case errors.Is(err, ledger.ErrInvalidArgument):
		return fiber.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.StatusPaymentRequired
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *RequestHandler) fail(c *fiber.Ctx, err error) error {
	code := statusForError(err)
	if code == fiber.StatusInternalServerError {
		h.log.Error("ledger operation failed", zap.Error(err))
		return c.Status(code).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.Status(code).JSON(dto.ErrorResponse{Error: err.Error()})
}

func (h *RequestHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "content is required"})
	}

	actorID := middleware.GetUserID(c)
	deadline := time.Unix(req.DeadlineUnix, 0).UTC()
	created, err := h.ledger.Create(c.Context(), actorID, req.Content, req.ContactInfo, deadline, req.DepositNano)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: created})
}

func (h *RequestHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request id"})
	}

	req, err := h.ledger.Get(c.Context(), id)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: req})
}

func (h *RequestHandler) ListMine(c *fiber.Ctx) error {
	actorID := middleware.GetUserID(c)
	requests, err := h.ledger.ListByRequester(c.Context(), actorID)
	if err != nil {
		h.log.Error("list requests failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: requests})
}

func (h *RequestHandler) Count(c *fiber.Ctx) error {
	n, err := h.ledger.Count(c.Context())
	if err != nil {
		h.log.Error("count requests failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: n})
}

func (h *RequestHandler) Fulfill(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request id"})
	}

	var req dto.FulfillRequestRequest
	if err := c.BodyParser(&req); err != nil || req.Fulfillment == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "fulfillment is required"})
	}

	actorID := middleware.GetUserID(c)
	if err := h.ledger.Fulfill(c.Context(), id, actorID, req.Fulfillment); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *RequestHandler) Reclaim(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request id"})
	}

	actorID := middleware.GetUserID(c)
	if err := h.ledger.Reclaim(c.Context(), id, actorID); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *RequestHandler) GetEvents(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request id"})
	}

	events, err := h.audit.GetByEntity(c.Context(), "request", id, 100, 0)
	if err != nil {
		h.log.Error("get request events failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: events})
}

func (h *RequestHandler) Stats(c *fiber.Ctx) error {
	count, err := h.ledger.Count(c.Context())
	if err != nil {
		h.log.Error("ledger stats failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	escrowed, err := h.ledger.TotalEscrowed(c.Context())
	if err != nil {
		h.log.Error("ledger stats failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.LedgerStatsResponse{RequestCount: count, EscrowedNano: escrowed})
}

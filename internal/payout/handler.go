package payout

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nexusplay/nexusplay/internal/httperr"
	"github.com/nexusplay/nexusplay/internal/ledger"
	"github.com/nexusplay/nexusplay/internal/money"
)

// Handler exposes payout HTTP endpoints for agents, affiliates and admins.
type Handler struct {
	service *Service
}

// NewHandler builds a payout HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type requestBody struct {
	Amount      money.Money `json:"amount"`
	Method      string      `json:"method"`
	Destination string      `json:"destination"`
}

type payoutResponse struct {
	ID        string          `json:"id"`
	Amount    money.Money     `json:"amount"`
	Status    string          `json:"status"`
	Metadata  ledger.Metadata `json:"metadata,omitempty"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

func toResponse(t ledger.Transaction) payoutResponse {
	return payoutResponse{
		ID:        t.ID,
		Amount:    t.Amount,
		Status:    string(t.Status),
		Metadata:  t.Metadata,
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: t.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Request submits a withdrawal for the authenticated party.
func (h *Handler) Request(c *fiber.Ctx) error {
	partyID, _ := c.Locals("user_id").(string)
	if partyID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req requestBody
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	entry, err := h.service.Request(c.UserContext(), RequestInput{
		PartyID:     partyID,
		Amount:      req.Amount,
		Method:      req.Method,
		Destination: req.Destination,
	})
	if err != nil {
		if errors.Is(err, ErrUnsupportedMethod) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return httperr.From(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(entry))
}

// History lists the authenticated party's withdrawals.
func (h *Handler) History(c *fiber.Ctx) error {
	partyID, _ := c.Locals("user_id").(string)
	if partyID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	entries, err := h.service.History(c.UserContext(), partyID, c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return httperr.From(err)
	}
	out := make([]payoutResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toResponse(e))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": out})
}

// Approve finalizes a pending withdrawal. Admin only.
func (h *Handler) Approve(c *fiber.Ctx) error {
	entry, err := h.service.Approve(c.UserContext(), c.Params("transactionId"))
	if err != nil {
		return httperr.From(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(entry))
}

type rejectBody struct {
	Reason string `json:"reason"`
}

// Reject refunds and closes a pending withdrawal. Admin only.
func (h *Handler) Reject(c *fiber.Ctx) error {
	var req rejectBody
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	entry, err := h.service.Reject(c.UserContext(), c.Params("transactionId"), req.Reason)
	if err != nil {
		return httperr.From(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(entry))
}

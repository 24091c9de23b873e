package commission

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/nexusplay/nexusplay/internal/httperr"
	"github.com/nexusplay/nexusplay/internal/ledger"
	"github.com/nexusplay/nexusplay/internal/money"
)

// Handler exposes commission HTTP endpoints.
type Handler struct {
	engine *Engine
}

// NewHandler builds a commission HTTP handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type accrueRequest struct {
	AgentID       string      `json:"agent_id"`
	SourcePartyID string      `json:"source_party_id"`
	Revenue       money.Money `json:"revenue"`
	Rate          string      `json:"rate"`
	Type          string      `json:"type"`
	FlatAmount    money.Money `json:"flat_amount"`
	DedupKey      string      `json:"dedup_key"`
}

type commissionResponse struct {
	ID            string      `json:"id"`
	AgentID       string      `json:"agent_id"`
	SourcePartyID string      `json:"source_party_id,omitempty"`
	Amount        money.Money `json:"amount"`
	Revenue       money.Money `json:"revenue"`
	Rate          string      `json:"rate"`
	Type          string      `json:"type"`
	Status        string      `json:"status"`
	CreatedAt     string      `json:"created_at"`
}

func toResponse(c ledger.Commission) commissionResponse {
	return commissionResponse{
		ID:            c.ID,
		AgentID:       c.AgentID,
		SourcePartyID: c.SourcePartyID,
		Amount:        c.Amount,
		Revenue:       c.Revenue,
		Rate:          c.Rate.String(),
		Type:          string(c.Type),
		Status:        string(c.Status),
		CreatedAt:     c.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Accrue records a commission for a qualifying activity event. Reserved for
// the activity-tracking subsystem, admin only.
func (h *Handler) Accrue(c *fiber.Ctx) error {
	var req accrueRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	rate := decimal.Zero
	if req.Rate != "" {
		parsed, err := decimal.NewFromString(req.Rate)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid rate")
		}
		rate = parsed
	}

	typ := ledger.CommissionType(req.Type)
	if typ == "" {
		typ = ledger.CommissionRevenueShare
	}

	commission, err := h.engine.Accrue(c.UserContext(), AccrueInput{
		AgentID:       req.AgentID,
		SourcePartyID: req.SourcePartyID,
		Revenue:       req.Revenue,
		Rate:          rate,
		Type:          typ,
		FlatAmount:    req.FlatAmount,
		DedupKey:      req.DedupKey,
	})
	if err != nil {
		if errors.Is(err, ErrNegativeRate) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return httperr.From(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(commission))
}

// List returns the authenticated agent's commissions with totals.
func (h *Handler) List(c *fiber.Ctx) error {
	agentID, _ := c.Locals("user_id").(string)
	if agentID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}

	rows, err := h.engine.History(c.UserContext(), agentID, c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return httperr.From(err)
	}
	earned, err := h.engine.TotalEarned(c.UserContext(), agentID)
	if err != nil {
		return httperr.From(err)
	}
	pending, err := h.engine.TotalPending(c.UserContext(), agentID)
	if err != nil {
		return httperr.From(err)
	}

	out := make([]commissionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toResponse(row))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"data":          out,
		"total_earned":  earned,
		"total_pending": pending,
	})
}
